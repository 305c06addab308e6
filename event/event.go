// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	EventQueueSize      = 64
	AsyncQueueSize      = 1000
	AsyncWorkerPoolSize = 4
)

type EventType string

type EventSubscriberId int

type EventHandlerFunc func(Event)

// Event is a notification emitted by a governance component. Index is the
// logical time index of the mutation that produced it, Timestamp is wall time
// and only informational.
type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
	Index     uint64
}

func NewEvent(eventType EventType, index uint64, eventData any) Event {
	return Event{
		Type:      eventType,
		Index:     index,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// Publisher is the write side of the bus. Core components only publish.
type Publisher interface {
	Publish(EventType, Event)
}

type asyncEvent struct {
	eventType EventType
	event     Event
}

type subscriber struct {
	ch     chan Event
	mu     sync.RWMutex
	closed bool
}

func newSubscriber(buffer int) *subscriber {
	return &subscriber{
		ch: make(chan Event, buffer),
	}
}

func (s *subscriber) deliver(evt Event) (err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("channel deliver panic: %v", r)
		}
	}()
	s.ch <- evt
	return nil
}

func (s *subscriber) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// EventBus fans out events to subscribers by type. Publish delivers
// synchronously, PublishAsync hands the event to a small worker pool.
type EventBus struct {
	subscribers map[EventType]map[EventSubscriberId]*subscriber
	wildcard    map[EventSubscriberId]*subscriber
	metrics     *eventMetrics
	lastSubId   EventSubscriberId
	mu          sync.RWMutex
	logger      *slog.Logger

	asyncQueue chan asyncEvent
	asyncWg    sync.WaitGroup
	stopCh     chan struct{}
	stopped    bool
	stopMu     sync.RWMutex
	stopOpMu   sync.Mutex
}

// NewEventBus creates a new EventBus and starts its async worker pool
func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]*subscriber),
		wildcard:    make(map[EventSubscriberId]*subscriber),
		logger:      logger.With("component", "event"),
		asyncQueue:  make(chan asyncEvent, AsyncQueueSize),
		stopCh:      make(chan struct{}),
	}
	if promRegistry != nil {
		e.metrics = &eventMetrics{}
		e.metrics.init(promRegistry)
	}
	e.startWorkers()
	return e
}

func (e *EventBus) startWorkers() {
	for range AsyncWorkerPoolSize {
		e.asyncWg.Add(1)
		go e.asyncWorker(e.stopCh, e.asyncQueue)
	}
}

func (e *EventBus) asyncWorker(stopCh <-chan struct{}, queue <-chan asyncEvent) {
	defer e.asyncWg.Done()
	for {
		select {
		case <-stopCh:
			return
		case ae := <-queue:
			e.Publish(ae.eventType, ae.event)
		}
	}
}

// Subscribe allows a consumer to receive events of a particular type via a channel
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub := newSubscriber(EventQueueSize)
	e.lastSubId++
	subId := e.lastSubId
	if _, ok := e.subscribers[eventType]; !ok {
		e.subscribers[eventType] = make(map[EventSubscriberId]*subscriber)
	}
	e.subscribers[eventType][subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Inc()
	}
	return subId, sub.ch
}

// SubscribeAll allows a consumer to receive every published event
func (e *EventBus) SubscribeAll() (EventSubscriberId, <-chan Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub := newSubscriber(EventQueueSize)
	e.lastSubId++
	subId := e.lastSubId
	e.wildcard[subId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues("*").Inc()
	}
	return subId, sub.ch
}

// SubscribeFunc allows a consumer to receive events of a particular type via a callback function
func (e *EventBus) SubscribeFunc(
	eventType EventType,
	handlerFunc EventHandlerFunc,
) EventSubscriberId {
	subId, evtCh := e.Subscribe(eventType)
	go func() {
		for evt := range evtCh {
			handlerFunc(evt)
		}
	}()
	return subId
}

// Unsubscribe stops delivery of events for a particular type for an existing subscriber
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	var sub *subscriber
	if evtTypeSubs, ok := e.subscribers[eventType]; ok {
		if s, ok := evtTypeSubs[subId]; ok {
			sub = s
			delete(evtTypeSubs, subId)
			if len(evtTypeSubs) == 0 {
				delete(e.subscribers, eventType)
			}
		}
	}
	if s, ok := e.wildcard[subId]; ok && sub == nil {
		sub = s
		eventType = "*"
		delete(e.wildcard, subId)
	}
	if sub != nil && e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(string(eventType)).Dec()
	}
	e.mu.Unlock()
	if sub != nil {
		sub.close()
	}
}

// Publish sends an event of a particular type to all subscribers. Delivery
// blocks on slow subscribers.
func (e *EventBus) Publish(eventType EventType, evt Event) {
	type subItem struct {
		id  EventSubscriberId
		sub *subscriber
	}
	e.mu.RLock()
	subs := e.subscribers[eventType]
	subList := make([]subItem, 0, len(subs)+len(e.wildcard))
	for id, sub := range subs {
		subList = append(subList, subItem{id: id, sub: sub})
	}
	for id, sub := range e.wildcard {
		subList = append(subList, subItem{id: id, sub: sub})
	}
	e.mu.RUnlock()
	for _, item := range subList {
		if err := item.sub.deliver(evt); err != nil {
			e.Unsubscribe(eventType, item.id)
			if e.metrics != nil {
				e.metrics.deliveryErrors.WithLabelValues(string(eventType)).Inc()
			}
			e.logger.Debug(
				"event delivery error",
				"type", eventType,
				"err", err,
			)
		}
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

// PublishAsync enqueues an event for asynchronous delivery to all subscribers.
// Returns false if the EventBus is stopped or the async queue is full.
func (e *EventBus) PublishAsync(eventType EventType, evt Event) bool {
	e.stopMu.RLock()
	defer e.stopMu.RUnlock()
	if e.stopped {
		return false
	}
	select {
	case e.asyncQueue <- asyncEvent{eventType: eventType, event: evt}:
		return true
	default:
		e.logger.Warn(
			"async event queue full, dropping event",
			"type", eventType,
		)
		if e.metrics != nil {
			e.metrics.deliveryErrors.WithLabelValues(string(eventType)).Inc()
		}
		return false
	}
}

// Stop halts the async workers and closes all subscriber channels, so
// SubscribeFunc goroutines exit. Later async publishes are refused.
func (e *EventBus) Stop() {
	e.stopOpMu.Lock()
	defer e.stopOpMu.Unlock()

	e.stopMu.Lock()
	if e.stopped {
		e.stopMu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.stopMu.Unlock()
	e.asyncWg.Wait()

	e.mu.Lock()
	subsCopy := e.subscribers
	wildCopy := e.wildcard
	e.subscribers = make(map[EventType]map[EventSubscriberId]*subscriber)
	e.wildcard = make(map[EventSubscriberId]*subscriber)
	e.mu.Unlock()
	for _, evtTypeSubs := range subsCopy {
		for _, sub := range evtTypeSubs {
			sub.close()
		}
	}
	for _, sub := range wildCopy {
		sub.close()
	}
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
}
