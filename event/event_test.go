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

package event_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/quorum/event"
)

const testEvtType event.EventType = "test.event"

func TestEventBusSingleSubscriber(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 7, 999))
	select {
	case evt, ok := <-subCh:
		require.True(t, ok, "event channel closed unexpectedly")
		require.Equal(t, 999, evt.Data)
		require.Equal(t, uint64(7), evt.Index)
		require.Equal(t, testEvtType, evt.Type)
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for event")
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1, "hello"))
	for _, ch := range []<-chan event.Event{sub1Ch, sub2Ch} {
		select {
		case evt := <-ch:
			assert.Equal(t, "hello", evt.Data)
		case <-time.After(1 * time.Second):
			t.Fatalf("timeout waiting for event")
		}
	}
}

func TestEventBusSubscribeAll(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, allCh := eb.SubscribeAll()
	eb.Publish("a.one", event.NewEvent("a.one", 1, nil))
	eb.Publish("b.two", event.NewEvent("b.two", 2, nil))
	var got []event.EventType
	for range 2 {
		select {
		case evt := <-allCh:
			got = append(got, evt.Type)
		case <-time.After(1 * time.Second):
			t.Fatalf("timeout waiting for event")
		}
	}
	assert.Equal(t, []event.EventType{"a.one", "b.two"}, got)
}

func TestEventBusUnsubscribe(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1, nil))
	select {
	case _, ok := <-subCh:
		require.False(t, ok, "received unexpected event")
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for channel close")
	}
}

func TestEventBusSubscribeFuncExitsOnStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	eb := event.NewEventBus(nil, nil)
	var calls atomic.Int32
	done := make(chan struct{})
	eb.SubscribeFunc(testEvtType, func(event.Event) {
		if calls.Add(1) == 1 {
			close(done)
		}
	})
	require.True(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, 1, nil)))
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatalf("timeout waiting for async event")
	}
	eb.Stop()
	assert.Equal(t, int32(1), calls.Load())
}

func TestEventBusMetrics(t *testing.T) {
	defer goleak.VerifyNone(t)
	reg := prometheus.NewRegistry()
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 1, nil))
	<-subCh
	count, err := testutil.GatherAndCount(reg, "quorum_event_published_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
