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

package keeper

import (
	"context"
	"sync"
	"time"
)

type ScheduledTask struct {
	task              func(context.Context)
	skipFunc          func()
	interval          int
	ticksSinceLastRun int
	running           bool
}

// Scheduler runs registered tasks every N ticks. A task that is still running
// when it comes due again is skipped for that tick.
type Scheduler struct {
	mutex              sync.Mutex
	interval           time.Duration
	ticker             *time.Ticker
	ctx                context.Context
	cancel             context.CancelFunc
	updateIntervalChan chan time.Duration
	tasks              []*ScheduledTask
	wg                 sync.WaitGroup
	startOnce          sync.Once
	stopOnce           sync.Once
}

func NewScheduler(interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		interval:           interval,
		ctx:                ctx,
		cancel:             cancel,
		updateIntervalChan: make(chan time.Duration),
		tasks:              []*ScheduledTask{},
	}
}

// Start the timer (run goroutine once)
func (st *Scheduler) Start() {
	st.startOnce.Do(func() {
		st.mutex.Lock()
		st.ticker = time.NewTicker(st.interval)
		st.mutex.Unlock()
		st.wg.Add(1)
		go st.run()
	})
}

// Listens for tick events and interval updates and updating the ticker accordingly.
func (st *Scheduler) run() {
	defer st.wg.Done()
	for {
		select {
		case <-st.ticker.C:
			st.tick()
		case newInterval := <-st.updateIntervalChan:
			st.mutex.Lock()
			st.ticker.Reset(newInterval)
			st.interval = newInterval
			st.mutex.Unlock()
		case <-st.ctx.Done():
			st.ticker.Stop()
			return
		}
	}
}

// Increments per-task tick counters and executes tasks when due
func (st *Scheduler) tick() {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	for _, task := range st.tasks {
		task.ticksSinceLastRun++
		if task.ticksSinceLastRun < task.interval {
			continue
		}
		task.ticksSinceLastRun = 0
		if task.running {
			if task.skipFunc != nil {
				task.skipFunc()
			}
			continue
		}
		task.running = true
		st.wg.Add(1)
		go st.runTask(task)
	}
}

func (st *Scheduler) runTask(task *ScheduledTask) {
	defer st.wg.Done()
	defer func() {
		st.mutex.Lock()
		task.running = false
		st.mutex.Unlock()
	}()
	task.task(st.ctx)
}

// Register adds a task that runs every interval ticks. skipFunc, if not nil,
// is called when a run is skipped because the previous one hasn't finished.
func (st *Scheduler) Register(
	interval int,
	task func(context.Context),
	skipFunc func(),
) {
	st.mutex.Lock()
	defer st.mutex.Unlock()

	st.tasks = append(st.tasks, &ScheduledTask{
		interval: max(interval, 1),
		task:     task,
		skipFunc: skipFunc,
	})
}

// Interval returns the current tick interval
func (st *Scheduler) Interval() time.Duration {
	st.mutex.Lock()
	defer st.mutex.Unlock()
	return st.interval
}

// ChangeInterval updates the tick interval of the Scheduler at runtime. It
// returns false if the scheduler isn't running.
func (st *Scheduler) ChangeInterval(newInterval time.Duration) bool {
	st.mutex.Lock()
	started := st.ticker != nil
	st.mutex.Unlock()
	if !started {
		return false
	}
	select {
	case st.updateIntervalChan <- newInterval:
		return true
	case <-st.ctx.Done():
		return false
	}
}

// Stop terminates the scheduler, cancels the context passed to running tasks
// and waits for them to return
func (st *Scheduler) Stop() {
	st.stopOnce.Do(func() {
		st.cancel()
		st.wg.Wait()
	})
}
