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

// Package clock supplies the logical time index that every governance
// operation is evaluated against. Components never read wall time directly.
package clock

import (
	"fmt"
	"sync"
	"time"
)

// Clock returns the current time index. Implementations must be
// monotonically non-decreasing.
type Clock interface {
	Now() uint64
}

// ManualClock is a Clock that only moves when told to
type ManualClock struct {
	mu  sync.RWMutex
	now uint64
}

func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Set moves the clock to the given index. Moving backward panics.
func (c *ManualClock) Set(index uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < c.now {
		panic(
			fmt.Sprintf("clock moved backward: %d -> %d", c.now, index),
		)
	}
	c.now = index
}

// Advance moves the clock forward and returns the new index
func (c *ManualClock) Advance(delta uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += delta
	return c.now
}

// SlotClock derives the time index from wall time: the index is the number of
// whole slots elapsed since the system start.
type SlotClock struct {
	systemStart time.Time
	slotLength  time.Duration
	nowFunc     func() time.Time
}

func NewSlotClock(systemStart time.Time, slotLength time.Duration) *SlotClock {
	if slotLength <= 0 {
		slotLength = time.Second
	}
	return &SlotClock{
		systemStart: systemStart,
		slotLength:  slotLength,
		nowFunc:     time.Now,
	}
}

func (c *SlotClock) Now() uint64 {
	return c.IndexAt(c.nowFunc())
}

// IndexAt converts a wall time to a time index. Times before the system
// start map to index 0.
func (c *SlotClock) IndexAt(t time.Time) uint64 {
	if t.Before(c.systemStart) {
		return 0
	}
	return uint64(t.Sub(c.systemStart) / c.slotLength)
}

// TimeOf returns the wall time at which the given index begins
func (c *SlotClock) TimeOf(index uint64) time.Time {
	// #nosec G115
	return c.systemStart.Add(time.Duration(index) * c.slotLength)
}

// SlotLength returns the duration of one time index
func (c *SlotClock) SlotLength() time.Duration {
	return c.slotLength
}

// Monotonic records the highest index a component has observed. A mutation
// that arrives with a lower index means the caller's clock went backward,
// which is a programming error.
type Monotonic struct {
	mu   sync.Mutex
	name string
	last uint64
}

func NewMonotonic(name string) *Monotonic {
	return &Monotonic{name: name}
}

// Observe panics if now is lower than any previously observed index
func (m *Monotonic) Observe(now uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if now < m.last {
		panic(
			fmt.Sprintf(
				"%s: time index moved backward: %d -> %d",
				m.name,
				m.last,
				now,
			),
		)
	}
	m.last = now
}

// Last returns the highest observed index
func (m *Monotonic) Last() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}
