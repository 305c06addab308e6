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
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestScheduler_RegistersAndRunsTask(t *testing.T) {
	var counter int32

	timer := NewScheduler(10 * time.Millisecond)
	timer.Start()
	defer timer.Stop()

	// Task runs every 3 ticks
	timer.Register(3, func(context.Context) {
		atomic.AddInt32(&counter, 1)
	}, nil)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&counter) >= 2
	}, 2*time.Second, 5*time.Millisecond)
}

func TestScheduler_ChangeInterval(t *testing.T) {
	var counter int32

	timer := NewScheduler(20 * time.Millisecond)
	assert.False(t, timer.ChangeInterval(time.Second), "not started")
	timer.Start()
	defer timer.Stop()

	timer.Register(1, func(context.Context) {
		atomic.AddInt32(&counter, 1)
	}, nil)
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&counter) >= 2
	}, 2*time.Second, 5*time.Millisecond)

	require.True(t, timer.ChangeInterval(time.Hour))
	assert.Equal(t, time.Hour, timer.Interval())
	// Allow an in-flight tick to land, then expect silence
	time.Sleep(50 * time.Millisecond)
	before := atomic.LoadInt32(&counter)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, before, atomic.LoadInt32(&counter))
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	var skipCounter int32
	release := make(chan struct{})

	timer := NewScheduler(10 * time.Millisecond)
	timer.Start()

	timer.Register(
		1,
		func(ctx context.Context) {
			select {
			case <-release:
			case <-ctx.Done():
			}
		},
		func() {
			atomic.AddInt32(&skipCounter, 1)
		},
	)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&skipCounter) >= 3
	}, 2*time.Second, 5*time.Millisecond)
	close(release)
	timer.Stop()
}

func TestSchedulerStopCancelsRunningTask(t *testing.T) {
	started := make(chan struct{}, 1)
	var cancelled atomic.Bool

	timer := NewScheduler(5 * time.Millisecond)
	timer.Register(1, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-ctx.Done()
		cancelled.Store(true)
	}, nil)
	timer.Start()
	<-started
	timer.Stop()
	assert.True(t, cancelled.Load())
	// Stop is idempotent
	timer.Stop()
}
