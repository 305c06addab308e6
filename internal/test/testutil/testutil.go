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

// Package testutil provides channel helpers for tests that observe the event
// bus
package testutil

import (
	"testing"
	"time"

	"github.com/blinklabs-io/quorum/event"
)

// RequireReceive waits for a value on the given channel or fails the test
// if the timeout expires
func RequireReceive[T any](
	t *testing.T,
	ch <-chan T,
	timeout time.Duration,
	msg string,
) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		t.Fatalf("timeout waiting for channel receive: %s", msg)
		var zero T
		return zero // unreachable
	}
}

// RequireNoReceive verifies that no value is received on the given channel
// within the specified duration
func RequireNoReceive[T any](
	t *testing.T,
	ch <-chan T,
	duration time.Duration,
	msg string,
) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf(
			"unexpected value received on channel: %v: %s",
			v,
			msg,
		)
	case <-time.After(duration):
	}
}

// CollectEvents receives count events and returns them in delivery order
func CollectEvents(
	t *testing.T,
	ch <-chan event.Event,
	count int,
	timeout time.Duration,
) []event.Event {
	t.Helper()
	deadline := time.Now().Add(timeout)
	ret := make([]event.Event, 0, count)
	for len(ret) < count {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("timeout waiting for events: got %d of %d", len(ret), count)
		}
		ret = append(ret, RequireReceive(t, ch, remaining, "event"))
	}
	return ret
}

// EventTypes returns the type of each event
func EventTypes(events []event.Event) []event.EventType {
	ret := make([]event.EventType, 0, len(events))
	for _, evt := range events {
		ret = append(ret, evt.Type)
	}
	return ret
}
