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

package proposal

import (
	"fmt"
	"strings"

	"github.com/blinklabs-io/quorum/types"
)

// State is the lifecycle state of a proposal. The numeric values are part of
// the persisted format and must not be reordered.
type State uint8

const (
	StatePending State = iota
	StateActive
	StateCancelled
	StateDefeated
	StateSucceeded
	StateQueued
	StateExecuted
	StateExpired
)

var stateNames = map[State]string{
	StatePending:   "Pending",
	StateActive:    "Active",
	StateCancelled: "Cancelled",
	StateDefeated:  "Defeated",
	StateSucceeded: "Succeeded",
	StateQueued:    "Queued",
	StateExecuted:  "Executed",
	StateExpired:   "Expired",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", s)
}

func ParseState(s string) (State, error) {
	for state, name := range stateNames {
		if strings.EqualFold(name, s) {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unknown proposal state %q", s)
}

// Finalized reports whether voting on the proposal has been settled, one way
// or another
func (s State) Finalized() bool {
	return s != StatePending && s != StateActive
}

// Support is the direction of a vote
type Support uint8

const (
	SupportAgainst Support = 0
	SupportFor     Support = 1
	SupportAbstain Support = 2
)

func (s Support) Valid() bool {
	return s <= SupportAbstain
}

func (s Support) String() string {
	switch s {
	case SupportAgainst:
		return "against"
	case SupportFor:
		return "for"
	case SupportAbstain:
		return "abstain"
	default:
		return fmt.Sprintf("Support(%d)", s)
	}
}

func ParseSupport(s string) (Support, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "against", "0":
		return SupportAgainst, nil
	case "for", "1":
		return SupportFor, nil
	case "abstain", "2":
		return SupportAbstain, nil
	default:
		return 0, fmt.Errorf("unknown vote support %q", s)
	}
}

// Quorum returns floor(supply * numerator / denominator)
func Quorum(supply types.Amount, numerator, denominator uint64) (types.Amount, error) {
	if denominator == 0 || numerator > denominator {
		return types.Amount{}, fmt.Errorf(
			"%w: quorum fraction %d/%d",
			types.ErrInvalidParams,
			numerator,
			denominator,
		)
	}
	return supply.MulDiv(numerator, denominator)
}
