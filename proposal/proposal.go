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
	"github.com/blinklabs-io/quorum/types"
)

// Action is the operation a proposal performs when executed. The registry
// stores it without interpreting it.
type Action struct {
	Target   types.Address
	Value    types.Amount
	Calldata []byte
}

type Proposal struct {
	Id            uint64
	Proposer      types.Address
	Title         string
	Description   string
	Action        Action
	SnapshotIndex uint64
	StartTime     uint64
	EndTime       uint64
	ForVotes      types.Amount
	AgainstVotes  types.Amount
	AbstainVotes  types.Amount
	// Status is the stored state. Use StateAt for the effective state.
	Status       State
	ExecutionEta uint64
	// ExpiresAt is the first index at which a queued proposal can no longer
	// be executed
	ExpiresAt    uint64
	WithdrawalId uint64
	Executed     bool
	Cancelled    bool
	CreatedAt    uint64
}

// StateAt computes the effective state at the given index. Time-dependent
// states are never stored.
func (p *Proposal) StateAt(now uint64) State {
	switch p.Status {
	case StatePending:
		if now < p.StartTime {
			return StatePending
		}
		return StateActive
	case StateQueued:
		if now >= p.ExpiresAt {
			return StateExpired
		}
		return StateQueued
	default:
		return p.Status
	}
}

// VotingOpen reports whether votes may be cast at the given index
func (p *Proposal) VotingOpen(now uint64) bool {
	return p.StateAt(now) == StateActive && now <= p.EndTime
}

// TotalVotes returns the sum of all three tallies
func (p *Proposal) TotalVotes() (types.Amount, error) {
	return types.Sum(p.ForVotes, p.AgainstVotes, p.AbstainVotes)
}

func (p *Proposal) clone() Proposal {
	ret := *p
	if p.Action.Calldata != nil {
		ret.Action.Calldata = append([]byte(nil), p.Action.Calldata...)
	}
	return ret
}

// Vote is an immutable voting receipt
type Vote struct {
	ProposalId uint64
	Voter      types.Address
	Support    Support
	Weight     types.Amount
	CastAt     uint64
}

type voteKey struct {
	proposalId uint64
	voter      types.Address
}
