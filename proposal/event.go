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
	"github.com/blinklabs-io/quorum/event"
)

const (
	ProposalCreatedEventType      event.EventType = "governance.proposal-created"
	VoteCastEventType             event.EventType = "governance.vote-cast"
	ProposalStateChangedEventType event.EventType = "governance.proposal-state-changed"
	ProposalQueuedEventType       event.EventType = "governance.proposal-queued"
	ProposalExecutedEventType     event.EventType = "governance.proposal-executed"
)

type ProposalCreatedEvent struct {
	Proposal Proposal
}

type VoteCastEvent struct {
	Vote Vote
}

type ProposalStateChangedEvent struct {
	ProposalId uint64
	From       State
	To         State
}

type ProposalQueuedEvent struct {
	ProposalId   uint64
	Eta          uint64
	WithdrawalId uint64
}

type ProposalExecutedEvent struct {
	ProposalId uint64
}
