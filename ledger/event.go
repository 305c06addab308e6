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

package ledger

import (
	"github.com/blinklabs-io/quorum/event"
	"github.com/blinklabs-io/quorum/types"
)

const (
	TransferEventType        event.EventType = "ledger.transfer"
	DelegateChangedEventType event.EventType = "ledger.delegate-changed"
	VotesChangedEventType    event.EventType = "ledger.votes-changed"
	SupplyChangedEventType   event.EventType = "ledger.supply-changed"
)

// TransferEvent is emitted for every balance movement. Mints have a zero From
// and burns have a zero To.
type TransferEvent struct {
	From   types.Address
	To     types.Address
	Amount types.Amount
}

type DelegateChangedEvent struct {
	Delegator    types.Address
	FromDelegate types.Address
	ToDelegate   types.Address
}

// VotesChangedEvent is emitted whenever a checkpoint is written for a delegatee
type VotesChangedEvent struct {
	Delegatee types.Address
	Previous  types.Amount
	Current   types.Amount
}

type SupplyChangedEvent struct {
	Previous types.Amount
	Current  types.Amount
}
