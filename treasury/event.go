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

package treasury

import (
	"github.com/blinklabs-io/quorum/event"
	"github.com/blinklabs-io/quorum/types"
)

const (
	DepositEventType             event.EventType = "treasury.deposit"
	WithdrawalQueuedEventType    event.EventType = "treasury.withdrawal-queued"
	WithdrawalExecutedEventType  event.EventType = "treasury.withdrawal-executed"
	WithdrawalCancelledEventType event.EventType = "treasury.withdrawal-cancelled"
	PausedEventType              event.EventType = "treasury.paused"
)

type DepositEvent struct {
	From   types.Address
	Asset  types.Asset
	Amount types.Amount
}

type WithdrawalQueuedEvent struct {
	Withdrawal Withdrawal
}

type WithdrawalExecutedEvent struct {
	Withdrawal Withdrawal
}

type WithdrawalCancelledEvent struct {
	Withdrawal Withdrawal
}

type PausedEvent struct {
	By     types.Address
	Paused bool
}
