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

package governance

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/quorum/proposal"
	"github.com/blinklabs-io/quorum/treasury"
	"github.com/blinklabs-io/quorum/types"
)

type ActionKind uint8

const (
	// ActionNone touches only the registry when queued and executed
	ActionNone ActionKind = iota
	// ActionTokenWithdrawal carries withdraw(asset,recipient,amount) calldata
	// addressed to the vault
	ActionTokenWithdrawal
	// ActionNativeWithdrawal sends the action value to the target
	ActionNativeWithdrawal
)

func (k ActionKind) String() string {
	switch k {
	case ActionNone:
		return "none"
	case ActionTokenWithdrawal:
		return "withdrawal"
	case ActionNativeWithdrawal:
		return "native-transfer"
	default:
		return fmt.Sprintf("ActionKind(%d)", k)
	}
}

// ClassifyAction determines what treasury movement, if any, an action asks
// for
func ClassifyAction(
	vault types.Address,
	action proposal.Action,
) (ActionKind, treasury.WithdrawalCall, error) {
	if action.Target == vault && len(action.Calldata) > 0 {
		call, err := treasury.DecodeWithdrawal(action.Calldata)
		switch {
		case err == nil:
			if call.Recipient == types.ZeroAddress {
				return ActionNone, treasury.WithdrawalCall{}, fmt.Errorf(
					"withdrawal recipient: %w",
					types.ErrInvalidAddress,
				)
			}
			if call.Amount.IsZero() {
				return ActionNone, treasury.WithdrawalCall{}, fmt.Errorf(
					"withdrawal: %w: zero amount",
					types.ErrInvalidAmount,
				)
			}
			return ActionTokenWithdrawal, call, nil
		case !errors.Is(err, treasury.ErrNotWithdrawal):
			return ActionNone, treasury.WithdrawalCall{}, fmt.Errorf(
				"%w: %w",
				types.ErrInvalidParams,
				err,
			)
		}
	}
	if !action.Value.IsZero() {
		if action.Target == types.ZeroAddress {
			return ActionNone, treasury.WithdrawalCall{}, fmt.Errorf(
				"native transfer target: %w",
				types.ErrInvalidAddress,
			)
		}
		return ActionNativeWithdrawal, treasury.WithdrawalCall{
			Asset:     types.NativeAsset,
			Recipient: action.Target,
			Amount:    action.Value,
		}, nil
	}
	return ActionNone, treasury.WithdrawalCall{}, nil
}
