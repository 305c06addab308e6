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

package types

import "errors"

// Error kinds returned by the governance core. Components wrap these with
// context, so callers should match them with errors.Is.
var (
	ErrInvalidState                = errors.New("invalid state")
	ErrInsufficientVotingPower     = errors.New("insufficient voting power")
	ErrNoVotingPower               = errors.New("no voting power")
	ErrAlreadyVoted                = errors.New("already voted")
	ErrUnauthorized                = errors.New("unauthorized")
	ErrInvalidAddress              = errors.New("invalid address")
	ErrInsufficientBalance         = errors.New("insufficient balance")
	ErrInsufficientTreasuryBalance = errors.New("insufficient treasury balance")
	ErrTimelockNotElapsed          = errors.New("timelock not elapsed")
	ErrTimelockExpired             = errors.New("timelock expired")
	ErrPaused                      = errors.New("paused")
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrAmountOverflow     = errors.New("amount overflow")
	ErrAmountUnderflow    = errors.New("amount underflow")
	ErrSupplyCapExceeded  = errors.New("supply cap exceeded")
	ErrProposalNotFound   = errors.New("proposal not found")
	ErrWithdrawalNotFound = errors.New("withdrawal not found")
	ErrTargetNotAllowed   = errors.New("target not allowed")
	ErrInvalidParams      = errors.New("invalid parameters")
	ErrLastMember         = errors.New("cannot remove last member")
)
