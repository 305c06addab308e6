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

package models

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/quorum/treasury"
	"github.com/blinklabs-io/quorum/types"
)

type Withdrawal struct {
	ID           uint         `gorm:"primarykey"`
	WithdrawalId uint64       `gorm:"uniqueIndex;not null"`
	Recipient    []byte       `gorm:"index;size:20;not null"`
	Asset        []byte       `gorm:"size:20;not null"`
	Amount       types.Amount `gorm:"not null"`
	QueuedAt     uint64       `gorm:"not null"`
	Eta          uint64       `gorm:"not null"`
	ExpiresAt    uint64       `gorm:"not null"`
	Status       uint8        `gorm:"index;not null"` // 0=Pending, 1=Executed, 2=Cancelled
	ExecutedAt   uint64
}

func (Withdrawal) TableName() string {
	return "withdrawal"
}

func WithdrawalToModel(w treasury.Withdrawal) Withdrawal {
	return Withdrawal{
		WithdrawalId: w.Id,
		Recipient:    w.Recipient.Bytes(),
		Asset:        w.Asset.Bytes(),
		Amount:       w.Amount,
		QueuedAt:     w.QueuedAt,
		Eta:          w.Eta,
		ExpiresAt:    w.ExpiresAt,
		Status:       uint8(w.Status),
		ExecutedAt:   w.ExecutedAt,
	}
}

func (w Withdrawal) ToWithdrawal() treasury.Withdrawal {
	return treasury.Withdrawal{
		Id:         w.WithdrawalId,
		Recipient:  common.BytesToAddress(w.Recipient),
		Asset:      common.BytesToAddress(w.Asset),
		Amount:     w.Amount,
		QueuedAt:   w.QueuedAt,
		Eta:        w.Eta,
		ExpiresAt:  w.ExpiresAt,
		Status:     treasury.WithdrawalStatus(w.Status),
		ExecutedAt: w.ExecutedAt,
	}
}

// TreasuryBalance is the vault balance of one asset. The native asset is
// stored under the zero address.
type TreasuryBalance struct {
	ID     uint         `gorm:"primarykey"`
	Asset  []byte       `gorm:"uniqueIndex;size:20;not null"`
	Amount types.Amount `gorm:"not null"`
}

func (TreasuryBalance) TableName() string {
	return "treasury_balance"
}
