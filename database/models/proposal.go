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

	"github.com/blinklabs-io/quorum/proposal"
	"github.com/blinklabs-io/quorum/types"
)

// Proposal is the read-model row for a governance proposal. Status holds the
// stored state; time-dependent states are computed by the reader.
type Proposal struct {
	ID            uint   `gorm:"primarykey"`
	ProposalId    uint64 `gorm:"uniqueIndex;not null"`
	Proposer      []byte `gorm:"index;size:20;not null"`
	Title         string `gorm:"size:256"`
	Description   string
	Target        []byte       `gorm:"size:20"`
	Value         types.Amount `gorm:"not null"`
	Calldata      []byte
	SnapshotIndex uint64       `gorm:"not null"`
	StartTime     uint64       `gorm:"not null"`
	EndTime       uint64       `gorm:"index;not null"`
	ForVotes      types.Amount `gorm:"not null"`
	AgainstVotes  types.Amount `gorm:"not null"`
	AbstainVotes  types.Amount `gorm:"not null"`
	Status        uint8        `gorm:"index;not null"`
	ExecutionEta  uint64
	ExpiresAt     uint64
	WithdrawalId  uint64
	CreatedIndex  uint64 `gorm:"not null"`
}

func (Proposal) TableName() string {
	return "proposal"
}

// ProposalToModel converts a registry proposal into its row
func ProposalToModel(p proposal.Proposal) Proposal {
	return Proposal{
		ProposalId:    p.Id,
		Proposer:      p.Proposer.Bytes(),
		Title:         p.Title,
		Description:   p.Description,
		Target:        p.Action.Target.Bytes(),
		Value:         p.Action.Value,
		Calldata:      p.Action.Calldata,
		SnapshotIndex: p.SnapshotIndex,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		ForVotes:      p.ForVotes,
		AgainstVotes:  p.AgainstVotes,
		AbstainVotes:  p.AbstainVotes,
		Status:        uint8(p.Status),
		ExecutionEta:  p.ExecutionEta,
		ExpiresAt:     p.ExpiresAt,
		WithdrawalId:  p.WithdrawalId,
		CreatedIndex:  p.CreatedAt,
	}
}

// ToProposal converts the row back into a registry proposal
func (p Proposal) ToProposal() proposal.Proposal {
	status := proposal.State(p.Status)
	return proposal.Proposal{
		Id:          p.ProposalId,
		Proposer:    common.BytesToAddress(p.Proposer),
		Title:       p.Title,
		Description: p.Description,
		Action: proposal.Action{
			Target:   common.BytesToAddress(p.Target),
			Value:    p.Value,
			Calldata: p.Calldata,
		},
		SnapshotIndex: p.SnapshotIndex,
		StartTime:     p.StartTime,
		EndTime:       p.EndTime,
		ForVotes:      p.ForVotes,
		AgainstVotes:  p.AgainstVotes,
		AbstainVotes:  p.AbstainVotes,
		Status:        status,
		ExecutionEta:  p.ExecutionEta,
		ExpiresAt:     p.ExpiresAt,
		WithdrawalId:  p.WithdrawalId,
		Executed:      status == proposal.StateExecuted,
		Cancelled:     status == proposal.StateCancelled,
		CreatedAt:     p.CreatedIndex,
	}
}
