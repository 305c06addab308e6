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

package metadata

import (
	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/database/types"
	qtypes "github.com/blinklabs-io/quorum/types"
)

type MetadataStore interface {
	Close() error
	Transaction() types.Txn

	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error

	GetProposal(uint64, types.Txn) (*models.Proposal, error)
	GetProposals([]uint8, types.Txn) ([]models.Proposal, error)
	SetProposal(*models.Proposal, types.Txn) error

	GetVotes(uint64, types.Txn) ([]models.Vote, error)
	SetVote(*models.Vote, types.Txn) error

	GetCheckpoints([]byte, types.Txn) ([]models.Checkpoint, error)
	GetCheckpointAt([]byte, uint64, types.Txn) (*models.Checkpoint, error)
	SetCheckpoint([]byte, uint64, qtypes.Amount, types.Txn) error

	GetWithdrawal(uint64, types.Txn) (*models.Withdrawal, error)
	GetWithdrawals(types.Txn) ([]models.Withdrawal, error)
	SetWithdrawal(*models.Withdrawal, types.Txn) error

	GetTreasuryBalances(types.Txn) ([]models.TreasuryBalance, error)
	SetTreasuryBalance([]byte, qtypes.Amount, types.Txn) error
}
