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

package sqlite

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/database/types"
	qtypes "github.com/blinklabs-io/quorum/types"
)

// GetProposal returns a proposal by its ID, or nil if it doesn't exist
func (d *MetadataStoreSqlite) GetProposal(
	proposalId uint64,
	txn types.Txn,
) (*models.Proposal, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Proposal{}
	result := db.First(ret, "proposal_id = ?", proposalId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetProposals returns proposals ordered by ID, optionally filtered by stored status
func (d *MetadataStoreSqlite) GetProposals(
	statuses []uint8,
	txn types.Txn,
) ([]models.Proposal, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Proposal
	query := db.Order("proposal_id ASC")
	if len(statuses) > 0 {
		// []uint8 would bind as a single blob
		tmpStatuses := make([]int, 0, len(statuses))
		for _, status := range statuses {
			tmpStatuses = append(tmpStatuses, int(status))
		}
		query = query.Where("status IN ?", tmpStatuses)
	}
	if result := query.Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetProposal creates or refreshes a proposal row
func (d *MetadataStoreSqlite) SetProposal(
	proposal *models.Proposal,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "proposal_id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{
				"for_votes",
				"against_votes",
				"abstain_votes",
				"status",
				"execution_eta",
				"expires_at",
				"withdrawal_id",
			},
		),
	}).Create(proposal)
	if result.Error != nil {
		return fmt.Errorf("set proposal %d: %w", proposal.ProposalId, result.Error)
	}
	return nil
}

// GetVotes returns the votes on a proposal in the order they were cast
func (d *MetadataStoreSqlite) GetVotes(
	proposalId uint64,
	txn types.Txn,
) ([]models.Vote, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Vote
	result := db.
		Where("proposal_id = ?", proposalId).
		Order("cast_at ASC, id ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetVote records a vote. Receipts are immutable, so an existing row is kept.
func (d *MetadataStoreSqlite) SetVote(vote *models.Vote, txn types.Txn) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "proposal_id"}, {Name: "voter"}},
		DoNothing: true,
	}).Create(vote)
	if result.Error != nil {
		return fmt.Errorf("set vote: %w", result.Error)
	}
	return nil
}

// GetCheckpoints returns the checkpoint history of an account in index order
func (d *MetadataStoreSqlite) GetCheckpoints(
	account []byte,
	txn types.Txn,
) ([]models.Checkpoint, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Checkpoint
	result := db.
		Where("account = ?", account).
		Order("idx ASC").
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetCheckpointAt returns the latest checkpoint at or before idx, or nil if
// the account had no history by then
func (d *MetadataStoreSqlite) GetCheckpointAt(
	account []byte,
	idx uint64,
	txn types.Txn,
) (*models.Checkpoint, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Checkpoint{}
	result := db.
		Where("account = ? AND idx <= ?", account, idx).
		Order("idx DESC").
		First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// SetCheckpoint writes a checkpoint, replacing any existing one at the same index
func (d *MetadataStoreSqlite) SetCheckpoint(
	account []byte,
	idx uint64,
	power qtypes.Amount,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	tmpCheckpoint := &models.Checkpoint{
		Account: account,
		Idx:     idx,
		Power:   power,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account"}, {Name: "idx"}},
		DoUpdates: clause.AssignmentColumns([]string{"power"}),
	}).Create(tmpCheckpoint)
	if result.Error != nil {
		return fmt.Errorf("set checkpoint: %w", result.Error)
	}
	return nil
}

// GetWithdrawal returns a withdrawal by its ID, or nil if it doesn't exist
func (d *MetadataStoreSqlite) GetWithdrawal(
	withdrawalId uint64,
	txn types.Txn,
) (*models.Withdrawal, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.Withdrawal{}
	result := db.First(ret, "withdrawal_id = ?", withdrawalId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetWithdrawals returns all withdrawals ordered by ID
func (d *MetadataStoreSqlite) GetWithdrawals(
	txn types.Txn,
) ([]models.Withdrawal, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.Withdrawal
	if result := db.Order("withdrawal_id ASC").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetWithdrawal creates or refreshes a withdrawal row
func (d *MetadataStoreSqlite) SetWithdrawal(
	withdrawal *models.Withdrawal,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	result := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "withdrawal_id"}},
		DoUpdates: clause.AssignmentColumns(
			[]string{"status", "executed_at"},
		),
	}).Create(withdrawal)
	if result.Error != nil {
		return fmt.Errorf("set withdrawal %d: %w", withdrawal.WithdrawalId, result.Error)
	}
	return nil
}

// GetTreasuryBalances returns the vault balance of every asset it has held
func (d *MetadataStoreSqlite) GetTreasuryBalances(
	txn types.Txn,
) ([]models.TreasuryBalance, error) {
	db, err := d.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.TreasuryBalance
	if result := db.Order("asset ASC").Find(&ret); result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// SetTreasuryBalance sets the vault balance of an asset
func (d *MetadataStoreSqlite) SetTreasuryBalance(
	asset []byte,
	amount qtypes.Amount,
	txn types.Txn,
) error {
	db, err := d.resolveDB(txn)
	if err != nil {
		return err
	}
	tmpBalance := &models.TreasuryBalance{
		Asset:  asset,
		Amount: amount,
	}
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset"}},
		DoUpdates: clause.AssignmentColumns([]string{"amount"}),
	}).Create(tmpBalance)
	if result.Error != nil {
		return fmt.Errorf("set treasury balance: %w", result.Error)
	}
	return nil
}
