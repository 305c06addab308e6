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

package quorum

import (
	"fmt"
	"slices"
	"sync"

	"github.com/blinklabs-io/quorum/database"
	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/event"
	"github.com/blinklabs-io/quorum/ledger"
	"github.com/blinklabs-io/quorum/proposal"
	"github.com/blinklabs-io/quorum/treasury"
	"github.com/blinklabs-io/quorum/types"
)

// eventRecorder buffers the events of the call being applied. They are
// published only after the call is journaled.
type eventRecorder struct {
	mutex  sync.Mutex
	events []event.Event
}

func (r *eventRecorder) Publish(_ event.EventType, evt event.Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = append(r.events, evt)
}

func (r *eventRecorder) reset() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.events = nil
}

func (r *eventRecorder) take() []event.Event {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	ret := r.events
	r.events = nil
	return ret
}

// writeReadModel refreshes the metadata rows touched by events
func (n *Node) writeReadModel(txn *database.Txn, events []event.Event) error {
	store := n.db.Metadata()
	var proposalIds, withdrawalIds []uint64
	var assets []types.Asset
	for _, evt := range events {
		switch data := evt.Data.(type) {
		case proposal.ProposalCreatedEvent:
			proposalIds = append(proposalIds, data.Proposal.Id)
		case proposal.VoteCastEvent:
			proposalIds = append(proposalIds, data.Vote.ProposalId)
			tmpVote := models.VoteToModel(data.Vote)
			if err := store.SetVote(&tmpVote, txn.Metadata()); err != nil {
				return fmt.Errorf("write vote: %w", err)
			}
		case proposal.ProposalStateChangedEvent:
			proposalIds = append(proposalIds, data.ProposalId)
		case proposal.ProposalQueuedEvent:
			proposalIds = append(proposalIds, data.ProposalId)
		case proposal.ProposalExecutedEvent:
			proposalIds = append(proposalIds, data.ProposalId)
		case ledger.VotesChangedEvent:
			if err := store.SetCheckpoint(
				data.Delegatee.Bytes(),
				evt.Index,
				data.Current,
				txn.Metadata(),
			); err != nil {
				return fmt.Errorf("write checkpoint: %w", err)
			}
		case ledger.SupplyChangedEvent:
			if err := store.SetCheckpoint(
				types.ZeroAddress.Bytes(),
				evt.Index,
				data.Current,
				txn.Metadata(),
			); err != nil {
				return fmt.Errorf("write supply checkpoint: %w", err)
			}
		case treasury.DepositEvent:
			assets = append(assets, data.Asset)
		case treasury.WithdrawalQueuedEvent:
			withdrawalIds = append(withdrawalIds, data.Withdrawal.Id)
		case treasury.WithdrawalExecutedEvent:
			withdrawalIds = append(withdrawalIds, data.Withdrawal.Id)
			assets = append(assets, data.Withdrawal.Asset)
		case treasury.WithdrawalCancelledEvent:
			withdrawalIds = append(withdrawalIds, data.Withdrawal.Id)
		}
	}
	slices.Sort(proposalIds)
	for _, id := range slices.Compact(proposalIds) {
		p, err := n.registry.Get(id)
		if err != nil {
			return err
		}
		if err := n.writeProposal(txn, p); err != nil {
			return err
		}
	}
	slices.Sort(withdrawalIds)
	for _, id := range slices.Compact(withdrawalIds) {
		w, err := n.vault.Withdrawal(id)
		if err != nil {
			return err
		}
		if err := n.writeWithdrawal(txn, w); err != nil {
			return err
		}
	}
	for _, asset := range assets {
		if err := store.SetTreasuryBalance(
			asset.Bytes(),
			n.vault.Balance(asset),
			txn.Metadata(),
		); err != nil {
			return fmt.Errorf("write treasury balance: %w", err)
		}
	}
	return nil
}

func (n *Node) writeProposal(txn *database.Txn, p proposal.Proposal) error {
	tmpProposal := models.ProposalToModel(p)
	if err := n.db.Metadata().SetProposal(&tmpProposal, txn.Metadata()); err != nil {
		return fmt.Errorf("write proposal %d: %w", p.Id, err)
	}
	return nil
}

func (n *Node) writeWithdrawal(txn *database.Txn, w treasury.Withdrawal) error {
	tmpWithdrawal := models.WithdrawalToModel(w)
	if err := n.db.Metadata().SetWithdrawal(&tmpWithdrawal, txn.Metadata()); err != nil {
		return fmt.Errorf("write withdrawal %d: %w", w.Id, err)
	}
	return nil
}

// rebuildReadModel writes the complete in-memory state to the metadata
// store. It is used when the metadata store is behind the journal.
func (n *Node) rebuildReadModel() error {
	store := n.db.Metadata()
	txn := n.db.Transaction(true)
	return txn.Do(func(txn *database.Txn) error {
		for _, p := range n.registry.List() {
			if err := n.writeProposal(txn, p); err != nil {
				return err
			}
			for _, v := range n.registry.Votes(p.Id) {
				tmpVote := models.VoteToModel(v)
				if err := store.SetVote(&tmpVote, txn.Metadata()); err != nil {
					return fmt.Errorf("write vote: %w", err)
				}
			}
		}
		for _, account := range n.ledger.Accounts() {
			for _, cp := range n.ledger.Checkpoints(account) {
				if err := store.SetCheckpoint(
					account.Bytes(),
					cp.Index,
					cp.Power,
					txn.Metadata(),
				); err != nil {
					return fmt.Errorf("write checkpoint: %w", err)
				}
			}
		}
		for _, cp := range n.ledger.SupplyCheckpoints() {
			if err := store.SetCheckpoint(
				types.ZeroAddress.Bytes(),
				cp.Index,
				cp.Power,
				txn.Metadata(),
			); err != nil {
				return fmt.Errorf("write supply checkpoint: %w", err)
			}
		}
		for _, w := range n.vault.Withdrawals() {
			if err := n.writeWithdrawal(txn, w); err != nil {
				return err
			}
		}
		for asset, amount := range n.vault.Balances() {
			if err := store.SetTreasuryBalance(
				asset.Bytes(),
				amount,
				txn.Metadata(),
			); err != nil {
				return fmt.Errorf("write treasury balance: %w", err)
			}
		}
		return nil
	})
}
