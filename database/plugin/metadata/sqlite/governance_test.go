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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/database/types"
	"github.com/blinklabs-io/quorum/proposal"
	qtypes "github.com/blinklabs-io/quorum/types"
)

var (
	testAlice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	testBob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func newTestStore(t *testing.T) *MetadataStoreSqlite {
	t.Helper()
	store, err := New("", nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestInMemoryStoresAreIsolated(t *testing.T) {
	a := newTestStore(t)
	b := newTestStore(t)
	require.NoError(t, a.SetTreasuryBalance(
		qtypes.NativeAsset.Bytes(),
		qtypes.NewAmount(1),
		nil,
	))
	balances, err := b.GetTreasuryBalances(nil)
	require.NoError(t, err)
	assert.Empty(t, balances)
}

func TestSetProposalUpsert(t *testing.T) {
	store := newTestStore(t)
	p := proposal.Proposal{
		Id:            1,
		Proposer:      testAlice,
		Title:         "fund",
		SnapshotIndex: 10,
		StartTime:     11,
		EndTime:       111,
		Status:        proposal.StatePending,
		CreatedAt:     10,
	}
	row := models.ProposalToModel(p)
	require.NoError(t, store.SetProposal(&row, nil))

	p.Status = proposal.StateSucceeded
	p.ForVotes = qtypes.MustParseAmount("1000000000000000000000")
	row = models.ProposalToModel(p)
	require.NoError(t, store.SetProposal(&row, nil))

	got, err := store.GetProposal(1, nil)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, p, got.ToProposal())

	missing, err := store.GetProposal(2, nil)
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := store.GetProposals(nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	filtered, err := store.GetProposals(
		[]uint8{uint8(proposal.StateQueued), uint8(proposal.StateSucceeded)},
		nil,
	)
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
	none, err := store.GetProposals([]uint8{uint8(proposal.StateQueued)}, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSetVoteKeepsFirstReceipt(t *testing.T) {
	store := newTestStore(t)
	first := models.VoteToModel(proposal.Vote{
		ProposalId: 1,
		Voter:      testAlice,
		Support:    proposal.SupportFor,
		Weight:     qtypes.NewAmount(5),
		CastAt:     20,
	})
	require.NoError(t, store.SetVote(&first, nil))
	again := first
	again.ID = 0
	again.Support = uint8(proposal.SupportAgainst)
	require.NoError(t, store.SetVote(&again, nil))
	second := models.VoteToModel(proposal.Vote{
		ProposalId: 1,
		Voter:      testBob,
		Support:    proposal.SupportAbstain,
		Weight:     qtypes.NewAmount(3),
		CastAt:     21,
	})
	require.NoError(t, store.SetVote(&second, nil))

	votes, err := store.GetVotes(1, nil)
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, testAlice, votes[0].ToVote().Voter)
	assert.Equal(t, proposal.SupportFor, votes[0].ToVote().Support)
	assert.Equal(t, testBob, votes[1].ToVote().Voter)
}

func TestCheckpointLookup(t *testing.T) {
	store := newTestStore(t)
	account := testAlice.Bytes()
	require.NoError(t, store.SetCheckpoint(account, 10, qtypes.NewAmount(100), nil))
	require.NoError(t, store.SetCheckpoint(account, 20, qtypes.NewAmount(50), nil))
	// Same index replaces
	require.NoError(t, store.SetCheckpoint(account, 20, qtypes.NewAmount(60), nil))

	history, err := store.GetCheckpoints(account, nil)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, qtypes.NewAmount(60), history[1].Power)

	testDefs := []struct {
		idx      uint64
		expected *qtypes.Amount
	}{
		{idx: 9},
		{idx: 10, expected: ptr(qtypes.NewAmount(100))},
		{idx: 19, expected: ptr(qtypes.NewAmount(100))},
		{idx: 20, expected: ptr(qtypes.NewAmount(60))},
		{idx: 1000, expected: ptr(qtypes.NewAmount(60))},
	}
	for _, testDef := range testDefs {
		cp, err := store.GetCheckpointAt(account, testDef.idx, nil)
		require.NoError(t, err)
		if testDef.expected == nil {
			assert.Nil(t, cp, "index %d", testDef.idx)
			continue
		}
		require.NotNil(t, cp, "index %d", testDef.idx)
		assert.Equal(t, *testDef.expected, cp.Power, "index %d", testDef.idx)
	}
}

func TestTransactionCommitAndRollback(t *testing.T) {
	store := newTestStore(t)
	asset := qtypes.NativeAsset.Bytes()

	txn := store.Transaction()
	require.NoError(t, store.SetTreasuryBalance(asset, qtypes.NewAmount(1), txn))
	require.NoError(t, txn.Rollback())
	balances, err := store.GetTreasuryBalances(nil)
	require.NoError(t, err)
	assert.Empty(t, balances)

	txn = store.Transaction()
	require.NoError(t, store.SetTreasuryBalance(asset, qtypes.NewAmount(2), txn))
	require.NoError(t, txn.Commit())
	balances, err = store.GetTreasuryBalances(nil)
	require.NoError(t, err)
	require.Len(t, balances, 1)
	assert.Equal(t, qtypes.NewAmount(2), balances[0].Amount)

	// A finished transaction can't be reused
	err = store.SetTreasuryBalance(asset, qtypes.NewAmount(3), txn)
	require.ErrorIs(t, err, types.ErrTxnFinished)
}

type foreignTxn struct{}

func (foreignTxn) Commit() error   { return nil }
func (foreignTxn) Rollback() error { return nil }

func TestResolveDBRejectsForeignTxn(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetWithdrawals(foreignTxn{})
	require.ErrorIs(t, err, types.ErrTxnWrongType)
}

func ptr[T any](v T) *T {
	return &v
}
