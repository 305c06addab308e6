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

package proposal_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/quorum/event"
	"github.com/blinklabs-io/quorum/proposal"
	"github.com/blinklabs-io/quorum/types"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x00000000000000000000000000000000000ca401")
)

type recorder struct {
	events []event.Event
}

func (r *recorder) Publish(_ event.EventType, evt event.Event) {
	r.events = append(r.events, evt)
}

func (r *recorder) eventTypes() []event.EventType {
	ret := make([]event.EventType, 0, len(r.events))
	for _, evt := range r.events {
		ret = append(ret, evt.Type)
	}
	return ret
}

// newTestProposal creates a proposal at index 10 that is Active during
// [11, 20]
func newTestProposal(t *testing.T, r *proposal.Registry) proposal.Proposal {
	t.Helper()
	p, err := r.Create(10, proposal.NewProposal{
		Proposer:      alice,
		Title:         "fund the thing",
		SnapshotIndex: 10,
		StartTime:     11,
		EndTime:       20,
	})
	require.NoError(t, err)
	return p
}

func TestCreate(t *testing.T) {
	rec := &recorder{}
	r := proposal.NewRegistry(proposal.RegistryConfig{EventBus: rec})
	p := newTestProposal(t, r)
	assert.Equal(t, uint64(1), p.Id)
	assert.Equal(t, proposal.StatePending, p.Status)
	p2 := newTestProposal(t, r)
	assert.Equal(t, uint64(2), p2.Id)
	assert.Equal(t, uint64(2), r.Count())
	assert.Equal(
		t,
		[]event.EventType{proposal.ProposalCreatedEventType, proposal.ProposalCreatedEventType},
		rec.eventTypes(),
	)

	_, err := r.Create(10, proposal.NewProposal{Proposer: types.ZeroAddress, SnapshotIndex: 10, StartTime: 11, EndTime: 12})
	require.ErrorIs(t, err, types.ErrInvalidAddress)
	_, err = r.Create(10, proposal.NewProposal{Proposer: alice, SnapshotIndex: 10, StartTime: 10, EndTime: 12})
	require.ErrorIs(t, err, types.ErrInvalidParams)

	_, err = r.Get(3)
	require.ErrorIs(t, err, types.ErrProposalNotFound)
	_, err = r.Get(0)
	require.ErrorIs(t, err, types.ErrProposalNotFound)
}

func TestComputedStates(t *testing.T) {
	r := proposal.NewRegistry(proposal.RegistryConfig{})
	p := newTestProposal(t, r)
	testDefs := []struct {
		now      uint64
		expected proposal.State
	}{
		{now: 10, expected: proposal.StatePending},
		{now: 11, expected: proposal.StateActive},
		{now: 20, expected: proposal.StateActive},
		{now: 25, expected: proposal.StateActive},
	}
	for _, testDef := range testDefs {
		st, err := r.State(p.Id, testDef.now)
		require.NoError(t, err)
		assert.Equal(t, testDef.expected, st, "at %d", testDef.now)
	}
}

func TestRecordVote(t *testing.T) {
	r := proposal.NewRegistry(proposal.RegistryConfig{})
	p := newTestProposal(t, r)

	_, err := r.RecordVote(10, p.Id, bob, proposal.SupportFor, types.NewAmount(5))
	require.ErrorIs(t, err, types.ErrInvalidState)

	_, err = r.RecordVote(11, p.Id, bob, proposal.SupportFor, types.NewAmount(5))
	require.NoError(t, err)
	_, err = r.RecordVote(12, p.Id, carol, proposal.SupportAgainst, types.NewAmount(3))
	require.NoError(t, err)
	_, err = r.RecordVote(20, p.Id, alice, proposal.SupportAbstain, types.NewAmount(2))
	require.NoError(t, err)

	_, err = r.RecordVote(20, p.Id, bob, proposal.SupportAgainst, types.NewAmount(5))
	require.ErrorIs(t, err, types.ErrAlreadyVoted)
	_, err = r.RecordVote(21, p.Id, common.HexToAddress("0x01"), proposal.SupportFor, types.NewAmount(5))
	require.ErrorIs(t, err, types.ErrInvalidState)
	_, err = r.RecordVote(20, p.Id, common.HexToAddress("0x02"), proposal.SupportFor, types.Amount{})
	require.ErrorIs(t, err, types.ErrNoVotingPower)
	_, err = r.RecordVote(20, p.Id, common.HexToAddress("0x03"), proposal.Support(7), types.NewAmount(1))
	require.ErrorIs(t, err, types.ErrInvalidParams)

	got, err := r.Get(p.Id)
	require.NoError(t, err)
	assert.Equal(t, types.NewAmount(5), got.ForVotes)
	assert.Equal(t, types.NewAmount(3), got.AgainstVotes)
	assert.Equal(t, types.NewAmount(2), got.AbstainVotes)

	receipt, ok := r.Receipt(p.Id, bob)
	require.True(t, ok)
	assert.Equal(t, proposal.SupportFor, receipt.Support)
	assert.Equal(t, uint64(11), receipt.CastAt)
	_, ok = r.Receipt(p.Id, common.HexToAddress("0x01"))
	assert.False(t, ok)

	votes := r.Votes(p.Id)
	require.Len(t, votes, 3)
	assert.Equal(t, []types.Address{bob, carol, alice}, []types.Address{votes[0].Voter, votes[1].Voter, votes[2].Voter})
}

func TestFinalize(t *testing.T) {
	testDefs := []struct {
		name     string
		forW     uint64
		against  uint64
		abstain  uint64
		quorum   uint64
		expected proposal.State
	}{
		{name: "pass", forW: 60, against: 5, quorum: 10, expected: proposal.StateSucceeded},
		{name: "majority against", forW: 40, against: 60, quorum: 10, expected: proposal.StateDefeated},
		{name: "tie", forW: 50, against: 50, quorum: 10, expected: proposal.StateDefeated},
		{name: "below quorum", forW: 95, quorum: 100, expected: proposal.StateDefeated},
		{name: "abstain reaches quorum", forW: 2, against: 1, abstain: 97, quorum: 100, expected: proposal.StateSucceeded},
		{name: "exact quorum", forW: 100, quorum: 100, expected: proposal.StateSucceeded},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			r := proposal.NewRegistry(proposal.RegistryConfig{})
			p := newTestProposal(t, r)
			for voter, weight := range map[proposal.Support]uint64{
				proposal.SupportFor:     testDef.forW,
				proposal.SupportAgainst: testDef.against,
				proposal.SupportAbstain: testDef.abstain,
			} {
				if weight == 0 {
					continue
				}
				addr := common.BigToAddress(common.Big1)
				addr[0] = byte(voter) + 1
				_, err := r.RecordVote(15, p.Id, addr, voter, types.NewAmount(weight))
				require.NoError(t, err)
			}
			st, err := r.Finalize(21, p.Id, types.NewAmount(testDef.quorum))
			require.NoError(t, err)
			assert.Equal(t, testDef.expected, st)
		})
	}
}

func TestFinalizeGuardsAndIdempotence(t *testing.T) {
	rec := &recorder{}
	r := proposal.NewRegistry(proposal.RegistryConfig{EventBus: rec})
	p := newTestProposal(t, r)

	_, err := r.Finalize(10, p.Id, types.NewAmount(1))
	require.ErrorIs(t, err, types.ErrInvalidState)
	_, err = r.RecordVote(15, p.Id, bob, proposal.SupportFor, types.NewAmount(10))
	require.NoError(t, err)
	_, err = r.Finalize(20, p.Id, types.NewAmount(1))
	require.ErrorIs(t, err, types.ErrInvalidState)

	st, err := r.Finalize(21, p.Id, types.NewAmount(1))
	require.NoError(t, err)
	require.Equal(t, proposal.StateSucceeded, st)
	before, err := r.Get(p.Id)
	require.NoError(t, err)
	eventCount := len(rec.events)

	// A different quorum on the second call must not re-evaluate the outcome
	st, err = r.Finalize(30, p.Id, types.NewAmount(1_000_000))
	require.NoError(t, err)
	assert.Equal(t, proposal.StateSucceeded, st)
	after, err := r.Get(p.Id)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, rec.events, eventCount)
}

func TestQueueExecuteCancel(t *testing.T) {
	r := proposal.NewRegistry(proposal.RegistryConfig{})
	p := newTestProposal(t, r)
	require.ErrorIs(t, r.MarkQueued(15, p.Id, 100, 200, 0), types.ErrInvalidState)
	_, err := r.RecordVote(15, p.Id, bob, proposal.SupportFor, types.NewAmount(10))
	require.NoError(t, err)
	_, err = r.Finalize(21, p.Id, types.NewAmount(1))
	require.NoError(t, err)
	require.ErrorIs(t, r.MarkCancelled(22, p.Id), types.ErrInvalidState)
	require.ErrorIs(t, r.MarkExecuted(22, p.Id), types.ErrInvalidState)
	require.NoError(t, r.MarkQueued(22, p.Id, 100, 200, 7))
	require.ErrorIs(t, r.MarkQueued(23, p.Id, 100, 200, 7), types.ErrInvalidState)

	st, err := r.State(p.Id, 199)
	require.NoError(t, err)
	assert.Equal(t, proposal.StateQueued, st)
	st, err = r.State(p.Id, 200)
	require.NoError(t, err)
	assert.Equal(t, proposal.StateExpired, st)

	require.NoError(t, r.MarkExecuted(150, p.Id))
	got, err := r.Get(p.Id)
	require.NoError(t, err)
	assert.True(t, got.Executed)
	assert.Equal(t, uint64(7), got.WithdrawalId)
	assert.Equal(t, proposal.StateExecuted, got.StateAt(1000))
}

func TestMarkExecutedRejectsExpired(t *testing.T) {
	r := proposal.NewRegistry(proposal.RegistryConfig{})
	p := newTestProposal(t, r)
	_, err := r.RecordVote(15, p.Id, bob, proposal.SupportFor, types.NewAmount(10))
	require.NoError(t, err)
	_, err = r.Finalize(21, p.Id, types.NewAmount(1))
	require.NoError(t, err)
	require.NoError(t, r.MarkQueued(22, p.Id, 1000, 1200, 0))
	require.ErrorIs(t, r.MarkExecuted(1201, p.Id), types.ErrInvalidState)
}

func TestCancel(t *testing.T) {
	r := proposal.NewRegistry(proposal.RegistryConfig{})
	pending := newTestProposal(t, r)
	active := newTestProposal(t, r)
	require.NoError(t, r.MarkCancelled(10, pending.Id))
	require.NoError(t, r.MarkCancelled(15, active.Id))
	for _, id := range []uint64{pending.Id, active.Id} {
		st, err := r.State(id, 15)
		require.NoError(t, err)
		assert.Equal(t, proposal.StateCancelled, st)
		require.ErrorIs(t, r.MarkCancelled(16, id), types.ErrInvalidState)
	}
	_, err := r.RecordVote(16, active.Id, bob, proposal.SupportFor, types.NewAmount(1))
	require.ErrorIs(t, err, types.ErrInvalidState)
	st, err := r.Finalize(30, active.Id, types.NewAmount(1))
	require.NoError(t, err)
	assert.Equal(t, proposal.StateCancelled, st)
	assert.Len(t, r.ListByState(30, proposal.StateCancelled), 2)
	assert.Empty(t, r.ListByState(30, proposal.StateActive))
}

func TestQuorum(t *testing.T) {
	q, err := proposal.Quorum(types.NewAmount(1_000_000), 10, 100)
	require.NoError(t, err)
	assert.Equal(t, types.NewAmount(100_000), q)
	q, err = proposal.Quorum(types.NewAmount(999), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, types.NewAmount(99), q)
	_, err = proposal.Quorum(types.NewAmount(1), 1, 0)
	require.ErrorIs(t, err, types.ErrInvalidParams)
	_, err = proposal.Quorum(types.NewAmount(1), 2, 1)
	require.ErrorIs(t, err, types.ErrInvalidParams)
}

func TestStateAndSupportStrings(t *testing.T) {
	for st := proposal.StatePending; st <= proposal.StateExpired; st++ {
		parsed, err := proposal.ParseState(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, parsed)
	}
	assert.Equal(t, uint8(5), uint8(proposal.StateQueued))
	s, err := proposal.ParseSupport("For")
	require.NoError(t, err)
	assert.Equal(t, proposal.SupportFor, s)
	_, err = proposal.ParseSupport("maybe")
	require.Error(t, err)
}
