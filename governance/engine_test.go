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

package governance_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/quorum/access"
	"github.com/blinklabs-io/quorum/clock"
	"github.com/blinklabs-io/quorum/governance"
	"github.com/blinklabs-io/quorum/ledger"
	"github.com/blinklabs-io/quorum/proposal"
	"github.com/blinklabs-io/quorum/treasury"
	"github.com/blinklabs-io/quorum/types"
)

var (
	engineAddr = common.HexToAddress("0x0000000000000000000000000000000000000d40")
	vaultAddr  = common.HexToAddress("0x000000000000000000000000000000000000fa17")
	admin      = common.HexToAddress("0x000000000000000000000000000000000000ad31")
	proposer   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	voterA     = common.HexToAddress("0x000000000000000000000000000000000000000a")
	voterB     = common.HexToAddress("0x000000000000000000000000000000000000000b")
	voterC     = common.HexToAddress("0x000000000000000000000000000000000000000c")
	others     = common.HexToAddress("0x00000000000000000000000000000000000000ff")
	grantee    = common.HexToAddress("0x0000000000000000000000000000000000009a47")
	stranger   = common.HexToAddress("0x0000000000000000000000000000000000005742")
)

type harness struct {
	ledger   *ledger.Ledger
	registry *proposal.Registry
	vault    *treasury.Vault
	engine   *governance.Engine
	paid     map[types.Address]types.Amount
}

func amt(v uint64) types.Amount {
	return types.NewAmount(v)
}

func testParams() governance.Params {
	return governance.Params{
		VotingDelay:       1,
		VotingPeriod:      100,
		ProposalThreshold: amt(1_000),
		QuorumNumerator:   10,
		QuorumDenominator: 100,
		ExecutionDelay:    86400,
		GracePeriod:       14 * 86400,
	}
}

// newHarness mints the given balances at index 0 and funds the vault with
// 100,000 native units
func newHarness(t *testing.T, params governance.Params, balances map[types.Address]uint64) *harness {
	t.Helper()
	admins, err := access.New(admin)
	require.NoError(t, err)
	monotonic := clock.NewMonotonic("governance")
	h := &harness{
		ledger:   ledger.NewLedger(ledger.LedgerConfig{Monotonic: monotonic}),
		registry: proposal.NewRegistry(proposal.RegistryConfig{Monotonic: monotonic}),
		paid:     make(map[types.Address]types.Amount),
	}
	h.vault, err = treasury.NewVault(treasury.VaultConfig{
		Address:         vaultAddr,
		Admins:          admins,
		WithdrawalDelay: params.ExecutionDelay,
		Monotonic:       monotonic,
		Payee: treasury.PayeeFunc(func(r types.Address, _ types.Asset, a types.Amount) error {
			total, err := h.paid[r].Add(a)
			if err != nil {
				return err
			}
			h.paid[r] = total
			return nil
		}),
	})
	require.NoError(t, err)
	h.engine, err = governance.NewEngine(governance.EngineConfig{
		Address:  engineAddr,
		Ledger:   h.ledger,
		Registry: h.registry,
		Vault:    h.vault,
		Admins:   admins,
		Params:   params,
	})
	require.NoError(t, err)
	for acct, bal := range balances {
		require.NoError(t, h.ledger.Mint(0, acct, amt(bal)))
	}
	require.NoError(t, h.vault.Deposit(0, others, types.NativeAsset, amt(100_000)))
	return h
}

func withdrawalAction(t *testing.T, recipient types.Address, amount uint64) proposal.Action {
	t.Helper()
	data, err := treasury.EncodeWithdrawal(types.NativeAsset, recipient, amt(amount))
	require.NoError(t, err)
	return proposal.Action{Target: vaultAddr, Calldata: data}
}

// runVote creates a proposal at index 10, casts the given votes at index 50
// and finalizes at index 112
func runVote(
	t *testing.T,
	h *harness,
	action proposal.Action,
	votes map[types.Address]proposal.Support,
) (uint64, proposal.State) {
	t.Helper()
	id, err := h.engine.CreateProposal(10, proposer, "title", "description", action)
	require.NoError(t, err)
	for voter, support := range votes {
		_, err := h.engine.CastVote(50, id, voter, support)
		require.NoError(t, err)
	}
	st, err := h.engine.FinalizeProposal(112, id)
	require.NoError(t, err)
	return id, st
}

func TestScenarioPassAndExecute(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{
		proposer: 50_000,
		voterA:   600_000,
		voterB:   50_000,
		others:   300_000,
	})
	require.Equal(t, amt(1_000_000), h.ledger.TotalSupply())
	q, err := proposal.Quorum(h.ledger.TotalSupplyAt(10), 10, 100)
	require.NoError(t, err)
	require.Equal(t, amt(100_000), q)

	id, st := runVote(t, h, withdrawalAction(t, grantee, 25_000), map[types.Address]proposal.Support{
		voterA: proposal.SupportFor,
		voterB: proposal.SupportAgainst,
	})
	require.Equal(t, proposal.StateSucceeded, st)
	p, err := h.engine.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, amt(600_000), p.ForVotes)
	assert.Equal(t, amt(50_000), p.AgainstVotes)

	eta, err := h.engine.QueueProposal(112, id)
	require.NoError(t, err)
	require.Equal(t, uint64(112+86400), eta)
	st, err = h.engine.GetProposalState(id, 113)
	require.NoError(t, err)
	require.Equal(t, proposal.StateQueued, st)
	require.Len(t, h.vault.PendingWithdrawals(), 1)

	require.ErrorIs(t, h.engine.ExecuteProposal(eta-1, id), types.ErrTimelockNotElapsed)
	require.NoError(t, h.engine.ExecuteProposal(eta+1, id))
	assert.Equal(t, amt(75_000), h.vault.Balance(types.NativeAsset))
	assert.Equal(t, amt(25_000), h.paid[grantee])
	st, err = h.engine.GetProposalState(id, eta+2)
	require.NoError(t, err)
	assert.Equal(t, proposal.StateExecuted, st)
}

func TestScenarioDefeat(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{
		proposer: 5_000,
		voterA:   40_000,
		voterB:   60_000,
		others:   895_000,
	})
	id, st := runVote(t, h, proposal.Action{Target: stranger}, map[types.Address]proposal.Support{
		voterA: proposal.SupportFor,
		voterB: proposal.SupportAgainst,
	})
	require.Equal(t, proposal.StateDefeated, st)
	_, err := h.engine.QueueProposal(113, id)
	require.ErrorIs(t, err, types.ErrInvalidState)
}

func TestScenarioLowTurnout(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{
		proposer: 5_000,
		voterA:   95_000,
		others:   900_000,
	})
	_, st := runVote(t, h, proposal.Action{Target: stranger}, map[types.Address]proposal.Support{
		voterA: proposal.SupportFor,
	})
	assert.Equal(t, proposal.StateDefeated, st)
}

func TestScenarioExpiredExecution(t *testing.T) {
	params := testParams()
	params.VotingPeriod = 10
	params.ExecutionDelay = 988
	params.GracePeriod = 200
	h := newHarness(t, params, map[types.Address]uint64{
		proposer: 500_000,
		voterA:   500_000,
	})
	id, err := h.engine.CreateProposal(0, proposer, "t", "d", proposal.Action{Target: stranger})
	require.NoError(t, err)
	_, err = h.engine.CastVote(5, id, voterA, proposal.SupportFor)
	require.NoError(t, err)
	st, err := h.engine.FinalizeProposal(12, id)
	require.NoError(t, err)
	require.Equal(t, proposal.StateSucceeded, st)
	eta, err := h.engine.QueueProposal(12, id)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), eta)

	require.ErrorIs(t, h.engine.ExecuteProposal(1201, id), types.ErrTimelockExpired)
	st, err = h.engine.GetProposalState(id, 1201)
	require.NoError(t, err)
	assert.Equal(t, proposal.StateExpired, st)
}

func TestTimelockWindow(t *testing.T) {
	params := testParams()
	params.ExecutionDelay = 50
	params.GracePeriod = 20
	balances := map[types.Address]uint64{proposer: 100_000, voterA: 900_000}

	// Before eta every attempt fails, the first attempt inside the window
	// succeeds, and later attempts fail because the proposal is executed
	h := newHarness(t, params, balances)
	id, st := runVote(t, h, proposal.Action{Target: stranger}, map[types.Address]proposal.Support{voterA: proposal.SupportFor})
	require.Equal(t, proposal.StateSucceeded, st)
	eta, err := h.engine.QueueProposal(112, id)
	require.NoError(t, err)
	for now := uint64(112); now < eta; now++ {
		require.ErrorIs(t, h.engine.ExecuteProposal(now, id), types.ErrTimelockNotElapsed, "now %d", now)
	}
	require.NoError(t, h.engine.ExecuteProposal(eta+19, id))
	require.ErrorIs(t, h.engine.ExecuteProposal(eta+19, id), types.ErrInvalidState)

	// At and after eta+grace every attempt fails as expired
	h = newHarness(t, params, balances)
	id, _ = runVote(t, h, proposal.Action{Target: stranger}, map[types.Address]proposal.Support{voterA: proposal.SupportFor})
	eta, err = h.engine.QueueProposal(112, id)
	require.NoError(t, err)
	for now := eta + 20; now < eta+25; now++ {
		require.ErrorIs(t, h.engine.ExecuteProposal(now, id), types.ErrTimelockExpired, "now %d", now)
	}
}

func TestNoDoubleVoting(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{proposer: 10_000, voterA: 90_000})
	id, err := h.engine.CreateProposal(10, proposer, "t", "d", proposal.Action{Target: stranger})
	require.NoError(t, err)
	weight, err := h.engine.CastVote(11, id, voterA, proposal.SupportFor)
	require.NoError(t, err)
	assert.Equal(t, amt(90_000), weight)
	for _, support := range []proposal.Support{proposal.SupportFor, proposal.SupportAgainst, proposal.SupportAbstain} {
		_, err := h.engine.CastVote(12, id, voterA, support)
		require.ErrorIs(t, err, types.ErrAlreadyVoted)
	}
	p, err := h.engine.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, amt(90_000), p.ForVotes)
	assert.True(t, p.AgainstVotes.IsZero())
	assert.True(t, p.AbstainVotes.IsZero())
}

func TestVoteGuards(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{proposer: 10_000, voterA: 90_000})
	id, err := h.engine.CreateProposal(10, proposer, "t", "d", proposal.Action{Target: stranger})
	require.NoError(t, err)
	_, err = h.engine.CastVote(10, id, voterA, proposal.SupportFor)
	require.ErrorIs(t, err, types.ErrInvalidState)
	_, err = h.engine.CastVote(11, id, stranger, proposal.SupportFor)
	require.ErrorIs(t, err, types.ErrNoVotingPower)
	_, err = h.engine.CastVote(11, 99, voterA, proposal.SupportFor)
	require.ErrorIs(t, err, types.ErrProposalNotFound)
	_, err = h.engine.CastVote(112, id, voterA, proposal.SupportFor)
	require.ErrorIs(t, err, types.ErrInvalidState)
}

func TestSnapshotImmunity(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{
		proposer: 10_000,
		voterA:   400_000,
		voterB:   100_000,
		others:   490_000,
	})
	id, err := h.engine.CreateProposal(10, proposer, "t", "d", proposal.Action{Target: stranger})
	require.NoError(t, err)

	// Moving tokens after the snapshot does not change snapshot weights
	require.NoError(t, h.ledger.Transfer(11, voterB, voterC, amt(100_000)))
	_, err = h.engine.CastVote(12, id, voterC, proposal.SupportAgainst)
	require.ErrorIs(t, err, types.ErrNoVotingPower)
	w, err := h.engine.CastVote(12, id, voterB, proposal.SupportAgainst)
	require.NoError(t, err)
	assert.Equal(t, amt(100_000), w)

	_, err = h.engine.CastVote(20, id, voterA, proposal.SupportFor)
	require.NoError(t, err)
	require.NoError(t, h.ledger.Transfer(21, voterA, others, amt(400_000)))
	require.NoError(t, h.ledger.Delegate(22, others, voterC))

	receipt, ok := h.engine.GetVoteReceipt(id, voterA)
	require.True(t, ok)
	assert.Equal(t, amt(400_000), receipt.Weight)
	assert.True(t, h.engine.VotingPowerAt(voterA, 30).IsZero())
	assert.Equal(t, amt(400_000), h.engine.VotingPowerAt(voterA, 10))

	st, err := h.engine.FinalizeProposal(112, id)
	require.NoError(t, err)
	assert.Equal(t, proposal.StateSucceeded, st)
	p, err := h.engine.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, amt(400_000), p.ForVotes)
	assert.Equal(t, amt(100_000), p.AgainstVotes)
	total, err := p.TotalVotes()
	require.NoError(t, err)
	assert.LessOrEqual(t, total.Cmp(h.ledger.TotalSupplyAt(p.SnapshotIndex)), 0)
}

func TestFinalizeIdempotent(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{proposer: 10_000, voterA: 90_000, voterB: 900_000})
	id, err := h.engine.CreateProposal(10, proposer, "t", "d", proposal.Action{Target: stranger})
	require.NoError(t, err)
	_, err = h.engine.FinalizeProposal(50, id)
	require.ErrorIs(t, err, types.ErrInvalidState)
	_, err = h.engine.CastVote(50, id, voterB, proposal.SupportAgainst)
	require.NoError(t, err)
	first, err := h.engine.FinalizeProposal(112, id)
	require.NoError(t, err)
	before, err := h.engine.GetProposal(id)
	require.NoError(t, err)
	second, err := h.engine.FinalizeProposal(500, id)
	require.NoError(t, err)
	after, err := h.engine.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, proposal.StateDefeated, first)
	assert.Equal(t, first, second)
	assert.Equal(t, before, after)
}

func TestCreateProposalGuards(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{proposer: 10_000, voterA: 999})
	_, err := h.engine.CreateProposal(10, voterA, "t", "d", proposal.Action{})
	require.ErrorIs(t, err, types.ErrInsufficientVotingPower)
	_, err = h.engine.CreateProposal(10, types.ZeroAddress, "t", "d", proposal.Action{})
	require.ErrorIs(t, err, types.ErrInvalidAddress)

	// Power delegated away does not count toward the threshold
	require.NoError(t, h.ledger.Delegate(11, proposer, voterA))
	_, err = h.engine.CreateProposal(12, proposer, "t", "d", proposal.Action{})
	require.ErrorIs(t, err, types.ErrInsufficientVotingPower)
	id, err := h.engine.CreateProposal(12, voterA, "t", "d", proposal.Action{})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	p, err := h.engine.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), p.SnapshotIndex)
	assert.Equal(t, uint64(13), p.StartTime)
	assert.Equal(t, uint64(113), p.EndTime)
	assert.Equal(t, uint64(1), h.engine.ProposalCount())

	badCalldata := append(withdrawalAction(t, voterA, 1).Calldata[:4:4], 0x01)
	_, err = h.engine.CreateProposal(13, voterA, "t", "d", proposal.Action{Target: vaultAddr, Calldata: badCalldata})
	require.ErrorIs(t, err, types.ErrInvalidParams)
}

func TestQueueInsufficientTreasury(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{proposer: 100_000, voterA: 900_000})
	id, st := runVote(t, h, withdrawalAction(t, grantee, 100_001), map[types.Address]proposal.Support{voterA: proposal.SupportFor})
	require.Equal(t, proposal.StateSucceeded, st)
	_, err := h.engine.QueueProposal(112, id)
	require.ErrorIs(t, err, types.ErrInsufficientTreasuryBalance)
	st, err = h.engine.GetProposalState(id, 112)
	require.NoError(t, err)
	assert.Equal(t, proposal.StateSucceeded, st)
	assert.Empty(t, h.vault.Withdrawals())
}

func TestNativeValueAction(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{proposer: 100_000, voterA: 900_000})
	id, _ := runVote(t, h, proposal.Action{Target: grantee, Value: amt(1_234)}, map[types.Address]proposal.Support{voterA: proposal.SupportFor})
	eta, err := h.engine.QueueProposal(112, id)
	require.NoError(t, err)
	require.NoError(t, h.engine.ExecuteProposal(eta, id))
	assert.Equal(t, amt(1_234), h.paid[grantee])
	assert.Equal(t, amt(100_000-1_234), h.vault.Balance(types.NativeAsset))
}

func TestExecuteAfterDirectVaultRelease(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{proposer: 100_000, voterA: 900_000})
	id, _ := runVote(t, h, withdrawalAction(t, grantee, 500), map[types.Address]proposal.Support{voterA: proposal.SupportFor})
	eta, err := h.engine.QueueProposal(112, id)
	require.NoError(t, err)
	p, err := h.engine.GetProposal(id)
	require.NoError(t, err)
	_, err = h.vault.ExecuteWithdrawal(eta, p.WithdrawalId)
	require.NoError(t, err)
	require.NoError(t, h.engine.ExecuteProposal(eta, id))
	assert.Equal(t, amt(500), h.paid[grantee])
	assert.Equal(t, amt(99_500), h.vault.Balance(types.NativeAsset))
}

func TestExecuteWhilePaused(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{proposer: 100_000, voterA: 900_000})
	id, _ := runVote(t, h, withdrawalAction(t, grantee, 500), map[types.Address]proposal.Support{voterA: proposal.SupportFor})
	eta, err := h.engine.QueueProposal(112, id)
	require.NoError(t, err)
	require.NoError(t, h.vault.Pause(eta, admin))
	require.ErrorIs(t, h.engine.ExecuteProposal(eta, id), types.ErrPaused)
	st, err := h.engine.GetProposalState(id, eta)
	require.NoError(t, err)
	assert.Equal(t, proposal.StateQueued, st)
	require.NoError(t, h.vault.Unpause(eta+1, admin))
	require.NoError(t, h.engine.ExecuteProposal(eta+1, id))
}

func TestCancelProposal(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{proposer: 100_000, voterA: 900_000})
	id, err := h.engine.CreateProposal(10, proposer, "t", "d", proposal.Action{Target: stranger})
	require.NoError(t, err)
	require.ErrorIs(t, h.engine.CancelProposal(10, id, voterA), types.ErrUnauthorized)
	require.NoError(t, h.engine.CancelProposal(10, id, proposer))
	require.ErrorIs(t, h.engine.CancelProposal(11, id, proposer), types.ErrInvalidState)

	// Admins may cancel Active proposals
	id2, err := h.engine.CreateProposal(11, proposer, "t", "d", proposal.Action{Target: stranger})
	require.NoError(t, err)
	require.NoError(t, h.engine.CancelProposal(20, id2, admin))

	// Settled proposals cannot be cancelled
	id3, err := h.engine.CreateProposal(20, proposer, "t", "d", proposal.Action{Target: stranger})
	require.NoError(t, err)
	_, err = h.engine.CastVote(50, id3, voterA, proposal.SupportFor)
	require.NoError(t, err)
	st, err := h.engine.FinalizeProposal(122, id3)
	require.NoError(t, err)
	require.Equal(t, proposal.StateSucceeded, st)
	require.ErrorIs(t, h.engine.CancelProposal(122, id3, proposer), types.ErrInvalidState)
	_, err = h.engine.QueueProposal(122, id3)
	require.NoError(t, err)
	require.ErrorIs(t, h.engine.CancelProposal(123, id3, admin), types.ErrInvalidState)
}

func TestTargetAllowlist(t *testing.T) {
	admins, err := access.New(admin)
	require.NoError(t, err)
	monotonic := clock.NewMonotonic("governance")
	l := ledger.NewLedger(ledger.LedgerConfig{Monotonic: monotonic})
	require.NoError(t, l.Mint(0, proposer, amt(10_000)))
	v, err := treasury.NewVault(treasury.VaultConfig{Address: vaultAddr, Admins: admins, Monotonic: monotonic})
	require.NoError(t, err)
	e, err := governance.NewEngine(governance.EngineConfig{
		Address:         engineAddr,
		Ledger:          l,
		Registry:        proposal.NewRegistry(proposal.RegistryConfig{Monotonic: monotonic}),
		Vault:           v,
		Admins:          admins,
		Params:          testParams(),
		RestrictTargets: true,
	})
	require.NoError(t, err)

	_, err = e.CreateProposal(1, proposer, "t", "d", proposal.Action{Target: stranger})
	require.ErrorIs(t, err, types.ErrTargetNotAllowed)
	_, err = e.CreateProposal(1, proposer, "t", "d", proposal.Action{Target: vaultAddr})
	require.NoError(t, err)

	require.ErrorIs(t, e.SetAllowedTarget(proposer, stranger, true), types.ErrUnauthorized)
	require.NoError(t, e.SetAllowedTarget(admin, stranger, true))
	assert.Equal(t, []types.Address{stranger}, e.AllowedTargets())
	_, err = e.CreateProposal(2, proposer, "t", "d", proposal.Action{Target: stranger})
	require.NoError(t, err)
	require.NoError(t, e.SetAllowedTarget(admin, stranger, false))
	assert.Empty(t, e.AllowedTargets())
}

func TestUpdateParams(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{proposer: 10_000})
	params := testParams()
	params.VotingDelay = 0
	require.ErrorIs(t, h.engine.UpdateParams(admin, params), types.ErrInvalidParams)
	params.VotingDelay = 5
	require.ErrorIs(t, h.engine.UpdateParams(proposer, params), types.ErrUnauthorized)
	require.NoError(t, h.engine.UpdateParams(admin, params))
	assert.Equal(t, uint64(5), h.engine.Params().VotingDelay)
	id, err := h.engine.CreateProposal(10, proposer, "t", "d", proposal.Action{})
	require.NoError(t, err)
	p, err := h.engine.GetProposal(id)
	require.NoError(t, err)
	assert.Equal(t, uint64(15), p.StartTime)
}

func TestNewEngineRejectsRebind(t *testing.T) {
	h := newHarness(t, testParams(), nil)
	_, err := governance.NewEngine(governance.EngineConfig{
		Address:  stranger,
		Ledger:   h.ledger,
		Registry: h.registry,
		Vault:    h.vault,
		Admins:   h.engine.Admins(),
		Params:   testParams(),
	})
	require.ErrorIs(t, err, types.ErrInvalidState)
}

func TestNewEngineRequiresSharedGuard(t *testing.T) {
	admins, err := access.New(admin)
	require.NoError(t, err)
	v, err := treasury.NewVault(treasury.VaultConfig{Address: vaultAddr, Admins: admins})
	require.NoError(t, err)
	_, err = governance.NewEngine(governance.EngineConfig{
		Address:  engineAddr,
		Ledger:   ledger.NewLedger(ledger.LedgerConfig{}),
		Registry: proposal.NewRegistry(proposal.RegistryConfig{}),
		Vault:    v,
		Admins:   admins,
		Params:   testParams(),
	})
	require.ErrorIs(t, err, types.ErrInvalidParams)
	assert.Equal(t, types.ZeroAddress, v.Governor())
}

func TestSnapshotSealedOnceVotingStarts(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{
		proposer: 10_000,
		voterA:   60_000,
		others:   40_000,
	})
	id, err := h.engine.CreateProposal(10, proposer, "t", "d", proposal.Action{Target: stranger})
	require.NoError(t, err)
	_, err = h.engine.CastVote(50, id, voterA, proposal.SupportFor)
	require.NoError(t, err)

	// Rewriting history at the snapshot index is a clock error
	require.Panics(t, func() {
		_ = h.ledger.Transfer(10, voterA, voterB, amt(60_000))
	})
	assert.True(t, h.ledger.VotingPowerAt(voterB, 10).IsZero())
	_, err = h.engine.CastVote(51, id, voterB, proposal.SupportFor)
	require.ErrorIs(t, err, types.ErrNoVotingPower)

	p, err := h.engine.GetProposal(id)
	require.NoError(t, err)
	total, err := p.TotalVotes()
	require.NoError(t, err)
	assert.LessOrEqual(t, total.Cmp(h.ledger.TotalSupplyAt(p.SnapshotIndex)), 0)
}

func TestQueuedWithdrawalUsesProposalWindow(t *testing.T) {
	params := testParams()
	params.ExecutionDelay = 50
	params.GracePeriod = 20
	h := newHarness(t, params, map[types.Address]uint64{proposer: 100_000, voterA: 900_000})
	// The vault's own defaults differ from the proposal window
	require.NoError(t, h.vault.SetWithdrawalDelay(admin, 10))
	require.NoError(t, h.vault.SetGracePeriod(admin, 1))

	id, _ := runVote(t, h, withdrawalAction(t, grantee, 500), map[types.Address]proposal.Support{voterA: proposal.SupportFor})
	eta, err := h.engine.QueueProposal(112, id)
	require.NoError(t, err)
	p, err := h.engine.GetProposal(id)
	require.NoError(t, err)
	w, err := h.vault.Withdrawal(p.WithdrawalId)
	require.NoError(t, err)
	assert.Equal(t, eta, w.Eta)
	assert.Equal(t, p.ExpiresAt, w.ExpiresAt)
	assert.Equal(t, eta+20, w.ExpiresAt)

	require.ErrorIs(t, h.engine.ExecuteProposal(eta-1, id), types.ErrTimelockNotElapsed)
	require.NoError(t, h.engine.ExecuteProposal(eta+19, id))
	assert.Equal(t, amt(500), h.paid[grantee])
}

func TestQueueRefusesShortWindow(t *testing.T) {
	h := newHarness(t, testParams(), map[types.Address]uint64{proposer: 100_000, voterA: 900_000})
	require.NoError(t, h.vault.SetWithdrawalDelay(admin, testParams().ExecutionDelay+1))
	id, _ := runVote(t, h, withdrawalAction(t, grantee, 500), map[types.Address]proposal.Support{voterA: proposal.SupportFor})
	_, err := h.engine.QueueProposal(112, id)
	require.ErrorIs(t, err, types.ErrInvalidParams)
	st, err := h.engine.GetProposalState(id, 112)
	require.NoError(t, err)
	assert.Equal(t, proposal.StateSucceeded, st)
	assert.Empty(t, h.vault.Withdrawals())
}
