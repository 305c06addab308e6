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

package ledger_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/quorum/clock"
	"github.com/blinklabs-io/quorum/ledger"
	"github.com/blinklabs-io/quorum/types"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x00000000000000000000000000000000000ca401")
	dave  = common.HexToAddress("0x000000000000000000000000000000000000da7e")
)

func amt(v uint64) types.Amount {
	return types.NewAmount(v)
}

// requireSupplyInvariant checks that checkpointed voting power sums to the
// total supply at every index from 0 through maxIndex
func requireSupplyInvariant(t *testing.T, l *ledger.Ledger, maxIndex uint64) {
	t.Helper()
	accounts := l.Accounts()
	for idx := uint64(0); idx <= maxIndex; idx++ {
		var sum types.Amount
		for _, acct := range accounts {
			var err error
			sum, err = sum.Add(l.VotingPowerAt(acct, idx))
			require.NoError(t, err)
		}
		require.Equal(
			t,
			l.TotalSupplyAt(idx).String(),
			sum.String(),
			"supply invariant broken at index %d",
			idx,
		)
	}
}

func TestMintAndBalances(t *testing.T) {
	l := ledger.NewLedger(ledger.LedgerConfig{})
	require.NoError(t, l.Mint(1, alice, amt(500)))
	require.NoError(t, l.Mint(2, bob, amt(300)))
	assert.Equal(t, amt(500), l.BalanceOf(alice))
	assert.Equal(t, amt(500), l.VotingPower(alice))
	assert.Equal(t, alice, l.Delegates(alice))
	assert.Equal(t, amt(800), l.TotalSupply())
	assert.Equal(t, amt(500), l.TotalSupplyAt(1))
	assert.Equal(t, types.Amount{}, l.TotalSupplyAt(0))
	require.ErrorIs(t, l.Mint(3, types.ZeroAddress, amt(1)), types.ErrInvalidAddress)
	require.ErrorIs(t, l.Mint(3, alice, amt(0)), types.ErrInvalidAmount)
	requireSupplyInvariant(t, l, 3)
}

func TestMaxSupply(t *testing.T) {
	l := ledger.NewLedger(ledger.LedgerConfig{MaxSupply: amt(1000)})
	require.NoError(t, l.Mint(1, alice, amt(1000)))
	require.ErrorIs(t, l.Mint(2, bob, amt(1)), types.ErrSupplyCapExceeded)
	assert.Equal(t, amt(1000), l.TotalSupply())
	assert.True(t, l.BalanceOf(bob).IsZero())
}

func TestTransfer(t *testing.T) {
	l := ledger.NewLedger(ledger.LedgerConfig{})
	require.NoError(t, l.Mint(1, alice, amt(100)))

	testDefs := []struct {
		name      string
		from      types.Address
		to        types.Address
		amount    uint64
		expectErr error
	}{
		{name: "zero sender", from: types.ZeroAddress, to: bob, amount: 1, expectErr: types.ErrInvalidAddress},
		{name: "zero recipient", from: alice, to: types.ZeroAddress, amount: 1, expectErr: types.ErrInvalidAddress},
		{name: "insufficient", from: alice, to: bob, amount: 101, expectErr: types.ErrInsufficientBalance},
		{name: "zero amount", from: alice, to: bob, amount: 0},
		{name: "ok", from: alice, to: bob, amount: 40},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			err := l.Transfer(2, testDef.from, testDef.to, amt(testDef.amount))
			if testDef.expectErr != nil {
				require.ErrorIs(t, err, testDef.expectErr)
				return
			}
			require.NoError(t, err)
		})
	}
	assert.Equal(t, amt(60), l.BalanceOf(alice))
	assert.Equal(t, amt(40), l.BalanceOf(bob))
	assert.Equal(t, amt(60), l.VotingPower(alice))
	assert.Equal(t, amt(40), l.VotingPower(bob))
	requireSupplyInvariant(t, l, 3)
}

func TestDelegation(t *testing.T) {
	l := ledger.NewLedger(ledger.LedgerConfig{})
	require.NoError(t, l.Mint(1, alice, amt(100)))
	require.NoError(t, l.Mint(1, bob, amt(50)))

	require.ErrorIs(t, l.Delegate(2, alice, types.ZeroAddress), types.ErrInvalidAddress)
	require.ErrorIs(t, l.Delegate(2, types.ZeroAddress, bob), types.ErrInvalidAddress)

	// alice delegates to carol, who holds no tokens
	require.NoError(t, l.Delegate(2, alice, carol))
	assert.Equal(t, carol, l.Delegates(alice))
	assert.True(t, l.VotingPower(alice).IsZero())
	assert.Equal(t, amt(100), l.VotingPower(carol))
	assert.Equal(t, amt(100), l.BalanceOf(alice))

	// Transfers from a delegating account move power away from the delegatee
	require.NoError(t, l.Transfer(3, alice, bob, amt(30)))
	assert.Equal(t, amt(70), l.VotingPower(carol))
	assert.Equal(t, amt(80), l.VotingPower(bob))
	assert.Len(t, l.Checkpoints(alice), 2)

	// Re-delegating to the same account is a no-op
	before := len(l.Checkpoints(carol))
	require.NoError(t, l.Delegate(4, alice, carol))
	assert.Len(t, l.Checkpoints(carol), before)

	// Delegating back to self
	require.NoError(t, l.Delegate(5, alice, alice))
	assert.Equal(t, alice, l.Delegates(alice))
	assert.Equal(t, amt(70), l.VotingPower(alice))
	assert.True(t, l.VotingPower(carol).IsZero())

	// Historical lookups
	assert.Equal(t, amt(100), l.VotingPowerAt(alice, 1))
	assert.True(t, l.VotingPowerAt(alice, 2).IsZero())
	assert.Equal(t, amt(100), l.VotingPowerAt(carol, 2))
	assert.Equal(t, amt(70), l.VotingPowerAt(carol, 4))
	assert.True(t, l.VotingPowerAt(carol, 5).IsZero())
	requireSupplyInvariant(t, l, 6)
}

func TestTransferBetweenSharedDelegatee(t *testing.T) {
	l := ledger.NewLedger(ledger.LedgerConfig{})
	require.NoError(t, l.Mint(1, alice, amt(100)))
	require.NoError(t, l.Delegate(1, alice, dave))
	require.NoError(t, l.Delegate(1, bob, dave))
	cps := len(l.Checkpoints(dave))
	require.NoError(t, l.Transfer(2, alice, bob, amt(25)))
	assert.Equal(t, amt(100), l.VotingPower(dave))
	assert.Len(t, l.Checkpoints(dave), cps)
}

func TestCheckpointCoalescing(t *testing.T) {
	l := ledger.NewLedger(ledger.LedgerConfig{})
	require.NoError(t, l.Mint(5, alice, amt(100)))
	require.NoError(t, l.Transfer(5, alice, bob, amt(10)))
	require.NoError(t, l.Transfer(5, alice, bob, amt(10)))
	cps := l.Checkpoints(alice)
	require.Len(t, cps, 1)
	assert.Equal(t, ledger.Checkpoint{Index: 5, Power: amt(80)}, cps[0])
	require.NoError(t, l.Transfer(6, alice, bob, amt(10)))
	assert.Len(t, l.Checkpoints(alice), 2)
	assert.Equal(t, amt(80), l.VotingPowerAt(alice, 5))
	assert.Equal(t, amt(70), l.VotingPowerAt(alice, 600))
	assert.True(t, l.VotingPowerAt(alice, 4).IsZero())
}

func TestVotingPowerAtBinarySearch(t *testing.T) {
	l := ledger.NewLedger(ledger.LedgerConfig{})
	require.NoError(t, l.Mint(10, alice, amt(1000)))
	for i := uint64(1); i <= 50; i++ {
		require.NoError(t, l.Transfer(10+i*2, alice, bob, amt(1)))
	}
	assert.True(t, l.VotingPowerAt(bob, 11).IsZero())
	assert.Equal(t, amt(1), l.VotingPowerAt(bob, 12))
	assert.Equal(t, amt(1), l.VotingPowerAt(bob, 13))
	assert.Equal(t, amt(25), l.VotingPowerAt(bob, 60))
	assert.Equal(t, amt(975), l.VotingPowerAt(alice, 61))
	assert.Equal(t, amt(50), l.VotingPowerAt(bob, 1_000_000))
	requireSupplyInvariant(t, l, 115)
}

func TestBurn(t *testing.T) {
	l := ledger.NewLedger(ledger.LedgerConfig{})
	require.NoError(t, l.Mint(1, alice, amt(100)))
	require.NoError(t, l.Delegate(1, alice, bob))
	require.ErrorIs(t, l.Burn(2, alice, amt(101)), types.ErrInsufficientBalance)
	require.NoError(t, l.Burn(2, alice, amt(60)))
	assert.Equal(t, amt(40), l.TotalSupply())
	assert.Equal(t, amt(40), l.VotingPower(bob))
	assert.Equal(t, amt(100), l.TotalSupplyAt(1))
	requireSupplyInvariant(t, l, 3)
}

func TestFailedMutationLeavesNoTrace(t *testing.T) {
	l := ledger.NewLedger(ledger.LedgerConfig{})
	require.NoError(t, l.Mint(1, alice, amt(10)))
	before := l.Checkpoints(alice)
	require.Error(t, l.Transfer(2, alice, bob, amt(11)))
	assert.Equal(t, before, l.Checkpoints(alice))
	assert.Nil(t, l.Checkpoints(bob))
}

func TestBackwardClockPanics(t *testing.T) {
	l := ledger.NewLedger(ledger.LedgerConfig{})
	require.NoError(t, l.Mint(10, alice, amt(10)))
	assert.Panics(t, func() {
		_ = l.Transfer(9, alice, bob, amt(1))
	})
}

func TestSharedClockGuard(t *testing.T) {
	monotonic := clock.NewMonotonic("shared")
	l := ledger.NewLedger(ledger.LedgerConfig{Monotonic: monotonic})
	assert.Same(t, monotonic, l.Monotonic())
	require.NoError(t, l.Mint(5, alice, amt(10)))
	// Another component sharing the guard moved time forward
	monotonic.Observe(8)
	assert.Panics(t, func() {
		_ = l.Transfer(5, alice, bob, amt(1))
	})
	assert.Equal(t, amt(10), l.BalanceOf(alice))
	require.NoError(t, l.Transfer(8, alice, bob, amt(1)))
}
