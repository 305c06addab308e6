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

// Package ledger tracks token balances, delegation, and the voting power
// history used for proposal snapshots.
package ledger

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"

	"github.com/blinklabs-io/quorum/clock"
	"github.com/blinklabs-io/quorum/event"
	"github.com/blinklabs-io/quorum/types"
)

type LedgerConfig struct {
	Logger       *slog.Logger
	EventBus     event.Publisher
	PromRegistry prometheus.Registerer
	// MaxSupply caps the total supply. Zero means unbounded.
	MaxSupply types.Amount
	// Monotonic guards the time index. Share one across components that
	// read each other's history. If nil, the ledger uses its own.
	Monotonic *clock.Monotonic
}

// Ledger is the voting power ledger. Accounts that never delegated are
// self-delegated, so every token contributes power to exactly one account.
type Ledger struct {
	mu          sync.RWMutex
	config      LedgerConfig
	logger      *slog.Logger
	metrics     *ledgerMetrics
	monotonic   *clock.Monotonic
	balances    map[types.Address]types.Amount
	delegates   map[types.Address]types.Address
	power       map[types.Address]types.Amount
	checkpoints map[types.Address]*checkpointLog
	supply      checkpointLog
	totalSupply types.Amount
}

func NewLedger(cfg LedgerConfig) *Ledger {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	l := &Ledger{
		config:      cfg,
		logger:      cfg.Logger.With("component", "ledger"),
		monotonic:   cfg.Monotonic,
		balances:    make(map[types.Address]types.Amount),
		delegates:   make(map[types.Address]types.Address),
		power:       make(map[types.Address]types.Amount),
		checkpoints: make(map[types.Address]*checkpointLog),
	}
	if l.monotonic == nil {
		l.monotonic = clock.NewMonotonic("ledger")
	}
	if cfg.PromRegistry != nil {
		l.metrics = &ledgerMetrics{}
		l.metrics.init(cfg.PromRegistry)
	}
	return l
}

// Monotonic returns the time index guard of the ledger
func (l *Ledger) Monotonic() *clock.Monotonic {
	return l.monotonic
}

func (l *Ledger) BalanceOf(account types.Address) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account]
}

// VotingPower returns the current voting power of an account
func (l *Ledger) VotingPower(account types.Address) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.power[account]
}

// VotingPowerAt returns the voting power an account held at the given index
func (l *Ledger) VotingPowerAt(account types.Address, index uint64) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cps, ok := l.checkpoints[account]
	if !ok {
		return types.Amount{}
	}
	return cps.at(index)
}

func (l *Ledger) TotalSupply() types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalSupply
}

func (l *Ledger) TotalSupplyAt(index uint64) types.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply.at(index)
}

// Delegates returns the current delegatee of an account
func (l *Ledger) Delegates(account types.Address) types.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.delegateOf(account)
}

// Checkpoints returns a copy of the voting power history of an account
func (l *Ledger) Checkpoints(account types.Address) []Checkpoint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	cps, ok := l.checkpoints[account]
	if !ok {
		return nil
	}
	return cps.clone()
}

// SupplyCheckpoints returns a copy of the total supply history
func (l *Ledger) SupplyCheckpoints() []Checkpoint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply.clone()
}

// Accounts returns every account that holds a balance or has any voting power
// history, sorted by address
func (l *Ledger) Accounts() []types.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ret := lo.Union(lo.Keys(l.balances), lo.Keys(l.checkpoints))
	slices.SortFunc(ret, func(a, b types.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	return ret
}

// Transfer moves tokens between accounts and updates the voting power of
// their delegatees
func (l *Ledger) Transfer(
	now uint64,
	from, to types.Address,
	amount types.Amount,
) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.monotonic.Observe(now)
	if from == types.ZeroAddress || to == types.ZeroAddress {
		return fmt.Errorf("transfer: %w", types.ErrInvalidAddress)
	}
	fromBal := l.balances[from]
	if fromBal.LessThan(amount) {
		return fmt.Errorf(
			"transfer: %w: %s has %s, need %s",
			types.ErrInsufficientBalance,
			from,
			fromBal,
			amount,
		)
	}
	if amount.IsZero() || from == to {
		return nil
	}
	newFromBal, err := fromBal.Sub(amount)
	if err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	newToBal, err := l.balances[to].Add(amount)
	if err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	if err := l.movePower(now, l.delegateOf(from), l.delegateOf(to), amount); err != nil {
		return fmt.Errorf("transfer: %w", err)
	}
	l.balances[from] = newFromBal
	l.balances[to] = newToBal
	l.publish(TransferEventType, now, TransferEvent{
		From:   from,
		To:     to,
		Amount: amount,
	})
	if l.metrics != nil {
		l.metrics.transfersTotal.Inc()
	}
	l.logger.Debug(
		"transfer",
		"from", from.Hex(),
		"to", to.Hex(),
		"amount", amount.String(),
		"index", now,
	)
	return nil
}

// Delegate routes the full balance of account to delegatee. Delegating to the
// current delegatee is a no-op.
func (l *Ledger) Delegate(now uint64, account, delegatee types.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.monotonic.Observe(now)
	if account == types.ZeroAddress || delegatee == types.ZeroAddress {
		return fmt.Errorf("delegate: %w", types.ErrInvalidAddress)
	}
	prev := l.delegateOf(account)
	if prev == delegatee {
		return nil
	}
	if err := l.movePower(now, prev, delegatee, l.balances[account]); err != nil {
		return fmt.Errorf("delegate: %w", err)
	}
	if delegatee == account {
		delete(l.delegates, account)
	} else {
		l.delegates[account] = delegatee
	}
	l.publish(DelegateChangedEventType, now, DelegateChangedEvent{
		Delegator:    account,
		FromDelegate: prev,
		ToDelegate:   delegatee,
	})
	if l.metrics != nil {
		l.metrics.delegationsTotal.Inc()
	}
	l.logger.Debug(
		"delegation changed",
		"account", account.Hex(),
		"from", prev.Hex(),
		"to", delegatee.Hex(),
		"index", now,
	)
	return nil
}

// Mint creates new tokens for an account
func (l *Ledger) Mint(now uint64, to types.Address, amount types.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.monotonic.Observe(now)
	if to == types.ZeroAddress {
		return fmt.Errorf("mint: %w", types.ErrInvalidAddress)
	}
	if amount.IsZero() {
		return fmt.Errorf("mint: %w: zero amount", types.ErrInvalidAmount)
	}
	newSupply, err := l.totalSupply.Add(amount)
	if err != nil {
		return fmt.Errorf("mint: %w: %w", types.ErrSupplyCapExceeded, err)
	}
	if !l.config.MaxSupply.IsZero() && l.config.MaxSupply.LessThan(newSupply) {
		return fmt.Errorf(
			"mint: %w: %s > %s",
			types.ErrSupplyCapExceeded,
			newSupply,
			l.config.MaxSupply,
		)
	}
	newBal, err := l.balances[to].Add(amount)
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	if err := l.movePower(now, types.ZeroAddress, l.delegateOf(to), amount); err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	l.balances[to] = newBal
	l.setSupply(now, newSupply)
	l.publish(TransferEventType, now, TransferEvent{
		To:     to,
		Amount: amount,
	})
	if l.metrics != nil {
		l.metrics.transfersTotal.Inc()
	}
	return nil
}

// Burn destroys tokens held by an account
func (l *Ledger) Burn(now uint64, from types.Address, amount types.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.monotonic.Observe(now)
	if from == types.ZeroAddress {
		return fmt.Errorf("burn: %w", types.ErrInvalidAddress)
	}
	if amount.IsZero() {
		return fmt.Errorf("burn: %w: zero amount", types.ErrInvalidAmount)
	}
	bal := l.balances[from]
	newBal, err := bal.Sub(amount)
	if err != nil {
		return fmt.Errorf(
			"burn: %w: %s has %s, need %s",
			types.ErrInsufficientBalance,
			from,
			bal,
			amount,
		)
	}
	newSupply, err := l.totalSupply.Sub(amount)
	if err != nil {
		return fmt.Errorf("burn: %w", err)
	}
	if err := l.movePower(now, l.delegateOf(from), types.ZeroAddress, amount); err != nil {
		return fmt.Errorf("burn: %w", err)
	}
	if newBal.IsZero() {
		delete(l.balances, from)
	} else {
		l.balances[from] = newBal
	}
	l.setSupply(now, newSupply)
	l.publish(TransferEventType, now, TransferEvent{
		From:   from,
		Amount: amount,
	})
	if l.metrics != nil {
		l.metrics.transfersTotal.Inc()
	}
	return nil
}

func (l *Ledger) delegateOf(account types.Address) types.Address {
	if d, ok := l.delegates[account]; ok {
		return d
	}
	return account
}

// movePower shifts amount of voting power from src to dst, writing one
// checkpoint per side. A zero address on either side is the supply source or
// sink. All arithmetic is checked before anything is written.
func (l *Ledger) movePower(now uint64, src, dst types.Address, amount types.Amount) error {
	if src == dst || amount.IsZero() {
		return nil
	}
	var srcPower, dstPower types.Amount
	var err error
	if src != types.ZeroAddress {
		srcPower, err = l.power[src].Sub(amount)
		if err != nil {
			return err
		}
	}
	if dst != types.ZeroAddress {
		dstPower, err = l.power[dst].Add(amount)
		if err != nil {
			return err
		}
	}
	if src != types.ZeroAddress {
		l.writeCheckpoint(now, src, srcPower)
	}
	if dst != types.ZeroAddress {
		l.writeCheckpoint(now, dst, dstPower)
	}
	return nil
}

func (l *Ledger) writeCheckpoint(now uint64, account types.Address, power types.Amount) {
	prev := l.power[account]
	if power.IsZero() {
		delete(l.power, account)
	} else {
		l.power[account] = power
	}
	cps, ok := l.checkpoints[account]
	if !ok {
		cps = &checkpointLog{}
		l.checkpoints[account] = cps
		if l.metrics != nil {
			l.metrics.accounts.Inc()
		}
	}
	cps.push(now, power)
	l.publish(VotesChangedEventType, now, VotesChangedEvent{
		Delegatee: account,
		Previous:  prev,
		Current:   power,
	})
	if l.metrics != nil {
		l.metrics.checkpointsTotal.Inc()
	}
}

func (l *Ledger) setSupply(now uint64, supply types.Amount) {
	prev := l.totalSupply
	l.totalSupply = supply
	l.supply.push(now, supply)
	l.publish(SupplyChangedEventType, now, SupplyChangedEvent{
		Previous: prev,
		Current:  supply,
	})
	if l.metrics != nil {
		l.metrics.totalSupply.Set(amountFloat(supply))
	}
}

func (l *Ledger) publish(evtType event.EventType, now uint64, data any) {
	if l.config.EventBus == nil {
		return
	}
	l.config.EventBus.Publish(evtType, event.NewEvent(evtType, now, data))
}
