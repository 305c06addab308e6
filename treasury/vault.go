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

// Package treasury custodies governance funds and releases them through a
// timelocked withdrawal queue.
package treasury

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"

	"github.com/blinklabs-io/quorum/access"
	"github.com/blinklabs-io/quorum/clock"
	"github.com/blinklabs-io/quorum/event"
	"github.com/blinklabs-io/quorum/types"
)

const DefaultWithdrawalDelay uint64 = 86400

type WithdrawalStatus uint8

const (
	WithdrawalPending WithdrawalStatus = iota
	WithdrawalExecuted
	WithdrawalCancelled
)

func (s WithdrawalStatus) String() string {
	switch s {
	case WithdrawalPending:
		return "Pending"
	case WithdrawalExecuted:
		return "Executed"
	case WithdrawalCancelled:
		return "Cancelled"
	default:
		return fmt.Sprintf("WithdrawalStatus(%d)", s)
	}
}

type Withdrawal struct {
	Id        uint64
	Recipient types.Address
	Asset     types.Asset
	Amount    types.Amount
	QueuedAt  uint64
	Eta       uint64
	// ExpiresAt is the first index at which the withdrawal can no longer
	// execute. Zero means it never expires.
	ExpiresAt  uint64
	Status     WithdrawalStatus
	ExecutedAt uint64
}

// Timelock is the window in which a withdrawal may execute
type Timelock struct {
	Eta       uint64
	ExpiresAt uint64
}

// Payee delivers released funds to a recipient outside the vault
type Payee interface {
	Pay(recipient types.Address, asset types.Asset, amount types.Amount) error
}

// PayeeFunc adapts a function to the Payee interface
type PayeeFunc func(types.Address, types.Asset, types.Amount) error

func (f PayeeFunc) Pay(recipient types.Address, asset types.Asset, amount types.Amount) error {
	return f(recipient, asset, amount)
}

type VaultConfig struct {
	Logger       *slog.Logger
	EventBus     event.Publisher
	PromRegistry prometheus.Registerer
	// Address is the handle proposals target to request withdrawals
	Address types.Address
	Admins  *access.Control
	// Payee receives released funds. If nil, funds simply leave the vault.
	Payee           Payee
	WithdrawalDelay uint64
	// GracePeriod bounds how long a due withdrawal stays executable. Zero
	// disables expiry.
	GracePeriod uint64
	// Monotonic guards the time index. If nil, the vault uses its own.
	Monotonic *clock.Monotonic
}

type Vault struct {
	mu          sync.RWMutex
	config      VaultConfig
	logger      *slog.Logger
	metrics     *vaultMetrics
	monotonic   *clock.Monotonic
	governor    types.Address
	balances    map[types.Asset]types.Amount
	withdrawals []*Withdrawal
	paused      bool
}

func NewVault(cfg VaultConfig) (*Vault, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Address == types.ZeroAddress {
		return nil, fmt.Errorf("vault address: %w", types.ErrInvalidAddress)
	}
	if cfg.Admins == nil {
		return nil, fmt.Errorf("%w: vault requires an admin set", types.ErrInvalidParams)
	}
	v := &Vault{
		config:    cfg,
		logger:    cfg.Logger.With("component", "treasury"),
		monotonic: cfg.Monotonic,
		balances:  make(map[types.Asset]types.Amount),
	}
	if v.monotonic == nil {
		v.monotonic = clock.NewMonotonic("treasury")
	}
	if cfg.PromRegistry != nil {
		v.metrics = &vaultMetrics{}
		v.metrics.init(cfg.PromRegistry)
	}
	return v, nil
}

// Address returns the handle of the vault
func (v *Vault) Address() types.Address {
	return v.config.Address
}

func (v *Vault) Monotonic() *clock.Monotonic {
	return v.monotonic
}

// BindGovernor records the handle of the only principal allowed to queue
// withdrawals. It can be called once.
func (v *Vault) BindGovernor(governor types.Address) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if governor == types.ZeroAddress {
		return fmt.Errorf("bind governor: %w", types.ErrInvalidAddress)
	}
	if v.governor != types.ZeroAddress {
		return fmt.Errorf("bind governor: %w: already bound to %s", types.ErrInvalidState, v.governor)
	}
	v.governor = governor
	return nil
}

func (v *Vault) Governor() types.Address {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.governor
}

func (v *Vault) Balance(asset types.Asset) types.Amount {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.balances[asset]
}

// Balances returns a copy of all non-zero asset balances
func (v *Vault) Balances() map[types.Asset]types.Amount {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return maps.Clone(v.balances)
}

func (v *Vault) Paused() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.paused
}

func (v *Vault) WithdrawalDelay() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.config.WithdrawalDelay
}

func (v *Vault) Withdrawal(id uint64) (Withdrawal, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	w, err := v.lookup(id)
	if err != nil {
		return Withdrawal{}, err
	}
	return *w, nil
}

// Withdrawals returns every withdrawal in id order
func (v *Vault) Withdrawals() []Withdrawal {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return lo.Map(v.withdrawals, func(w *Withdrawal, _ int) Withdrawal {
		return *w
	})
}

func (v *Vault) PendingWithdrawals() []Withdrawal {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return lo.FilterMap(v.withdrawals, func(w *Withdrawal, _ int) (Withdrawal, bool) {
		return *w, w.Status == WithdrawalPending
	})
}

// Deposit credits the vault. Anyone may deposit, including while paused.
func (v *Vault) Deposit(now uint64, from types.Address, asset types.Asset, amount types.Amount) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.monotonic.Observe(now)
	if amount.IsZero() {
		return fmt.Errorf("deposit: %w: zero amount", types.ErrInvalidAmount)
	}
	newBal, err := v.balances[asset].Add(amount)
	if err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	v.balances[asset] = newBal
	if v.metrics != nil {
		v.metrics.setBalance(asset, newBal)
	}
	v.publish(DepositEventType, now, DepositEvent{
		From:   from,
		Asset:  asset,
		Amount: amount,
	})
	v.logger.Debug(
		"deposit",
		"from", from.Hex(),
		"asset", types.AssetName(asset),
		"amount", amount.String(),
	)
	return nil
}

// QueueWithdrawal records a withdrawal that becomes executable after the
// withdrawal delay and expires after the grace period. Funds are checked but
// not reserved.
func (v *Vault) QueueWithdrawal(
	now uint64,
	caller types.Address,
	recipient types.Address,
	asset types.Asset,
	amount types.Amount,
) (Withdrawal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	lock := Timelock{Eta: now + v.config.WithdrawalDelay}
	if v.config.GracePeriod > 0 {
		lock.ExpiresAt = lock.Eta + v.config.GracePeriod
	}
	return v.queueWithdrawal(now, caller, recipient, asset, amount, lock)
}

// QueueTimelockedWithdrawal records a withdrawal that executes inside the
// given window instead of the vault's own delay. The eta may not be earlier
// than the withdrawal delay allows.
func (v *Vault) QueueTimelockedWithdrawal(
	now uint64,
	caller types.Address,
	recipient types.Address,
	asset types.Asset,
	amount types.Amount,
	lock Timelock,
) (Withdrawal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if lock.Eta < now+v.config.WithdrawalDelay {
		v.monotonic.Observe(now)
		return Withdrawal{}, fmt.Errorf(
			"queue withdrawal: %w: eta %d is before the %d index delay",
			types.ErrInvalidParams,
			lock.Eta,
			v.config.WithdrawalDelay,
		)
	}
	if lock.ExpiresAt != 0 && lock.ExpiresAt <= lock.Eta {
		v.monotonic.Observe(now)
		return Withdrawal{}, fmt.Errorf(
			"queue withdrawal: %w: expiry %d is not after eta %d",
			types.ErrInvalidParams,
			lock.ExpiresAt,
			lock.Eta,
		)
	}
	return v.queueWithdrawal(now, caller, recipient, asset, amount, lock)
}

func (v *Vault) queueWithdrawal(
	now uint64,
	caller types.Address,
	recipient types.Address,
	asset types.Asset,
	amount types.Amount,
	lock Timelock,
) (Withdrawal, error) {
	v.monotonic.Observe(now)
	if v.governor == types.ZeroAddress || caller != v.governor {
		return Withdrawal{}, fmt.Errorf("queue withdrawal: %w: %s", types.ErrUnauthorized, caller)
	}
	if recipient == types.ZeroAddress {
		return Withdrawal{}, fmt.Errorf("queue withdrawal: %w: recipient", types.ErrInvalidAddress)
	}
	if amount.IsZero() {
		return Withdrawal{}, fmt.Errorf("queue withdrawal: %w: zero amount", types.ErrInvalidAmount)
	}
	if bal := v.balances[asset]; bal.LessThan(amount) {
		return Withdrawal{}, fmt.Errorf(
			"queue withdrawal: %w: %s has %s, need %s",
			types.ErrInsufficientTreasuryBalance,
			types.AssetName(asset),
			bal,
			amount,
		)
	}
	w := &Withdrawal{
		Id:        uint64(len(v.withdrawals)) + 1,
		Recipient: recipient,
		Asset:     asset,
		Amount:    amount,
		QueuedAt:  now,
		Eta:       lock.Eta,
		ExpiresAt: lock.ExpiresAt,
		Status:    WithdrawalPending,
	}
	v.withdrawals = append(v.withdrawals, w)
	if v.metrics != nil {
		v.metrics.withdrawals.WithLabelValues("queued").Inc()
	}
	v.publish(WithdrawalQueuedEventType, now, WithdrawalQueuedEvent{Withdrawal: *w})
	v.logger.Info(
		"withdrawal queued",
		"id", w.Id,
		"recipient", recipient.Hex(),
		"asset", types.AssetName(asset),
		"amount", amount.String(),
		"eta", w.Eta,
	)
	return *w, nil
}

// ExecuteWithdrawal releases a due withdrawal. It is permissionless.
func (v *Vault) ExecuteWithdrawal(now uint64, id uint64) (Withdrawal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.monotonic.Observe(now)
	if v.paused {
		return Withdrawal{}, fmt.Errorf("execute withdrawal: %w", types.ErrPaused)
	}
	w, err := v.lookup(id)
	if err != nil {
		return Withdrawal{}, err
	}
	if w.Status != WithdrawalPending {
		return Withdrawal{}, fmt.Errorf(
			"execute withdrawal: %w: withdrawal %d is %s",
			types.ErrInvalidState,
			id,
			w.Status,
		)
	}
	if now < w.Eta {
		return Withdrawal{}, fmt.Errorf(
			"execute withdrawal: %w: eta %d, now %d",
			types.ErrTimelockNotElapsed,
			w.Eta,
			now,
		)
	}
	if w.ExpiresAt > 0 && now >= w.ExpiresAt {
		return Withdrawal{}, fmt.Errorf(
			"execute withdrawal: %w: expired at %d",
			types.ErrTimelockExpired,
			w.ExpiresAt,
		)
	}
	bal := v.balances[w.Asset]
	newBal, err := bal.Sub(w.Amount)
	if err != nil {
		return Withdrawal{}, fmt.Errorf(
			"execute withdrawal: %w: %s has %s, need %s",
			types.ErrInsufficientTreasuryBalance,
			types.AssetName(w.Asset),
			bal,
			w.Amount,
		)
	}
	if v.config.Payee != nil {
		if err := v.config.Payee.Pay(w.Recipient, w.Asset, w.Amount); err != nil {
			return Withdrawal{}, fmt.Errorf("execute withdrawal: pay recipient: %w", err)
		}
	}
	if newBal.IsZero() {
		delete(v.balances, w.Asset)
	} else {
		v.balances[w.Asset] = newBal
	}
	w.Status = WithdrawalExecuted
	w.ExecutedAt = now
	if v.metrics != nil {
		v.metrics.setBalance(w.Asset, newBal)
		v.metrics.withdrawals.WithLabelValues("executed").Inc()
	}
	v.publish(WithdrawalExecutedEventType, now, WithdrawalExecutedEvent{Withdrawal: *w})
	v.logger.Info(
		"withdrawal executed",
		"id", w.Id,
		"recipient", w.Recipient.Hex(),
		"asset", types.AssetName(w.Asset),
		"amount", w.Amount.String(),
	)
	return *w, nil
}

// CancelWithdrawal drops a pending withdrawal. The governor or an admin may
// cancel.
func (v *Vault) CancelWithdrawal(now uint64, caller types.Address, id uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.monotonic.Observe(now)
	isGovernor := caller != types.ZeroAddress && caller == v.governor
	if !isGovernor && !v.config.Admins.Has(caller) {
		return fmt.Errorf("cancel withdrawal: %w: %s", types.ErrUnauthorized, caller)
	}
	w, err := v.lookup(id)
	if err != nil {
		return err
	}
	if w.Status != WithdrawalPending {
		return fmt.Errorf(
			"cancel withdrawal: %w: withdrawal %d is %s",
			types.ErrInvalidState,
			id,
			w.Status,
		)
	}
	w.Status = WithdrawalCancelled
	if v.metrics != nil {
		v.metrics.withdrawals.WithLabelValues("cancelled").Inc()
	}
	v.publish(WithdrawalCancelledEventType, now, WithdrawalCancelledEvent{Withdrawal: *w})
	return nil
}

// Pause stops withdrawal execution until Unpause is called
func (v *Vault) Pause(now uint64, caller types.Address) error {
	return v.setPaused(now, caller, true)
}

func (v *Vault) Unpause(now uint64, caller types.Address) error {
	return v.setPaused(now, caller, false)
}

func (v *Vault) setPaused(now uint64, caller types.Address, paused bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.monotonic.Observe(now)
	if !v.config.Admins.Has(caller) {
		return fmt.Errorf("pause: %w: %s", types.ErrUnauthorized, caller)
	}
	if v.paused == paused {
		return nil
	}
	v.paused = paused
	if v.metrics != nil {
		v.metrics.paused.Set(lo.Ternary(paused, 1.0, 0.0))
	}
	v.publish(PausedEventType, now, PausedEvent{By: caller, Paused: paused})
	v.logger.Warn("treasury pause changed", "paused", paused, "by", caller.Hex())
	return nil
}

// SetWithdrawalDelay changes the delay applied to withdrawals queued from now
// on. Already queued withdrawals keep their eta.
func (v *Vault) SetWithdrawalDelay(caller types.Address, delay uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.config.Admins.Has(caller) {
		return fmt.Errorf("set withdrawal delay: %w: %s", types.ErrUnauthorized, caller)
	}
	v.config.WithdrawalDelay = delay
	return nil
}

// SetGracePeriod changes how long withdrawals queued from now on stay
// executable. Zero disables expiry.
func (v *Vault) SetGracePeriod(caller types.Address, grace uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.config.Admins.Has(caller) {
		return fmt.Errorf("set grace period: %w: %s", types.ErrUnauthorized, caller)
	}
	v.config.GracePeriod = grace
	return nil
}

func (v *Vault) GracePeriod() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.config.GracePeriod
}

func (v *Vault) lookup(id uint64) (*Withdrawal, error) {
	if id == 0 || id > uint64(len(v.withdrawals)) {
		return nil, fmt.Errorf("%w: %d", types.ErrWithdrawalNotFound, id)
	}
	return v.withdrawals[id-1], nil
}

func (v *Vault) publish(evtType event.EventType, now uint64, data any) {
	if v.config.EventBus == nil {
		return
	}
	v.config.EventBus.Publish(evtType, event.NewEvent(evtType, now, data))
}
