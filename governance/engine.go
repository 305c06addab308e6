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

// Package governance orchestrates proposal creation, voting, finalization,
// queueing, execution and cancellation across the ledger, the proposal
// registry and the treasury vault.
package governance

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"

	"github.com/samber/lo"

	"github.com/blinklabs-io/quorum/access"
	"github.com/blinklabs-io/quorum/ledger"
	"github.com/blinklabs-io/quorum/proposal"
	"github.com/blinklabs-io/quorum/treasury"
	"github.com/blinklabs-io/quorum/types"
)

type EngineConfig struct {
	Logger *slog.Logger
	// Address is the handle the engine uses when acting on the vault
	Address  types.Address
	Ledger   *ledger.Ledger
	Registry *proposal.Registry
	Vault    *treasury.Vault
	Admins   *access.Control
	Params   Params
	// RestrictTargets limits proposal targets to the vault and the allowlist
	RestrictTargets bool
	AllowedTargets  []types.Address
}

// Engine orchestrates the governance components. The engine mutex serializes
// every operation that mutates a component and guards params and the target
// allowlist. Queries that only read one component go straight to it and
// rely on that component's own lock.
type Engine struct {
	mu      sync.RWMutex
	config  EngineConfig
	logger  *slog.Logger
	params  Params
	allowed map[types.Address]struct{}
}

// NewEngine creates the engine and binds it to the vault as the only
// principal allowed to queue withdrawals
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg.Ledger == nil || cfg.Registry == nil || cfg.Vault == nil || cfg.Admins == nil {
		return nil, fmt.Errorf("%w: engine requires ledger, registry, vault and admins", types.ErrInvalidParams)
	}
	if cfg.Address == types.ZeroAddress || cfg.Address == cfg.Vault.Address() {
		return nil, fmt.Errorf("engine address: %w", types.ErrInvalidAddress)
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	// Votes read ledger history at the snapshot, so every component has to
	// refuse writes behind the latest index any of them has seen
	if cfg.Ledger.Monotonic() != cfg.Registry.Monotonic() || cfg.Ledger.Monotonic() != cfg.Vault.Monotonic() {
		return nil, fmt.Errorf("%w: ledger, registry and vault must share one time index guard", types.ErrInvalidParams)
	}
	if err := cfg.Vault.BindGovernor(cfg.Address); err != nil {
		return nil, err
	}
	e := &Engine{
		config:  cfg,
		logger:  cfg.Logger.With("component", "governance"),
		params:  cfg.Params,
		allowed: make(map[types.Address]struct{}),
	}
	for _, target := range cfg.AllowedTargets {
		e.allowed[target] = struct{}{}
	}
	return e, nil
}

func (e *Engine) Address() types.Address {
	return e.config.Address
}

func (e *Engine) Admins() *access.Control {
	return e.config.Admins
}

func (e *Engine) Params() Params {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.params
}

// CreateProposal opens a new proposal. The proposer's current voting power
// must meet the proposal threshold. The snapshot is the creation index, and
// voting opens VotingDelay indexes later.
func (e *Engine) CreateProposal(
	now uint64,
	proposer types.Address,
	title string,
	description string,
	action proposal.Action,
) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	params := e.params
	if proposer == types.ZeroAddress {
		return 0, fmt.Errorf("create proposal: %w", types.ErrInvalidAddress)
	}
	power := e.config.Ledger.VotingPower(proposer)
	if power.LessThan(params.ProposalThreshold) {
		return 0, fmt.Errorf(
			"create proposal: %w: %s has %s, threshold %s",
			types.ErrInsufficientVotingPower,
			proposer,
			power,
			params.ProposalThreshold,
		)
	}
	if e.config.RestrictTargets && action.Target != e.config.Vault.Address() {
		if _, ok := e.allowed[action.Target]; !ok {
			return 0, fmt.Errorf("create proposal: %w: %s", types.ErrTargetNotAllowed, action.Target)
		}
	}
	if _, _, err := ClassifyAction(e.config.Vault.Address(), action); err != nil {
		return 0, fmt.Errorf("create proposal: %w", err)
	}
	start := now + params.VotingDelay
	p, err := e.config.Registry.Create(now, proposal.NewProposal{
		Proposer:      proposer,
		Title:         title,
		Description:   description,
		Action:        action,
		SnapshotIndex: now,
		StartTime:     start,
		EndTime:       start + params.VotingPeriod,
	})
	if err != nil {
		return 0, err
	}
	return p.Id, nil
}

// CastVote records a vote weighted by the voter's power at the proposal
// snapshot and returns that weight
func (e *Engine) CastVote(
	now uint64,
	id uint64,
	voter types.Address,
	support proposal.Support,
) (types.Amount, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.config.Registry.Get(id)
	if err != nil {
		return types.Amount{}, err
	}
	weight := e.config.Ledger.VotingPowerAt(voter, p.SnapshotIndex)
	v, err := e.config.Registry.RecordVote(now, id, voter, support, weight)
	if err != nil {
		return types.Amount{}, err
	}
	return v.Weight, nil
}

// FinalizeProposal settles a proposal whose voting window has closed. It is
// permissionless and idempotent.
func (e *Engine) FinalizeProposal(now uint64, id uint64) (proposal.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.config.Registry.Get(id)
	if err != nil {
		return 0, err
	}
	quorum, err := e.quorumFor(&p)
	if err != nil {
		return 0, err
	}
	return e.config.Registry.Finalize(now, id, quorum)
}

// Quorum returns the participation a proposal needs to succeed
func (e *Engine) Quorum(id uint64) (types.Amount, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, err := e.config.Registry.Get(id)
	if err != nil {
		return types.Amount{}, err
	}
	return e.quorumFor(&p)
}

// quorumFor requires e.mu
func (e *Engine) quorumFor(p *proposal.Proposal) (types.Amount, error) {
	return proposal.Quorum(
		e.config.Ledger.TotalSupplyAt(p.SnapshotIndex),
		e.params.QuorumNumerator,
		e.params.QuorumDenominator,
	)
}

// QueueProposal moves a Succeeded proposal into the timelock. Financial
// actions enqueue the matching vault withdrawal with the proposal's own
// execution window. Returns the execution eta.
func (e *Engine) QueueProposal(now uint64, id uint64) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	lock := treasury.Timelock{Eta: now + e.params.ExecutionDelay}
	lock.ExpiresAt = lock.Eta + e.params.GracePeriod
	p, err := e.config.Registry.Get(id)
	if err != nil {
		return 0, err
	}
	if st := p.StateAt(now); st != proposal.StateSucceeded {
		return 0, fmt.Errorf(
			"queue: %w: proposal %d is %s",
			types.ErrInvalidState,
			id,
			st,
		)
	}
	kind, call, err := ClassifyAction(e.config.Vault.Address(), p.Action)
	if err != nil {
		return 0, fmt.Errorf("queue: %w", err)
	}
	var withdrawalId uint64
	if kind != ActionNone {
		w, err := e.config.Vault.QueueTimelockedWithdrawal(
			now,
			e.config.Address,
			call.Recipient,
			call.Asset,
			call.Amount,
			lock,
		)
		if err != nil {
			return 0, fmt.Errorf("queue: %w", err)
		}
		withdrawalId = w.Id
	}
	if err := e.config.Registry.MarkQueued(now, id, lock.Eta, lock.ExpiresAt, withdrawalId); err != nil {
		if withdrawalId != 0 {
			if cancelErr := e.config.Vault.CancelWithdrawal(now, e.config.Address, withdrawalId); cancelErr != nil {
				e.logger.Error(
					"failed to roll back withdrawal",
					"withdrawal", withdrawalId,
					"error", cancelErr,
				)
			}
		}
		return 0, err
	}
	e.logger.Info(
		"proposal queued",
		"id", id,
		"eta", lock.Eta,
		"action", kind.String(),
		"withdrawal", withdrawalId,
	)
	return lock.Eta, nil
}

// ExecuteProposal performs a queued proposal's action once its timelock has
// elapsed and before it expires
func (e *Engine) ExecuteProposal(now uint64, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.config.Registry.Get(id)
	if err != nil {
		return err
	}
	switch st := p.StateAt(now); st {
	case proposal.StateQueued:
	case proposal.StateExpired:
		return fmt.Errorf(
			"execute: %w: proposal %d expired at %d",
			types.ErrTimelockExpired,
			id,
			p.ExpiresAt,
		)
	default:
		return fmt.Errorf(
			"execute: %w: proposal %d is %s",
			types.ErrInvalidState,
			id,
			st,
		)
	}
	if now < p.ExecutionEta {
		return fmt.Errorf(
			"execute: %w: eta %d, now %d",
			types.ErrTimelockNotElapsed,
			p.ExecutionEta,
			now,
		)
	}
	if p.WithdrawalId != 0 {
		w, err := e.config.Vault.Withdrawal(p.WithdrawalId)
		if err != nil {
			return fmt.Errorf("execute: %w", err)
		}
		switch w.Status {
		case treasury.WithdrawalPending:
			if _, err := e.config.Vault.ExecuteWithdrawal(now, w.Id); err != nil {
				return fmt.Errorf("execute: %w", err)
			}
		case treasury.WithdrawalExecuted:
			// Already released directly through the vault
		default:
			return fmt.Errorf(
				"execute: %w: withdrawal %d is %s",
				types.ErrInvalidState,
				w.Id,
				w.Status,
			)
		}
	}
	if err := e.config.Registry.MarkExecuted(now, id); err != nil {
		return err
	}
	e.logger.Info("proposal executed", "id", id, "index", now)
	return nil
}

// CancelProposal cancels a proposal that has not been settled. Only the
// proposer or an admin may cancel.
func (e *Engine) CancelProposal(now uint64, id uint64, caller types.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, err := e.config.Registry.Get(id)
	if err != nil {
		return err
	}
	if caller == types.ZeroAddress || (caller != p.Proposer && !e.config.Admins.Has(caller)) {
		return fmt.Errorf("cancel: %w: %s", types.ErrUnauthorized, caller)
	}
	return e.config.Registry.MarkCancelled(now, id)
}

func (e *Engine) GetProposal(id uint64) (proposal.Proposal, error) {
	return e.config.Registry.Get(id)
}

func (e *Engine) GetProposalState(id uint64, now uint64) (proposal.State, error) {
	return e.config.Registry.State(id, now)
}

func (e *Engine) GetVoteReceipt(id uint64, voter types.Address) (proposal.Vote, bool) {
	return e.config.Registry.Receipt(id, voter)
}

func (e *Engine) VotingPowerAt(account types.Address, index uint64) types.Amount {
	return e.config.Ledger.VotingPowerAt(account, index)
}

func (e *Engine) ProposalCount() uint64 {
	return e.config.Registry.Count()
}

// UpdateParams replaces the engine parameters. Proposals already created keep
// their voting window, and queued proposals keep their eta and expiry.
func (e *Engine) UpdateParams(caller types.Address, params Params) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.config.Admins.Has(caller) {
		return fmt.Errorf("update params: %w: %s", types.ErrUnauthorized, caller)
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("update params: %w", err)
	}
	e.params = params
	e.logger.Info("parameters updated", "by", caller.Hex())
	return nil
}

// SetAllowedTarget adds or removes a proposal target from the allowlist
func (e *Engine) SetAllowedTarget(caller types.Address, target types.Address, allowed bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.config.Admins.Has(caller) {
		return fmt.Errorf("set allowed target: %w: %s", types.ErrUnauthorized, caller)
	}
	if target == types.ZeroAddress {
		return fmt.Errorf("set allowed target: %w", types.ErrInvalidAddress)
	}
	if allowed {
		e.allowed[target] = struct{}{}
	} else {
		delete(e.allowed, target)
	}
	return nil
}

// AllowedTargets returns the allowlist sorted by address
func (e *Engine) AllowedTargets() []types.Address {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ret := lo.Keys(e.allowed)
	slices.SortFunc(ret, func(a, b types.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	return ret
}
