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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/blinklabs-io/quorum/access"
	"github.com/blinklabs-io/quorum/clock"
	"github.com/blinklabs-io/quorum/database"
	"github.com/blinklabs-io/quorum/event"
	"github.com/blinklabs-io/quorum/governance"
	"github.com/blinklabs-io/quorum/ledger"
	"github.com/blinklabs-io/quorum/proposal"
	"github.com/blinklabs-io/quorum/treasury"
	"github.com/blinklabs-io/quorum/types"
)

var (
	ErrNotStarted    = errors.New("node not started")
	ErrClockBackward = errors.New("call index is before the last applied index")
	// ErrDiverged is returned once a call was applied in memory but could not
	// be journaled. The node must be restarted to replay the journal.
	ErrDiverged = errors.New("node state diverged from journal")
)

type Node struct {
	config        Config
	eventBus      *event.EventBus
	recorder      *eventRecorder
	db            *database.Database
	admins        *access.Control
	ledger        *ledger.Ledger
	registry      *proposal.Registry
	vault         *treasury.Vault
	engine        *governance.Engine
	shutdownFuncs []func(context.Context) error
	failure       error
	lastIndex     uint64
	mutex         sync.Mutex
	started       bool
	replaying     bool
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	n := &Node{
		config:   cfg,
		eventBus: event.NewEventBus(cfg.promRegistry, cfg.logger),
		recorder: &eventRecorder{},
	}
	if err := n.initComponents(); err != nil {
		n.eventBus.Stop()
		return nil, err
	}
	return n, nil
}

// replayPayee forwards released funds to the configured payee except while
// the journal is replayed, since those payments were already made
type replayPayee struct {
	node *Node
}

func (p replayPayee) Pay(recipient types.Address, asset types.Asset, amount types.Amount) error {
	if p.node.replaying {
		return nil
	}
	return p.node.config.payee.Pay(recipient, asset, amount)
}

func (n *Node) payee() treasury.Payee {
	if n.config.payee == nil {
		return nil
	}
	return replayPayee{node: n}
}

func (n *Node) initComponents() error {
	admins, err := access.New(n.config.admins...)
	if err != nil {
		return fmt.Errorf("failed to create admin set: %w", err)
	}
	n.admins = admins
	monotonic := clock.NewMonotonic("quorum")
	n.ledger = ledger.NewLedger(ledger.LedgerConfig{
		Logger:       n.config.logger,
		EventBus:     n.recorder,
		PromRegistry: n.config.promRegistry,
		MaxSupply:    n.config.maxSupply,
		Monotonic:    monotonic,
	})
	n.registry = proposal.NewRegistry(proposal.RegistryConfig{
		Logger:       n.config.logger,
		EventBus:     n.recorder,
		PromRegistry: n.config.promRegistry,
		Monotonic:    monotonic,
	})
	withdrawalDelay := n.config.params.ExecutionDelay
	if n.config.withdrawalDelay != nil {
		withdrawalDelay = *n.config.withdrawalDelay
	}
	n.vault, err = treasury.NewVault(treasury.VaultConfig{
		Logger:          n.config.logger,
		EventBus:        n.recorder,
		PromRegistry:    n.config.promRegistry,
		Address:         n.config.treasuryAddress,
		Admins:          admins,
		Payee:           n.payee(),
		WithdrawalDelay: withdrawalDelay,
		GracePeriod:     n.config.params.GracePeriod,
		Monotonic:       monotonic,
	})
	if err != nil {
		return fmt.Errorf("failed to create treasury vault: %w", err)
	}
	n.engine, err = governance.NewEngine(governance.EngineConfig{
		Logger:          n.config.logger,
		Address:         n.config.governorAddress,
		Ledger:          n.ledger,
		Registry:        n.registry,
		Vault:           n.vault,
		Admins:          admins,
		Params:          n.config.params,
		RestrictTargets: n.config.restrictTargets,
		AllowedTargets:  n.config.allowedTargets,
	})
	if err != nil {
		return fmt.Errorf("failed to create governance engine: %w", err)
	}
	return nil
}

// Start opens the database and replays the journal. The node accepts calls
// once Start returns without error.
func (n *Node) Start(ctx context.Context) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if n.started {
		return nil
	}
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	dbNeedsRecovery := false
	db, err := database.New(&database.Config{
		DataDir:      n.config.dataDir,
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
		SyncWrites:   true,
	})
	if db == nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	n.db = db
	if err != nil {
		var dbErr database.CommitTimestampError
		if !errors.As(err, &dbErr) {
			return fmt.Errorf("failed to open database: %w", err)
		}
		n.config.logger.Warn(
			"database initialization error, needs recovery",
			"component", "node",
			"error", err,
		)
		dbNeedsRecovery = true
	}
	if !dbNeedsRecovery {
		// A metadata store that was never committed while the journal has
		// entries was lost or replaced
		dbNeedsRecovery, err = n.metadataMissing()
		if err != nil {
			return err
		}
	}
	replayed, err := n.replay(ctx)
	if err != nil {
		return fmt.Errorf("failed to replay journal: %w", err)
	}
	if dbNeedsRecovery {
		if err := n.rebuildReadModel(); err != nil {
			return fmt.Errorf("failed to rebuild read model: %w", err)
		}
		n.config.logger.Info(
			"read model rebuilt from journal",
			"component", "node",
		)
	}
	n.started = true
	n.config.logger.Info(
		"node started",
		"component", "node",
		"replayed", replayed,
		"index", n.lastIndex,
		"data_dir", n.config.dataDir,
	)
	return nil
}

func (n *Node) metadataMissing() (bool, error) {
	metadataTimestamp, err := n.db.Metadata().GetCommitTimestamp()
	if err != nil {
		return false, fmt.Errorf("failed to get metadata timestamp: %w", err)
	}
	if metadataTimestamp > 0 {
		return false, nil
	}
	head, err := n.db.JournalHead(nil)
	if err != nil {
		return false, fmt.Errorf("failed to read journal head: %w", err)
	}
	if head > 0 {
		n.config.logger.Warn(
			"metadata store is empty but journal is not, needs recovery",
			"component", "node",
			"journal_head", head,
		)
		return true, nil
	}
	return false, nil
}

// replay re-applies every journaled call at its recorded index
func (n *Node) replay(ctx context.Context) (uint64, error) {
	var count uint64
	n.replaying = true
	defer func() {
		n.replaying = false
	}()
	err := n.db.IterateJournal(func(entry database.JournalEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var call Call
		if err := entry.Decode(&call); err != nil {
			return fmt.Errorf("entry %d: %w", entry.Seq, err)
		}
		n.recorder.reset()
		if _, err := n.applyAt(entry.Index, call); err != nil {
			return fmt.Errorf("entry %d (%s): %w", entry.Seq, call, err)
		}
		count++
		return nil
	})
	n.recorder.reset()
	return count, err
}

// Apply validates and applies a call, journals it and refreshes the read
// model in one transaction, then publishes the resulting events. A call that
// returns an error leaves no trace.
func (n *Node) Apply(ctx context.Context, call Call) (Result, error) {
	_, span := otel.Tracer("quorum").Start(ctx, "Apply")
	defer span.End()
	span.SetAttributes(attribute.String("op", string(call.Op)))
	res, err := n.apply(call)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (n *Node) apply(call Call) (Result, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	if !n.started {
		return Result{}, ErrNotStarted
	}
	if n.failure != nil {
		return Result{}, n.failure
	}
	if !call.Op.Valid() {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownOp, call.Op)
	}
	var now uint64
	if call.At != nil {
		now = *call.At
	} else {
		now = max(n.config.clock.Now(), n.lastIndex)
	}
	// Journaled calls always carry their index
	call.At = &now
	n.recorder.reset()
	res, err := n.applyAt(now, call)
	if err != nil {
		n.recorder.reset()
		return Result{}, err
	}
	events := n.recorder.take()
	txn := n.db.Transaction(true)
	err = txn.Do(func(txn *database.Txn) error {
		seq, err := n.db.AppendJournal(txn, now, call)
		if err != nil {
			return err
		}
		res.Seq = seq
		return n.writeReadModel(txn, events)
	})
	if err != nil {
		n.failure = fmt.Errorf("%w: %w", ErrDiverged, err)
		n.config.logger.Error(
			"failed to journal applied call",
			"component", "node",
			"op", string(call.Op),
			"error", err,
		)
		return Result{}, n.failure
	}
	for _, evt := range events {
		n.eventBus.Publish(evt.Type, evt)
	}
	n.config.logger.Debug(
		"applied call",
		"component", "node",
		"op", string(call.Op),
		"seq", res.Seq,
		"index", now,
	)
	return res, nil
}

// applyAt dispatches a call to the components. Every component validates
// before mutating, so an error means nothing changed.
func (n *Node) applyAt(now uint64, call Call) (Result, error) {
	if now < n.lastIndex {
		return Result{}, fmt.Errorf(
			"%w: %d < %d",
			ErrClockBackward,
			now,
			n.lastIndex,
		)
	}
	// Components observe the index even when a call fails
	n.lastIndex = now
	res := Result{Index: now}
	var err error
	switch call.Op {
	case OpMint:
		if !n.admins.Has(call.Caller) {
			return res, fmt.Errorf("mint: %w: %s", types.ErrUnauthorized, call.Caller)
		}
		err = n.ledger.Mint(now, call.To, call.Amount)
	case OpBurn:
		var account types.Address
		if account, err = n.actingAccount(call); err == nil {
			err = n.ledger.Burn(now, account, call.Amount)
		}
	case OpTransfer:
		err = n.ledger.Transfer(now, call.Caller, call.To, call.Amount)
	case OpDelegate:
		var account types.Address
		if account, err = n.actingAccount(call); err == nil {
			err = n.ledger.Delegate(now, account, call.Delegatee)
		}
	case OpDeposit:
		err = n.vault.Deposit(now, call.Caller, call.Asset, call.Amount)
	case OpPropose:
		res.ProposalId, err = n.engine.CreateProposal(
			now,
			call.Caller,
			call.Title,
			call.Description,
			proposal.Action{
				Target:   call.Target,
				Value:    call.Value,
				Calldata: call.Calldata,
			},
		)
	case OpVote:
		var support proposal.Support
		if support, err = call.support(); err != nil {
			return res, fmt.Errorf("vote: %w: %w", types.ErrInvalidParams, err)
		}
		var weight types.Amount
		if weight, err = n.engine.CastVote(now, call.ProposalId, call.Caller, support); err == nil {
			res.ProposalId = call.ProposalId
			res.Weight = &weight
		}
	case OpFinalize:
		var state proposal.State
		if state, err = n.engine.FinalizeProposal(now, call.ProposalId); err == nil {
			res.ProposalId = call.ProposalId
			res.State = state.String()
		}
	case OpQueue:
		if res.Eta, err = n.engine.QueueProposal(now, call.ProposalId); err == nil {
			res.ProposalId = call.ProposalId
			if p, getErr := n.registry.Get(call.ProposalId); getErr == nil {
				res.WithdrawalId = p.WithdrawalId
			}
		}
	case OpExecute:
		if err = n.engine.ExecuteProposal(now, call.ProposalId); err == nil {
			res.ProposalId = call.ProposalId
		}
	case OpCancel:
		if err = n.engine.CancelProposal(now, call.ProposalId, call.Caller); err == nil {
			res.ProposalId = call.ProposalId
		}
	case OpExecuteWithdraw:
		if _, err = n.vault.ExecuteWithdrawal(now, call.WithdrawalId); err == nil {
			res.WithdrawalId = call.WithdrawalId
		}
	case OpCancelWithdraw:
		if err = n.vault.CancelWithdrawal(now, call.Caller, call.WithdrawalId); err == nil {
			res.WithdrawalId = call.WithdrawalId
		}
	case OpPause:
		err = n.vault.Pause(now, call.Caller)
	case OpUnpause:
		err = n.vault.Unpause(now, call.Caller)
	case OpGrantAdmin:
		err = n.admins.Add(call.Caller, call.Principal)
	case OpRevokeAdmin:
		err = n.admins.Remove(call.Caller, call.Principal)
	case OpSetAllowedTarget:
		err = n.engine.SetAllowedTarget(call.Caller, call.Target, call.Allowed)
	case OpUpdateParams:
		err = n.updateParams(call)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownOp, call.Op)
	}
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// actingAccount returns the account a call acts on. Acting on behalf of
// another account requires an admin caller.
func (n *Node) actingAccount(call Call) (types.Address, error) {
	account := call.account()
	if account != call.Caller && !n.admins.Has(call.Caller) {
		return types.ZeroAddress, fmt.Errorf(
			"%s: %w: %s cannot act for %s",
			call.Op,
			types.ErrUnauthorized,
			call.Caller,
			account,
		)
	}
	return account, nil
}

func (n *Node) updateParams(call Call) error {
	if call.Params == nil {
		return fmt.Errorf("update-params: %w: no params given", types.ErrInvalidParams)
	}
	if err := checkWithdrawalDelay(n.config.withdrawalDelay, *call.Params); err != nil {
		return fmt.Errorf("update-params: %w", err)
	}
	if err := n.engine.UpdateParams(call.Caller, *call.Params); err != nil {
		return err
	}
	// The vault timelock follows the execution window unless configured
	if n.config.withdrawalDelay == nil {
		if err := n.vault.SetWithdrawalDelay(call.Caller, call.Params.ExecutionDelay); err != nil {
			return err
		}
	}
	return n.vault.SetGracePeriod(call.Caller, call.Params.GracePeriod)
}

// Stop shuts the node down. It is safe to call more than once
func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	shutdownTimeout := 30 * time.Second
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.started = false
	var err error
	n.eventBus.Stop()
	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("database close: %w", closeErr))
		}
	}
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fnErr)
		}
	}
	n.shutdownFuncs = nil
	n.config.logger.Debug("node stopped", "component", "node")
	return err
}

// Now returns the current time index of the node clock, never earlier than
// the last applied call
func (n *Node) Now() uint64 {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return max(n.config.clock.Now(), n.lastIndex)
}

// LastIndex returns the highest index any call was applied at
func (n *Node) LastIndex() uint64 {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.lastIndex
}

func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

func (n *Node) Database() *database.Database {
	return n.db
}

func (n *Node) Admins() *access.Control {
	return n.admins
}

func (n *Node) Ledger() *ledger.Ledger {
	return n.ledger
}

func (n *Node) Registry() *proposal.Registry {
	return n.registry
}

func (n *Node) Vault() *treasury.Vault {
	return n.vault
}

func (n *Node) Engine() *governance.Engine {
	return n.engine
}

// Proposals returns every proposal. It is used by the keeper.
func (n *Node) Proposals() []proposal.Proposal {
	return n.registry.List()
}

// Finalize applies a finalize call with no caller
func (n *Node) Finalize(ctx context.Context, id uint64) error {
	_, err := n.Apply(ctx, Call{Op: OpFinalize, ProposalId: id})
	return err
}

func (n *Node) Queue(ctx context.Context, id uint64) error {
	_, err := n.Apply(ctx, Call{Op: OpQueue, ProposalId: id})
	return err
}

func (n *Node) Execute(ctx context.Context, id uint64) error {
	_, err := n.Apply(ctx, Call{Op: OpExecute, ProposalId: id})
	return err
}
