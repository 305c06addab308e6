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

// Package proposal stores proposals and votes and enforces the proposal
// state machine. It knows nothing about tokens: vote weights and quorum
// values are supplied by the caller.
package proposal

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"

	"github.com/blinklabs-io/quorum/clock"
	"github.com/blinklabs-io/quorum/event"
	"github.com/blinklabs-io/quorum/types"
)

type RegistryConfig struct {
	Logger       *slog.Logger
	EventBus     event.Publisher
	PromRegistry prometheus.Registerer
	// Monotonic guards the time index. If nil, the registry uses its own.
	Monotonic *clock.Monotonic
}

// NewProposal holds the fields of a proposal that are fixed at creation
type NewProposal struct {
	Proposer      types.Address
	Title         string
	Description   string
	Action        Action
	SnapshotIndex uint64
	StartTime     uint64
	EndTime       uint64
}

type Registry struct {
	mu        sync.RWMutex
	config    RegistryConfig
	logger    *slog.Logger
	metrics   *registryMetrics
	monotonic *clock.Monotonic
	proposals []*Proposal
	votes     map[voteKey]Vote
	voters    map[uint64][]types.Address
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	r := &Registry{
		config:    cfg,
		logger:    cfg.Logger.With("component", "proposal"),
		monotonic: cfg.Monotonic,
		votes:     make(map[voteKey]Vote),
		voters:    make(map[uint64][]types.Address),
	}
	if r.monotonic == nil {
		r.monotonic = clock.NewMonotonic("proposal")
	}
	if cfg.PromRegistry != nil {
		r.metrics = &registryMetrics{}
		r.metrics.init(cfg.PromRegistry)
	}
	return r
}

// Create stores a new Pending proposal and returns it. Ids start at 1.
func (r *Registry) Create(now uint64, np NewProposal) (Proposal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.monotonic.Observe(now)
	if np.Proposer == types.ZeroAddress {
		return Proposal{}, fmt.Errorf("create proposal: %w", types.ErrInvalidAddress)
	}
	if np.StartTime <= np.SnapshotIndex || np.EndTime < np.StartTime {
		return Proposal{}, fmt.Errorf(
			"create proposal: %w: snapshot %d, start %d, end %d",
			types.ErrInvalidParams,
			np.SnapshotIndex,
			np.StartTime,
			np.EndTime,
		)
	}
	p := &Proposal{
		Id:            uint64(len(r.proposals)) + 1,
		Proposer:      np.Proposer,
		Title:         np.Title,
		Description:   np.Description,
		Action:        np.Action,
		SnapshotIndex: np.SnapshotIndex,
		StartTime:     np.StartTime,
		EndTime:       np.EndTime,
		Status:        StatePending,
		CreatedAt:     now,
	}
	if np.Action.Calldata != nil {
		p.Action.Calldata = append([]byte(nil), np.Action.Calldata...)
	}
	r.proposals = append(r.proposals, p)
	if r.metrics != nil {
		r.metrics.proposalsTotal.Inc()
	}
	ret := p.clone()
	r.publish(ProposalCreatedEventType, now, ProposalCreatedEvent{Proposal: ret})
	r.logger.Info(
		"proposal created",
		"id", p.Id,
		"proposer", p.Proposer.Hex(),
		"snapshot", p.SnapshotIndex,
		"start", p.StartTime,
		"end", p.EndTime,
	)
	return ret, nil
}

func (r *Registry) Get(id uint64) (Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.lookup(id)
	if err != nil {
		return Proposal{}, err
	}
	return p.clone(), nil
}

// State returns the effective state of a proposal at the given index
func (r *Registry) State(id uint64, now uint64) (State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.lookup(id)
	if err != nil {
		return 0, err
	}
	return p.StateAt(now), nil
}

func (r *Registry) Monotonic() *clock.Monotonic {
	return r.monotonic
}

func (r *Registry) Count() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return uint64(len(r.proposals))
}

// List returns all proposals in id order
func (r *Registry) List() []Proposal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.proposals, func(p *Proposal, _ int) Proposal {
		return p.clone()
	})
}

// ListByState returns the proposals whose effective state at now is one of
// the given states
func (r *Registry) ListByState(now uint64, states ...State) []Proposal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.FilterMap(r.proposals, func(p *Proposal, _ int) (Proposal, bool) {
		if !lo.Contains(states, p.StateAt(now)) {
			return Proposal{}, false
		}
		return p.clone(), true
	})
}

// RecordVote stores a vote and adds its weight to the matching tally
func (r *Registry) RecordVote(
	now uint64,
	id uint64,
	voter types.Address,
	support Support,
	weight types.Amount,
) (Vote, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.monotonic.Observe(now)
	p, err := r.lookup(id)
	if err != nil {
		return Vote{}, err
	}
	if !support.Valid() {
		return Vote{}, fmt.Errorf("record vote: %w: support %d", types.ErrInvalidParams, support)
	}
	if !p.VotingOpen(now) {
		return Vote{}, fmt.Errorf(
			"record vote: %w: proposal %d is %s at %d",
			types.ErrInvalidState,
			id,
			p.StateAt(now),
			now,
		)
	}
	key := voteKey{proposalId: id, voter: voter}
	if _, ok := r.votes[key]; ok {
		return Vote{}, fmt.Errorf(
			"record vote: %w: %s on proposal %d",
			types.ErrAlreadyVoted,
			voter,
			id,
		)
	}
	if weight.IsZero() {
		return Vote{}, fmt.Errorf("record vote: %w: %s", types.ErrNoVotingPower, voter)
	}
	var tally *types.Amount
	switch support {
	case SupportFor:
		tally = &p.ForVotes
	case SupportAgainst:
		tally = &p.AgainstVotes
	case SupportAbstain:
		tally = &p.AbstainVotes
	}
	newTally, err := tally.Add(weight)
	if err != nil {
		return Vote{}, fmt.Errorf("record vote: %w", err)
	}
	*tally = newTally
	v := Vote{
		ProposalId: id,
		Voter:      voter,
		Support:    support,
		Weight:     weight,
		CastAt:     now,
	}
	r.votes[key] = v
	r.voters[id] = append(r.voters[id], voter)
	if r.metrics != nil {
		r.metrics.votesTotal.WithLabelValues(support.String()).Inc()
	}
	r.publish(VoteCastEventType, now, VoteCastEvent{Vote: v})
	r.logger.Debug(
		"vote recorded",
		"id", id,
		"voter", voter.Hex(),
		"support", support.String(),
		"weight", weight.String(),
	)
	return v, nil
}

// Receipt returns the vote a voter cast on a proposal, if any
func (r *Registry) Receipt(id uint64, voter types.Address) (Vote, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.votes[voteKey{proposalId: id, voter: voter}]
	return v, ok
}

// Votes returns all votes on a proposal in the order they were cast
func (r *Registry) Votes(id uint64) []Vote {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Map(r.voters[id], func(voter types.Address, _ int) Vote {
		return r.votes[voteKey{proposalId: id, voter: voter}]
	})
}

// Finalize settles voting on a proposal whose voting window has closed.
// Calling it again on a settled proposal returns the current state and
// changes nothing.
func (r *Registry) Finalize(now uint64, id uint64, quorum types.Amount) (State, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.monotonic.Observe(now)
	p, err := r.lookup(id)
	if err != nil {
		return 0, err
	}
	current := p.StateAt(now)
	if current.Finalized() {
		return current, nil
	}
	if current == StatePending || now <= p.EndTime {
		return current, fmt.Errorf(
			"finalize: %w: proposal %d is %s until %d",
			types.ErrInvalidState,
			id,
			current,
			p.EndTime,
		)
	}
	total, err := p.TotalVotes()
	if err != nil {
		return current, fmt.Errorf("finalize: %w", err)
	}
	next := StateDefeated
	if p.AgainstVotes.LessThan(p.ForVotes) && quorum.Cmp(total) <= 0 {
		next = StateSucceeded
	}
	r.transition(now, p, current, next)
	return next, nil
}

// MarkQueued moves a Succeeded proposal to Queued
func (r *Registry) MarkQueued(now uint64, id uint64, eta, expiresAt, withdrawalId uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.monotonic.Observe(now)
	p, err := r.lookup(id)
	if err != nil {
		return err
	}
	current := p.StateAt(now)
	if current != StateSucceeded {
		return fmt.Errorf(
			"queue: %w: proposal %d is %s",
			types.ErrInvalidState,
			id,
			current,
		)
	}
	if expiresAt <= eta {
		return fmt.Errorf("queue: %w: empty execution window", types.ErrInvalidParams)
	}
	p.ExecutionEta = eta
	p.ExpiresAt = expiresAt
	p.WithdrawalId = withdrawalId
	r.transition(now, p, current, StateQueued)
	r.publish(ProposalQueuedEventType, now, ProposalQueuedEvent{
		ProposalId:   id,
		Eta:          eta,
		WithdrawalId: withdrawalId,
	})
	return nil
}

// MarkExecuted moves a Queued proposal to Executed. Expired proposals are
// rejected.
func (r *Registry) MarkExecuted(now uint64, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.monotonic.Observe(now)
	p, err := r.lookup(id)
	if err != nil {
		return err
	}
	current := p.StateAt(now)
	if current != StateQueued {
		return fmt.Errorf(
			"execute: %w: proposal %d is %s",
			types.ErrInvalidState,
			id,
			current,
		)
	}
	p.Executed = true
	r.transition(now, p, current, StateExecuted)
	r.publish(ProposalExecutedEventType, now, ProposalExecutedEvent{ProposalId: id})
	return nil
}

// MarkCancelled moves a Pending or Active proposal to Cancelled
func (r *Registry) MarkCancelled(now uint64, id uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.monotonic.Observe(now)
	p, err := r.lookup(id)
	if err != nil {
		return err
	}
	current := p.StateAt(now)
	if current.Finalized() {
		return fmt.Errorf(
			"cancel: %w: proposal %d is %s",
			types.ErrInvalidState,
			id,
			current,
		)
	}
	p.Cancelled = true
	r.transition(now, p, current, StateCancelled)
	return nil
}

func (r *Registry) lookup(id uint64) (*Proposal, error) {
	if id == 0 || id > uint64(len(r.proposals)) {
		return nil, fmt.Errorf("%w: %d", types.ErrProposalNotFound, id)
	}
	return r.proposals[id-1], nil
}

func (r *Registry) transition(now uint64, p *Proposal, from, to State) {
	p.Status = to
	if r.metrics != nil {
		r.metrics.transitions.WithLabelValues(to.String()).Inc()
	}
	r.publish(ProposalStateChangedEventType, now, ProposalStateChangedEvent{
		ProposalId: p.Id,
		From:       from,
		To:         to,
	})
	r.logger.Info(
		"proposal state changed",
		"id", p.Id,
		"from", from.String(),
		"to", to.String(),
		"index", now,
	)
}

func (r *Registry) publish(evtType event.EventType, now uint64, data any) {
	if r.config.EventBus == nil {
		return
	}
	r.config.EventBus.Publish(evtType, event.NewEvent(evtType, now, data))
}
