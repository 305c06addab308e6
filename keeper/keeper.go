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

package keeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"

	"github.com/blinklabs-io/quorum/proposal"
)

const DefaultInterval = 5 * time.Second

// Target is the governance surface the keeper drives
type Target interface {
	// Now returns the current time index
	Now() uint64
	Proposals() []proposal.Proposal
	Finalize(ctx context.Context, id uint64) error
	Queue(ctx context.Context, id uint64) error
	Execute(ctx context.Context, id uint64) error
}

type KeeperConfig struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	Target       Target
	Interval     time.Duration
	// AutoQueue queues succeeded proposals
	AutoQueue bool
	// AutoExecute executes queued proposals once their eta has passed
	AutoExecute bool
}

// Keeper periodically moves proposals through the time-driven parts of their
// lifecycle
type Keeper struct {
	config    KeeperConfig
	scheduler *Scheduler
	metrics   keeperMetrics
	mutex     sync.Mutex
	started   bool
}

// SweepResult lists the proposals acted on by a sweep
type SweepResult struct {
	Finalized []uint64
	Queued    []uint64
	Executed  []uint64
	Failed    []uint64
}

func NewKeeper(cfg KeeperConfig) (*Keeper, error) {
	if cfg.Target == nil {
		return nil, errors.New("keeper: no target configured")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	cfg.Logger = cfg.Logger.With("component", "keeper")
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	k := &Keeper{
		config: cfg,
	}
	if cfg.PromRegistry != nil {
		k.metrics.init(cfg.PromRegistry)
	}
	return k, nil
}

// Start runs sweeps in the background until Stop is called
func (k *Keeper) Start() {
	k.mutex.Lock()
	defer k.mutex.Unlock()
	if k.started {
		return
	}
	k.started = true
	k.scheduler = NewScheduler(k.config.Interval)
	k.scheduler.Register(
		1,
		func(ctx context.Context) {
			_ = k.Sweep(ctx)
		},
		func() {
			k.config.Logger.Debug("previous sweep still running, skipping")
		},
	)
	k.scheduler.Start()
	k.config.Logger.Info(
		"keeper started",
		"interval", k.config.Interval.String(),
		"auto_queue", k.config.AutoQueue,
		"auto_execute", k.config.AutoExecute,
	)
}

// Stop halts background sweeps and waits for a running sweep to return
func (k *Keeper) Stop() {
	k.mutex.Lock()
	scheduler := k.scheduler
	k.scheduler = nil
	k.started = false
	k.mutex.Unlock()
	if scheduler != nil {
		scheduler.Stop()
	}
}

// Sweep performs one pass over all proposals. Failures are logged and
// counted but do not stop the pass.
func (k *Keeper) Sweep(ctx context.Context) SweepResult {
	var res SweepResult
	now := k.config.Target.Now()
	proposals := k.config.Target.Proposals()
	due := lo.Filter(proposals, func(p proposal.Proposal, _ int) bool {
		switch p.StateAt(now) {
		case proposal.StateActive:
			return now > p.EndTime
		case proposal.StateSucceeded:
			return k.config.AutoQueue
		case proposal.StateQueued:
			return k.config.AutoExecute && now >= p.ExecutionEta
		default:
			return false
		}
	})
	for _, p := range due {
		if ctx.Err() != nil {
			break
		}
		state := p.StateAt(now)
		var err error
		switch state {
		case proposal.StateActive:
			err = k.config.Target.Finalize(ctx, p.Id)
			if err == nil {
				res.Finalized = append(res.Finalized, p.Id)
				k.metrics.inc(k.metrics.finalized)
			}
		case proposal.StateSucceeded:
			err = k.config.Target.Queue(ctx, p.Id)
			if err == nil {
				res.Queued = append(res.Queued, p.Id)
				k.metrics.inc(k.metrics.queued)
			}
		case proposal.StateQueued:
			err = k.config.Target.Execute(ctx, p.Id)
			if err == nil {
				res.Executed = append(res.Executed, p.Id)
				k.metrics.inc(k.metrics.executed)
			}
		}
		if err != nil {
			res.Failed = append(res.Failed, p.Id)
			k.metrics.inc(k.metrics.failures)
			k.config.Logger.Warn(
				"proposal action failed",
				"proposal_id", p.Id,
				"state", state.String(),
				"error", err,
			)
		}
	}
	if len(due) > 0 {
		k.config.Logger.Debug(
			"sweep complete",
			"index", now,
			"finalized", len(res.Finalized),
			"queued", len(res.Queued),
			"executed", len(res.Executed),
			"failed", len(res.Failed),
		)
	}
	return res
}
