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
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/quorum/clock"
	"github.com/blinklabs-io/quorum/governance"
	"github.com/blinklabs-io/quorum/treasury"
	"github.com/blinklabs-io/quorum/types"
)

var (
	// DefaultGovernorAddress is the handle the governance engine uses with the vault
	DefaultGovernorAddress = common.HexToAddress("0x0000000000000000000000000000000000006f76")
	// DefaultTreasuryAddress is the address proposals target for treasury withdrawals
	DefaultTreasuryAddress = common.HexToAddress("0x0000000000000000000000000000000000007472")
)

type Config struct {
	promRegistry    prometheus.Registerer
	logger          *slog.Logger
	clock           clock.Clock
	payee           treasury.Payee
	dataDir         string
	admins          []types.Address
	allowedTargets  []types.Address
	params          governance.Params
	maxSupply       types.Amount
	governorAddress types.Address
	treasuryAddress types.Address
	withdrawalDelay *uint64
	shutdownTimeout time.Duration
	restrictTargets bool
	tracing         bool
	tracingStdout   bool
}

func (c *Config) validate() error {
	if len(c.admins) == 0 {
		return errors.New("at least one admin is required")
	}
	if c.clock == nil {
		return errors.New("no clock configured")
	}
	if c.governorAddress == types.ZeroAddress ||
		c.treasuryAddress == types.ZeroAddress {
		return fmt.Errorf("governor and treasury addresses: %w", types.ErrInvalidAddress)
	}
	if c.governorAddress == c.treasuryAddress {
		return errors.New("governor and treasury addresses must differ")
	}
	if err := c.params.Validate(); err != nil {
		return err
	}
	if err := checkWithdrawalDelay(c.withdrawalDelay, c.params); err != nil {
		return err
	}
	return nil
}

// checkWithdrawalDelay refuses a vault delay longer than the execution delay,
// which would leave queued proposals unable to schedule their withdrawal
func checkWithdrawalDelay(delay *uint64, params governance.Params) error {
	if delay != nil && *delay > params.ExecutionDelay {
		return fmt.Errorf(
			"%w: withdrawal delay %d exceeds execution delay %d",
			types.ErrInvalidParams,
			*delay,
			params.ExecutionDelay,
		)
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new quorum config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
		params:          governance.DefaultParams(),
		governorAddress: DefaultGovernorAddress,
		treasuryAddress: DefaultTreasuryAddress,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.clock == nil {
		c.clock = clock.NewSlotClock(time.Unix(0, 0), time.Second)
	}
	return c
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithLogger specifies the logger to use. This defaults to discarding log output
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithClock specifies the source of the current time index. The default
// counts seconds since the Unix epoch
func WithClock(clk clock.Clock) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clk
	}
}

// WithPayee specifies where released treasury funds are delivered
func WithPayee(payee treasury.Payee) ConfigOptionFunc {
	return func(c *Config) {
		c.payee = payee
	}
}

// WithAdmins specifies the initial admin principals
func WithAdmins(admins ...types.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.admins = append(c.admins, admins...)
	}
}

// WithParams specifies the initial governance parameters
func WithParams(params governance.Params) ConfigOptionFunc {
	return func(c *Config) {
		c.params = params
	}
}

// WithMaxSupply caps the token supply. A zero value means no cap
func WithMaxSupply(maxSupply types.Amount) ConfigOptionFunc {
	return func(c *Config) {
		c.maxSupply = maxSupply
	}
}

// WithGovernorAddress specifies the handle the engine uses with the vault
func WithGovernorAddress(addr types.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.governorAddress = addr
	}
}

// WithTreasuryAddress specifies the vault address proposals target for withdrawals
func WithTreasuryAddress(addr types.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.treasuryAddress = addr
	}
}

// WithWithdrawalDelay specifies the vault timelock. This defaults to the
// execution delay of the governance parameters
func WithWithdrawalDelay(delay uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.withdrawalDelay = &delay
	}
}

// WithAllowedTargets restricts proposal targets to the treasury and the given addresses
func WithAllowedTargets(targets ...types.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.restrictTargets = true
		c.allowedTargets = append(c.allowedTargets, targets...)
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies how long Stop waits for in-flight work
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
