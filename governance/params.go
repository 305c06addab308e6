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

package governance

import (
	"fmt"

	"github.com/blinklabs-io/quorum/types"
)

// Params are the tunable rules of the governance engine. All durations are in
// time index units.
type Params struct {
	VotingDelay       uint64       `yaml:"votingDelay"`
	VotingPeriod      uint64       `yaml:"votingPeriod"`
	ProposalThreshold types.Amount `yaml:"proposalThreshold"`
	QuorumNumerator   uint64       `yaml:"quorumNumerator"`
	QuorumDenominator uint64       `yaml:"quorumDenominator"`
	ExecutionDelay    uint64       `yaml:"executionDelay"`
	GracePeriod       uint64       `yaml:"gracePeriod"`
}

// DefaultParams returns one-day voting and execution delays with a 10% quorum
func DefaultParams() Params {
	return Params{
		VotingDelay:       1,
		VotingPeriod:      86400,
		ProposalThreshold: types.NewAmount(1000),
		QuorumNumerator:   10,
		QuorumDenominator: 100,
		ExecutionDelay:    86400,
		GracePeriod:       14 * 86400,
	}
}

func (p Params) Validate() error {
	if p.VotingDelay == 0 {
		// A zero delay would let votes land in the snapshot index itself
		return fmt.Errorf("%w: voting delay must be at least 1", types.ErrInvalidParams)
	}
	if p.VotingPeriod == 0 {
		return fmt.Errorf("%w: voting period must be at least 1", types.ErrInvalidParams)
	}
	if p.GracePeriod == 0 {
		return fmt.Errorf("%w: grace period must be at least 1", types.ErrInvalidParams)
	}
	if p.QuorumDenominator == 0 || p.QuorumNumerator > p.QuorumDenominator {
		return fmt.Errorf(
			"%w: quorum fraction %d/%d",
			types.ErrInvalidParams,
			p.QuorumNumerator,
			p.QuorumDenominator,
		)
	}
	return nil
}
