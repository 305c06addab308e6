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

	"github.com/ethereum/go-ethereum/common/hexutil"
	"gopkg.in/yaml.v3"

	"github.com/blinklabs-io/quorum/governance"
	"github.com/blinklabs-io/quorum/proposal"
	"github.com/blinklabs-io/quorum/types"
)

// Op names a state-changing operation
type Op string

const (
	OpMint             Op = "mint"
	OpBurn             Op = "burn"
	OpTransfer         Op = "transfer"
	OpDelegate         Op = "delegate"
	OpDeposit          Op = "deposit"
	OpPropose          Op = "propose"
	OpVote             Op = "vote"
	OpFinalize         Op = "finalize"
	OpQueue            Op = "queue"
	OpExecute          Op = "execute"
	OpCancel           Op = "cancel"
	OpExecuteWithdraw  Op = "execute-withdrawal"
	OpCancelWithdraw   Op = "cancel-withdrawal"
	OpPause            Op = "pause"
	OpUnpause          Op = "unpause"
	OpGrantAdmin       Op = "grant-admin"
	OpRevokeAdmin      Op = "revoke-admin"
	OpSetAllowedTarget Op = "set-allowed-target"
	OpUpdateParams     Op = "update-params"
)

var ErrUnknownOp = errors.New("unknown operation")

var knownOps = map[Op]struct{}{
	OpMint:             {},
	OpBurn:             {},
	OpTransfer:         {},
	OpDelegate:         {},
	OpDeposit:          {},
	OpPropose:          {},
	OpVote:             {},
	OpFinalize:         {},
	OpQueue:            {},
	OpExecute:          {},
	OpCancel:           {},
	OpExecuteWithdraw:  {},
	OpCancelWithdraw:   {},
	OpPause:            {},
	OpUnpause:          {},
	OpGrantAdmin:       {},
	OpRevokeAdmin:      {},
	OpSetAllowedTarget: {},
	OpUpdateParams:     {},
}

func (o Op) Valid() bool {
	_, ok := knownOps[o]
	return ok
}

// Call is a single state-changing request. Fields not used by Op are ignored.
// A nil At means the current index of the node clock.
type Call struct {
	Op           Op                 `yaml:"op"`
	At           *uint64            `yaml:"at,omitempty"`
	Caller       types.Address      `yaml:"caller,omitempty"`
	Account      types.Address      `yaml:"account,omitempty"`
	To           types.Address      `yaml:"to,omitempty"`
	Delegatee    types.Address      `yaml:"delegatee,omitempty"`
	Amount       types.Amount       `yaml:"amount,omitempty"`
	Asset        types.Asset        `yaml:"asset,omitempty"`
	ProposalId   uint64             `yaml:"proposalId,omitempty"`
	WithdrawalId uint64             `yaml:"withdrawalId,omitempty"`
	Support      string             `yaml:"support,omitempty"`
	Title        string             `yaml:"title,omitempty"`
	Description  string             `yaml:"description,omitempty"`
	Target       types.Address      `yaml:"target,omitempty"`
	Value        types.Amount       `yaml:"value,omitempty"`
	Calldata     hexutil.Bytes      `yaml:"calldata,omitempty"`
	Params       *governance.Params `yaml:"params,omitempty"`
	Principal    types.Address      `yaml:"principal,omitempty"`
	Allowed      bool               `yaml:"allowed,omitempty"`
}

func (c Call) String() string {
	switch c.Op {
	case OpPropose:
		return fmt.Sprintf("%s by %s", c.Op, c.Caller.Hex())
	case OpVote:
		return fmt.Sprintf("%s %s on %d by %s", c.Op, c.Support, c.ProposalId, c.Caller.Hex())
	case OpFinalize, OpQueue, OpExecute, OpCancel:
		return fmt.Sprintf("%s %d", c.Op, c.ProposalId)
	case OpExecuteWithdraw, OpCancelWithdraw:
		return fmt.Sprintf("%s %d", c.Op, c.WithdrawalId)
	default:
		return string(c.Op)
	}
}

// account returns Account, falling back to Caller
func (c Call) account() types.Address {
	if c.Account != types.ZeroAddress {
		return c.Account
	}
	return c.Caller
}

func (c Call) support() (proposal.Support, error) {
	return proposal.ParseSupport(c.Support)
}

// Result describes the outcome of an applied call
type Result struct {
	// Seq is the journal sequence number of the call
	Seq          uint64        `yaml:"seq"`
	Index        uint64        `yaml:"index"`
	ProposalId   uint64        `yaml:"proposalId,omitempty"`
	WithdrawalId uint64        `yaml:"withdrawalId,omitempty"`
	Weight       *types.Amount `yaml:"weight,omitempty"`
	State        string        `yaml:"state,omitempty"`
	Eta          uint64        `yaml:"eta,omitempty"`
}

// CallFile is the YAML document read by DecodeCalls
type CallFile struct {
	Calls []Call `yaml:"calls"`
}

// DecodeCalls reads a YAML call script
func DecodeCalls(r io.Reader) ([]Call, error) {
	var file CallFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode calls: %w", err)
	}
	for i, call := range file.Calls {
		if !call.Op.Valid() {
			return nil, fmt.Errorf("call %d: %w: %q", i, ErrUnknownOp, call.Op)
		}
	}
	return file.Calls, nil
}
