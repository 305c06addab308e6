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

package treasury

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/quorum/types"
)

const vaultABIJSON = `[
  {
    "type": "function",
    "name": "withdraw",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "asset", "type": "address"},
      {"name": "recipient", "type": "address"},
      {"name": "amount", "type": "uint256"}
    ],
    "outputs": []
  }
]`

var vaultABI abi.ABI

var ErrNotWithdrawal = errors.New("calldata is not a vault withdrawal")

func init() {
	var err error
	vaultABI, err = abi.JSON(strings.NewReader(vaultABIJSON))
	if err != nil {
		panic(fmt.Sprintf("parse vault ABI: %s", err))
	}
}

// WithdrawalCall is the decoded form of withdraw(address,address,uint256)
type WithdrawalCall struct {
	Asset     types.Asset
	Recipient types.Address
	Amount    types.Amount
}

// EncodeWithdrawal builds the calldata a proposal uses to request a treasury
// withdrawal
func EncodeWithdrawal(
	asset types.Asset,
	recipient types.Address,
	amount types.Amount,
) ([]byte, error) {
	data, err := vaultABI.Pack("withdraw", asset, recipient, amount.Big())
	if err != nil {
		return nil, fmt.Errorf("encode withdrawal: %w", err)
	}
	return data, nil
}

// DecodeWithdrawal parses withdrawal calldata. It returns ErrNotWithdrawal if
// the selector does not match.
func DecodeWithdrawal(data []byte) (WithdrawalCall, error) {
	method := vaultABI.Methods["withdraw"]
	if len(data) < 4 || !bytes.Equal(data[:4], method.ID) {
		return WithdrawalCall{}, ErrNotWithdrawal
	}
	vals, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return WithdrawalCall{}, fmt.Errorf("decode withdrawal: %w", err)
	}
	if len(vals) != 3 {
		return WithdrawalCall{}, fmt.Errorf("decode withdrawal: got %d values", len(vals))
	}
	asset, ok1 := vals[0].(common.Address)
	recipient, ok2 := vals[1].(common.Address)
	rawAmount, ok3 := vals[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return WithdrawalCall{}, errors.New("decode withdrawal: unexpected argument types")
	}
	amount, err := types.AmountFromBig(rawAmount)
	if err != nil {
		return WithdrawalCall{}, fmt.Errorf("decode withdrawal: %w", err)
	}
	return WithdrawalCall{
		Asset:     asset,
		Recipient: recipient,
		Amount:    amount,
	}, nil
}
