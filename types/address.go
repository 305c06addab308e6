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

package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies an account, a contract-like component, or a principal.
type Address = common.Address

// Asset identifies a custodied asset. The zero value is the native asset.
type Asset = common.Address

// ZeroAddress is the null identity. It is never a valid delegatee, sender,
// recipient, or principal.
var ZeroAddress Address

// NativeAsset is the chain-native asset held by the treasury
var NativeAsset Asset

// ParseAddress parses a 0x-prefixed hex address
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return ZeroAddress, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(s), nil
}

// ParseAsset parses an asset reference. "native" or an empty string refers to
// the native asset, anything else must be a hex token address.
func ParseAsset(s string) (Asset, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "native") {
		return NativeAsset, nil
	}
	return ParseAddress(s)
}

// AssetName returns a display name for an asset
func AssetName(a Asset) string {
	if a == NativeAsset {
		return "native"
	}
	return a.Hex()
}
