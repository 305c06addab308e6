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
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// Amount is an unsigned 256-bit quantity of token base units. The zero value
// is a valid zero amount. Arithmetic never wraps: overflow and underflow are
// reported as errors.
//
//nolint:recvcheck
type Amount struct {
	v uint256.Int
}

func NewAmount(v uint64) Amount {
	var a Amount
	a.v.SetUint64(v)
	return a
}

// ParseAmount parses a decimal (or 0x-prefixed hex) amount. Underscores may be
// used as digit separators.
func ParseAmount(s string) (Amount, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	var (
		v   *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = uint256.FromHex(s)
	} else {
		v, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %w", ErrInvalidAmount, s, err)
	}
	return Amount{v: *v}, nil
}

// MustParseAmount is like ParseAmount but panics on error. Intended for
// constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromBig converts a non-negative big.Int that fits in 256 bits
func AmountFromBig(b *big.Int) (Amount, error) {
	if b == nil {
		return Amount{}, nil
	}
	if b.Sign() < 0 {
		return Amount{}, fmt.Errorf("%w: negative value %s", ErrInvalidAmount, b)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return Amount{}, fmt.Errorf("%w: %s", ErrAmountOverflow, b)
	}
	return Amount{v: *v}, nil
}

func (a Amount) Big() *big.Int {
	return a.v.ToBig()
}

func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

func (a Amount) LessThan(b Amount) bool {
	return a.v.Lt(&b.v)
}

func (a Amount) Add(b Amount) (Amount, error) {
	var r Amount
	if _, overflow := r.v.AddOverflow(&a.v, &b.v); overflow {
		return Amount{}, fmt.Errorf("%w: %s + %s", ErrAmountOverflow, a, b)
	}
	return r, nil
}

func (a Amount) Sub(b Amount) (Amount, error) {
	var r Amount
	if _, underflow := r.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, fmt.Errorf("%w: %s - %s", ErrAmountUnderflow, a, b)
	}
	return r, nil
}

// MulDiv returns floor(a * num / den), using a 512-bit intermediate product
func (a Amount) MulDiv(num, den uint64) (Amount, error) {
	if den == 0 {
		return Amount{}, errors.New("division by zero")
	}
	var r Amount
	if _, overflow := r.v.MulDivOverflow(
		&a.v,
		uint256.NewInt(num),
		uint256.NewInt(den),
	); overflow {
		return Amount{}, fmt.Errorf("%w: %s * %d / %d", ErrAmountOverflow, a, num, den)
	}
	return r, nil
}

// String returns the decimal representation
func (a Amount) String() string {
	return a.v.Dec()
}

func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.v.Dec()), nil
}

func (a *Amount) UnmarshalText(text []byte) error {
	tmp, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

// MarshalBinary encodes the amount as 32 big-endian bytes
func (a Amount) MarshalBinary() ([]byte, error) {
	b := a.v.Bytes32()
	return b[:], nil
}

func (a *Amount) UnmarshalBinary(data []byte) error {
	if len(data) > 32 {
		return fmt.Errorf("%w: %d bytes", ErrAmountOverflow, len(data))
	}
	a.v.SetBytes(data)
	return nil
}

// Value implements driver.Valuer. Amounts are stored as decimal strings since
// they do not fit any native SQL integer type.
func (a Amount) Value() (driver.Value, error) {
	return a.v.Dec(), nil
}

// Scan implements sql.Scanner
func (a *Amount) Scan(val any) error {
	var s string
	switch v := val.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("%w: negative value %d", ErrInvalidAmount, v)
		}
		*a = NewAmount(uint64(v))
		return nil
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	tmp, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = tmp
	return nil
}

// Sum adds a list of amounts, failing on overflow
func Sum(amounts ...Amount) (Amount, error) {
	var total Amount
	for _, amt := range amounts {
		var err error
		total, err = total.Add(amt)
		if err != nil {
			return Amount{}, err
		}
	}
	return total, nil
}
