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

package ledger

import (
	"sort"

	"github.com/blinklabs-io/quorum/types"
)

// Checkpoint records a voting power value that took effect at Index
type Checkpoint struct {
	Index uint64
	Power types.Amount
}

// checkpointLog is an append-only history ordered by index. Writes at the
// index of the last entry replace that entry.
type checkpointLog []Checkpoint

func (l *checkpointLog) push(index uint64, power types.Amount) {
	n := len(*l)
	if n > 0 && (*l)[n-1].Index == index {
		(*l)[n-1].Power = power
		return
	}
	*l = append(*l, Checkpoint{Index: index, Power: power})
}

// at returns the power of the latest checkpoint with an index <= the given
// index, or zero if there is none
func (l checkpointLog) at(index uint64) types.Amount {
	// First position whose index is past the query
	pos := sort.Search(len(l), func(i int) bool {
		return l[i].Index > index
	})
	if pos == 0 {
		return types.Amount{}
	}
	return l[pos-1].Power
}

func (l checkpointLog) latest() types.Amount {
	if len(l) == 0 {
		return types.Amount{}
	}
	return l[len(l)-1].Power
}

func (l checkpointLog) clone() []Checkpoint {
	ret := make([]Checkpoint, len(l))
	copy(ret, l)
	return ret
}
