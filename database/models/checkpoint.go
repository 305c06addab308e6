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

package models

import (
	"github.com/blinklabs-io/quorum/types"
)

// Checkpoint is a voting power value that took effect at Idx. Total supply
// checkpoints are stored under the zero address.
type Checkpoint struct {
	ID      uint         `gorm:"primarykey"`
	Account []byte       `gorm:"uniqueIndex:idx_checkpoint_unique,priority:1;size:20;not null"`
	Idx     uint64       `gorm:"uniqueIndex:idx_checkpoint_unique,priority:2;not null"`
	Power   types.Amount `gorm:"not null"`
}

func (Checkpoint) TableName() string {
	return "checkpoint"
}
