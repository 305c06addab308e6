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

package blob

import (
	"github.com/blinklabs-io/quorum/database/types"
)

type BlobStore interface {
	Close() error
	NewTransaction(bool) types.Txn
	Get(types.Txn, []byte) ([]byte, error)
	Set(types.Txn, []byte, []byte) error
	Delete(types.Txn, []byte) error
	NewIterator(types.Txn, types.BlobIteratorOptions) types.BlobIterator

	// Our specific functions
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(int64, types.Txn) error
}
