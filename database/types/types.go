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

import "errors"

// Txn is the common interface of blob and metadata store transactions
type Txn interface {
	Commit() error
	Rollback() error
}

var (
	// ErrBlobKeyNotFound is returned by blob operations when a key is missing
	ErrBlobKeyNotFound = errors.New("blob key not found")

	// ErrNilTxn is returned when a nil transaction is passed to a store
	ErrNilTxn = errors.New("nil transaction")

	// ErrTxnWrongType is returned when a transaction belongs to another store type
	ErrTxnWrongType = errors.New("invalid transaction type")

	// ErrBlobStoreUnavailable is returned when the blob store is not usable
	ErrBlobStoreUnavailable = errors.New("blob store unavailable")

	// ErrNoStoreAvailable is returned when a read-write transaction has no store
	ErrNoStoreAvailable = errors.New("no store available")

	// ErrTxnFinished is returned when a finished transaction is reused
	ErrTxnFinished = errors.New("transaction already finished")
)

// BlobItem is a key/value pair returned by a BlobIterator
type BlobItem interface {
	Key() []byte
	ValueCopy([]byte) ([]byte, error)
}

// BlobIterator walks blob keys in order
type BlobIterator interface {
	Rewind()
	Seek([]byte)
	Valid() bool
	ValidForPrefix([]byte) bool
	Next()
	Item() BlobItem
	Close()
	Err() error
}

// BlobIteratorOptions controls iteration
type BlobIteratorOptions struct {
	Prefix  []byte
	Reverse bool
}
