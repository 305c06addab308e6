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

package database

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/quorum/database/types"
)

// Txn spans the journal and the read model. A read-write Txn commits the
// journal first, so a read model that failed to commit can always be rebuilt
// by replaying the journal.
type Txn struct {
	db        *Database
	journal   types.Txn
	readModel types.Txn
	mutex     sync.Mutex
	readWrite bool
	done      bool
}

// NewTxn opens a transaction on both stores
func NewTxn(db *Database, readWrite bool) *Txn {
	t := NewBlobOnlyTxn(db, readWrite)
	if ms := db.Metadata(); ms != nil {
		t.readModel = ms.Transaction()
	}
	return t
}

// NewBlobOnlyTxn opens a transaction on the journal alone
func NewBlobOnlyTxn(db *Database, readWrite bool) *Txn {
	t := &Txn{db: db, readWrite: readWrite}
	if bs := db.Blob(); bs != nil {
		t.journal = bs.NewTransaction(readWrite)
	}
	return t
}

// Metadata returns the read model side of the transaction
func (t *Txn) Metadata() types.Txn {
	return t.readModel
}

// Blob returns the journal side of the transaction
func (t *Txn) Blob() types.Txn {
	return t.journal
}

// Do runs fn and commits, or rolls back if fn fails
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

func (t *Txn) Commit() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.done {
		return nil
	}
	if !t.readWrite {
		return t.discard()
	}
	if t.journal == nil && t.readModel == nil {
		t.done = true
		return types.ErrNoStoreAvailable
	}
	t.done = true
	if t.journal != nil && t.readModel != nil {
		// Both stores record the same stamp so a later open can tell whether
		// the read model kept up with the journal
		if err := t.db.updateCommitTimestamp(t, time.Now().UnixMilli()); err != nil {
			_ = t.journal.Rollback()
			_ = t.readModel.Rollback()
			return fmt.Errorf("failed to update commit timestamp: %w", err)
		}
	}
	if t.journal != nil {
		if err := t.journal.Commit(); err != nil {
			if t.readModel != nil {
				_ = t.readModel.Rollback()
			}
			return fmt.Errorf("journal commit failed: %w", err)
		}
	}
	if t.readModel != nil {
		if err := t.readModel.Commit(); err != nil {
			t.db.logger.Error(
				"read model commit failed after journal commit",
				"component", "database",
				"error", err,
			)
			return fmt.Errorf("read model commit failed: %w", err)
		}
	}
	return nil
}

func (t *Txn) Rollback() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.discard()
}

// discard requires t.mutex
func (t *Txn) discard() error {
	if t.done {
		return nil
	}
	t.done = true
	var errs []error
	if t.journal != nil {
		if err := t.journal.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("journal rollback: %w", err))
		}
	}
	if t.readModel != nil {
		if err := t.readModel.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("read model rollback: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Release discards the transaction and logs any error, for use with defer
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"component", "database",
			"error", err,
		)
	}
}
