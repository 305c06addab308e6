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

package sqlite

import (
	"gorm.io/gorm"

	"github.com/blinklabs-io/quorum/database/types"
)

// sqliteTxn wraps a gorm transaction and implements types.Txn
type sqliteTxn struct {
	db       *gorm.DB
	beginErr error
	finished bool
}

func (t *sqliteTxn) Commit() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if t.beginErr != nil {
		return t.beginErr
	}
	return t.db.Commit().Error
}

func (t *sqliteTxn) Rollback() error {
	if t.finished {
		return nil
	}
	t.finished = true
	if t.beginErr != nil {
		return nil
	}
	return t.db.Rollback().Error
}

// Transaction begins a new metadata transaction
func (d *MetadataStoreSqlite) Transaction() types.Txn {
	tx := d.DB().Begin()
	return &sqliteTxn{db: tx, beginErr: tx.Error}
}

// resolveDB returns the *gorm.DB for the given transaction, or d.DB() if txn is nil.
// Returns nil, ErrTxnWrongType if txn is non-nil but not the expected type.
func (d *MetadataStoreSqlite) resolveDB(txn types.Txn) (*gorm.DB, error) {
	if txn == nil {
		return d.DB(), nil
	}
	stx, ok := txn.(*sqliteTxn)
	if !ok || stx == nil {
		return nil, types.ErrTxnWrongType
	}
	if stx.beginErr != nil {
		return nil, stx.beginErr
	}
	if stx.finished {
		return nil, types.ErrTxnFinished
	}
	return stx.db, nil
}
