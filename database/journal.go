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
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/blinklabs-io/quorum/database/types"
)

const (
	journalKeyPrefix = "j"
	journalHeadKey   = "journal_head"
)

// JournalEntry is a single journaled call. Payload holds the CBOR encoding of
// the call as produced by the caller.
type JournalEntry struct {
	_       struct{} `cbor:",toarray"`
	Seq     uint64
	Index   uint64
	Payload cbor.RawMessage
}

func journalKey(seq uint64) []byte {
	key := make([]byte, len(journalKeyPrefix)+8)
	copy(key, journalKeyPrefix)
	binary.BigEndian.PutUint64(key[len(journalKeyPrefix):], seq)
	return key
}

// JournalHead returns the sequence number of the last committed entry, or 0
// when the journal is empty
func (d *Database) JournalHead(txn *Txn) (uint64, error) {
	if txn == nil {
		txn = NewBlobOnlyTxn(d, false)
		defer txn.Release()
	}
	val, err := d.Blob().Get(txn.Blob(), []byte(journalHeadKey))
	if err != nil {
		if errors.Is(err, types.ErrBlobKeyNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(val) != 8 {
		return 0, fmt.Errorf("invalid journal head length: %d", len(val))
	}
	return binary.BigEndian.Uint64(val), nil
}

// AppendJournal encodes call and appends it to the journal within txn. The
// new sequence number is returned.
func (d *Database) AppendJournal(txn *Txn, index uint64, call any) (uint64, error) {
	if txn == nil || txn.Blob() == nil {
		return 0, types.ErrNilTxn
	}
	payload, err := cbor.Marshal(call)
	if err != nil {
		return 0, fmt.Errorf("encode journal entry: %w", err)
	}
	head, err := d.JournalHead(txn)
	if err != nil {
		return 0, err
	}
	seq := head + 1
	entry := JournalEntry{
		Seq:     seq,
		Index:   index,
		Payload: payload,
	}
	entryCbor, err := cbor.Marshal(&entry)
	if err != nil {
		return 0, fmt.Errorf("encode journal entry: %w", err)
	}
	if err := d.Blob().Set(txn.Blob(), journalKey(seq), entryCbor); err != nil {
		return 0, err
	}
	headVal := make([]byte, 8)
	binary.BigEndian.PutUint64(headVal, seq)
	if err := d.Blob().Set(txn.Blob(), []byte(journalHeadKey), headVal); err != nil {
		return 0, err
	}
	return seq, nil
}

// IterateJournal calls fn for every journal entry in sequence order. Iteration
// stops at the first error returned by fn.
func (d *Database) IterateJournal(fn func(JournalEntry) error) error {
	txn := NewBlobOnlyTxn(d, false)
	defer txn.Release()
	iter := d.Blob().NewIterator(
		txn.Blob(),
		types.BlobIteratorOptions{Prefix: []byte(journalKeyPrefix)},
	)
	defer iter.Close()
	var expected uint64 = 1
	for iter.Rewind(); iter.ValidForPrefix([]byte(journalKeyPrefix)); iter.Next() {
		item := iter.Item()
		// The head key shares the prefix
		if len(item.Key()) != len(journalKeyPrefix)+8 {
			continue
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var entry JournalEntry
		if err := cbor.Unmarshal(val, &entry); err != nil {
			return fmt.Errorf("decode journal entry: %w", err)
		}
		if entry.Seq != expected {
			return fmt.Errorf(
				"journal gap: expected entry %d, found %d",
				expected,
				entry.Seq,
			)
		}
		expected++
		if err := fn(entry); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Decode unmarshals the entry payload into v
func (e JournalEntry) Decode(v any) error {
	return cbor.Unmarshal(e.Payload, v)
}
