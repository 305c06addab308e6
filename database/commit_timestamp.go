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
	"fmt"
)

type CommitTimestampError struct {
	MetadataTimestamp int64
	BlobTimestamp     int64
}

func (e CommitTimestampError) Error() string {
	return fmt.Sprintf(
		"commit timestamp mismatch: %d (metadata) != %d (blob)",
		e.MetadataTimestamp,
		e.BlobTimestamp,
	)
}

func (d *Database) checkCommitTimestamp() error {
	metadataTimestamp, err := d.Metadata().GetCommitTimestamp()
	if err != nil {
		return fmt.Errorf("failed to get metadata timestamp: %w", err)
	}
	// No timestamp in the database
	if metadataTimestamp <= 0 {
		return nil
	}
	blobTimestamp, err := d.Blob().GetCommitTimestamp()
	if err != nil {
		return fmt.Errorf("failed to get blob timestamp: %w", err)
	}
	if blobTimestamp != metadataTimestamp {
		return CommitTimestampError{
			MetadataTimestamp: metadataTimestamp,
			BlobTimestamp:     blobTimestamp,
		}
	}
	return nil
}

func (d *Database) updateCommitTimestamp(txn *Txn, timestamp int64) error {
	if err := d.Metadata().SetCommitTimestamp(timestamp, txn.Metadata()); err != nil {
		return err
	}
	if err := d.Blob().SetCommitTimestamp(timestamp, txn.Blob()); err != nil {
		return err
	}
	return nil
}
