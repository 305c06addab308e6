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
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blinklabs-io/quorum/database/plugin/blob"
	"github.com/blinklabs-io/quorum/database/plugin/blob/badger"
	"github.com/blinklabs-io/quorum/database/plugin/metadata"
	"github.com/blinklabs-io/quorum/database/plugin/metadata/sqlite"
)

// Database pairs the badger call journal with the sqlite read model
type Database struct {
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
	dataDir  string
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// DataDir returns the path to the data directory used for storage
func (d *Database) DataDir() string {
	return d.dataDir
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

func (d *Database) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	// Check commit timestamp
	if err := d.checkCommitTimestamp(); err != nil {
		return err
	}
	return nil
}

// Config holds the settings used to open a Database
type Config struct {
	Logger        *slog.Logger
	PromRegistry  prometheus.Registerer
	DataDir       string
	BlobCacheSize uint64
	// SyncWrites makes journal commits durable before they return
	SyncWrites bool
}

// New creates a new database instance with optional persistence using the
// configured data directory. Both stores are in memory when DataDir is empty.
func New(config *Config) (*Database, error) {
	if config == nil {
		config = &Config{}
	}
	metadataDb, err := sqlite.New(
		config.DataDir,
		config.Logger,
		config.PromRegistry,
	)
	if err != nil {
		if metadataDb != nil {
			_ = metadataDb.Close()
		}
		return nil, err
	}
	blobOpts := []badger.BlobStoreBadgerOptionFunc{
		badger.WithDataDir(config.DataDir),
		badger.WithLogger(config.Logger),
		badger.WithPromRegistry(config.PromRegistry),
		badger.WithSyncWrites(config.SyncWrites),
	}
	if config.BlobCacheSize > 0 {
		blobOpts = append(
			blobOpts,
			badger.WithBlockCacheSize(config.BlobCacheSize),
		)
	}
	blobDb, err := badger.New(blobOpts...)
	if err != nil {
		_ = metadataDb.Close()
		return nil, err
	}
	db := &Database{
		logger:   config.Logger,
		blob:     blobDb,
		metadata: metadataDb,
		dataDir:  config.DataDir,
	}
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
