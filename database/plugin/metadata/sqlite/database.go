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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/blinklabs-io/quorum/database/models"
)

// memoryDbSeq gives each in-memory store its own shared-cache database
var memoryDbSeq atomic.Uint64

// MetadataStoreSqlite is the SQLite read model of governance state
type MetadataStoreSqlite struct {
	promRegistry prometheus.Registerer
	db           *gorm.DB
	logger       *slog.Logger
	timerVacuum  *time.Timer
	timerMutex   sync.Mutex
	dataDir      string
	closed       bool
	vacuumWG     sync.WaitGroup
}

// New creates a SQLite metadata store. Uses in-memory database if dataDir is empty.
func New(
	dataDir string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (*MetadataStoreSqlite, error) {
	var metadataDb *gorm.DB
	var err error
	gormConfig := &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
	}
	if dataDir == "" {
		// cache=shared allows multiple connections to share the same in-memory database
		metadataDb, err = gorm.Open(
			sqlite.Open(
				fmt.Sprintf(
					"file:quorum-%d?mode=memory&cache=shared",
					memoryDbSeq.Add(1),
				),
			),
			gormConfig,
		)
		if err != nil {
			return nil, err
		}
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		metadataDbPath := filepath.Join(dataDir, "metadata.sqlite")
		// WAL journal mode, normal sync, 50MB cache
		metadataConnOpts := "_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=cache_size(-50000)&_pragma=busy_timeout(5000)"
		metadataDb, err = gorm.Open(
			sqlite.Open(
				fmt.Sprintf("file:%s?%s", metadataDbPath, metadataConnOpts),
			),
			gormConfig,
		)
		if err != nil {
			return nil, err
		}
	}
	db := &MetadataStoreSqlite{
		db:           metadataDb,
		dataDir:      dataDir,
		logger:       logger,
		promRegistry: promRegistry,
	}
	if err := db.init(); err != nil {
		// MetadataStoreSqlite is available for recovery, so return it with error
		return db, err
	}
	// Create table schemas
	db.logger.Debug(fmt.Sprintf("creating table: %#v", &CommitTimestamp{}))
	if err := db.db.AutoMigrate(&CommitTimestamp{}); err != nil {
		return db, err
	}
	for _, model := range models.MigrateModels {
		db.logger.Debug(fmt.Sprintf("creating table: %#v", model))
		if err := db.db.AutoMigrate(model); err != nil {
			return db, err
		}
	}
	return db, nil
}

func (d *MetadataStoreSqlite) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	// Configure tracing for GORM
	if err := d.db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return err
	}
	if d.promRegistry != nil {
		d.registerMetrics()
	}
	// Schedule daily database vacuum to free unused space
	d.scheduleDailyVacuum()
	return nil
}

func (d *MetadataStoreSqlite) runVacuum() error {
	d.timerMutex.Lock()
	if d.dataDir == "" || d.closed {
		d.timerMutex.Unlock()
		return nil
	}
	d.vacuumWG.Add(1)
	d.timerMutex.Unlock()
	defer d.vacuumWG.Done()

	if result := d.DB().Exec("VACUUM"); result.Error != nil {
		return result.Error
	}
	return nil
}

// scheduleDailyVacuum schedules a daily vacuum operation
func (d *MetadataStoreSqlite) scheduleDailyVacuum() {
	d.timerMutex.Lock()
	defer d.timerMutex.Unlock()
	if d.closed {
		return
	}
	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
	}
	f := func() {
		d.logger.Debug(
			"running vacuum on sqlite metadata database",
			"component", "database",
		)
		// schedule next run
		defer d.scheduleDailyVacuum()
		if err := d.runVacuum(); err != nil {
			d.logger.Error(
				"failed to free unused space in metadata store",
				"component", "database",
				"error", err,
			)
		}
	}
	d.timerVacuum = time.AfterFunc(24*time.Hour, f)
}

// Close shuts down the database connection and stops background processes
func (d *MetadataStoreSqlite) Close() error {
	d.timerMutex.Lock()
	d.closed = true
	if d.timerVacuum != nil {
		d.timerVacuum.Stop()
		d.timerVacuum = nil
	}
	d.timerMutex.Unlock()
	// Wait for any in-flight vacuum to complete
	d.vacuumWG.Wait()
	db, err := d.DB().DB()
	if err != nil {
		return fmt.Errorf("get database handle: %w", err)
	}
	return db.Close()
}

// DB returns the underlying GORM database handle
func (d *MetadataStoreSqlite) DB() *gorm.DB {
	return d.db
}
