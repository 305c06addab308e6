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

package badger

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBlockCacheSize = 64 << 20
	DefaultIndexCacheSize = 16 << 20
	// Journal entries are small CBOR calls, keep them in the LSM tree
	DefaultValueThreshold = 1024
	DefaultGcInterval     = 10 * time.Minute
)

type BlobStoreBadgerOptionFunc func(*BlobStoreBadger)

func WithLogger(logger *slog.Logger) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.logger = logger
	}
}

// WithPromRegistry enables journal size metrics
func WithPromRegistry(registry prometheus.Registerer) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.promRegistry = registry
	}
}

// WithDataDir stores the journal under dataDir/journal. An empty dataDir
// keeps the journal in memory.
func WithDataDir(dataDir string) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.dataDir = dataDir
	}
}

func WithBlockCacheSize(size uint64) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.blockCacheSize = size
	}
}

// WithGcInterval sets how often the value log is compacted. Zero disables
// value log GC.
func WithGcInterval(interval time.Duration) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.gcInterval = interval
	}
}

// WithSyncWrites makes every journal commit wait for fsync
func WithSyncWrites(enabled bool) BlobStoreBadgerOptionFunc {
	return func(b *BlobStoreBadger) {
		b.syncWrites = enabled
	}
}
