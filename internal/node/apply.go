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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/quorum"
	"github.com/blinklabs-io/quorum/internal/config"
)

// Apply opens the node, applies calls in order and stops it again. It stops
// at the first failing call; calls before it remain journaled. onResult is
// called for every applied call and may be nil.
func Apply(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	calls []quorum.Call,
	onResult func(quorum.Call, quorum.Result),
) (err error) {
	n, err := Open(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if stopErr := n.Stop(); stopErr != nil {
			err = errors.Join(err, stopErr)
		}
	}()
	for i, call := range calls {
		res, err := n.Apply(ctx, call)
		if err != nil {
			return fmt.Errorf("call %d (%s): %w", i, call, err)
		}
		logger.Debug(
			"applied call",
			"component", "node",
			"op", string(call.Op),
			"seq", res.Seq,
		)
		if onResult != nil {
			onResult(call, res)
		}
	}
	return nil
}
