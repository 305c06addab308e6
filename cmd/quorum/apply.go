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

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/quorum"
	"github.com/blinklabs-io/quorum/internal/node"
)

func applyCommand() *cobra.Command {
	var callFile string
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Apply a YAML call script to the journal",
		Long: `Apply reads a list of calls and applies them in order. Each call that
succeeds is journaled. Application stops at the first failing call.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromCommand(cmd)
			var r io.Reader = cmd.InOrStdin()
			if callFile != "-" {
				f, err := os.Open(callFile)
				if err != nil {
					return fmt.Errorf("open call file: %w", err)
				}
				defer f.Close()
				r = f
			}
			calls, err := quorum.DecodeCalls(r)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return node.Apply(
				cmd.Context(),
				cfg,
				quietLogger(),
				calls,
				func(call quorum.Call, res quorum.Result) {
					fmt.Fprintln(out, renderResult(call, res))
				},
			)
		},
	}
	cmd.Flags().StringVarP(&callFile, "file", "f", "", "call script to apply, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
