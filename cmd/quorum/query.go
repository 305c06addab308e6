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
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blinklabs-io/quorum/clock"
	"github.com/blinklabs-io/quorum/database"
	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/internal/config"
	"github.com/blinklabs-io/quorum/proposal"
	"github.com/blinklabs-io/quorum/treasury"
	"github.com/blinklabs-io/quorum/types"
)

var errProposalNotFound = errors.New("proposal not found")

// openReadModel opens the database of a node that is not running. The read
// commands only use the metadata store.
func openReadModel(cfg *config.Config) (*database.Database, error) {
	db, err := database.New(&database.Config{
		DataDir: cfg.DatabasePath,
		Logger:  quietLogger(),
	})
	if err != nil {
		var tsErr database.CommitTimestampError
		if db != nil && errors.As(err, &tsErr) {
			// Still readable, the node rebuilds it on its next start
			quietLogger().Warn("read model is behind the journal", "error", err)
			return db, nil
		}
		if db != nil {
			_ = db.Close()
		}
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// currentIndex is the time index of the configured clock
func currentIndex(cfg *config.Config) (uint64, error) {
	slotLength, err := cfg.SlotLengthDuration()
	if err != nil {
		return 0, err
	}
	return clock.NewSlotClock(cfg.SystemStartTime(), slotLength).Now(), nil
}

func proposalsCommand() *cobra.Command {
	var stateFilter []string
	cmd := &cobra.Command{
		Use:   "proposals",
		Short: "List proposals from the read model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromCommand(cmd)
			wanted := make(map[proposal.State]bool)
			for _, s := range stateFilter {
				state, err := proposal.ParseState(s)
				if err != nil {
					return err
				}
				wanted[state] = true
			}
			now, err := currentIndex(cfg)
			if err != nil {
				return err
			}
			db, err := openReadModel(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			rows, err := db.Metadata().GetProposals(nil, nil)
			if err != nil {
				return err
			}
			proposals := make([]proposal.Proposal, 0, len(rows))
			for _, row := range rows {
				p := row.ToProposal()
				if len(wanted) > 0 && !wanted[p.StateAt(now)] {
					continue
				}
				proposals = append(proposals, p)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProposals(proposals, now))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&stateFilter, "state", nil, "only show proposals in these effective states")
	return cmd
}

func proposalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proposal <id>",
		Short: "Show a proposal and its votes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromCommand(cmd)
			id, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid proposal id %q: %w", args[0], err)
			}
			now, err := currentIndex(cfg)
			if err != nil {
				return err
			}
			db, err := openReadModel(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			row, err := db.Metadata().GetProposal(id, nil)
			if err != nil {
				return err
			}
			if row == nil {
				return fmt.Errorf("%w: %d", errProposalNotFound, id)
			}
			voteRows, err := db.Metadata().GetVotes(id, nil)
			if err != nil {
				return err
			}
			votes := make([]proposal.Vote, 0, len(voteRows))
			for _, v := range voteRows {
				votes = append(votes, v.ToVote())
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProposal(row.ToProposal(), votes, now))
			return nil
		},
	}
	return cmd
}

func powerCommand() *cobra.Command {
	var atIndex uint64
	cmd := &cobra.Command{
		Use:   "power <address>",
		Short: "Show the voting power of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromCommand(cmd)
			account, err := types.ParseAddress(args[0])
			if err != nil {
				return err
			}
			index := atIndex
			if !cmd.Flags().Changed("at") {
				if index, err = currentIndex(cfg); err != nil {
					return err
				}
			}
			db, err := openReadModel(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			power, err := checkpointAt(db, account, index)
			if err != nil {
				return err
			}
			supply, err := checkpointAt(db, types.ZeroAddress, index)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderPower(account, index, power, supply))
			return nil
		},
	}
	cmd.Flags().Uint64Var(&atIndex, "at", 0, "time index to look up, defaults to now")
	return cmd
}

func checkpointAt(db *database.Database, account types.Address, index uint64) (types.Amount, error) {
	cp, err := db.Metadata().GetCheckpointAt(account.Bytes(), index, nil)
	if err != nil {
		return types.Amount{}, err
	}
	if cp == nil {
		return types.Amount{}, nil
	}
	return cp.Power, nil
}

func treasuryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "treasury",
		Short: "Show treasury balances and withdrawals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromCommand(cmd)
			now, err := currentIndex(cfg)
			if err != nil {
				return err
			}
			db, err := openReadModel(cfg)
			if err != nil {
				return err
			}
			defer db.Close()
			balances, err := db.Metadata().GetTreasuryBalances(nil)
			if err != nil {
				return err
			}
			rows, err := db.Metadata().GetWithdrawals(nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTreasury(balances, withdrawalsFromRows(rows), now))
			return nil
		},
	}
	return cmd
}

func withdrawalsFromRows(rows []models.Withdrawal) []treasury.Withdrawal {
	ret := make([]treasury.Withdrawal, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.ToWithdrawal())
	}
	return ret
}
