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
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/blinklabs-io/quorum"
	"github.com/blinklabs-io/quorum/database/models"
	"github.com/blinklabs-io/quorum/proposal"
	"github.com/blinklabs-io/quorum/treasury"
	"github.com/blinklabs-io/quorum/types"
)

var (
	headerStyle  = color.New(color.FgCyan, color.Bold)
	idStyle      = color.New(color.FgHiWhite, color.Bold)
	addressStyle = color.New(color.FgWhite)
	amountStyle  = color.New(color.FgHiYellow)
	mutedStyle   = color.New(color.Faint)
	okStyle      = color.New(color.FgGreen)
	badStyle     = color.New(color.FgRed)
	waitStyle    = color.New(color.FgYellow)
)

func setupColor() {
	if globalFlags.noColor {
		color.NoColor = true
	}
}

func stateStyle(state proposal.State) *color.Color {
	switch state {
	case proposal.StateSucceeded, proposal.StateExecuted:
		return okStyle
	case proposal.StateDefeated, proposal.StateCancelled, proposal.StateExpired:
		return badStyle
	case proposal.StateActive, proposal.StateQueued:
		return waitStyle
	default:
		return mutedStyle
	}
}

func supportStyle(support proposal.Support) *color.Color {
	switch support {
	case proposal.SupportFor:
		return okStyle
	case proposal.SupportAgainst:
		return badStyle
	default:
		return mutedStyle
	}
}

func withdrawalStyle(status treasury.WithdrawalStatus) *color.Color {
	switch status {
	case treasury.WithdrawalExecuted:
		return okStyle
	case treasury.WithdrawalCancelled:
		return badStyle
	default:
		return waitStyle
	}
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.Style().Options.SeparateRows = false
	t.Style().Box = table.BoxStyle{
		PaddingRight:     "   ",
		MiddleHorizontal: "─",
	}
	return t
}

func header(cols ...string) table.Row {
	row := make(table.Row, len(cols))
	for i, col := range cols {
		row[i] = headerStyle.Sprint(col)
	}
	return row
}

func assetName(asset types.Asset) string {
	if asset == types.NativeAsset {
		return "native"
	}
	return asset.Hex()
}

func renderProposals(proposals []proposal.Proposal, now uint64) string {
	if len(proposals) == 0 {
		return mutedStyle.Sprint("no proposals")
	}
	t := newTable()
	t.AppendHeader(header("ID", "STATE", "TITLE", "PROPOSER", "FOR", "AGAINST", "ABSTAIN", "ENDS"))
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: 40},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	for _, p := range proposals {
		state := p.StateAt(now)
		t.AppendRow(table.Row{
			idStyle.Sprint(p.Id),
			stateStyle(state).Sprint(state),
			p.Title,
			addressStyle.Sprint(p.Proposer.Hex()),
			amountStyle.Sprint(p.ForVotes),
			amountStyle.Sprint(p.AgainstVotes),
			amountStyle.Sprint(p.AbstainVotes),
			p.EndTime,
		})
	}
	return t.Render()
}

func renderProposal(p proposal.Proposal, votes []proposal.Vote, now uint64) string {
	var sb strings.Builder
	state := p.StateAt(now)
	fmt.Fprintf(&sb, "%s %s\n", idStyle.Sprintf("Proposal #%d", p.Id), stateStyle(state).Sprintf("[%s]", state))
	fmt.Fprintf(&sb, "%s\n", p.Title)
	if p.Description != "" {
		fmt.Fprintf(&sb, "%s\n", mutedStyle.Sprint(p.Description))
	}
	sb.WriteString("\n")

	t := newTable()
	t.AppendRows([]table.Row{
		{headerStyle.Sprint("Proposer"), addressStyle.Sprint(p.Proposer.Hex())},
		{headerStyle.Sprint("Target"), addressStyle.Sprint(p.Action.Target.Hex())},
		{headerStyle.Sprint("Value"), amountStyle.Sprint(p.Action.Value)},
		{headerStyle.Sprint("Calldata"), calldataSummary(p.Action.Calldata)},
		{headerStyle.Sprint("Snapshot"), p.SnapshotIndex},
		{headerStyle.Sprint("Voting"), fmt.Sprintf("%d - %d", p.StartTime, p.EndTime)},
		{headerStyle.Sprint("For"), amountStyle.Sprint(p.ForVotes)},
		{headerStyle.Sprint("Against"), amountStyle.Sprint(p.AgainstVotes)},
		{headerStyle.Sprint("Abstain"), amountStyle.Sprint(p.AbstainVotes)},
	})
	if p.Status == proposal.StateQueued || p.Status == proposal.StateExecuted {
		t.AppendRows([]table.Row{
			{headerStyle.Sprint("Eta"), p.ExecutionEta},
			{headerStyle.Sprint("Expires"), p.ExpiresAt},
		})
		if p.WithdrawalId != 0 {
			t.AppendRow(table.Row{headerStyle.Sprint("Withdrawal"), p.WithdrawalId})
		}
	}
	sb.WriteString(t.Render())
	sb.WriteString("\n\n")

	if len(votes) == 0 {
		sb.WriteString(mutedStyle.Sprint("no votes"))
		return sb.String()
	}
	vt := newTable()
	vt.AppendHeader(header("VOTER", "SUPPORT", "WEIGHT", "CAST AT"))
	vt.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	for _, v := range votes {
		vt.AppendRow(table.Row{
			addressStyle.Sprint(v.Voter.Hex()),
			supportStyle(v.Support).Sprint(v.Support),
			amountStyle.Sprint(v.Weight),
			v.CastAt,
		})
	}
	sb.WriteString(vt.Render())
	return sb.String()
}

func calldataSummary(data []byte) string {
	if len(data) == 0 {
		return mutedStyle.Sprint("none")
	}
	call, err := treasury.DecodeWithdrawal(data)
	if err != nil {
		return fmt.Sprintf("%d bytes", len(data))
	}
	return fmt.Sprintf(
		"withdraw %s %s to %s",
		amountStyle.Sprint(call.Amount),
		assetName(call.Asset),
		addressStyle.Sprint(call.Recipient.Hex()),
	)
}

func renderPower(account types.Address, index uint64, power, supply types.Amount) string {
	t := newTable()
	t.AppendRows([]table.Row{
		{headerStyle.Sprint("Account"), addressStyle.Sprint(account.Hex())},
		{headerStyle.Sprint("Index"), index},
		{headerStyle.Sprint("Voting power"), amountStyle.Sprint(power)},
		{headerStyle.Sprint("Total supply"), amountStyle.Sprint(supply)},
	})
	return t.Render()
}

func renderTreasury(balances []models.TreasuryBalance, withdrawals []treasury.Withdrawal, now uint64) string {
	var sb strings.Builder
	bt := newTable()
	bt.AppendHeader(header("ASSET", "BALANCE"))
	bt.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	for _, b := range balances {
		bt.AppendRow(table.Row{
			assetName(common.BytesToAddress(b.Asset)),
			amountStyle.Sprint(b.Amount),
		})
	}
	if len(balances) == 0 {
		sb.WriteString(mutedStyle.Sprint("no balances"))
	} else {
		sb.WriteString(bt.Render())
	}
	sb.WriteString("\n\n")
	if len(withdrawals) == 0 {
		sb.WriteString(mutedStyle.Sprint("no withdrawals"))
		return sb.String()
	}
	wt := newTable()
	wt.AppendHeader(header("ID", "STATUS", "RECIPIENT", "ASSET", "AMOUNT", "ETA"))
	wt.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	for _, w := range withdrawals {
		status := withdrawalStyle(w.Status).Sprint(w.Status)
		if w.Status == treasury.WithdrawalPending {
			switch {
			case w.ExpiresAt > 0 && now >= w.ExpiresAt:
				status += mutedStyle.Sprint(" (expired)")
			case now >= w.Eta:
				status += okStyle.Sprint(" (ready)")
			}
		}
		wt.AppendRow(table.Row{
			idStyle.Sprint(w.Id),
			status,
			addressStyle.Sprint(w.Recipient.Hex()),
			assetName(w.Asset),
			amountStyle.Sprint(w.Amount),
			w.Eta,
		})
	}
	sb.WriteString(wt.Render())
	return sb.String()
}

func renderResult(call quorum.Call, res quorum.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s", mutedStyle.Sprintf("#%d @%d", res.Seq, res.Index), okStyle.Sprint(call.String()))
	if res.ProposalId != 0 && call.Op == quorum.OpPropose {
		fmt.Fprintf(&sb, " -> proposal %s", idStyle.Sprint(res.ProposalId))
	}
	if res.Weight != nil {
		fmt.Fprintf(&sb, " weight %s", amountStyle.Sprint(*res.Weight))
	}
	if res.State != "" {
		fmt.Fprintf(&sb, " state %s", res.State)
	}
	if res.Eta != 0 {
		fmt.Fprintf(&sb, " eta %d", res.Eta)
	}
	if res.WithdrawalId != 0 && call.Op == quorum.OpQueue {
		fmt.Fprintf(&sb, " withdrawal %d", res.WithdrawalId)
	}
	return sb.String()
}
