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

package models

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/blinklabs-io/quorum/proposal"
	"github.com/blinklabs-io/quorum/types"
)

// Vote is a voting receipt. A voter has at most one row per proposal.
type Vote struct {
	ID         uint         `gorm:"primarykey"`
	ProposalId uint64       `gorm:"index:idx_vote_proposal;uniqueIndex:idx_vote_unique,priority:1;not null"`
	Voter      []byte       `gorm:"uniqueIndex:idx_vote_unique,priority:2;size:20;not null"`
	Support    uint8        `gorm:"not null"` // 0=Against, 1=For, 2=Abstain
	Weight     types.Amount `gorm:"not null"`
	CastAt     uint64       `gorm:"not null"`
}

func (Vote) TableName() string {
	return "vote"
}

func VoteToModel(v proposal.Vote) Vote {
	return Vote{
		ProposalId: v.ProposalId,
		Voter:      v.Voter.Bytes(),
		Support:    uint8(v.Support),
		Weight:     v.Weight,
		CastAt:     v.CastAt,
	}
}

func (v Vote) ToVote() proposal.Vote {
	return proposal.Vote{
		ProposalId: v.ProposalId,
		Voter:      common.BytesToAddress(v.Voter),
		Support:    proposal.Support(v.Support),
		Weight:     v.Weight,
		CastAt:     v.CastAt,
	}
}
