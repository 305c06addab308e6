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

// Package access holds the set of principals allowed to perform
// administrative operations.
package access

import (
	"fmt"
	"sync"

	"github.com/samber/lo"

	"github.com/blinklabs-io/quorum/types"
)

// Control is a shared, mutable set of authorized principals. Components hold
// a pointer to the same Control and consult it on every authorization check.
type Control struct {
	mu      sync.RWMutex
	members map[types.Address]struct{}
}

// New creates a Control seeded with the given principals. At least one
// non-zero principal is required.
func New(initial ...types.Address) (*Control, error) {
	initial = lo.Uniq(lo.Without(initial, types.ZeroAddress))
	if len(initial) == 0 {
		return nil, fmt.Errorf(
			"%w: access control needs at least one principal",
			types.ErrInvalidAddress,
		)
	}
	c := &Control{
		members: make(map[types.Address]struct{}, len(initial)),
	}
	for _, p := range initial {
		c.members[p] = struct{}{}
	}
	return c, nil
}

func (c *Control) Has(p types.Address) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.members[p]
	return ok
}

// Members returns the principals sorted by address
func (c *Control) Members() []types.Address {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ret := lo.Keys(c.members)
	sortAddresses(ret)
	return ret
}

// Add grants membership to p. The caller must already be a member.
func (c *Control) Add(caller, p types.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.members[caller]; !ok {
		return fmt.Errorf("add principal: %w: %s", types.ErrUnauthorized, caller)
	}
	if p == types.ZeroAddress {
		return fmt.Errorf("add principal: %w", types.ErrInvalidAddress)
	}
	c.members[p] = struct{}{}
	return nil
}

// Remove revokes membership of p. The caller must be a member and the set
// may not become empty.
func (c *Control) Remove(caller, p types.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.members[caller]; !ok {
		return fmt.Errorf("remove principal: %w: %s", types.ErrUnauthorized, caller)
	}
	if _, ok := c.members[p]; !ok {
		return nil
	}
	if len(c.members) == 1 {
		return fmt.Errorf("remove principal: %w", types.ErrLastMember)
	}
	delete(c.members, p)
	return nil
}
