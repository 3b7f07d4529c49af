// doorman - remote door-control relay
// Copyright (C) 2026  doorman contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.

package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for local development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	state *DoorState
	now   func() time.Time
}

// NewMemory creates an empty store. now supplies the "server" time for
// lastUpdated; nil means time.Now.
func NewMemory(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now}
}

// Get returns a copy of the record, or nil if nothing has been written.
func (m *MemoryStore) Get(ctx context.Context) (*DoorState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state == nil {
		return nil, nil
	}
	cp := *m.state
	return &cp, nil
}

// Merge overwrites the record fields. lastUpdated never moves backwards:
// if the clock has not advanced past the previous write it is bumped by 1ns.
func (m *MemoryStore) Merge(ctx context.Context, u Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.now().UTC()
	if m.state == nil {
		m.state = &DoorState{}
	} else if !ts.After(m.state.LastUpdated) {
		ts = m.state.LastUpdated.Add(time.Nanosecond)
	}

	m.state.IsOpen = u.IsOpen
	m.state.LastUpdated = ts
	m.state.Source = u.Source
	m.state.From = u.From
	return nil
}
