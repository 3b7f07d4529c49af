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

// Package store persists the single door-state record.
package store

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Source identifies which channel issued the last accepted command.
type Source string

const (
	SourceWhatsApp Source = "whatsapp"
	SourceWebUI    Source = "web-ui"
)

// DoorState is the persisted door record.
type DoorState struct {
	IsOpen      bool      `json:"isOpen" firestore:"isOpen"`
	LastUpdated time.Time `json:"lastUpdated" firestore:"lastUpdated"`
	Source      Source    `json:"source" firestore:"source"`
	From        string    `json:"from" firestore:"from"`
}

// Update is the set of fields merged into the record on open/close.
// LastUpdated is always assigned by the backend.
type Update struct {
	IsOpen bool
	Source Source
	From   string
}

// Store reads and merge-upserts the door record.
//
// Get returns (nil, nil) when no record has been written yet.
type Store interface {
	Get(ctx context.Context) (*DoorState, error)
	Merge(ctx context.Context, u Update) error
}

// decodeState converts a raw document map into a DoorState. Records written
// by older clients may carry isOpen as a string or number, so it is coerced.
func decodeState(data map[string]interface{}) *DoorState {
	state := &DoorState{IsOpen: truthy(data["isOpen"])}
	if ts, ok := data["lastUpdated"].(time.Time); ok {
		state.LastUpdated = ts
	}
	if src, ok := data["source"].(string); ok {
		state.Source = Source(src)
	}
	if from, ok := data["from"].(string); ok {
		state.From = from
	}
	return state
}

func truthy(v interface{}) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		return err == nil && b
	case int64:
		return val != 0
	case int:
		return val != 0
	case float64:
		return val != 0
	default:
		return false
	}
}
