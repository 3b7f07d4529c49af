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

// Package door interprets inbound door commands and applies them to the
// shared door record.
package door

import (
	"strings"

	"github.com/jredh-dev/doorman/internal/store"
)

// Command is a parsed door instruction.
type Command int

const (
	Unknown Command = iota
	Open
	Close
	Status
)

func (c Command) String() string {
	switch c {
	case Open:
		return "open"
	case Close:
		return "close"
	case Status:
		return "status"
	default:
		return "unknown"
	}
}

// NormalizeText trims surrounding whitespace and lower-cases a message body.
func NormalizeText(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParseCommand maps message text to a Command by exact match after
// normalization. There is no partial or fuzzy matching.
func ParseCommand(text string) Command {
	switch NormalizeText(text) {
	case "open":
		return Open
	case "close":
		return Close
	case "status":
		return Status
	default:
		return Unknown
	}
}

// messagingMarker is the address scheme Twilio uses for WhatsApp senders.
const messagingMarker = "whatsapp"

// Sender is a normalized inbound sender.
type Sender struct {
	// ID is the trimmed raw identifier, e.g. "whatsapp:+15551234567".
	ID string
	// Messaging is true when replies can be sent back over WhatsApp.
	Messaging bool
}

// ClassifySender normalizes raw and decides whether it came from the
// messaging channel.
func ClassifySender(raw string) Sender {
	id := strings.TrimSpace(raw)
	return Sender{
		ID:        id,
		Messaging: strings.Contains(strings.ToLower(id), messagingMarker),
	}
}

// Source is the provenance recorded on the door record.
func (s Sender) Source() store.Source {
	if s.Messaging {
		return store.SourceWhatsApp
	}
	return store.SourceWebUI
}
