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

// Package notify delivers text replies to the sender of a door command,
// either directly through Twilio or via a Kafka outbox.
package notify

import (
	"context"

	"github.com/google/uuid"
)

// Message is a single outbound reply. It is also the JSON schema of
// records on the outbox topic:
//
//	{
//	  "id":   "550e8400-e29b-41d4-a716-446655440000",
//	  "to":   "whatsapp:+15551234567",
//	  "body": "The door is now open."
//	}
type Message struct {
	// ID correlates log lines and outbox records for one reply.
	ID   string `json:"id"`
	To   string `json:"to"`
	Body string `json:"body"`
}

// NewMessage builds a Message with a fresh ID.
func NewMessage(to, body string) Message {
	return Message{ID: uuid.NewString(), To: to, Body: body}
}

// Notifier is the interface any reply backend must implement.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}
