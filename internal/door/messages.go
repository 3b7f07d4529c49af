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

package door

import (
	"fmt"
	"time"

	"github.com/jredh-dev/doorman/internal/store"
)

// Reply texts.
const (
	HelpMessage = "Sorry, I didn't understand that. Send one of:\n" +
		"open - open the door\n" +
		"close - close the door\n" +
		"status - check whether the door is open"

	StatusAck         = "Status sent to WhatsApp."
	NoActivityMessage = "No door activity yet."
	InternalErrorText = "Something went wrong, please try again."
)

// ConfirmationMessage is the reply after a successful open or close.
func ConfirmationMessage(open bool) string {
	return fmt.Sprintf("The door is now %s.", stateWord(open))
}

// StatusMessage summarizes state for a status reply. A nil state means the
// door has never been commanded.
func StatusMessage(state *store.DoorState) string {
	if state == nil {
		return NoActivityMessage
	}

	updated := "unknown"
	if !state.LastUpdated.IsZero() {
		updated = FormatTimestamp(state.LastUpdated)
	}
	by := state.From
	if by == "" {
		by = "unknown user"
	}

	return fmt.Sprintf("The door is currently %s.\nLast updated: %s\nBy: %s",
		stateWord(state.IsOpen), updated, by)
}

// FormatTimestamp renders t as RFC 3339 in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func stateWord(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}
