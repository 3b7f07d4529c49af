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
	"errors"
	"fmt"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrStore          = errors.New("door store failure")
	ErrNotify         = errors.New("notification failure")
)

// UnknownCommandError is returned for text that is not a door command.
// Help is the reply that was (or would have been) sent to the sender.
type UnknownCommandError struct {
	Text string
	Help string
}

func (e *UnknownCommandError) Error() string {
	return fmt.Sprintf("unknown command %q", e.Text)
}

func (e *UnknownCommandError) Is(target error) bool { return target == ErrUnknownCommand }

// StoreError wraps a failed read or write of the door record.
type StoreError struct {
	Op  string // "get" or "merge"
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("door store %s: %v", e.Op, e.Err) }

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStore }

// NotifyError wraps a failed reply to the sender.
type NotifyError struct {
	To  string
	Err error
}

func (e *NotifyError) Error() string { return fmt.Sprintf("notify %s: %v", e.To, e.Err) }

func (e *NotifyError) Unwrap() error { return e.Err }

func (e *NotifyError) Is(target error) bool { return target == ErrNotify }
