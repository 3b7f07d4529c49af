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
	"context"
	"log"
	"time"

	"github.com/jredh-dev/doorman/internal/notify"
	"github.com/jredh-dev/doorman/internal/store"
)

const defaultTimeout = 10 * time.Second

// Controller handles one door command end-to-end: it interprets the text,
// updates the store and replies to the sender.
type Controller struct {
	store         store.Store
	notifier      notify.Notifier // nil when replies are disabled
	storeTimeout  time.Duration
	notifyTimeout time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithStoreTimeout bounds every store call.
func WithStoreTimeout(d time.Duration) Option {
	return func(c *Controller) { c.storeTimeout = d }
}

// WithNotifyTimeout bounds every reply send.
func WithNotifyTimeout(d time.Duration) Option {
	return func(c *Controller) { c.notifyTimeout = d }
}

// NewController creates a Controller. n may be nil, which disables replies
// without changing any HTTP outcome.
func NewController(s store.Store, n notify.Notifier, opts ...Option) *Controller {
	c := &Controller{
		store:         s,
		notifier:      n,
		storeTimeout:  defaultTimeout,
		notifyTimeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result describes an accepted command.
type Result struct {
	Command Command
	Sender  Sender
	// Message is the text for the synchronous response. For Status it is
	// the acknowledgment; the summary itself only goes to the sender.
	Message string
	// IsOpen is the new door state. Only meaningful for Open and Close.
	IsOpen bool
	// Notified reports whether a reply was delivered to the notifier.
	Notified bool
}

// Handle processes one inbound message.
//
// Errors are *UnknownCommandError, *StoreError or, for Status only,
// *NotifyError. A failed reply after a successful open/close is logged and
// does not fail the request, since the state change is already persisted.
func (c *Controller) Handle(ctx context.Context, rawSender, rawText string) (*Result, error) {
	sender := ClassifySender(rawSender)
	cmd := ParseCommand(rawText)

	log.Printf("door: command=%s from=%q messaging=%v", cmd, sender.ID, sender.Messaging)

	switch cmd {
	case Open, Close:
		return c.apply(ctx, sender, cmd)
	case Status:
		return c.status(ctx, sender)
	default:
		return nil, c.unknown(ctx, sender, rawText)
	}
}

// State reads the current door record; nil means no command yet.
func (c *Controller) State(ctx context.Context) (*store.DoorState, error) {
	ctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	state, err := c.store.Get(ctx)
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}
	return state, nil
}

func (c *Controller) apply(ctx context.Context, sender Sender, cmd Command) (*Result, error) {
	open := cmd == Open
	update := store.Update{IsOpen: open, Source: sender.Source(), From: sender.ID}

	wctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	err := c.store.Merge(wctx, update)
	cancel()
	if err != nil {
		return nil, &StoreError{Op: "merge", Err: err}
	}
	log.Printf("door: isOpen=%v source=%s from=%q", open, update.Source, sender.ID)

	res := &Result{Command: cmd, Sender: sender, Message: ConfirmationMessage(open), IsOpen: open}

	sent, err := c.reply(ctx, sender, res.Message)
	if err != nil {
		log.Printf("door: confirmation not delivered after write: %v", err)
	}
	res.Notified = sent
	return res, nil
}

func (c *Controller) status(ctx context.Context, sender Sender) (*Result, error) {
	state, err := c.State(ctx)
	if err != nil {
		return nil, err
	}

	sent, err := c.reply(ctx, sender, StatusMessage(state))
	if err != nil {
		return nil, err
	}
	return &Result{Command: Status, Sender: sender, Message: StatusAck, Notified: sent}, nil
}

func (c *Controller) unknown(ctx context.Context, sender Sender, rawText string) error {
	if _, err := c.reply(ctx, sender, HelpMessage); err != nil {
		log.Printf("door: help reply not delivered: %v", err)
	}
	return &UnknownCommandError{Text: NormalizeText(rawText), Help: HelpMessage}
}

// canNotify reports whether a reply to sender is possible at all.
func (c *Controller) canNotify(sender Sender) bool {
	return c.notifier != nil && sender.Messaging && sender.ID != ""
}

// reply sends body to sender when possible. It returns false, nil when
// replies do not apply to this sender.
func (c *Controller) reply(ctx context.Context, sender Sender, body string) (bool, error) {
	if !c.canNotify(sender) {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.notifyTimeout)
	defer cancel()

	msg := notify.NewMessage(sender.ID, body)
	if err := c.notifier.Send(ctx, msg); err != nil {
		return false, &NotifyError{To: sender.ID, Err: err}
	}
	log.Printf("door: reply id=%s sent to %s", msg.ID, sender.ID)
	return true, nil
}
