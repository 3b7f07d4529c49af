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

package notify

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// messageCreator is the slice of the Twilio REST API used here.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// TwilioNotifier sends WhatsApp replies through the Twilio Messages API.
type TwilioNotifier struct {
	api  messageCreator
	from string
}

// NewTwilio creates a TwilioNotifier.
//
// from is the Twilio WhatsApp sender, e.g. "whatsapp:+14155238886".
func NewTwilio(accountSID, authToken, from string) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioNotifier{api: client.Api, from: from}
}

// Send posts msg to Twilio. The SDK call is not context-aware, so Send
// returns ctx.Err() if ctx ends first; the request itself is bounded by the
// SDK's HTTP client timeout.
func (n *TwilioNotifier) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return errors.New("twilio: empty recipient")
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(msg.To)
	params.SetFrom(n.from)
	params.SetBody(msg.Body)

	type result struct {
		sid string
		err error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := n.api.CreateMessage(params)
		var sid string
		if resp != nil && resp.Sid != nil {
			sid = *resp.Sid
		}
		done <- result{sid: sid, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return fmt.Errorf("twilio create message to %s: %w", msg.To, res.err)
		}
		log.Printf("notify: twilio sent id=%s sid=%s to=%s", msg.ID, res.sid, msg.To)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("twilio create message to %s: %w", msg.To, ctx.Err())
	}
}
