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
	"encoding/json"
	"fmt"

	kafka "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafka.Writer used by the outbox and the
// relay's dead-letter path.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// OutboxNotifier publishes replies to a Kafka topic instead of calling
// Twilio inline. The notify-relay binary delivers them.
type OutboxNotifier struct {
	writer messageWriter
	topic  string
}

// NewOutbox creates an OutboxNotifier writing to topic on brokers.
func NewOutbox(brokers []string, topic string) *OutboxNotifier {
	return &OutboxNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
		topic: topic,
	}
}

// Send enqueues msg keyed by its ID. A nil error means the broker
// acknowledged the record, not that the reply was delivered.
func (o *OutboxNotifier) Send(ctx context.Context, msg Message) error {
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal outbox message: %w", err)
	}
	if err := o.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ID),
		Value: value,
	}); err != nil {
		return fmt.Errorf("publish to %s: %w", o.topic, err)
	}
	return nil
}

// Close flushes and releases the writer.
func (o *OutboxNotifier) Close() error {
	return o.writer.Close()
}
