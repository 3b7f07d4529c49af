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
	"log"

	kafka "github.com/segmentio/kafka-go"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Relay consumes the outbox topic and hands each record to a Notifier.
//
// Every record gets exactly one delivery attempt. Failures are written to
// the dead-letter topic and the offset is committed either way, so a bad
// record never blocks the partition.
type Relay struct {
	reader messageReader
	dlq    messageWriter
	sender Notifier
	topic  string
}

// RelayConfig names the Kafka resources a Relay uses.
type RelayConfig struct {
	Brokers  []string
	Topic    string
	DLQTopic string
	GroupID  string
}

// NewRelay creates a Relay connected to cfg.Brokers.
func NewRelay(cfg RelayConfig, sender Notifier) *Relay {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       1 << 20, // 1 MiB
		CommitInterval: 0,       // explicit commits only
		StartOffset:    kafka.LastOffset,
	})

	dlq := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.DLQTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}

	return &Relay{reader: reader, dlq: dlq, sender: sender, topic: cfg.Topic}
}

// Run blocks, relaying records until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	log.Printf("notify-relay: consuming from topic %q", r.topic)

	for {
		m, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch: %w", err)
		}

		if err := r.deliver(ctx, m); err != nil {
			log.Printf("notify-relay: routed key=%s to DLQ: %v", string(m.Key), err)
		}

		if err := r.reader.CommitMessages(ctx, m); err != nil {
			log.Printf("notify-relay: commit failed (record may be redelivered): %v", err)
		}
	}
}

// Close releases all Kafka resources.
func (r *Relay) Close() error {
	rerr := r.reader.Close()
	werr := r.dlq.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}

func (r *Relay) deliver(ctx context.Context, m kafka.Message) error {
	var msg Message
	if err := json.Unmarshal(m.Value, &msg); err != nil {
		return r.deadLetter(ctx, m, fmt.Errorf("unmarshal: %w", err))
	}

	if err := r.sender.Send(ctx, msg); err != nil {
		return r.deadLetter(ctx, m, err)
	}
	log.Printf("notify-relay: delivered id=%s to=%s", msg.ID, msg.To)
	return nil
}

// deadLetter copies the original record to the DLQ and returns reason.
func (r *Relay) deadLetter(ctx context.Context, original kafka.Message, reason error) error {
	err := r.dlq.WriteMessages(ctx, kafka.Message{
		Key:   original.Key,
		Value: original.Value,
	})
	if err != nil {
		log.Printf("notify-relay: CRITICAL could not write to DLQ: %v", err)
	}
	return reason
}
