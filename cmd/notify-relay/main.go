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

// notify-relay is a long-running Kafka consumer that reads door replies
// from the outbox topic (NOTIFY_BACKEND=kafka on the server) and delivers
// them over WhatsApp through Twilio.
//
// Configuration is read from the environment (and .env if present):
//
//	KAFKA_BROKERS     comma-separated broker list, e.g. "kafka:9092"
//	NOTIFY_TOPIC      outbox topic (default "door-outbox")
//	NOTIFY_DLQ_TOPIC  dead-letter topic (default "door-outbox-dlq")
//	TWILIO_SID        Twilio account SID
//	TWILIO_TOKEN      Twilio auth token
//	WHATSAPP_NUMBER   Twilio WhatsApp sender, e.g. "whatsapp:+14155238886"
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jredh-dev/doorman/config"
	"github.com/jredh-dev/doorman/internal/notify"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("doorman-notify-relay %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
		os.Exit(0)
	}

	_ = godotenv.Load()
	cfg := config.Load()

	brokers := cfg.Notify.BrokerList()
	if len(brokers) == 0 {
		log.Fatal("notify-relay: KAFKA_BROKERS is not set")
	}
	if !cfg.Twilio.HasCredentials() {
		log.Fatal("notify-relay: TWILIO_SID, TWILIO_TOKEN and WHATSAPP_NUMBER are required")
	}

	sender := notify.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.WhatsAppNumber)
	relay := notify.NewRelay(notify.RelayConfig{
		Brokers:  brokers,
		Topic:    cfg.Notify.Topic,
		DLQTopic: cfg.Notify.DLQTopic,
		GroupID:  cfg.Notify.GroupID,
	}, sender)
	defer func() {
		if err := relay.Close(); err != nil {
			log.Printf("notify-relay: error closing consumer: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Printf("notify-relay: starting (topic=%s from=%s)", cfg.Notify.Topic, cfg.Twilio.WhatsAppNumber)
	if err := relay.Run(ctx); err != nil {
		log.Fatalf("notify-relay: fatal error: %v", err)
	}
	log.Println("notify-relay: shutdown complete")
}
