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

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/jredh-dev/doorman/config"
	"github.com/jredh-dev/doorman/internal/door"
	"github.com/jredh-dev/doorman/internal/handlers"
	"github.com/jredh-dev/doorman/internal/notify"
	"github.com/jredh-dev/doorman/internal/store"
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
		fmt.Printf("doorman-server %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", buildDate)
		os.Exit(0)
	}

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx := context.Background()

	doorStore, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize door store: %v", err)
	}
	defer closeStore()

	notifier, closeNotifier := openNotifier(cfg)
	defer closeNotifier()

	controller := door.NewController(doorStore, notifier,
		door.WithStoreTimeout(cfg.Store.Timeout),
		door.WithNotifyTimeout(cfg.Notify.Timeout),
	)
	h := handlers.New(controller)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	r.Use(handlers.CORS(cfg.Server.CORSOrigin))

	h.Routes(r)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	log.Printf("doorman starting on %s (env: %s, store: %s, notify: %s)",
		addr, cfg.Server.Env, cfg.Store.Backend, notifyMode(cfg))
	log.Printf("  Webhook:    http://localhost%s/whatsapp/webhook", addr)
	log.Printf("  Door state: http://localhost%s/door-state", addr)

	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped")
}

// openStore builds the configured door store and a func that releases it.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	if cfg.Store.Backend == config.StoreMemory {
		log.Println("WARNING: DOOR_STORE=memory, door state is lost on restart")
		return store.NewMemory(nil), func() {}, nil
	}

	client, err := store.OpenFirestore(ctx, cfg.Firebase)
	if err != nil {
		return nil, nil, err
	}
	fs := store.NewFirestore(client, cfg.Store.Collection, cfg.Store.DocumentID)
	return fs, func() { closeLogged("firestore", fs) }, nil
}

// openNotifier returns nil when replies are disabled, so the controller
// skips them entirely.
func openNotifier(cfg *config.Config) (notify.Notifier, func()) {
	if !cfg.NotifyEnabled() {
		log.Printf("Replies disabled (backend %q not configured)", cfg.Notify.Backend)
		return nil, func() {}
	}

	switch cfg.Notify.Backend {
	case config.NotifyKafka:
		o := notify.NewOutbox(cfg.Notify.BrokerList(), cfg.Notify.Topic)
		return o, func() { closeLogged("outbox", o) }
	default:
		return notify.NewTwilio(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.WhatsAppNumber), func() {}
	}
}

func notifyMode(cfg *config.Config) string {
	if !cfg.NotifyEnabled() {
		return "disabled"
	}
	return cfg.Notify.Backend
}

func closeLogged(name string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Printf("Error closing %s: %v", name, err)
	}
}
