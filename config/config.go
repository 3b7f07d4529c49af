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

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends.
const (
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// Notification backends.
const (
	NotifyTwilio = "twilio"
	NotifyKafka  = "kafka"
	NotifyNone   = "none"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Firebase FirebaseConfig
	Store    StoreConfig
	Twilio   TwilioConfig
	Notify   NotifyConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	CORSOrigin     string
	RequestTimeout time.Duration
}

type FirebaseConfig struct {
	ProjectID          string
	ServiceAccountJSON string // raw service account JSON, takes precedence over CredentialsPath
	CredentialsPath    string
	FirestoreDatabase  string
	// Emulator support for integration testing
	UseEmulator           bool
	EmulatorFirestoreHost string
}

type StoreConfig struct {
	Backend    string
	Collection string
	DocumentID string
	Timeout    time.Duration
}

type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	WhatsAppNumber string // sending address, e.g. "whatsapp:+14155238886"
}

type NotifyConfig struct {
	Backend  string
	Timeout  time.Duration
	Brokers  string // comma-separated, e.g. "kafka:9092"
	Topic    string
	DLQTopic string
	GroupID  string
}

// Load returns application configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "3000"),
			Env:            getEnv("ENV", "development"),
			CORSOrigin:     getEnv("CORS_ORIGIN", "*"),
			RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		},
		Firebase: FirebaseConfig{
			ProjectID:             getEnv("FIREBASE_PROJECT_ID", ""),
			ServiceAccountJSON:    getEnv("FIREBASE_SERVICE_ACCOUNT_JSON", ""),
			CredentialsPath:       getEnv("FIREBASE_CREDENTIALS_PATH", ""),
			FirestoreDatabase:     getEnv("FIRESTORE_DATABASE", "(default)"),
			UseEmulator:           getEnvBool("USE_FIREBASE_EMULATOR", false),
			EmulatorFirestoreHost: getEnv("FIRESTORE_EMULATOR_HOST", "localhost:8080"),
		},
		Store: StoreConfig{
			Backend:    getEnv("DOOR_STORE", StoreFirestore),
			Collection: getEnv("DOOR_COLLECTION", "doors"),
			DocumentID: getEnv("DOOR_ID", "mainDoor"),
			Timeout:    getEnvDuration("STORE_TIMEOUT", 10*time.Second),
		},
		Twilio: TwilioConfig{
			AccountSID:     getEnv("TWILIO_SID", ""),
			AuthToken:      getEnv("TWILIO_TOKEN", ""),
			WhatsAppNumber: getEnv("WHATSAPP_NUMBER", ""),
		},
		Notify: NotifyConfig{
			Backend:  getEnv("NOTIFY_BACKEND", NotifyTwilio),
			Timeout:  getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),
			Brokers:  getEnv("KAFKA_BROKERS", ""),
			Topic:    getEnv("NOTIFY_TOPIC", "door-outbox"),
			DLQTopic: getEnv("NOTIFY_DLQ_TOPIC", "door-outbox-dlq"),
			GroupID:  getEnv("NOTIFY_GROUP_ID", "doorman-notify-relay"),
		},
	}
}

// Validate reports configuration that must stop the server at startup.
// Missing Twilio credentials are not an error: they only disable replies.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case StoreFirestore:
		f := c.Firebase
		if !f.UseEmulator && f.ServiceAccountJSON == "" && f.CredentialsPath == "" {
			errs = append(errs, errors.New("firestore store requires FIREBASE_SERVICE_ACCOUNT_JSON or FIREBASE_CREDENTIALS_PATH"))
		}
		if f.UseEmulator && f.ProjectID == "" {
			errs = append(errs, errors.New("firestore emulator requires FIREBASE_PROJECT_ID"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown DOOR_STORE %q", c.Store.Backend))
	}

	switch c.Notify.Backend {
	case NotifyTwilio, NotifyNone:
	case NotifyKafka:
		if len(c.Notify.BrokerList()) == 0 {
			errs = append(errs, errors.New("kafka notify backend requires KAFKA_BROKERS"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_BACKEND %q", c.Notify.Backend))
	}

	return errors.Join(errs...)
}

// HasCredentials reports whether all three Twilio settings are present.
func (t TwilioConfig) HasCredentials() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.WhatsAppNumber != ""
}

// NotifyEnabled reports whether outbound replies can be sent with the
// selected backend.
func (c *Config) NotifyEnabled() bool {
	switch c.Notify.Backend {
	case NotifyTwilio:
		return c.Twilio.HasCredentials()
	case NotifyKafka:
		return len(c.Notify.BrokerList()) > 0
	default:
		return false
	}
}

// BrokerList splits Brokers on commas, dropping empty entries.
func (n NotifyConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(n.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		boolVal, err := strconv.ParseBool(value)
		if err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("15s") or bare seconds ("15").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
