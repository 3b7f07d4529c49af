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

package store

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jredh-dev/doorman/config"
)

// FirestoreStore keeps the door record in a single Firestore document.
type FirestoreStore struct {
	client *firestore.Client
	doc    *firestore.DocumentRef
}

// NewFirestore returns a store backed by collection/id on client.
func NewFirestore(client *firestore.Client, collection, id string) *FirestoreStore {
	return &FirestoreStore{
		client: client,
		doc:    client.Collection(collection).Doc(id),
	}
}

// OpenFirestore initializes a Firebase app from cfg and returns its
// Firestore client. When the emulator is enabled no credentials are used.
func OpenFirestore(ctx context.Context, cfg config.FirebaseConfig) (*firestore.Client, error) {
	var opts []option.ClientOption
	switch {
	case cfg.UseEmulator:
		// The Firestore client picks the emulator up from the environment.
		if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.EmulatorFirestoreHost); err != nil {
			return nil, fmt.Errorf("set emulator host: %w", err)
		}
		opts = append(opts, option.WithoutAuthentication())
	case cfg.ServiceAccountJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.ServiceAccountJSON)))
	case cfg.CredentialsPath != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	if cfg.FirestoreDatabase != "" && cfg.FirestoreDatabase != firestore.DefaultDatabaseID {
		client, err := firestore.NewClientWithDatabase(ctx, cfg.ProjectID, cfg.FirestoreDatabase, opts...)
		if err != nil {
			return nil, fmt.Errorf("firestore client for database %q: %w", cfg.FirestoreDatabase, err)
		}
		return client, nil
	}

	var fbConfig *firebase.Config
	if cfg.ProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}
	return client, nil
}

// Get reads the door document. A missing document is (nil, nil).
func (s *FirestoreStore) Get(ctx context.Context) (*DoorState, error) {
	snap, err := s.doc.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.doc.Path, err)
	}
	if !snap.Exists() {
		return nil, nil
	}
	return decodeState(snap.Data()), nil
}

// Merge writes u into the door document, creating it if needed.
// lastUpdated is set to the Firestore server time.
func (s *FirestoreStore) Merge(ctx context.Context, u Update) error {
	_, err := s.doc.Set(ctx, map[string]interface{}{
		"isOpen":      u.IsOpen,
		"lastUpdated": firestore.ServerTimestamp,
		"source":      string(u.Source),
		"from":        u.From,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("set %s: %w", s.doc.Path, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
