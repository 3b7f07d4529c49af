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

package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jredh-dev/doorman/internal/door"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	door *door.Controller
}

// New creates a new Handler.
func New(c *door.Controller) *Handler {
	return &Handler{door: c}
}

// Routes mounts the door API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/door-state", h.DoorState)
	r.Post("/whatsapp/webhook", h.Webhook)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.NotFound)
}

// inboundReq is the JSON form of a webhook call. Twilio itself sends
// form-encoded From/Body; the web UI may send either.
type inboundReq struct {
	From string `json:"From"`
	Body string `json:"Body"`
}

type commandResp struct {
	OK           bool   `json:"ok"`
	IsOpen       bool   `json:"isOpen"`
	Message      string `json:"message"`
	CurrentState bool   `json:"currentState"`
}

type statusResp struct {
	OK      bool   `json:"ok"`
	Command string `json:"command"`
	Message string `json:"message"`
}

type doorStateResp struct {
	Exists      bool    `json:"exists"`
	IsOpen      bool    `json:"isOpen"`
	LastUpdated *string `json:"lastUpdated"`
	Source      *string `json:"source"`
	From        string  `json:"from,omitempty"`
}

// Webhook handles POST /whatsapp/webhook
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	from, body := readInbound(r)
	log.Printf("webhook: from=%q body=%q", from, body)

	res, err := h.door.Handle(r.Context(), from, body)
	if err != nil {
		var unknown *door.UnknownCommandError
		if errors.As(err, &unknown) {
			jsonOK(w, http.StatusBadRequest, map[string]interface{}{
				"ok":           false,
				"error":        "unknown_command",
				"message":      unknown.Help,
				"currentState": nil,
			})
			return
		}

		log.Printf("webhook error: %v", err)
		jsonOK(w, http.StatusInternalServerError, map[string]interface{}{
			"ok":      false,
			"error":   "internal_error",
			"message": door.InternalErrorText,
		})
		return
	}

	if res.Command == door.Status {
		jsonOK(w, http.StatusOK, statusResp{OK: true, Command: "status", Message: res.Message})
		return
	}

	jsonOK(w, http.StatusOK, commandResp{
		OK:           true,
		IsOpen:       res.IsOpen,
		Message:      res.Message,
		CurrentState: res.IsOpen,
	})
}

// DoorState handles GET /door-state
func (h *Handler) DoorState(w http.ResponseWriter, r *http.Request) {
	state, err := h.door.State(r.Context())
	if err != nil {
		log.Printf("door-state error: %v", err)
		jsonError(w, "failed_to_read_state", http.StatusInternalServerError)
		return
	}

	if state == nil {
		jsonOK(w, http.StatusOK, doorStateResp{Exists: false, IsOpen: false})
		return
	}

	resp := doorStateResp{Exists: true, IsOpen: state.IsOpen, From: state.From}
	if !state.LastUpdated.IsZero() {
		ts := door.FormatTimestamp(state.LastUpdated)
		resp.LastUpdated = &ts
	}
	if state.Source != "" {
		src := string(state.Source)
		resp.Source = &src
	}
	jsonOK(w, http.StatusOK, resp)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	jsonOK(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFound answers every unmatched route or method.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	jsonError(w, "not_found", http.StatusNotFound)
}

// readInbound extracts From and Body from a JSON or form-encoded request.
// Missing or unparseable fields come back empty.
func readInbound(r *http.Request) (from, body string) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req inboundReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			log.Printf("webhook: invalid JSON body: %v", err)
			return "", ""
		}
		return req.From, req.Body
	}

	// Twilio sends webhooks as POST form data.
	if err := r.ParseForm(); err != nil {
		log.Printf("webhook: invalid form body: %v", err)
		return "", ""
	}
	return r.FormValue("From"), r.FormValue("Body")
}

// --- helpers ---

func jsonOK(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
