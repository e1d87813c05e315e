// Package sse implements the real-time event stream endpoint (spec §6.2):
// a server-sent events connection that relays Notifier events, each frame
// shaped as `event: <public|private|ping>` plus a JSON data payload.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hivemind-dev/hivemind/internal/auth"
	"github.com/hivemind-dev/hivemind/internal/logging"
	"github.com/hivemind-dev/hivemind/internal/notifier"
)

// Handler serves the SSE endpoint.
type Handler struct {
	notifier *notifier.Notifier
	authr    auth.Authenticator
}

// New constructs the SSE Handler.
func New(n *notifier.Notifier, authr auth.Authenticator) *Handler {
	return &Handler{notifier: n, authr: authr}
}

// ServeHTTP authenticates the connecting client, subscribes it to the
// Notifier, and streams events until the client disconnects (spec §6.2).
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sess, err := h.authr.Authenticate(r.Context(), r.Header)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.notifier.Subscribe(r.Context(), sess.Principal().TenantID)
	defer sub.Close()

	log := logging.From(r.Context()).WithName("sse")

	for ev := range sub.Events() {
		data := map[string]any{}
		if ev.Payload != nil {
			raw, err := json.Marshal(ev.Payload)
			if err != nil {
				log.Error(err, "failed to marshal approval payload for SSE frame")
				continue
			}
			if err := json.Unmarshal(raw, &data); err != nil {
				log.Error(err, "failed to decode approval payload into frame data")
				continue
			}
		}

		payload, err := json.Marshal(data)
		if err != nil {
			log.Error(err, "failed to marshal SSE frame data")
			continue
		}

		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload); err != nil {
			return
		}
		flusher.Flush()
	}
}
