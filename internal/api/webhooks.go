package api

import (
	"context"
	"crypto/subtle"
	"io"
	"net/http"
	"strings"

	"github.com/Nomadcxx/jellyhook/internal/event"
	"github.com/Nomadcxx/jellyhook/internal/logging"
)

const secretHeader = "X-Jellyhook-Webhook-Secret"

type webhookResponse struct {
	Status    string `json:"status"`
	EventType string `json:"event_type"`
	RunID     string `json:"run_id,omitempty"`
	Reactions string `json:"reactions,omitempty"`
	ExitCode  *int   `json:"exit_code,omitempty"`
}

// HandleJellyfinWebhook decodes a Jellyfin webhook-plugin payload and
// dispatches it. Unknown event types are accepted so the plugin does not
// retry them.
func (s *Server) HandleJellyfinWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.validateWebhookSecret(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid webhook secret")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "unable to read body")
		return
	}
	if len(body) > maxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "payload exceeds 1 MiB")
		return
	}

	e, err := event.DecodePayload(body, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", err.Error())
		return
	}

	if s.dispatcher == nil {
		writeJSON(w, http.StatusOK, webhookResponse{Status: "ignored", EventType: e.Type})
		return
	}

	if s.sync {
		// A plugin disconnect must not leave a half-applied window.
		res := s.dispatcher.Handle(context.WithoutCancel(r.Context()), e)
		exit := res.ExitCode
		writeJSON(w, http.StatusOK, webhookResponse{
			Status:    "handled",
			EventType: e.Type,
			RunID:     res.RunID,
			Reactions: res.Reactions.String(),
			ExitCode:  &exit,
		})
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Warn("server", "Webhook invocation panicked", logging.F("panic", rec))
			}
		}()
		s.dispatcher.Handle(context.Background(), e)
	}()

	writeJSON(w, http.StatusAccepted, webhookResponse{Status: "accepted", EventType: e.Type})
}

// validateWebhookSecret accepts every request when no secret is set.
func (s *Server) validateWebhookSecret(r *http.Request) bool {
	if s.webhookSecret == "" {
		return true
	}
	provided := strings.TrimSpace(r.Header.Get(secretHeader))
	if provided == "" {
		provided = strings.TrimSpace(r.URL.Query().Get("secret"))
	}
	if provided == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(s.webhookSecret)) == 1
}
