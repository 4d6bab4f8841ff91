package notify

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/apperr"
	"github.com/Nomadcxx/jellyhook/internal/config"
	"github.com/Nomadcxx/jellyhook/internal/event"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscordNotifier_PostsEmbed(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewDiscordNotifier(srv.URL, time.Second)
	require.True(t, n.Enabled())

	msg := Message{Title: "T", Body: "B", Color: colorMovie, Fields: []Field{{Name: "Genres", Value: ""}}}
	require.NoError(t, n.Notify(context.Background(), msg, event.Event{}))

	require.Len(t, got.Embeds, 1)
	assert.Equal(t, "T", got.Embeds[0].Title)
	assert.Equal(t, "B", got.Embeds[0].Description)
	assert.Equal(t, colorMovie, got.Embeds[0].Color)
	assert.Equal(t, "-", got.Embeds[0].Fields[0].Value)
}

func TestDiscordNotifier_ErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		want   apperr.Kind
	}{
		{http.StatusUnauthorized, apperr.Unauthorized},
		{http.StatusNotFound, apperr.NotFound},
		{http.StatusBadGateway, apperr.ServiceUnavailable},
		{http.StatusBadRequest, apperr.Malformed},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		err := NewDiscordNotifier(srv.URL, time.Second).Notify(context.Background(), Message{}, event.Event{})
		srv.Close()
		assert.Equal(t, tt.want, apperr.KindOf(err), "status %d", tt.status)
	}
}

func TestDiscordNotifier_InvalidURL(t *testing.T) {
	n := NewDiscordNotifier("not a url", time.Second)
	err := n.Notify(context.Background(), Message{}, event.Event{})
	assert.Equal(t, apperr.Malformed, apperr.KindOf(err))
}

func TestDiscordNotifier_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewDiscordNotifier(url, time.Second).Notify(context.Background(), Message{}, event.Event{})
	assert.Equal(t, apperr.ServiceUnavailable, apperr.KindOf(err))
}

func TestEmailNotifier_Enabled(t *testing.T) {
	assert.False(t, NewEmailNotifier(config.EmailConfig{Server: "smtp.example.com"}, 0).Enabled())

	n := NewEmailNotifier(config.EmailConfig{Server: "smtp.example.com", User: "u", Password: "p", To: "a@example.com"}, 0)
	assert.True(t, n.Enabled())
	assert.Equal(t, "smtp.example.com:587", n.addr())
	assert.Equal(t, "u", n.from())
}

func TestEmailNotifier_Unreachable(t *testing.T) {
	n := NewEmailNotifier(config.EmailConfig{Server: "127.0.0.1", Port: 1, User: "u", Password: "p", To: "a@example.com"}, time.Second)
	err := n.Notify(context.Background(), Message{Title: "x"}, event.Event{})
	assert.Equal(t, apperr.ServiceUnavailable, apperr.KindOf(err))
}

func TestStartTLSConfig(t *testing.T) {
	cfg := startTLSConfig("smtp.example.com")
	assert.Equal(t, "smtp.example.com", cfg.ServerName)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
}

func TestBuildEmail(t *testing.T) {
	msg := Message{
		Title:     "Playback Started: Heat",
		Body:      "**bob** started playing **Heat**.",
		Timestamp: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	raw := string(buildEmail("from@example.com", "to@example.com", msg))

	assert.Contains(t, raw, "From: from@example.com\r\n")
	assert.Contains(t, raw, "To: to@example.com\r\n")
	assert.Contains(t, raw, "Subject: Jellyhook: Playback Started: Heat\r\n")
	assert.Contains(t, raw, "Content-Type: text/plain; charset=utf-8\r\n")
	assert.True(t, strings.HasSuffix(raw, "\r\n\r\nbob started playing Heat.\r\n"))
}

func TestSplitRecipients(t *testing.T) {
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, splitRecipients(" a@x.io, ,b@x.io "))
}

func TestDesktopNotifier(t *testing.T) {
	disabled := NewDesktopNotifier("jellyhook-no-such-command", true)
	assert.False(t, disabled.Enabled())
	assert.Error(t, disabled.Ping(context.Background()))

	assert.False(t, NewDesktopNotifier("", false).Enabled())

	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	n := NewDesktopNotifier("true", true)
	require.True(t, n.Enabled())
	assert.NoError(t, n.Notify(context.Background(), Message{Title: "t", Body: "b"}, event.Event{}))
}
