package notify

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/apperr"
	"github.com/Nomadcxx/jellyhook/internal/event"
	"github.com/goccy/go-json"
)

// DiscordNotifier posts embeds to a Discord-style webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
}

func NewDiscordNotifier(webhookURL string, timeout time.Duration) *DiscordNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DiscordNotifier{
		webhookURL: strings.TrimSpace(webhookURL),
		client:     &http.Client{Timeout: timeout},
	}
}

func (n *DiscordNotifier) Name() string {
	return "discord"
}

func (n *DiscordNotifier) Enabled() bool {
	return n.webhookURL != ""
}

// Ping checks the webhook URL with a GET, which Discord answers with the
// webhook's metadata.
func (n *DiscordNotifier) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.webhookURL, nil)
	if err != nil {
		return apperr.New(apperr.Malformed, "discord ping", err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return apperr.Transport("discord ping", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if kind := apperr.FromStatus(resp.StatusCode); kind != apperr.Unknown {
		return apperr.Errorf(kind, "discord ping", "status %d", resp.StatusCode)
	}
	return nil
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Color       int            `json:"color"`
	Timestamp   string         `json:"timestamp,omitempty"`
	Fields      []discordField `json:"fields,omitempty"`
}

type discordField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

func buildDiscordPayload(msg Message) discordPayload {
	embed := discordEmbed{
		Title:       msg.Title,
		Description: msg.Body,
		Color:       msg.Color,
	}
	if !msg.Timestamp.IsZero() {
		embed.Timestamp = msg.Timestamp.UTC().Format(time.RFC3339)
	}
	for _, f := range msg.Fields {
		value := f.Value
		if value == "" {
			// Discord rejects empty field values.
			value = "-"
		}
		embed.Fields = append(embed.Fields, discordField{Name: f.Name, Value: value, Inline: f.Inline})
	}
	return discordPayload{Embeds: []discordEmbed{embed}}
}

func (n *DiscordNotifier) Notify(ctx context.Context, msg Message, _ event.Event) error {
	const op = "discord notify"

	body, err := json.Marshal(buildDiscordPayload(msg))
	if err != nil {
		return apperr.New(apperr.Malformed, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return apperr.New(apperr.Malformed, op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return apperr.Transport(op, err)
	}
	defer resp.Body.Close()

	if kind := apperr.FromStatus(resp.StatusCode); kind != apperr.Unknown {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperr.Errorf(kind, op, "status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

var _ Notifier = (*DiscordNotifier)(nil)
