package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/acquisition"
	"github.com/Nomadcxx/jellyhook/internal/activity"
	"github.com/Nomadcxx/jellyhook/internal/event"
	"github.com/Nomadcxx/jellyhook/internal/logging"
	"github.com/Nomadcxx/jellyhook/internal/notify"
	"github.com/Nomadcxx/jellyhook/internal/prefetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("JELLYHOOK_HOME", t.TempDir())
	cfgFile, envFile, verbose = "", "", false
}

func TestEventEnvDropsConfigVariables(t *testing.T) {
	env := eventEnv([]string{
		"EVENT_TYPE=ItemAdded",
		"ITEM_NAME=a=b",
		"SONARR_APIKEY=secret",
		"SMTP_PASS=secret",
		"broken",
	})

	assert.Equal(t, "ItemAdded", env["EVENT_TYPE"])
	assert.Equal(t, "a=b", env["ITEM_NAME"])
	assert.NotContains(t, env, "SONARR_APIKEY")
	assert.NotContains(t, env, "SMTP_PASS")
	assert.NotContains(t, env, "broken")
}

func TestRunHookNotifiesDiscord(t *testing.T) {
	isolate(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()
	t.Setenv("JELLYHOOK_DISCORD_WEBHOOK_URL", srv.URL+"/api/webhooks/1/token")

	code, err := runHook(context.Background(), []string{`{"NotificationType":"ItemAdded","Name":"Heat","ItemType":"Movie"}`}, nil)

	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, int32(1), hits.Load())
}

func TestRunHookAllChannelsFailed(t *testing.T) {
	isolate(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	t.Setenv("JELLYHOOK_DISCORD_WEBHOOK_URL", srv.URL+"/api/webhooks/1/token")

	code, err := runHook(context.Background(), nil, []string{"EVENT_TYPE=UserCreated", "USER_NAME=bob"})

	require.NoError(t, err)
	assert.Equal(t, 1, code)
}

func TestRunHookPrefetchWithoutSonarr(t *testing.T) {
	isolate(t)

	code, err := runHook(context.Background(),
		[]string{`{"NotificationType":"PlaybackStart","ItemType":"Episode","SeriesName":"The Show","SeasonNumber":1,"EpisodeNumber":3}`}, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, code, "an unconfigured series manager aborts the prefetch workflow")
}

func TestRunHookInvalidConfig(t *testing.T) {
	isolate(t)
	t.Setenv("EPISODE_BUFFER", "0")

	code, err := runHook(context.Background(), nil, nil)

	require.Error(t, err)
	assert.Equal(t, 1, code)
}

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "jellyhook dev")
}

func TestHelpDescribesPositionalSchema(t *testing.T) {
	cmd := newRootCmd()
	assert.Contains(t, cmd.Long, "event_type user item_name item_id timestamp")

	e := event.Decode(event.Inputs{Args: []string{"ItemAdded", "alice", "Heat", "abc123", "2026-03-01T12:00:00Z"}, Now: time.Now})
	assert.Equal(t, "ItemAdded", e.Type)
	assert.Equal(t, "alice", e.User)
	assert.Equal(t, "Heat", e.Item.Name)
	assert.Equal(t, "abc123", e.Item.ID)
}

func TestTestConnectionsUnconfigured(t *testing.T) {
	var out bytes.Buffer
	err := testConnections(context.Background(), &out, acquisition.New(nil, nil), notify.NewManager(logging.Nop()))

	require.NoError(t, err)
	assert.Contains(t, out.String(), "not configured")
	assert.Contains(t, out.String(), "no channels configured")
}

func TestPrintSummary(t *testing.T) {
	sum := &prefetch.Summary{
		Kind:         prefetch.KindEpisode,
		Title:        "The Show",
		Season:       1,
		Episode:      3,
		CatalogSize:  10,
		WatchedFound: true,
		Window: []prefetch.WindowEntry{
			{Episode: acquisition.Episode{ID: 14, SeasonNumber: 1, EpisodeNumber: 4}, Wanted: true, Searched: true},
			{Episode: acquisition.Episode{ID: 15, SeasonNumber: 1, EpisodeNumber: 5, HasFile: true}, Skipped: prefetch.SkipHasFile},
		},
		Exhausted:        true,
		FutureMonitoring: true,
	}

	var out bytes.Buffer
	printSummary(&out, sum)

	s := out.String()
	assert.Contains(t, s, "Series: The Show")
	assert.Contains(t, s, "S01E03")
	assert.Contains(t, s, "S01E04")
	assert.Contains(t, s, "has_file")
	assert.Contains(t, s, "monitoring future episodes: yes")
}

func TestMasking(t *testing.T) {
	assert.Equal(t, "(not set)", maskAPIKey(""))
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "abcd...6789", maskAPIKey("abcdef0123456789"))
	assert.Equal(t, "https://discord.com/api/webhooks/1/****", maskURL("https://discord.com/api/webhooks/1/token"))
}

func TestWindowTableTotals(t *testing.T) {
	sum := &prefetch.Summary{
		Window: []prefetch.WindowEntry{
			{Episode: acquisition.Episode{ID: 14, SeasonNumber: 1, EpisodeNumber: 4}, Wanted: true, Searched: true},
			{Episode: acquisition.Episode{ID: 15, SeasonNumber: 1, EpisodeNumber: 5, Monitored: true}, Searched: true},
		},
		Wanted:   1,
		Searched: 2,
	}
	got := windowTable(sum)
	assert.Contains(t, got, "S01E05")
	assert.Contains(t, strings.ToUpper(got), "TOTAL")
}

func TestActivityTable(t *testing.T) {
	entries := []activity.Entry{
		{
			Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			EventType: "PlaybackStart",
			Item:      "Silo S01E02",
			Channels:  []activity.ChannelEntry{{Channel: "discord", OK: true}, {Channel: "email", OK: false}},
			Prefetch:  &activity.PrefetchEntry{Kind: "episode", Wanted: 6, Searched: 6, Errors: []string{"search S01E04: timeout"}},
			ExitCode:  0,
		},
		{
			Timestamp: time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
			EventType: "PlaybackStart",
			Item:      "Heat",
			Prefetch:  &activity.PrefetchEntry{Kind: "movie", MovieUnmonitored: true},
			ExitCode:  1,
		},
	}
	got := activityTable(entries)
	assert.Contains(t, got, "✓discord ✗email")
	assert.Contains(t, got, "6 wanted, 6 searched, 1 failed")
	assert.Contains(t, got, "unmonitored: yes")
}

func TestConnectionTable(t *testing.T) {
	got := connectionTable([]connectionCheck{
		{Target: "sonarr", Status: "✓ ok", Latency: 12 * time.Millisecond},
		{Target: "notifications", Status: "○ no channels configured"},
	})
	assert.Contains(t, got, "12ms")
	assert.Contains(t, got, "no channels configured")
}
