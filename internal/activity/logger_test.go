package activity

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestNewLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "activity")

	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.GetLogDir() != dir {
		t.Errorf("expected log dir %s, got %s", dir, logger.GetLogDir())
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("log dir not created: %v", err)
	}
}

func TestLogEntry(t *testing.T) {
	logger, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	entry := Entry{
		EventType: "PlaybackStop",
		Transport: "json",
		User:      "alice",
		Item:      "The Show S01E02",
		ItemType:  "Episode",
		Reactions: []string{"notify", "prefetch_episodes"},
		Channels: []ChannelEntry{
			{Channel: "discord", OK: true, DurationMs: 12},
		},
		Prefetch: &PrefetchEntry{
			Kind:     "episode",
			Title:    "The Show",
			Watched:  "S01E02",
			Window:   []string{"S01E03", "S01E04"},
			Wanted:   2,
			Searched: 2,
		},
		DurationMs: 40,
	}

	if err := logger.Log(entry); err != nil {
		t.Fatalf("failed to log entry: %v", err)
	}

	entries, _ := os.ReadDir(logger.GetLogDir())

	var logFile string
	for _, f := range entries {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".jsonl") {
			logFile = filepath.Join(logger.GetLogDir(), f.Name())
			break
		}
	}

	if logFile == "" {
		t.Fatal("no log file found")
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatal(err)
	}

	var parsed Entry
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &parsed); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}

	if parsed.ID == "" {
		t.Error("expected run id to be assigned")
	}
	if parsed.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
	if parsed.EventType != "PlaybackStop" {
		t.Errorf("expected event type PlaybackStop, got %s", parsed.EventType)
	}
	if parsed.Prefetch == nil || parsed.Prefetch.Wanted != 2 {
		t.Errorf("expected prefetch summary with 2 wanted, got %+v", parsed.Prefetch)
	}
	if len(parsed.Channels) != 1 || !parsed.Channels[0].OK {
		t.Errorf("expected one successful channel, got %+v", parsed.Channels)
	}
}

func TestLogKeepsExplicitID(t *testing.T) {
	logger, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	if err := logger.Log(Entry{ID: "run-1", EventType: "ItemAdded"}); err != nil {
		t.Fatal(err)
	}

	recent, err := logger.GetRecentEntries(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].ID != "run-1" {
		t.Errorf("expected entry run-1, got %+v", recent)
	}
}

func TestGetRecentEntries(t *testing.T) {
	logger, err := NewLogger(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	for _, eventType := range []string{"ItemAdded", "PlaybackStart", "PlaybackStop"} {
		if err := logger.Log(Entry{EventType: eventType}); err != nil {
			t.Fatal(err)
		}
	}

	recent, err := logger.GetRecentEntries(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].EventType != "PlaybackStop" || recent[1].EventType != "PlaybackStart" {
		t.Errorf("expected newest first, got %s then %s", recent[0].EventType, recent[1].EventType)
	}
}

func TestGetRecentEntriesSkipsCorruptLines(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	content := `{"id":"a","event_type":"ItemAdded"}
not json
{"id":"b","event_type":"PlaybackStop"}
`
	if err := os.WriteFile(filepath.Join(dir, "activity-2024-01-01.jsonl"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	recent, err := logger.GetRecentEntries(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].ID != "b" {
		t.Errorf("expected newest entry b first, got %s", recent[0].ID)
	}
}

func TestRotatesOnDateChange(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	day := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	logger.now = func() time.Time { return day }
	if err := logger.Log(Entry{EventType: "ItemAdded"}); err != nil {
		t.Fatal(err)
	}

	day = day.Add(2 * time.Minute)
	if err := logger.Log(Entry{EventType: "ItemAdded"}); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"activity-2024-03-01.jsonl", "activity-2024-03-02.jsonl"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
}

func TestPruneOld(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()

	now := time.Date(2024, 6, 30, 12, 0, 0, 0, time.UTC)
	logger.now = func() time.Time { return now }

	oldDate := now.AddDate(0, 0, -10).Format("2006-01-02")
	oldFile := filepath.Join(dir, "activity-"+oldDate+".jsonl")
	if err := os.WriteFile(oldFile, []byte(`{"event_type":"old"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	recentDate := now.AddDate(0, 0, -2).Format("2006-01-02")
	recentFile := filepath.Join(dir, "activity-"+recentDate+".jsonl")
	if err := os.WriteFile(recentFile, []byte(`{"event_type":"recent"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	removed, err := logger.PruneOld(7)
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 file removed, got %d", removed)
	}

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("old file should have been pruned")
	}
	if _, err := os.Stat(recentFile); err != nil {
		t.Error("recent file should still exist")
	}

	if n, _ := logger.PruneOld(0); n != 0 {
		t.Errorf("retention 0 should keep everything, removed %d", n)
	}
}
