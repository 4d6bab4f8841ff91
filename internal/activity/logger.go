// Package activity keeps a JSONL journal of handled invocations, one
// file per day.
package activity

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ChannelEntry is one notification attempt.
type ChannelEntry struct {
	Channel    string `json:"channel"`
	OK         bool   `json:"ok"`
	Kind       string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMs int64  `json:"duration_ms"`
}

// PrefetchEntry summarizes a planner run.
type PrefetchEntry struct {
	Kind             string   `json:"kind"`
	Title            string   `json:"title"`
	Watched          string   `json:"watched,omitempty"`
	WatchedFound     bool     `json:"watched_found"`
	Window           []string `json:"window,omitempty"`
	Wanted           int      `json:"wanted"`
	Searched         int      `json:"searched"`
	FutureMonitoring bool     `json:"future_monitoring"`
	MovieUnmonitored bool     `json:"movie_unmonitored,omitempty"`
	Errors           []string `json:"errors,omitempty"`
}

type Entry struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"ts"`
	EventType  string         `json:"event_type"`
	Transport  string         `json:"transport"`
	User       string         `json:"user,omitempty"`
	Item       string         `json:"item,omitempty"`
	ItemType   string         `json:"item_type,omitempty"`
	Reactions  []string       `json:"reactions"`
	Channels   []ChannelEntry `json:"channels,omitempty"`
	Prefetch   *PrefetchEntry `json:"prefetch,omitempty"`
	Missing    []string       `json:"missing_fields,omitempty"`
	ExitCode   int            `json:"exit_code"`
	DurationMs int64          `json:"duration_ms"`
	Error      string         `json:"error,omitempty"`
}

type Logger struct {
	mu          sync.Mutex
	logDir      string
	currentFile *os.File
	currentDate string
	now         func() time.Time
}

// NewLogger journals into logDir, creating it if needed.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	return &Logger{
		logDir: logDir,
		now:    time.Now,
	}, nil
}

// Log appends entry to today's file. A missing ID or timestamp is filled in.
func (l *Logger) Log(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	today := l.now().Format("2006-01-02")
	if l.currentDate != today || l.currentFile == nil {
		if err := l.rotateFile(today); err != nil {
			return err
		}
	}

	_, err = l.currentFile.Write(append(line, '\n'))
	return err
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentFile != nil {
		err := l.currentFile.Close()
		l.currentFile = nil
		return err
	}
	return nil
}

// PruneOld removes journal files older than retentionDays. Zero keeps
// everything.
func (l *Logger) PruneOld(retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := l.now().AddDate(0, 0, -retentionDays)

	files, err := l.journalFiles()
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, name := range files {
		date := strings.TrimSuffix(strings.TrimPrefix(name, "activity-"), ".jsonl")
		fileDate, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		if fileDate.Before(cutoff) {
			if err := os.Remove(filepath.Join(l.logDir, name)); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (l *Logger) rotateFile(date string) error {
	if l.currentFile != nil {
		l.currentFile.Close()
		l.currentFile = nil
	}

	filePath := filepath.Join(l.logDir, "activity-"+date+".jsonl")

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	l.currentFile = file
	l.currentDate = date

	return nil
}

func (l *Logger) GetLogDir() string {
	return l.logDir
}

// journalFiles lists journal file names sorted oldest first.
func (l *Logger) journalFiles() ([]string, error) {
	entries, err := os.ReadDir(l.logDir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), "activity-") && strings.HasSuffix(entry.Name(), ".jsonl") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// GetRecentEntries returns the most recent activity entries, up to limit.
// Entries are returned in reverse chronological order (newest first).
func (l *Logger) GetRecentEntries(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	logFiles, err := l.journalFiles()
	if err != nil {
		return nil, err
	}

	var results []Entry
	for i := len(logFiles) - 1; i >= 0; i-- {
		fileEntries, err := readEntriesFromFile(filepath.Join(l.logDir, logFiles[i]))
		if err != nil {
			continue
		}

		for j := len(fileEntries) - 1; j >= 0; j-- {
			results = append(results, fileEntries[j])
			if len(results) >= limit {
				return results, nil
			}
		}
	}

	return results, nil
}

func readEntriesFromFile(filePath string) ([]Entry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	scanner := NewJSONLScanner(file)
	for scanner.Scan() {
		var entry Entry
		if err := scanner.Entry(&entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, scanner.Err()
}

// JSONLScanner scans a JSONL file line by line
type JSONLScanner struct {
	scanner *bufio.Scanner
	entry   []byte
	err     error
}

func NewJSONLScanner(r io.Reader) *JSONLScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &JSONLScanner{scanner: s}
}

// Scan advances to the next entry
func (s *JSONLScanner) Scan() bool {
	if s.scanner.Scan() {
		s.entry = s.scanner.Bytes()
		return true
	}
	s.err = s.scanner.Err()
	return false
}

// Entry unmarshals the current entry into the provided value
func (s *JSONLScanner) Entry(v interface{}) error {
	return json.Unmarshal(s.entry, v)
}

func (s *JSONLScanner) Err() error {
	return s.err
}
