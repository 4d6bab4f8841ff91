package prefetch

import (
	"fmt"

	"github.com/Nomadcxx/jellyhook/internal/acquisition"
	"github.com/Nomadcxx/jellyhook/internal/apperr"
)

type Kind string

const (
	KindEpisode     Kind = "episode"
	KindMovie       Kind = "movie"
	KindUnsupported Kind = "unsupported"
)

// Action names a downstream mutation.
type Action string

const (
	ActionUnmonitor         Action = "unmonitor_watched"
	ActionWanted            Action = "set_wanted"
	ActionSearch            Action = "search"
	ActionMonitorFuture     Action = "monitor_future"
	ActionMonitorNewSeasons Action = "monitor_new_seasons"
	ActionUnmonitorMovie    Action = "unmonitor_movie"
)

// SkipHasFile marks a window entry left untouched because it is on disk.
const SkipHasFile = "has_file"

// CallError is a recorded, non-fatal downstream failure.
type CallError struct {
	Action    Action
	EpisodeID int
	Ref       string
	Kind      apperr.Kind
	Err       error
}

func (e CallError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s %s: %v", e.Action, e.Ref, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Action, e.Err)
}

// WindowEntry is one episode of the prefetch window and what happened to it.
type WindowEntry struct {
	acquisition.Episode
	Wanted   bool
	Searched bool
	Skipped  string
}

func (w WindowEntry) Ref() string {
	return episodeRef(w.SeasonNumber, w.EpisodeNumber)
}

type Summary struct {
	Kind   Kind
	Title  string
	Target acquisition.Target

	Season             int
	Episode            int
	CatalogSize        int
	WatchedFound       bool
	WatchedUnmonitored bool

	Window    []WindowEntry
	Wanted    int
	Searched  int
	Exhausted bool

	FutureMonitoring    bool
	NewSeasonsMonitored bool
	MovieUnmonitored    bool

	Errors []CallError
}

// WatchedRef formats the watched episode as S01E03.
func (s *Summary) WatchedRef() string {
	return episodeRef(s.Season, s.Episode)
}

func (s *Summary) record(action Action, ep acquisition.Episode, err error) {
	ce := CallError{Action: action, Kind: apperr.KindOf(err), Err: err}
	if ep.ID != 0 {
		ce.EpisodeID = ep.ID
		ce.Ref = episodeRef(ep.SeasonNumber, ep.EpisodeNumber)
	}
	s.Errors = append(s.Errors, ce)
}

func episodeRef(season, episode int) string {
	return fmt.Sprintf("S%02dE%02d", season, episode)
}
