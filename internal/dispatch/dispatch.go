// Package dispatch runs one hook invocation end to end: route the event,
// fan notifications out, run the acquisition workflow and journal the
// result.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/activity"
	"github.com/Nomadcxx/jellyhook/internal/apperr"
	"github.com/Nomadcxx/jellyhook/internal/event"
	"github.com/Nomadcxx/jellyhook/internal/logging"
	"github.com/Nomadcxx/jellyhook/internal/notify"
	"github.com/Nomadcxx/jellyhook/internal/prefetch"
	"github.com/Nomadcxx/jellyhook/internal/router"
	"github.com/google/uuid"
)

const (
	ExitOK      = 0
	ExitFailure = 1
)

// DefaultTimeout bounds an invocation when Config.Timeout is unset.
const DefaultTimeout = 2 * time.Minute

// Fanout delivers a rendered message to every notification channel.
type Fanout interface {
	Notify(ctx context.Context, msg notify.Message, e event.Event) []notify.Outcome
}

// Workflow runs the acquisition side of an event.
type Workflow interface {
	Run(ctx context.Context, e event.Event) (*prefetch.Summary, error)
}

// Journal records handled invocations.
type Journal interface {
	Log(entry activity.Entry) error
}

var (
	_ Fanout   = (*notify.Manager)(nil)
	_ Workflow = (*prefetch.Planner)(nil)
	_ Journal  = (*activity.Logger)(nil)
)

// Result describes one handled invocation.
type Result struct {
	RunID     string
	Event     event.Event
	Reactions router.Set
	Missing   []string
	Outcomes  []notify.Outcome
	Summary   *prefetch.Summary
	// Err is the fatal workflow error, if any.
	Err      error
	ExitCode int
	Duration time.Duration
}

type Config struct {
	Notifier Fanout
	Workflow Workflow
	// Journal may be nil.
	Journal Journal
	Timeout time.Duration
	Logger  *logging.Logger
}

type Dispatcher struct {
	notifier Fanout
	workflow Workflow
	journal  Journal
	timeout  time.Duration
	logger   *logging.Logger
	stats    *Stats
	now      func() time.Time
}

func New(cfg Config) *Dispatcher {
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Dispatcher{
		notifier: cfg.Notifier,
		workflow: cfg.Workflow,
		journal:  cfg.Journal,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
		stats:    NewStats(),
		now:      time.Now,
	}
}

// Stats returns the counters shared by every invocation of d.
func (d *Dispatcher) Stats() *Stats {
	return d.stats
}

// Handle runs every reaction the router selects for e. Notifications and
// the acquisition workflow run side by side under one deadline.
func (d *Dispatcher) Handle(ctx context.Context, e event.Event) Result {
	start := d.now()
	res := Result{
		RunID:     uuid.NewString(),
		Event:     e,
		Reactions: router.Route(e),
	}
	log := d.logger.With(logging.F("run_id", res.RunID), logging.F("event_type", e.Type))

	if !router.Known(e.Type) {
		log.Debug("dispatch", "Unrecognized event type, notifying only")
	}
	res.Missing = e.Missing(event.Requirements(e.Type))
	if len(res.Missing) > 0 {
		log.Warn("dispatch", "Event is missing expected fields", logging.F("missing", res.Missing))
	}
	log.Info("dispatch", "Handling event",
		logging.F("transport", string(e.Source)),
		logging.F("reactions", res.Reactions.String()),
		logging.F("item", e.Item.Name))

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var wg sync.WaitGroup
	if res.Reactions.Has(router.Notify) && d.notifier != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.Outcomes = d.notifier.Notify(ctx, notify.Render(e), e)
		}()
	}
	if primary(res.Reactions) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res.Summary, res.Err = d.runWorkflow(ctx, e)
		}()
	}
	wg.Wait()

	res.ExitCode = exitCode(res)
	res.Duration = d.now().Sub(start)

	d.report(log, res)
	d.stats.record(res)
	d.journalResult(log, res, start)
	return res
}

func primary(set router.Set) bool {
	return set.Has(router.PrefetchEpisodes) || set.Has(router.UnmonitorMovie)
}

func (d *Dispatcher) runWorkflow(ctx context.Context, e event.Event) (sum *prefetch.Summary, err error) {
	if d.workflow == nil {
		return nil, apperr.New(apperr.Unauthorized, "dispatch", errors.New("acquisition workflow not configured"))
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("workflow panic: %v", r)
		}
	}()
	return d.workflow.Run(ctx, e)
}

// exitCode is non-zero when the primary workflow aborted or, for events
// that only notify, when every attempted channel failed.
func exitCode(res Result) int {
	if primary(res.Reactions) {
		if res.Err != nil {
			return ExitFailure
		}
		return ExitOK
	}
	if notify.AllFailed(res.Outcomes) {
		return ExitFailure
	}
	return ExitOK
}

func (d *Dispatcher) report(log *logging.Logger, res Result) {
	if res.Summary != nil {
		for _, ce := range res.Summary.Errors {
			log.Warn("dispatch", "Workflow call failed",
				logging.F("action", string(ce.Action)),
				logging.F("episode", ce.Ref),
				logging.F("kind", ce.Kind.String()),
				logging.F("error", errString(ce.Err)))
		}
	}
	if res.Err != nil {
		log.Error("dispatch", "Workflow aborted", res.Err, logging.F("kind", apperr.KindOf(res.Err).String()))
	}
	log.Info("dispatch", "Event handled",
		logging.F("exit_code", res.ExitCode),
		logging.F("duration_ms", res.Duration.Milliseconds()))
}

func (d *Dispatcher) journalResult(log *logging.Logger, res Result, start time.Time) {
	if d.journal == nil {
		return
	}
	if err := d.journal.Log(Entry(res, start)); err != nil {
		log.Warn("dispatch", "Failed to write activity entry", logging.F("error", err.Error()))
	}
}

// Entry converts a result into its activity journal form.
func Entry(res Result, start time.Time) activity.Entry {
	e := res.Event
	entry := activity.Entry{
		ID:         res.RunID,
		Timestamp:  start,
		EventType:  e.Type,
		Transport:  string(e.Source),
		User:       e.User,
		Item:       e.Item.Name,
		ItemType:   string(e.Item.Type),
		Missing:    res.Missing,
		ExitCode:   res.ExitCode,
		DurationMs: res.Duration.Milliseconds(),
	}
	if e.Item.Type == event.ItemEpisode && e.Item.SeriesName != "" {
		entry.Item = e.Item.SeriesName + " " + e.Item.EpisodeRef()
	}
	entry.Reactions = make([]string, 0, 3)
	for _, r := range res.Reactions.Reactions() {
		entry.Reactions = append(entry.Reactions, r.String())
	}
	for _, o := range res.Outcomes {
		ce := activity.ChannelEntry{Channel: o.Channel, OK: o.OK, DurationMs: o.Duration.Milliseconds()}
		if !o.OK {
			ce.Kind = o.Kind.String()
			ce.Error = errString(o.Err)
		}
		entry.Channels = append(entry.Channels, ce)
	}
	if s := res.Summary; s != nil && s.Kind != prefetch.KindUnsupported {
		pe := &activity.PrefetchEntry{
			Kind:             string(s.Kind),
			Title:            s.Title,
			WatchedFound:     s.WatchedFound,
			Wanted:           s.Wanted,
			Searched:         s.Searched,
			FutureMonitoring: s.FutureMonitoring,
			MovieUnmonitored: s.MovieUnmonitored,
		}
		if s.Kind == prefetch.KindEpisode {
			pe.Watched = s.WatchedRef()
		}
		for _, w := range s.Window {
			pe.Window = append(pe.Window, w.Ref())
		}
		for _, ce := range s.Errors {
			pe.Errors = append(pe.Errors, ce.Error())
		}
		entry.Prefetch = pe
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}
	return entry
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
