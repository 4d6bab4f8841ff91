// Package prefetch keeps the next few episodes of a series wanted while
// someone is watching it, and stops chasing movies once they are watched.
package prefetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/acquisition"
	"github.com/Nomadcxx/jellyhook/internal/apperr"
	"github.com/Nomadcxx/jellyhook/internal/config"
	"github.com/Nomadcxx/jellyhook/internal/event"
	"github.com/Nomadcxx/jellyhook/internal/logging"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Acquirer is the subset of the acquisition client the planner drives.
type Acquirer interface {
	ResolveSeries(ctx context.Context, query string) (int, error)
	ResolveSeriesInternalID(ctx context.Context, externalID int) (int, error)
	ListEpisodes(ctx context.Context, seriesID int) ([]acquisition.Episode, error)
	SetEpisodesMonitored(ctx context.Context, ids []int, monitored bool) error
	SearchEpisode(ctx context.Context, id int) error
	MonitorFutureEpisodes(ctx context.Context, seriesID int) error
	MonitorNewSeasons(ctx context.Context, seriesID int) error
	ResolveMovie(ctx context.Context, query string) (int, error)
	SetMovieMonitored(ctx context.Context, id int, monitored bool) error
}

var _ Acquirer = (*acquisition.Client)(nil)

type Options struct {
	BufferSize                int
	SetWanted                 bool
	AutoSearch                bool
	MonitorFutureOnExhaustion bool
	MonitorNewSeasons         bool

	Workers       int
	RatePerSecond float64
	// Retries is how many times a ServiceUnavailable failure while
	// resolving the series or fetching the catalog is retried.
	Retries       int
	RetryInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		BufferSize:                6,
		SetWanted:                 true,
		AutoSearch:                true,
		MonitorFutureOnExhaustion: true,
		Workers:                   3,
		RatePerSecond:             5,
		Retries:                   2,
		RetryInterval:             500 * time.Millisecond,
	}
}

// OptionsFromConfig converts the prefetch config section.
func OptionsFromConfig(c config.PrefetchConfig) Options {
	o := DefaultOptions()
	o.BufferSize = c.BufferSize
	o.SetWanted = c.SetWanted
	o.AutoSearch = c.AutoSearch
	o.MonitorFutureOnExhaustion = c.MonitorFutureOnExhaustion
	o.MonitorNewSeasons = c.MonitorNewSeasons
	o.Workers = c.Workers
	o.RatePerSecond = c.RatePerSecond
	o.Retries = c.Retries
	return o
}

func (o Options) normalized() Options {
	d := DefaultOptions()
	if o.BufferSize < 0 {
		o.BufferSize = 0
	}
	if o.Workers <= 0 {
		o.Workers = d.Workers
	}
	if o.RatePerSecond <= 0 {
		o.RatePerSecond = d.RatePerSecond
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = d.RetryInterval
	}
	return o
}

type Planner struct {
	acq    Acquirer
	opts   Options
	logger *logging.Logger
}

func New(acq Acquirer, opts Options, logger *logging.Logger) *Planner {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Planner{acq: acq, opts: opts.normalized(), logger: logger}
}

// Options returns the effective options.
func (p *Planner) Options() Options {
	return p.opts
}

// Run executes the workflow matching the event's item type. A returned
// error means the workflow aborted; per-call failures after that point
// are collected in Summary.Errors instead.
func (p *Planner) Run(ctx context.Context, e event.Event) (*Summary, error) {
	switch e.Item.Type {
	case event.ItemEpisode:
		return p.RunEpisode(ctx, e.Item.SeriesName, e.Item.SeasonNumber, e.Item.EpisodeNumber)
	case event.ItemMovie:
		return p.RunMovie(ctx, e.Item.Name)
	default:
		return &Summary{Kind: KindUnsupported}, apperr.Errorf(apperr.Malformed, "prefetch",
			"item type %q is neither an episode nor a movie", e.Item.Type)
	}
}

// RunEpisode prefetches the episodes following season/episode of series.
func (p *Planner) RunEpisode(ctx context.Context, series string, season, episode *int) (*Summary, error) {
	sum := &Summary{Kind: KindEpisode, Title: series}

	if series == "" || season == nil || episode == nil {
		return sum, apperr.Errorf(apperr.Malformed, "prefetch",
			"episode event needs series name, season and episode number")
	}
	sum.Season, sum.Episode = *season, *episode

	log := p.logger.With(logging.F("series", series), logging.F("watched", sum.WatchedRef()))

	// Steps 1 and 2 are fatal.
	var externalID, internalID int
	err := p.retry(ctx, "resolve series", func() (err error) {
		externalID, err = p.acq.ResolveSeries(ctx, series)
		return err
	})
	if err != nil {
		log.Warn("prefetch", "Series not resolved, aborting", logging.F("kind", apperr.KindOf(err).String()))
		return sum, fmt.Errorf("series %q not found: %w", series, err)
	}
	err = p.retry(ctx, "resolve series id", func() (err error) {
		internalID, err = p.acq.ResolveSeriesInternalID(ctx, externalID)
		return err
	})
	if err != nil {
		log.Warn("prefetch", "Series not in library, aborting", logging.F("tvdb_id", externalID))
		return sum, fmt.Errorf("series %q not found: %w", series, err)
	}
	sum.Target = acquisition.Target{Service: acquisition.Series, ExternalID: externalID, InternalID: &internalID}

	var catalog []acquisition.Episode
	err = p.retry(ctx, "list episodes", func() (err error) {
		catalog, err = p.acq.ListEpisodes(ctx, internalID)
		return err
	})
	if err != nil {
		log.Error("prefetch", "Catalog fetch failed, aborting", err, logging.F("series_id", internalID))
		return sum, fmt.Errorf("fetching catalog for %q: %w", series, err)
	}
	sum.CatalogSize = len(catalog)

	// Step 3: locate and unmonitor the watched episode.
	idx := locate(catalog, *season, *episode)
	if n := countMatches(catalog, *season, *episode); n > 1 {
		log.Warn("prefetch", "Ambiguous catalog entry, using the first match", logging.F("matches", n))
	}
	if idx >= 0 {
		sum.WatchedFound = true
		watched := catalog[idx]
		// The snapshot may be stale under concurrent runs; the PUT is idempotent.
		if err := p.acq.SetEpisodesMonitored(ctx, []int{watched.ID}, false); err != nil {
			sum.record(ActionUnmonitor, watched, err)
		} else {
			sum.WatchedUnmonitored = true
		}
	} else {
		log.Info("prefetch", "Watched episode not in catalog", logging.F("catalog_size", len(catalog)))
	}

	// Step 4: the window.
	if idx >= 0 {
		end := idx + 1 + p.opts.BufferSize
		if end > len(catalog) {
			end = len(catalog)
		}
		for _, ep := range catalog[idx+1 : end] {
			sum.Window = append(sum.Window, WindowEntry{Episode: ep})
		}
	}

	// Step 5.
	p.applyWindow(ctx, sum)

	// Step 6: exhaustion.
	if len(sum.Window) < p.opts.BufferSize {
		sum.Exhausted = true
		if p.opts.MonitorFutureOnExhaustion {
			if err := p.acq.MonitorFutureEpisodes(ctx, internalID); err != nil {
				sum.record(ActionMonitorFuture, acquisition.Episode{}, err)
			} else {
				sum.FutureMonitoring = true
			}
		}
		if p.opts.MonitorNewSeasons {
			if err := p.acq.MonitorNewSeasons(ctx, internalID); err != nil {
				sum.record(ActionMonitorNewSeasons, acquisition.Episode{}, err)
			} else {
				sum.NewSeasonsMonitored = true
			}
		}
	}

	log.Info("prefetch", "Prefetch complete",
		logging.F("window", len(sum.Window)),
		logging.F("wanted", sum.Wanted),
		logging.F("searched", sum.Searched),
		logging.F("future_monitoring", sum.FutureMonitoring),
		logging.F("errors", len(sum.Errors)))
	return sum, nil
}

// applyWindow marks and searches window entries on a bounded, rate
// limited worker pool. Entries with a file are left alone. Entries that
// are already monitored are still searched but not marked again.
func (p *Planner) applyWindow(ctx context.Context, sum *Summary) {
	if !p.opts.SetWanted && !p.opts.AutoSearch {
		return
	}

	limiter := rate.NewLimiter(rate.Limit(p.opts.RatePerSecond), p.opts.Workers)
	var g errgroup.Group
	g.SetLimit(p.opts.Workers)

	var mu sync.Mutex
	record := func(action Action, ep acquisition.Episode, err error) {
		mu.Lock()
		defer mu.Unlock()
		sum.record(action, ep, err)
	}

	call := func(action Action, ep acquisition.Episode, fn func() error) bool {
		if err := limiter.Wait(ctx); err != nil {
			record(action, ep, apperr.New(apperr.ServiceUnavailable, string(action), err))
			return false
		}
		if err := fn(); err != nil {
			record(action, ep, err)
			return false
		}
		return true
	}

	for i := range sum.Window {
		entry := &sum.Window[i]
		if entry.HasFile {
			entry.Skipped = SkipHasFile
			continue
		}

		g.Go(func() error {
			ep := entry.Episode
			if p.opts.SetWanted && !ep.Monitored {
				entry.Wanted = call(ActionWanted, ep, func() error {
					return p.acq.SetEpisodesMonitored(ctx, []int{ep.ID}, true)
				})
			}
			if p.opts.AutoSearch {
				entry.Searched = call(ActionSearch, ep, func() error {
					return p.acq.SearchEpisode(ctx, ep.ID)
				})
			}
			return nil
		})
	}
	g.Wait()

	for _, entry := range sum.Window {
		if entry.Wanted {
			sum.Wanted++
		}
		if entry.Searched {
			sum.Searched++
		}
	}
}

// RunMovie resolves title in Radarr and unmonitors it.
func (p *Planner) RunMovie(ctx context.Context, title string) (*Summary, error) {
	sum := &Summary{Kind: KindMovie, Title: title}
	if title == "" {
		return sum, apperr.Errorf(apperr.Malformed, "unmonitor movie", "movie event has no title")
	}

	var id int
	err := p.retry(ctx, "resolve movie", func() (err error) {
		id, err = p.acq.ResolveMovie(ctx, title)
		return err
	})
	if err != nil {
		p.logger.Warn("prefetch", "Movie not resolved", logging.F("title", title), logging.F("kind", apperr.KindOf(err).String()))
		return sum, fmt.Errorf("movie %q not found: %w", title, err)
	}
	sum.Target = acquisition.Target{Service: acquisition.Movie, ExternalID: id, InternalID: &id}

	if err := p.acq.SetMovieMonitored(ctx, id, false); err != nil {
		sum.record(ActionUnmonitorMovie, acquisition.Episode{}, err)
		return sum, fmt.Errorf("unmonitoring movie %q: %w", title, err)
	}
	sum.MovieUnmonitored = true

	p.logger.Info("prefetch", "Movie unmonitored", logging.F("title", title), logging.F("movie_id", id))
	return sum, nil
}

// retry runs fn, retrying ServiceUnavailable failures with exponential
// backoff. Every other kind is returned immediately.
func (p *Planner) retry(ctx context.Context, op string, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.opts.RetryInterval
	b.MaxElapsedTime = 0

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn()
		if err == nil {
			return nil
		}
		if apperr.KindOf(err) != apperr.ServiceUnavailable || errors.Is(err, context.Canceled) {
			return backoff.Permanent(err)
		}
		p.logger.Debug("prefetch", "Retrying after unavailable service",
			logging.F("op", op), logging.F("attempt", attempt), logging.F("error", err.Error()))
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.opts.Retries)), ctx))
}

func locate(catalog []acquisition.Episode, season, episode int) int {
	for i, ep := range catalog {
		if ep.SeasonNumber == season && ep.EpisodeNumber == episode {
			return i
		}
	}
	return -1
}

func countMatches(catalog []acquisition.Episode, season, episode int) int {
	n := 0
	for _, ep := range catalog {
		if ep.SeasonNumber == season && ep.EpisodeNumber == episode {
			n++
		}
	}
	return n
}
