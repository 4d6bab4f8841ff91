// Package acquisition is the typed facade the prefetch planner uses to
// talk to Sonarr and Radarr.
package acquisition

import (
	"context"
	"sort"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/apperr"
	"github.com/Nomadcxx/jellyhook/internal/config"
	"github.com/Nomadcxx/jellyhook/internal/logging"
	"github.com/Nomadcxx/jellyhook/internal/radarr"
	"github.com/Nomadcxx/jellyhook/internal/sonarr"
)

// Service identifies which manager owns a target.
type Service int

const (
	Series Service = iota
	Movie
)

func (s Service) String() string {
	if s == Movie {
		return "radarr"
	}
	return "sonarr"
}

// Target is a series or movie known to an acquisition service.
// InternalID is resolved lazily and is only valid for one planner run.
type Target struct {
	Service    Service
	ExternalID int
	InternalID *int
}

// Episode is one catalog entry of a series.
type Episode struct {
	ID            int
	SeasonNumber  int
	EpisodeNumber int
	HasFile       bool
	Monitored     bool
}

// Client wraps the Sonarr and Radarr clients. A nil underlying client
// means the service is not configured.
type Client struct {
	sonarr *sonarr.Client
	radarr *radarr.Client
}

// New builds a Client from already constructed service clients. Either
// may be nil.
func New(s *sonarr.Client, r *radarr.Client) *Client {
	return &Client{sonarr: s, radarr: r}
}

// NewFromConfig builds clients for every configured service, each behind
// its own circuit breaker.
func NewFromConfig(cfg *config.Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Nop()
	}
	onChange := func(name, from, to string) {
		logger.Warn("acquisition", "Circuit breaker state changed",
			logging.F("service", name), logging.F("from", from), logging.F("to", to))
	}

	c := &Client{}
	if cfg.Sonarr.Configured() {
		c.sonarr = sonarr.NewClient(sonarr.Config{
			URL:     cfg.Sonarr.URL,
			APIKey:  cfg.Sonarr.APIKey,
			Timeout: cfg.Sonarr.Timeout(),
			Breaker: apperr.NewBreaker(apperr.BreakerSettings{Name: "sonarr", OnStateChange: onChange}),
		})
	}
	if cfg.Radarr.Configured() {
		c.radarr = radarr.NewClient(radarr.Config{
			URL:     cfg.Radarr.URL,
			APIKey:  cfg.Radarr.APIKey,
			Timeout: cfg.Radarr.Timeout(),
			Breaker: apperr.NewBreaker(apperr.BreakerSettings{Name: "radarr", OnStateChange: onChange}),
		})
	}
	return c
}

// Configured reports whether s has both URL and API key.
func (c *Client) Configured(s Service) bool {
	if s == Movie {
		return c.radarr != nil
	}
	return c.sonarr != nil
}

func notConfigured(s Service, op string) error {
	return apperr.Errorf(apperr.Unauthorized, op, "%s url or api key not configured", s)
}

func (c *Client) series(op string) (*sonarr.Client, error) {
	if c.sonarr == nil {
		return nil, notConfigured(Series, op)
	}
	return c.sonarr, nil
}

func (c *Client) movies(op string) (*radarr.Client, error) {
	if c.radarr == nil {
		return nil, notConfigured(Movie, op)
	}
	return c.radarr, nil
}

// ResolveSeries returns the TVDB id of the first lookup match for query.
func (c *Client) ResolveSeries(ctx context.Context, query string) (int, error) {
	const op = "resolve series"
	s, err := c.series(op)
	if err != nil {
		return 0, err
	}
	results, err := s.LookupSeries(ctx, query)
	if err != nil {
		return 0, err
	}
	if len(results) == 0 || results[0].TvdbID == 0 {
		return 0, apperr.Errorf(apperr.NotFound, op, "no series matches %q", query)
	}
	return results[0].TvdbID, nil
}

// ResolveSeriesInternalID maps a TVDB id to the Sonarr library id.
func (c *Client) ResolveSeriesInternalID(ctx context.Context, externalID int) (int, error) {
	s, err := c.series("resolve series id")
	if err != nil {
		return 0, err
	}
	series, err := s.GetSeriesByTvdbID(ctx, externalID)
	if err != nil {
		return 0, err
	}
	return series.ID, nil
}

// ListEpisodes returns the catalog ordered by (season, episode).
func (c *Client) ListEpisodes(ctx context.Context, seriesID int) ([]Episode, error) {
	s, err := c.series("list episodes")
	if err != nil {
		return nil, err
	}
	raw, err := s.GetEpisodes(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	episodes := make([]Episode, 0, len(raw))
	for _, ep := range raw {
		episodes = append(episodes, Episode{
			ID:            ep.ID,
			SeasonNumber:  ep.SeasonNumber,
			EpisodeNumber: ep.EpisodeNumber,
			HasFile:       ep.HasFile,
			Monitored:     ep.Monitored,
		})
	}
	sort.SliceStable(episodes, func(i, j int) bool {
		if episodes[i].SeasonNumber != episodes[j].SeasonNumber {
			return episodes[i].SeasonNumber < episodes[j].SeasonNumber
		}
		return episodes[i].EpisodeNumber < episodes[j].EpisodeNumber
	})
	return episodes, nil
}

func (c *Client) SetEpisodesMonitored(ctx context.Context, ids []int, monitored bool) error {
	s, err := c.series("set episodes monitored")
	if err != nil {
		return err
	}
	return s.SetEpisodesMonitored(ctx, ids, monitored)
}

// SearchEpisode queues a search and returns without waiting for it.
func (c *Client) SearchEpisode(ctx context.Context, id int) error {
	s, err := c.series("search episode")
	if err != nil {
		return err
	}
	_, err = s.EpisodeSearch(ctx, []int{id})
	return err
}

func (c *Client) MonitorFutureEpisodes(ctx context.Context, seriesID int) error {
	s, err := c.series("monitor future episodes")
	if err != nil {
		return err
	}
	return s.MonitorFutureEpisodes(ctx, seriesID)
}

func (c *Client) MonitorNewSeasons(ctx context.Context, seriesID int) error {
	s, err := c.series("monitor new seasons")
	if err != nil {
		return err
	}
	return s.MonitorNewSeasons(ctx, seriesID)
}

// ResolveMovie returns the library id of the first lookup result that is
// already in the library.
func (c *Client) ResolveMovie(ctx context.Context, query string) (int, error) {
	const op = "resolve movie"
	r, err := c.movies(op)
	if err != nil {
		return 0, err
	}
	results, err := r.LookupMovie(ctx, query)
	if err != nil {
		return 0, err
	}
	for _, m := range results {
		if m.ID > 0 {
			return m.ID, nil
		}
	}
	return 0, apperr.Errorf(apperr.NotFound, op, "no library movie matches %q", query)
}

func (c *Client) SetMovieMonitored(ctx context.Context, id int, monitored bool) error {
	r, err := c.movies("set movie monitored")
	if err != nil {
		return err
	}
	return r.SetMoviesMonitored(ctx, []int{id}, monitored)
}

// Ping checks one service.
func (c *Client) Ping(ctx context.Context, s Service) error {
	op := "ping " + s.String()
	if s == Movie {
		r, err := c.movies(op)
		if err != nil {
			return err
		}
		return r.Ping(ctx)
	}
	sc, err := c.series(op)
	if err != nil {
		return err
	}
	return sc.Ping(ctx)
}

// PingResult is one row of PingAll.
type PingResult struct {
	Service  Service
	Err      error
	Duration time.Duration
}

// PingAll pings both services in order, reporting unconfigured ones as
// Unauthorized errors.
func (c *Client) PingAll(ctx context.Context) []PingResult {
	out := make([]PingResult, 0, 2)
	for _, s := range []Service{Series, Movie} {
		start := time.Now()
		err := c.Ping(ctx, s)
		out = append(out, PingResult{Service: s, Err: err, Duration: time.Since(start)})
	}
	return out
}
