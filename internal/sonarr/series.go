package sonarr

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Nomadcxx/jellyhook/internal/apperr"
)

// LookupSeries searches the metadata provider for term.
func (c *Client) LookupSeries(ctx context.Context, term string) ([]Series, error) {
	var series []Series
	q := url.Values{"term": {term}}
	if err := c.get(ctx, "sonarr series lookup", "/api/v3/series/lookup", q, &series); err != nil {
		return nil, err
	}
	return series, nil
}

// GetSeriesByTvdbID returns the library series with the given TVDB id.
func (c *Client) GetSeriesByTvdbID(ctx context.Context, tvdbID int) (*Series, error) {
	const op = "sonarr series by tvdb"
	var series []Series
	q := url.Values{"tvdbId": {strconv.Itoa(tvdbID)}}
	if err := c.get(ctx, op, "/api/v3/series", q, &series); err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, apperr.Errorf(apperr.NotFound, op, "no series found with tvdb ID %d", tvdbID)
	}
	return &series[0], nil
}

func (c *Client) GetEpisodes(ctx context.Context, seriesID int) ([]Episode, error) {
	var episodes []Episode
	q := url.Values{"seriesId": {strconv.Itoa(seriesID)}}
	if err := c.get(ctx, "sonarr episodes", "/api/v3/episode", q, &episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}

// SetEpisodesMonitored flips the monitored flag of every id in one call.
func (c *Client) SetEpisodesMonitored(ctx context.Context, episodeIDs []int, monitored bool) error {
	body := EpisodesMonitoredResource{EpisodeIDs: episodeIDs, Monitored: monitored}
	return c.put(ctx, "sonarr episode monitor", "/api/v3/episode/monitor", body, nil)
}

// MonitorFutureEpisodes switches the series to monitor episodes that have
// not aired yet.
func (c *Client) MonitorFutureEpisodes(ctx context.Context, seriesID int) error {
	body := SeasonPassResource{
		Series:            []SeasonPassSeries{{ID: seriesID}},
		MonitoringOptions: MonitoringOptions{Monitor: "future"},
	}
	return c.post(ctx, "sonarr season pass", "/api/v3/seasonPass", body, nil)
}

// MonitorNewSeasons marks the series monitored with monitorNewItems=all.
// The full resource is round-tripped so fields this client does not model
// are preserved.
func (c *Client) MonitorNewSeasons(ctx context.Context, seriesID int) error {
	const op = "sonarr monitor new seasons"
	endpoint := fmt.Sprintf("/api/v3/series/%d", seriesID)

	var resource map[string]any
	if err := c.get(ctx, op, endpoint, nil, &resource); err != nil {
		return err
	}
	if resource == nil {
		return apperr.Errorf(apperr.NotFound, op, "series %d returned no body", seriesID)
	}
	resource["monitored"] = true
	resource["monitorNewItems"] = "all"

	return c.put(ctx, op, endpoint, resource, nil)
}
