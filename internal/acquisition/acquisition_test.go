package acquisition

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/Nomadcxx/jellyhook/internal/apperr"
	"github.com/Nomadcxx/jellyhook/internal/config"
	"github.com/Nomadcxx/jellyhook/internal/radarr"
	"github.com/Nomadcxx/jellyhook/internal/sonarr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeSonarr(t *testing.T, hits *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		assert.Equal(t, "skey", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/api/v3/series/lookup":
			if r.URL.Query().Get("term") == "Severance" {
				json.NewEncoder(w).Encode([]sonarr.Series{{Title: "Severance", TvdbID: 371980}})
				return
			}
			json.NewEncoder(w).Encode([]sonarr.Series{})
		case "/api/v3/series":
			json.NewEncoder(w).Encode([]sonarr.Series{{ID: 5, TvdbID: 371980}})
		case "/api/v3/episode":
			json.NewEncoder(w).Encode([]sonarr.Episode{
				{ID: 12, SeasonNumber: 2, EpisodeNumber: 1},
				{ID: 3, SeasonNumber: 1, EpisodeNumber: 3, HasFile: true},
				{ID: 1, SeasonNumber: 1, EpisodeNumber: 1, Monitored: true},
			})
		case "/api/v3/system/status":
			json.NewEncoder(w).Encode(sonarr.SystemStatus{AppName: "Sonarr"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestUnconfiguredServiceNeverTouchesNetwork(t *testing.T) {
	var hits atomic.Int32
	server := newFakeSonarr(t, &hits)
	defer server.Close()

	cfg := config.DefaultConfig()
	cfg.Sonarr.URL = server.URL // api key missing
	c := NewFromConfig(cfg, nil)

	assert.False(t, c.Configured(Series))
	assert.False(t, c.Configured(Movie))

	ctx := context.Background()
	_, err := c.ResolveSeries(ctx, "Severance")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	_, err = c.ListEpisodes(ctx, 5)
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
	assert.True(t, errors.Is(c.SearchEpisode(ctx, 1), apperr.ErrUnauthorized))
	assert.True(t, errors.Is(c.SetMovieMonitored(ctx, 1, false), apperr.ErrUnauthorized))
	_, err = c.ResolveMovie(ctx, "Heat")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	assert.EqualValues(t, 0, hits.Load())
}

func TestResolveSeries(t *testing.T) {
	server := newFakeSonarr(t, nil)
	defer server.Close()
	c := New(sonarr.NewClient(sonarr.Config{URL: server.URL, APIKey: "skey"}), nil)
	ctx := context.Background()

	ext, err := c.ResolveSeries(ctx, "Severance")
	require.NoError(t, err)
	assert.Equal(t, 371980, ext)

	id, err := c.ResolveSeriesInternalID(ctx, ext)
	require.NoError(t, err)
	assert.Equal(t, 5, id)

	_, err = c.ResolveSeries(ctx, "Nope")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestListEpisodesOrdered(t *testing.T) {
	server := newFakeSonarr(t, nil)
	defer server.Close()
	c := New(sonarr.NewClient(sonarr.Config{URL: server.URL, APIKey: "skey"}), nil)

	eps, err := c.ListEpisodes(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, eps, 3)
	assert.Equal(t, []int{1, 3, 12}, []int{eps[0].ID, eps[1].ID, eps[2].ID})
	assert.True(t, eps[0].Monitored)
	assert.True(t, eps[1].HasFile)
}

func TestResolveMovieSkipsLookupOnlyResults(t *testing.T) {
	var edited []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v3/movie/lookup":
			switch r.URL.Query().Get("term") {
			case "Heat":
				json.NewEncoder(w).Encode([]radarr.Movie{{ID: 0, Title: "Heat"}, {ID: 44, Title: "Heat"}})
			default:
				json.NewEncoder(w).Encode([]radarr.Movie{{ID: 0, Title: "Only Lookup"}})
			}
		case "/api/v3/movie/editor":
			var body radarr.MovieEditorResource
			json.NewDecoder(r.Body).Decode(&body)
			edited = append(edited, body.MovieIDs...)
			w.WriteHeader(http.StatusAccepted)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := New(nil, radarr.NewClient(radarr.Config{URL: server.URL, APIKey: "rkey"}))
	ctx := context.Background()

	id, err := c.ResolveMovie(ctx, "Heat")
	require.NoError(t, err)
	assert.Equal(t, 44, id)
	require.NoError(t, c.SetMovieMonitored(ctx, id, false))
	assert.Equal(t, []int{44}, edited)

	_, err = c.ResolveMovie(ctx, "Other")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestPingAll(t *testing.T) {
	server := newFakeSonarr(t, nil)
	defer server.Close()
	c := New(sonarr.NewClient(sonarr.Config{URL: server.URL, APIKey: "skey"}), nil)

	results := c.PingAll(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, Series, results[0].Service)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, Movie, results[1].Service)
	assert.Equal(t, apperr.Unauthorized, apperr.KindOf(results[1].Err))
}
