package radarr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Nomadcxx/jellyhook/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRadarrServer(t *testing.T, edits *[]MovieEditorResource) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/api/v3/system/status":
			json.NewEncoder(w).Encode(SystemStatus{AppName: "Radarr", Version: "5.0.0"})
		case "/api/v3/movie/lookup":
			switch r.URL.Query().Get("term") {
			case "Heat":
				json.NewEncoder(w).Encode([]Movie{
					{ID: 0, Title: "Heat", Year: 1986, TmdbID: 1},
					{ID: 12, Title: "Heat", Year: 1995, TmdbID: 949, Monitored: true},
				})
			default:
				json.NewEncoder(w).Encode([]Movie{})
			}
		case "/api/v3/movie/editor":
			require.Equal(t, http.MethodPut, r.Method)
			var body MovieEditorResource
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			*edits = append(*edits, body)
			w.WriteHeader(http.StatusAccepted)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestPing(t *testing.T) {
	server := newMockRadarrServer(t, nil)
	defer server.Close()

	assert.NoError(t, NewClient(Config{URL: server.URL, APIKey: "test-key"}).Ping(context.Background()))

	err := NewClient(Config{URL: server.URL, APIKey: "bad"}).Ping(context.Background())
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestLookupMovie(t *testing.T) {
	server := newMockRadarrServer(t, nil)
	defer server.Close()

	client := NewClient(Config{URL: server.URL, APIKey: "test-key"})
	movies, err := client.LookupMovie(context.Background(), "Heat")
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, 12, movies[1].ID)

	movies, err = client.LookupMovie(context.Background(), "Nothing")
	require.NoError(t, err)
	assert.Empty(t, movies)
}

func TestSetMoviesMonitored(t *testing.T) {
	var edits []MovieEditorResource
	server := newMockRadarrServer(t, &edits)
	defer server.Close()

	client := NewClient(Config{URL: server.URL, APIKey: "test-key"})
	require.NoError(t, client.SetMoviesMonitored(context.Background(), []int{12}, false))

	require.Len(t, edits, 1)
	assert.Equal(t, []int{12}, edits[0].MovieIDs)
	require.NotNil(t, edits[0].Monitored)
	assert.False(t, *edits[0].Monitored)
}

func TestUnknownEndpointIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := NewClient(Config{URL: server.URL, APIKey: "k"}).LookupMovie(context.Background(), "x")
	assert.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestRequestHeaders(t *testing.T) {
	var got http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := NewClient(Config{URL: server.URL, APIKey: " key "})
	require.NoError(t, client.SetMoviesMonitored(context.Background(), []int{3}, false))

	assert.Equal(t, "key", got.Get("X-Api-Key"))
	assert.Equal(t, "application/json", got.Get("Accept"))
	assert.Equal(t, "application/json", got.Get("Content-Type"))
}
