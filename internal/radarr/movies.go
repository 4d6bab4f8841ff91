package radarr

import (
	"context"
	"net/url"
)

func (c *Client) LookupMovie(ctx context.Context, term string) ([]Movie, error) {
	var movies []Movie
	q := url.Values{"term": {term}}
	if err := c.get(ctx, "radarr movie lookup", "/api/v3/movie/lookup", q, &movies); err != nil {
		return nil, err
	}
	return movies, nil
}

// SetMoviesMonitored sets the monitored flag on every movie in movieIDs.
func (c *Client) SetMoviesMonitored(ctx context.Context, movieIDs []int, monitored bool) error {
	body := MovieEditorResource{MovieIDs: movieIDs, Monitored: &monitored}
	return c.put(ctx, "radarr movie editor", "/api/v3/movie/editor", body, nil)
}
