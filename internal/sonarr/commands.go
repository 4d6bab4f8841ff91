package sonarr

import (
	"context"
	"fmt"

	"github.com/Nomadcxx/jellyhook/internal/apperr"
)

// ExecuteCommand queues a command. It does not wait for completion.
func (c *Client) ExecuteCommand(ctx context.Context, cmd Command) (*CommandResponse, error) {
	var response CommandResponse
	if err := c.post(ctx, "sonarr command "+cmd.Name, "/api/v3/command", cmd, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) EpisodeSearch(ctx context.Context, episodeIDs []int) (*CommandResponse, error) {
	if len(episodeIDs) == 0 {
		return nil, apperr.New(apperr.Malformed, "sonarr command EpisodeSearch", fmt.Errorf("no episode ids"))
	}
	return c.ExecuteCommand(ctx, Command{
		Name:       "EpisodeSearch",
		EpisodeIDs: episodeIDs,
	})
}
