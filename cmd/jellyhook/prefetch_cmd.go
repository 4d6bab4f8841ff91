package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Nomadcxx/jellyhook/internal/prefetch"
	"github.com/spf13/cobra"
)

func newPrefetchCmd() *cobra.Command {
	var (
		title   string
		season  int
		episode int
		movie   bool
	)

	cmd := &cobra.Command{
		Use:   "prefetch",
		Short: "Run the prefetch workflow for one watched episode or movie",
		Long: `Run the episode prefetch workflow without an event, as if playback of
the given episode had just started. With --movie the title is treated as a
movie and unmonitored in Radarr instead.

Examples:
  jellyhook prefetch --title "The Show" --season 1 --episode 3
  jellyhook prefetch -t "Heat" --movie`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			if !movie && (!cmd.Flags().Changed("season") || !cmd.Flags().Changed("episode")) {
				return fmt.Errorf("--season and --episode are required for episodes")
			}
			return runPrefetch(cmd.Context(), cmd.OutOrStdout(), title, season, episode, movie)
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "series or movie title")
	cmd.Flags().IntVarP(&season, "season", "s", 0, "season number of the watched episode")
	cmd.Flags().IntVarP(&episode, "episode", "e", 0, "episode number of the watched episode")
	cmd.Flags().BoolVar(&movie, "movie", false, "treat the title as a movie")

	return cmd
}

func runPrefetch(ctx context.Context, out io.Writer, title string, season, episode int, movie bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	rt := newApp(cfg, logger)
	defer rt.Close()

	ctx, cancel := context.WithTimeout(ctx, cfg.InvocationTimeout())
	defer cancel()

	var sum *prefetch.Summary
	if movie {
		sum, err = rt.planner.RunMovie(ctx, title)
	} else {
		sum, err = rt.planner.RunEpisode(ctx, title, &season, &episode)
	}
	if sum != nil {
		printSummary(out, sum)
	}
	if err != nil {
		return fmt.Errorf("prefetch failed: %w", err)
	}
	return nil
}

func printSummary(out io.Writer, sum *prefetch.Summary) {
	if sum.Kind == prefetch.KindMovie {
		fmt.Fprintf(out, "Movie: %s (id %d)\n", sum.Title, sum.Target.ExternalID)
		fmt.Fprintf(out, "Unmonitored: %s\n", yesNo(sum.MovieUnmonitored))
		return
	}

	fmt.Fprintf(out, "Series: %s\n", sum.Title)
	fmt.Fprintf(out, "Watched: %s (found: %s, unmonitored: %s)\n",
		sum.WatchedRef(), yesNo(sum.WatchedFound), yesNo(sum.WatchedUnmonitored))
	fmt.Fprintf(out, "Catalog: %d episodes\n\n", sum.CatalogSize)

	if len(sum.Window) > 0 {
		fmt.Fprintln(out, windowTable(sum))
	} else {
		fmt.Fprintln(out, "No episodes left in the window.")
	}

	if sum.Exhausted {
		fmt.Fprintf(out, "\nCatalog exhausted, monitoring future episodes: %s", yesNo(sum.FutureMonitoring))
		if sum.NewSeasonsMonitored {
			fmt.Fprint(out, " (new seasons too)")
		}
		fmt.Fprintln(out)
	}

	if len(sum.Errors) > 0 {
		fmt.Fprintf(out, "\n%d call(s) failed:\n", len(sum.Errors))
		for _, ce := range sum.Errors {
			fmt.Fprintf(out, "  - %s (%s)\n", ce.Error(), ce.Kind)
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
