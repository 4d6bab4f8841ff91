package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version  = "dev" // Set by build flags: -ldflags="-X main.version=1.0.0"
	cfgFile  string
	envFile  string
	verbose  bool
	exitCode int
)

func main() {
	rootCmd := newRootCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jellyhook [event-json | positional fields...]",
		Short: "Jellyfin event hook for notifications and episode prefetch",
		Long: `Jellyhook reacts to Jellyfin events. It sends notifications to the
desktop, Discord and email, and keeps the next episodes of a show wanted in
Sonarr while someone is watching it.

Without a subcommand the event is read from the invocation itself:
  - a single JSON object argument (Jellyfin webhook plugin shape)
  - EVENT_TYPE, USER_NAME, ITEM_NAME, ... environment variables
  - positional fields: event_type user item_name item_id timestamp

Examples:
  jellyhook '{"NotificationType":"PlaybackStart","NotificationUsername":"alice"}'
  EVENT_TYPE=ItemAdded ITEM_NAME=Heat jellyhook
  jellyhook prefetch --title "The Show" --season 1 --episode 3
  jellyhook serve --addr :8080`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := runHook(cmd.Context(), args, os.Environ())
			exitCode = code
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/jellyhook/config.toml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before reading config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(newPrefetchCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newActivityCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "jellyhook %s\n", version)
		},
	}
}
