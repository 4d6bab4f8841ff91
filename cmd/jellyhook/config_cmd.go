package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/acquisition"
	"github.com/Nomadcxx/jellyhook/internal/config"
	"github.com/Nomadcxx/jellyhook/internal/logging"
	"github.com/Nomadcxx/jellyhook/internal/notify"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage Jellyhook configuration",
		Long: `Commands for managing Jellyhook configuration.

The config file is stored at: ~/.config/jellyhook/config.toml
Every setting can also come from the environment, including the variable
names the older hook scripts used (SONARR_URL, SONARR_APIKEY, ...).

Examples:
  jellyhook config init              # Create default config file
  jellyhook config show              # Display current configuration
  jellyhook config test              # Test all connections
  jellyhook config path              # Show config file path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigTestCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.ConfigPath()
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Long: `Create a new configuration file with default values.

Edit the file to set your Sonarr and Radarr URLs, API keys and notification
channels.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			if config.ConfigExists(path) && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✓ Created config file: %s\n", path)
			fmt.Fprintln(out, "\nNext steps:")
			fmt.Fprintln(out, "  1. Edit the config file to set your URLs and API keys")
			fmt.Fprintln(out, "  2. Run 'jellyhook config test' to verify connections")
			fmt.Fprintln(out, "  3. Point the Jellyfin webhook or script plugin at jellyhook")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config file")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path, _ := configPath()
			showConfig(cmd.OutOrStdout(), path, config.ConfigExists(path), cfg)
			return nil
		},
	}
}

func showConfig(out io.Writer, path string, exists bool, cfg *config.Config) {
	if exists {
		fmt.Fprintf(out, "Config file: %s\n\n", path)
	} else {
		fmt.Fprintf(out, "Config file: %s (not found, using defaults and environment)\n\n", path)
	}

	fmt.Fprintln(out, "=== Sonarr ===")
	fmt.Fprintf(out, "URL:     %s\n", orNotSet(cfg.Sonarr.URL))
	fmt.Fprintf(out, "API Key: %s\n", maskAPIKey(cfg.Sonarr.APIKey))

	fmt.Fprintln(out, "\n=== Radarr ===")
	fmt.Fprintf(out, "URL:     %s\n", orNotSet(cfg.Radarr.URL))
	fmt.Fprintf(out, "API Key: %s\n", maskAPIKey(cfg.Radarr.APIKey))

	p := cfg.Prefetch
	fmt.Fprintln(out, "\n=== Prefetch ===")
	fmt.Fprintf(out, "Buffer:                %d\n", p.BufferSize)
	fmt.Fprintf(out, "Set Wanted:            %v\n", p.SetWanted)
	fmt.Fprintf(out, "Auto Search:           %v\n", p.AutoSearch)
	fmt.Fprintf(out, "Monitor Future:        %v\n", p.MonitorFutureOnExhaustion)
	fmt.Fprintf(out, "Monitor New Seasons:   %v\n", p.MonitorNewSeasons)
	fmt.Fprintf(out, "Workers / Rate:        %d / %.1f req/s\n", p.Workers, p.RatePerSecond)

	n := cfg.Notify
	fmt.Fprintln(out, "\n=== Notifications ===")
	fmt.Fprintf(out, "Desktop: %v (%s)\n", n.Desktop.Enabled, n.Desktop.Command)
	fmt.Fprintf(out, "Discord: %s\n", maskURL(n.Discord.WebhookURL))
	switch {
	case n.Email.Configured():
		fmt.Fprintf(out, "Email:   %s:%d -> %s\n", n.Email.Server, n.Email.Port, n.Email.To)
	case n.Email.Partial():
		fmt.Fprintln(out, "Email:   incomplete (server, user, password and to are all required)")
	default:
		fmt.Fprintln(out, "Email:   (not set)")
	}

	fmt.Fprintln(out, "\n=== Server ===")
	fmt.Fprintf(out, "Address:        %s\n", cfg.Server.Addr)
	fmt.Fprintf(out, "Webhook Secret: %s\n", maskAPIKey(cfg.Server.WebhookSecret))
	fmt.Fprintf(out, "Rate Limit:     %d/min\n", cfg.Server.RateLimitPerMinute)

	fmt.Fprintln(out, "\n=== Options ===")
	fmt.Fprintf(out, "Invocation Timeout: %s\n", cfg.InvocationTimeout())
	fmt.Fprintf(out, "Log Level:          %s\n", cfg.Logging.Level)
	fmt.Fprintf(out, "Activity Journal:   %v\n", cfg.Activity.Enabled)
}

func newConfigTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test configuration and connections",
		Long: `Verify that the configured services and notification channels are
reachable.

Tests:
  - Sonarr connection
  - Radarr connection
  - Every enabled notification channel`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			acq := acquisition.NewFromConfig(cfg, logging.Nop())
			mgr := notify.NewFromConfig(cfg.Notify, logging.Nop())
			return testConnections(ctx, cmd.OutOrStdout(), acq, mgr)
		},
	}
}

func testConnections(ctx context.Context, out io.Writer, acq *acquisition.Client, mgr *notify.Manager) error {
	var failures []string
	var checks []connectionCheck

	fmt.Fprintln(out, "Testing configuration...")
	fmt.Fprintln(out)

	for _, r := range acq.PingAll(ctx) {
		status := "✓ ok"
		if r.Err != nil {
			if !acq.Configured(r.Service) {
				status = "○ not configured"
			} else {
				status = "✗ " + r.Err.Error()
				failures = append(failures, fmt.Sprintf("%s: %v", r.Service, r.Err))
			}
		}
		checks = append(checks, connectionCheck{Target: r.Service.String(), Status: status, Latency: r.Duration})
	}

	pings := mgr.PingAll(ctx)
	for _, name := range mgr.Names() {
		status := "✓ ok"
		if err := pings[name]; err != nil {
			status = "✗ " + err.Error()
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
		}
		checks = append(checks, connectionCheck{Target: name, Status: status})
	}
	if mgr.NotifierCount() == 0 {
		checks = append(checks, connectionCheck{Target: "notifications", Status: "○ no channels configured"})
	}

	fmt.Fprintln(out, connectionTable(checks))

	fmt.Fprintln(out, "\n"+separator(40))
	if len(failures) > 0 {
		fmt.Fprintf(out, "\n✗ %d error(s) found:\n", len(failures))
		for _, f := range failures {
			fmt.Fprintf(out, "  - %s\n", f)
		}
		return fmt.Errorf("configuration has %d error(s)", len(failures))
	}
	fmt.Fprintln(out, "\n✓ All configured connections OK")
	return nil
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}

func maskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// maskURL hides the token part of a webhook URL.
func maskURL(u string) string {
	if u == "" {
		return "(not set)"
	}
	if i := strings.LastIndex(u, "/"); i > 0 && i < len(u)-1 {
		return u[:i+1] + "****"
	}
	return u
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

func separator(n int) string {
	return strings.Repeat("=", n)
}
