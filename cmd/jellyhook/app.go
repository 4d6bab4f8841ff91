package main

import (
	"fmt"
	"strings"

	"github.com/Nomadcxx/jellyhook/internal/acquisition"
	"github.com/Nomadcxx/jellyhook/internal/activity"
	"github.com/Nomadcxx/jellyhook/internal/config"
	"github.com/Nomadcxx/jellyhook/internal/dispatch"
	"github.com/Nomadcxx/jellyhook/internal/logging"
	"github.com/Nomadcxx/jellyhook/internal/notify"
	"github.com/Nomadcxx/jellyhook/internal/paths"
	"github.com/Nomadcxx/jellyhook/internal/prefetch"
)

// app holds everything one command needs, built from config.
type app struct {
	cfg        *config.Config
	logger     *logging.Logger
	notifier   *notify.Manager
	acq        *acquisition.Client
	planner    *prefetch.Planner
	journal    *activity.Logger
	dispatcher *dispatch.Dispatcher
}

func loadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LoggingConfig) (*logging.Logger, error) {
	level := cfg.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:      level,
		Format:     cfg.Format,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to create logger: %w", err)
	}
	return logger, nil
}

func newApp(cfg *config.Config, logger *logging.Logger) *app {
	rt := &app{
		cfg:      cfg,
		logger:   logger,
		notifier: notify.NewFromConfig(cfg.Notify, logger),
		acq:      acquisition.NewFromConfig(cfg, logger),
	}
	rt.planner = prefetch.New(rt.acq, prefetch.OptionsFromConfig(cfg.Prefetch), logger)

	if cfg.Activity.Enabled {
		journal, err := openJournal(cfg.Activity)
		if err != nil {
			logger.Warn("activity", "Failed to open activity journal", logging.F("error", err.Error()))
		} else {
			rt.journal = journal
			if n, err := journal.PruneOld(cfg.Activity.RetentionDays); err == nil && n > 0 {
				logger.Debug("activity", "Pruned old journal files", logging.F("removed", n))
			}
		}
	}

	dcfg := dispatch.Config{
		Notifier: rt.notifier,
		Workflow: rt.planner,
		Timeout:  cfg.InvocationTimeout(),
		Logger:   logger,
	}
	if rt.journal != nil {
		dcfg.Journal = rt.journal
	}
	rt.dispatcher = dispatch.New(dcfg)
	return rt
}

func openJournal(cfg config.ActivityConfig) (*activity.Logger, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		d, err := paths.ActivityDir()
		if err != nil {
			return nil, err
		}
		dir = d
	}
	return activity.NewLogger(dir)
}

func (rt *app) Close() {
	if rt.journal != nil {
		rt.journal.Close()
	}
	rt.logger.Close()
}
