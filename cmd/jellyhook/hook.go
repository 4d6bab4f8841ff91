package main

import (
	"context"
	"strings"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/config"
	"github.com/Nomadcxx/jellyhook/internal/dispatch"
	"github.com/Nomadcxx/jellyhook/internal/event"
)

// runHook handles the event carried by the invocation itself and returns
// the process exit code.
func runHook(ctx context.Context, args, environ []string) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig()
	if err != nil {
		return dispatch.ExitFailure, err
	}
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return dispatch.ExitFailure, err
	}
	rt := newApp(cfg, logger)
	defer rt.Close()

	e := event.Decode(event.Inputs{
		Args: args,
		Env:  eventEnv(environ),
		Now:  time.Now,
	})
	res := rt.dispatcher.Handle(ctx, e)
	return res.ExitCode, nil
}

// eventEnv converts KEY=VALUE pairs to a map, dropping the variables
// jellyhook reads as configuration.
func eventEnv(environ []string) map[string]string {
	skip := make(map[string]bool)
	for _, name := range config.EnvNames() {
		skip[name] = true
	}

	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" || skip[key] {
			continue
		}
		env[key] = value
	}
	return env
}
