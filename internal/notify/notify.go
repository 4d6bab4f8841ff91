// Package notify fans rendered event messages out to independent
// notification channels such as Discord, email and the desktop.
package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/apperr"
	"github.com/Nomadcxx/jellyhook/internal/config"
	"github.com/Nomadcxx/jellyhook/internal/event"
	"github.com/Nomadcxx/jellyhook/internal/logging"
)

// Outcome is the result of one channel attempt
type Outcome struct {
	Channel  string
	OK       bool
	Kind     apperr.Kind
	Err      error
	Duration time.Duration
}

// Notifier is the interface that notification channels must implement
type Notifier interface {
	// Name returns the channel name used in outcomes and logs
	Name() string

	// Notify delivers msg, which was rendered from e
	Notify(ctx context.Context, msg Message, e event.Event) error

	// Ping checks if the channel is usable
	Ping(ctx context.Context) error

	// Enabled returns whether this channel is configured
	Enabled() bool
}

// Manager handles multiple notification channels
type Manager struct {
	notifiers []Notifier
	mu        sync.RWMutex
	logger    *logging.Logger
}

// NewManager creates a new notification manager
func NewManager(logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{
		notifiers: make([]Notifier, 0),
		logger:    logger,
	}
}

// NewFromConfig registers every channel cfg configures.
func NewFromConfig(cfg config.NotifyConfig, logger *logging.Logger) *Manager {
	m := NewManager(logger)
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	m.Register(NewDesktopNotifier(cfg.Desktop.Command, cfg.Desktop.Enabled))
	m.Register(NewDiscordNotifier(cfg.Discord.WebhookURL, timeout))
	if cfg.Email.Partial() {
		m.logger.Warn("notify", "Email configuration incomplete, channel disabled",
			logging.F("server_set", cfg.Email.Server != ""),
			logging.F("user_set", cfg.Email.User != ""),
			logging.F("password_set", cfg.Email.Password != ""),
			logging.F("to_set", cfg.Email.To != ""))
	}
	m.Register(NewEmailNotifier(cfg.Email, timeout))
	return m
}

// Register adds a notifier to the manager. Channels that are not
// enabled are skipped.
func (m *Manager) Register(n Notifier) {
	if !n.Enabled() {
		m.logger.Debug("notify", "Channel not configured, skipping", logging.F("channel", n.Name()))
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifiers = append(m.notifiers, n)
	m.logger.Debug("notify", "Registered channel", logging.F("channel", n.Name()))
}

// Notify sends msg to every registered channel concurrently. One failing
// channel never affects another. Outcomes follow registration order.
func (m *Manager) Notify(ctx context.Context, msg Message, e event.Event) []Outcome {
	m.mu.RLock()
	notifiers := make([]Notifier, len(m.notifiers))
	copy(notifiers, m.notifiers)
	m.mu.RUnlock()

	if len(notifiers) == 0 {
		return nil
	}

	outcomes := make([]Outcome, len(notifiers))
	var wg sync.WaitGroup
	for i, n := range notifiers {
		wg.Add(1)
		go func(i int, n Notifier) {
			defer wg.Done()
			outcomes[i] = m.attempt(ctx, n, msg, e)
		}(i, n)
	}
	wg.Wait()

	return outcomes
}

func (m *Manager) attempt(ctx context.Context, n Notifier, msg Message, e event.Event) (out Outcome) {
	start := time.Now()
	out.Channel = n.Name()

	defer func() {
		if r := recover(); r != nil {
			out.OK = false
			out.Err = fmt.Errorf("%s: panic: %v", n.Name(), r)
			out.Kind = apperr.Unknown
		}
		out.Duration = time.Since(start)

		if out.OK {
			m.logger.Info("notify", "Notification sent",
				logging.F("channel", out.Channel),
				logging.F("duration_ms", out.Duration.Milliseconds()))
		} else {
			m.logger.Error("notify", "Notification failed", out.Err,
				logging.F("channel", out.Channel),
				logging.F("kind", out.Kind.String()))
		}
	}()

	if err := n.Notify(ctx, msg, e); err != nil {
		out.Err = err
		out.Kind = apperr.KindOf(err)
		return out
	}
	out.OK = true
	return out
}

// PingAll checks every registered channel
func (m *Manager) PingAll(ctx context.Context) map[string]error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make(map[string]error)
	for _, n := range m.notifiers {
		results[n.Name()] = n.Ping(ctx)
	}
	return results
}

// NotifierCount returns the number of registered notifiers
func (m *Manager) NotifierCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.notifiers)
}

// Names returns the registered channel names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.notifiers))
	for _, n := range m.notifiers {
		names = append(names, n.Name())
	}
	sort.Strings(names)
	return names
}

// AllFailed reports whether outcomes is non-empty and every attempt failed.
func AllFailed(outcomes []Outcome) bool {
	if len(outcomes) == 0 {
		return false
	}
	for _, o := range outcomes {
		if o.OK {
			return false
		}
	}
	return true
}
