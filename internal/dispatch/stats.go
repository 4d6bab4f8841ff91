package dispatch

import (
	"sync"
	"time"
)

// Stats counts handled invocations.
type Stats struct {
	mu             sync.RWMutex
	Handled        int64
	NotifyFailures int64
	WorkflowRuns   int64
	Failures       int64
	LastHandled    time.Time
	StartTime      time.Time
}

func NewStats() *Stats {
	return &Stats{
		StartTime: time.Now(),
	}
}

func (s *Stats) record(res Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Handled++
	for _, o := range res.Outcomes {
		if !o.OK {
			s.NotifyFailures++
		}
	}
	if primary(res.Reactions) {
		s.WorkflowRuns++
	}
	if res.ExitCode != ExitOK {
		s.Failures++
	}
	s.LastHandled = time.Now()
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StatsSnapshot{
		Handled:        s.Handled,
		NotifyFailures: s.NotifyFailures,
		WorkflowRuns:   s.WorkflowRuns,
		Failures:       s.Failures,
		LastHandled:    s.LastHandled,
		Uptime:         time.Since(s.StartTime),
	}
}

type StatsSnapshot struct {
	Handled        int64
	NotifyFailures int64
	WorkflowRuns   int64
	Failures       int64
	LastHandled    time.Time
	Uptime         time.Duration
}
