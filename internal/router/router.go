// Package router maps a decoded event to the reactions it triggers.
package router

import (
	"strings"

	"github.com/Nomadcxx/jellyhook/internal/event"
)

// Reaction is one thing an invocation does in response to an event.
type Reaction uint8

const (
	Notify Reaction = 1 << iota
	PrefetchEpisodes
	UnmonitorMovie
)

func (r Reaction) String() string {
	switch r {
	case Notify:
		return "notify"
	case PrefetchEpisodes:
		return "prefetch_episodes"
	case UnmonitorMovie:
		return "unmonitor_movie"
	default:
		return "unknown"
	}
}

// Set is a bitmask of reactions.
type Set uint8

func (s Set) Has(r Reaction) bool { return s&Set(r) != 0 }

func (s Set) With(r Reaction) Set { return s | Set(r) }

// Reactions lists the members of s in a stable order.
func (s Set) Reactions() []Reaction {
	var out []Reaction
	for _, r := range []Reaction{Notify, PrefetchEpisodes, UnmonitorMovie} {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	return out
}

func (s Set) String() string {
	names := make([]string, 0, 3)
	for _, r := range s.Reactions() {
		names = append(names, r.String())
	}
	return strings.Join(names, ",")
}

var table = map[string]Set{
	event.PlaybackStart:       Set(Notify),
	event.PlaybackStop:        Set(Notify),
	event.PlaybackPause:       Set(Notify),
	event.PlaybackResume:      Set(Notify),
	event.PlaybackProgress:    Set(Notify),
	event.ItemAdded:           Set(Notify),
	event.ItemUpdated:         Set(Notify),
	event.ItemRemoved:         Set(Notify),
	event.SeriesEpisodesAdded: Set(Notify),
	event.UserCreated:         Set(Notify),
	event.UserUpdated:         Set(Notify),
	event.UserDeleted:         Set(Notify),
	event.UserLockedOut:       Set(Notify),
	event.SessionStart:        Set(Notify),
	event.SessionEnd:          Set(Notify),
	event.ServerStartup:       Set(Notify),
	event.ServerShutdown:      Set(Notify),
	event.TaskCompleted:       Set(Notify),
}

// Known reports whether eventType has an entry in the routing table.
func Known(eventType string) bool {
	_, ok := table[eventType]
	return ok
}

// Route returns the reactions for e. Unknown types still notify.
func Route(e event.Event) Set {
	set, ok := table[e.Type]
	if !ok {
		set = Set(Notify)
	}

	if e.Type == event.PlaybackStart {
		switch e.Item.Type {
		case event.ItemEpisode:
			set = set.With(PrefetchEpisodes)
		case event.ItemMovie:
			set = set.With(UnmonitorMovie)
		}
	}
	return set
}
