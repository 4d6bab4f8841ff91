// Package event defines the canonical media-server event and decodes it
// from the transports Jellyfin hook plugins use.
package event

import (
	"fmt"
	"strings"
	"time"
)

// UnknownType is the event type used when none was supplied.
const UnknownType = "Unknown"

// Event types emitted by Jellyfin.
const (
	PlaybackStart       = "PlaybackStart"
	PlaybackStop        = "PlaybackStop"
	PlaybackPause       = "PlaybackPause"
	PlaybackResume      = "PlaybackResume"
	PlaybackProgress    = "PlaybackProgress"
	ItemAdded           = "ItemAdded"
	ItemUpdated         = "ItemUpdated"
	ItemRemoved         = "ItemRemoved"
	SeriesEpisodesAdded = "SeriesEpisodesAdded"
	UserCreated         = "UserCreated"
	UserUpdated         = "UserUpdated"
	UserDeleted         = "UserDeleted"
	UserLockedOut       = "UserLockedOut"
	SessionStart        = "SessionStart"
	SessionEnd          = "SessionEnd"
	ServerStartup       = "ServerStartup"
	ServerShutdown      = "ServerShutdown"
	TaskCompleted       = "TaskCompleted"
)

type ItemType string

const (
	ItemMovie   ItemType = "Movie"
	ItemEpisode ItemType = "Episode"
	ItemSeries  ItemType = "Series"
	ItemUnknown ItemType = "Unknown"
)

// ParseItemType matches s case-insensitively; anything else is ItemUnknown.
func ParseItemType(s string) ItemType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie":
		return ItemMovie
	case "episode":
		return ItemEpisode
	case "series":
		return ItemSeries
	default:
		return ItemUnknown
	}
}

// Transport names the wire shape an event was decoded from.
type Transport string

const (
	TransportJSON Transport = "json"
	TransportEnv  Transport = "env"
	TransportArgs Transport = "args"
	TransportNone Transport = "none"
)

type Item struct {
	ID            string
	Name          string
	Type          ItemType
	Year          int
	Genres        []string
	Rating        string
	RuntimeTicks  int64
	SeriesName    string
	SeasonNumber  *int
	EpisodeNumber *int
}

// ticksPerDuration is the number of nanoseconds in one media-server tick.
const ticksPerDuration = 100

// Runtime converts RuntimeTicks to a duration.
func (i Item) Runtime() time.Duration {
	return time.Duration(i.RuntimeTicks) * ticksPerDuration
}

// EpisodeRef formats season and episode as S01E02, or "" when either is unknown.
func (i Item) EpisodeRef() string {
	if i.SeasonNumber == nil || i.EpisodeNumber == nil {
		return ""
	}
	return fmt.Sprintf("S%02dE%02d", *i.SeasonNumber, *i.EpisodeNumber)
}

// Event is the normalized record of one media-server event.
type Event struct {
	Type      string
	Timestamp time.Time
	// TimestampDefaulted is set when the source carried no usable timestamp.
	TimestampDefaulted bool

	User          string
	Client        string
	Device        string
	PositionTicks int64

	Item Item

	// Extra holds unrecognized fields keyed by their origin spelling.
	Extra map[string]string

	Source Transport
}

// Position converts PositionTicks to a duration.
func (e Event) Position() time.Duration {
	return time.Duration(e.PositionTicks) * ticksPerDuration
}

// Missing returns the names in fields that e has no value for.
func (e Event) Missing(fields []string) []string {
	var missing []string
	for _, name := range fields {
		if !e.has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func (e Event) has(name string) bool {
	switch name {
	case "event_type":
		return e.Type != "" && e.Type != UnknownType
	case "timestamp":
		return !e.TimestampDefaulted
	case "user_name":
		return e.User != ""
	case "client_name":
		return e.Client != ""
	case "item_name":
		return e.Item.Name != ""
	case "item_type":
		return e.Item.Type != "" && e.Item.Type != ItemUnknown
	default:
		_, ok := e.Extra[name]
		return ok
	}
}

var requirements = map[string][]string{
	PlaybackStart:  {"event_type", "timestamp", "user_name", "item_name", "item_type"},
	PlaybackStop:   {"event_type", "timestamp", "user_name", "item_name"},
	PlaybackPause:  {"event_type", "timestamp", "user_name", "item_name"},
	PlaybackResume: {"event_type", "timestamp", "user_name", "item_name"},
	ItemAdded:      {"event_type", "timestamp", "item_name", "item_type"},
	ItemUpdated:    {"event_type", "timestamp", "item_name", "item_type"},
	ItemRemoved:    {"event_type", "timestamp", "item_name"},
	UserCreated:    {"event_type", "timestamp", "user_name"},
	UserUpdated:    {"event_type", "timestamp", "user_name"},
	UserDeleted:    {"event_type", "timestamp", "user_name"},
	SessionStart:   {"event_type", "timestamp", "user_name"},
	SessionEnd:     {"event_type", "timestamp", "user_name"},
	ServerStartup:  {"event_type", "timestamp"},
	ServerShutdown: {"event_type", "timestamp"},
}

// Requirements lists the canonical fields an event of the given type is
// expected to carry. Unlisted types only require event_type.
func Requirements(eventType string) []string {
	if req, ok := requirements[eventType]; ok {
		return req
	}
	return []string{"event_type"}
}
