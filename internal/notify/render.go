package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/Nomadcxx/jellyhook/internal/event"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Embed colors.
const (
	colorMovie    = 0x00A4DC
	colorEpisode  = 0x8E44AD
	colorStart    = 0x32CD32
	colorStop     = 0xE74C3C
	colorPause    = 0xF39C12
	colorUser     = 0x3498DB
	colorServer   = 0x95A5A6
	colorFallback = 0x7F8C8D
)

// Field is a labelled value shown under a message.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Message is a rendered notification, independent of the channel.
type Message struct {
	Title     string
	Body      string
	Color     int
	Fields    []Field
	Timestamp time.Time
}

// PlainText renders the body and fields without markdown emphasis.
func (m Message) PlainText() string {
	var b strings.Builder
	b.WriteString(strings.ReplaceAll(m.Body, "**", ""))
	for _, f := range m.Fields {
		if f.Value == "" {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %s", f.Name, f.Value)
	}
	return b.String()
}

// Render formats e into a Message. It has no side effects.
func Render(e event.Event) Message {
	var m Message
	switch e.Type {
	case event.PlaybackStart:
		m = renderPlayback(e, "Playback Started", "started playing", colorStart)
	case event.PlaybackStop:
		m = renderPlayback(e, "Playback Stopped", "stopped playing", colorStop)
		if e.PositionTicks > 0 {
			m.Fields = append(m.Fields, Field{Name: "Position", Value: FormatRuntime(e.Position()), Inline: true})
		}
	case event.PlaybackPause:
		m = renderPlayback(e, "Playback Paused", "paused", colorPause)
	case event.PlaybackResume:
		m = renderPlayback(e, "Playback Resumed", "resumed", colorStart)
	case event.ItemAdded:
		switch e.Item.Type {
		case event.ItemMovie:
			m = renderMovieAdded(e)
		case event.ItemEpisode:
			m = renderEpisodeAdded(e)
		default:
			m = renderGeneric(e)
		}
	case event.SeriesEpisodesAdded:
		m = renderEpisodesGroup(e)
	case event.UserCreated:
		m = Message{
			Title: "New User: " + or(e.User, "Unknown User"),
			Body:  fmt.Sprintf("User **%s** was created.", or(e.User, "Unknown User")),
			Color: colorUser,
		}
	case event.UserDeleted:
		m = Message{
			Title: "User Deleted: " + or(e.User, "Unknown User"),
			Body:  fmt.Sprintf("User **%s** was deleted.", or(e.User, "Unknown User")),
			Color: colorUser,
		}
	case event.SessionStart:
		m = Message{
			Title: "Session Started: " + or(e.User, "Unknown User"),
			Body:  fmt.Sprintf("**%s** connected from **%s**.", or(e.User, "Unknown User"), or(e.Client, "Unknown Client")),
			Color: colorUser,
		}
	case event.SessionEnd:
		m = Message{
			Title: "Session Ended: " + or(e.User, "Unknown User"),
			Body:  fmt.Sprintf("**%s** disconnected.", or(e.User, "Unknown User")),
			Color: colorUser,
		}
	case event.ServerStartup:
		m = Message{Title: "Server Started", Body: "Jellyfin server is online.", Color: colorServer}
	case event.ServerShutdown:
		m = Message{Title: "Server Shutting Down", Body: "Jellyfin server is going offline.", Color: colorServer}
	default:
		m = renderGeneric(e)
	}
	m.Timestamp = e.Timestamp
	return m
}

func renderPlayback(e event.Event, title, verb string, color int) Message {
	name := itemLabel(e.Item)
	user := or(e.User, "Unknown User")

	body := fmt.Sprintf("**%s** %s **%s**", user, verb, name)
	if e.Client != "" {
		body += fmt.Sprintf(" on **%s**", e.Client)
	}
	body += "."

	return Message{
		Title: fmt.Sprintf("%s: %s", title, name),
		Body:  body,
		Color: color,
		Fields: []Field{
			{Name: "Type", Value: string(e.Item.Type), Inline: true},
			{Name: "User", Value: user, Inline: true},
			{Name: "Client", Value: or(e.Client, "Unknown Client"), Inline: true},
		},
	}
}

func renderMovieAdded(e event.Event) Message {
	name := or(e.Item.Name, "Unknown Movie")
	title := name
	if e.Item.Year > 0 {
		title = fmt.Sprintf("%s (%d)", name, e.Item.Year)
	}
	return Message{
		Title: title,
		Body:  fmt.Sprintf("'%s' has been added to Jellyfin.", name),
		Color: colorMovie,
		Fields: []Field{
			{Name: "Type", Value: "Movie", Inline: true},
			{Name: "Genres", Value: strings.Join(e.Item.Genres, ", "), Inline: true},
			{Name: "Rating", Value: or(e.Item.Rating, "Not Rated"), Inline: true},
			{Name: "Runtime", Value: FormatRuntime(e.Item.Runtime()), Inline: true},
		},
	}
}

func renderEpisodeAdded(e event.Event) Message {
	series := or(e.Item.SeriesName, "Unknown Series")
	title := series
	if ref := e.Item.EpisodeRef(); ref != "" {
		title = fmt.Sprintf("%s - %s", series, ref)
	}
	return Message{
		Title: title,
		Body:  fmt.Sprintf("'%s' has been added to Jellyfin.", or(e.Item.Name, "Unknown Episode")),
		Color: colorEpisode,
		Fields: []Field{
			{Name: "Type", Value: "Episode", Inline: true},
			{Name: "Series", Value: series, Inline: true},
		},
	}
}

func renderEpisodesGroup(e event.Event) Message {
	series := or(e.Item.SeriesName, or(e.Item.Name, "Unknown Series"))
	count := or(extra(e, "EpisodeGroupCount"), "0")
	return Message{
		Title: fmt.Sprintf("%s - %s New Episodes Added", series, count),
		Body:  fmt.Sprintf("**%s** has %s new episodes available.", series, count),
		Color: colorEpisode,
		Fields: []Field{
			{Name: "Type", Value: "TV Show Season/Episodes", Inline: true},
			{Name: "Series", Value: series, Inline: true},
			{Name: "Season(s)", Value: extra(e, "SeasonRange"), Inline: true},
			{Name: "Episodes", Value: extra(e, "EpisodeRange"), Inline: true},
			{Name: "Genres", Value: strings.Join(e.Item.Genres, ", "), Inline: true},
			{Name: "Rating", Value: or(e.Item.Rating, "Not Rated"), Inline: true},
		},
	}
}

func renderGeneric(e event.Event) Message {
	title := Humanize(e.Type)
	if e.Item.Name != "" {
		title += ": " + itemLabel(e.Item)
	}
	m := Message{
		Title: title,
		Body:  fmt.Sprintf("Event **%s** received.", e.Type),
		Color: colorFallback,
	}
	if e.User != "" {
		m.Fields = append(m.Fields, Field{Name: "User", Value: e.User, Inline: true})
	}
	if e.Item.Type != event.ItemUnknown && e.Item.Type != "" {
		m.Fields = append(m.Fields, Field{Name: "Type", Value: string(e.Item.Type), Inline: true})
	}
	return m
}

// Humanize turns an event type such as "TaskCompleted" into "Task Completed".
func Humanize(eventType string) string {
	words := strings.ReplaceAll(event.ToSnake(eventType), "_", " ")
	return cases.Title(language.English).String(words)
}

// FormatRuntime renders d as "1h 56m", or "N/A" when d is not positive.
func FormatRuntime(d time.Duration) string {
	if d <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
}

// itemLabel names an item, using "Series - S01E02 - Title" for episodes.
func itemLabel(it event.Item) string {
	name := or(it.Name, "Unknown Item")
	if it.Type != event.ItemEpisode || it.SeriesName == "" {
		return name
	}
	if ref := it.EpisodeRef(); ref != "" {
		return fmt.Sprintf("%s - %s - %s", it.SeriesName, ref, name)
	}
	return fmt.Sprintf("%s - %s", it.SeriesName, name)
}

// extra reads a key from e.Extra in either PascalCase or UPPER_SNAKE form.
func extra(e event.Event, pascal string) string {
	if v, ok := e.Extra[pascal]; ok {
		return v
	}
	return e.Extra[strings.ToUpper(event.ToSnake(pascal))]
}

func or(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
