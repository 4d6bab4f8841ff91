package event

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Inputs is everything a hook invocation receives.
type Inputs struct {
	Args []string
	Env  map[string]string
	Now  func() time.Time
}

// ErrNotObject is returned by DecodePayload for bodies that are not a JSON object.
var ErrNotObject = errors.New("payload is not a JSON object")

// Decode builds an Event from the first transport that matches: a JSON
// object in Args[0], then the EVENT_TYPE style environment, then
// positional args. It never fails; missing data degrades to defaults.
func Decode(in Inputs) Event {
	now := time.Now
	if in.Now != nil {
		now = in.Now
	}

	if len(in.Args) > 0 {
		if obj, err := parseObject([]byte(in.Args[0])); err == nil {
			return fromObject(obj, now())
		}
	}

	if envMode(in.Env) {
		return fromEnv(in.Env, now())
	}

	if len(in.Args) > 0 {
		return fromArgs(in.Args, now())
	}

	return Event{
		Type:               UnknownType,
		Timestamp:          now(),
		TimestampDefaulted: true,
		Item:               Item{Type: ItemUnknown},
		Extra:              map[string]string{},
		Source:             TransportNone,
	}
}

// DecodePayload decodes a webhook request body. Unlike Decode it reports
// bodies that are not a JSON object.
func DecodePayload(body []byte, now time.Time) (Event, error) {
	obj, err := parseObject(body)
	if err != nil {
		return Event{}, err
	}
	return fromObject(obj, now), nil
}

func parseObject(data []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	var trailing any
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data", ErrNotObject)
	}
	if obj == nil {
		return nil, ErrNotObject
	}
	return obj, nil
}

func newEvent(source Transport) *Event {
	return &Event{
		Item:   Item{Type: ItemUnknown},
		Extra:  map[string]string{},
		Source: source,
	}
}

// finish applies defaults for fields no transport supplied.
func finish(e *Event, now time.Time) Event {
	if strings.TrimSpace(e.Type) == "" {
		e.Type = UnknownType
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
		e.TimestampDefaulted = true
	}
	return *e
}

func fromObject(obj map[string]any, now time.Time) Event {
	e := newEvent(TransportJSON)

	for _, key := range sortedKeys(obj) {
		f, ok := fieldFor(ToSnake(key))
		if !ok {
			e.Extra[key] = stringValue(obj[key])
			continue
		}
		e.apply(f, key, obj[key])
	}
	return finish(e, now)
}

func envMode(env map[string]string) bool {
	for _, k := range envTriggers {
		if _, ok := env[k]; ok {
			return true
		}
	}
	return false
}

func fromEnv(env map[string]string, now time.Time) Event {
	e := newEvent(TransportEnv)

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !upperSnake(key) || reservedEnvKey(key) {
			continue
		}
		if f, ok := fieldFor(strings.ToLower(key)); ok {
			e.apply(f, key, env[key])
			continue
		}
		e.Extra[key] = env[key]
	}
	return finish(e, now)
}

// positional schema: event_type, user, item_name, item_id, timestamp.
func fromArgs(args []string, now time.Time) Event {
	e := newEvent(TransportArgs)
	schema := []field{fieldType, fieldUser, fieldItemName, fieldItemID, fieldTimestamp}
	names := []string{"event_type", "user_name", "item_name", "item_id", "timestamp"}

	for i, f := range schema {
		if i >= len(args) {
			break
		}
		e.apply(f, names[i], args[i])
	}
	return finish(e, now)
}

// apply stores raw into the canonical field f. The first non-empty value
// for a field wins. Values that fail to parse are kept in Extra under key.
func (e *Event) apply(f field, key string, raw any) {
	s := strings.TrimSpace(stringValue(raw))
	if s == "" && f != fieldGenres {
		return
	}

	switch f {
	case fieldType:
		if e.Type == "" {
			e.Type = s
		}
	case fieldTimestamp:
		if !e.Timestamp.IsZero() {
			return
		}
		if ts, ok := parseTimestamp(s); ok {
			e.Timestamp = ts
		} else {
			e.Extra[key] = s
		}
	case fieldUser:
		setString(&e.User, s)
	case fieldClient:
		setString(&e.Client, s)
	case fieldDevice:
		setString(&e.Device, s)
	case fieldItemID:
		setString(&e.Item.ID, s)
	case fieldItemName:
		setString(&e.Item.Name, s)
	case fieldItemType:
		if e.Item.Type != ItemUnknown {
			return
		}
		e.Item.Type = ParseItemType(s)
		if e.Item.Type == ItemUnknown && !strings.EqualFold(s, string(ItemUnknown)) {
			e.Extra[key] = s
		}
	case fieldRating:
		setString(&e.Item.Rating, s)
	case fieldSeriesName:
		setString(&e.Item.SeriesName, s)
	case fieldGenres:
		e.Item.Genres = mergeGenres(e.Item.Genres, raw)
	case fieldYear:
		if n, ok := parseInt(raw); ok && n >= 0 && n <= math.MaxInt32 {
			if e.Item.Year == 0 {
				e.Item.Year = int(n)
			}
		} else {
			e.Extra[key] = s
		}
	case fieldRuntimeTicks:
		if n, ok := parseInt(raw); ok {
			if e.Item.RuntimeTicks == 0 {
				e.Item.RuntimeTicks = n
			}
		} else {
			e.Extra[key] = s
		}
	case fieldPositionTicks:
		if n, ok := parseInt(raw); ok {
			if e.PositionTicks == 0 {
				e.PositionTicks = n
			}
		} else {
			e.Extra[key] = s
		}
	case fieldSeasonNumber:
		setIntPtr(&e.Item.SeasonNumber, raw, key, e.Extra)
	case fieldEpisodeNumber:
		setIntPtr(&e.Item.EpisodeNumber, raw, key, e.Extra)
	}
}

func setString(dst *string, s string) {
	if *dst == "" {
		*dst = s
	}
}

func setIntPtr(dst **int, raw any, key string, extra map[string]string) {
	n, ok := parseInt(raw)
	if !ok || n < 0 || n > math.MaxInt32 {
		extra[key] = strings.TrimSpace(stringValue(raw))
		return
	}
	if *dst == nil {
		v := int(n)
		*dst = &v
	}
}

// parseInt accepts JSON numbers and numeric strings. Floats are accepted
// only when integral.
func parseInt(raw any) (int64, bool) {
	var s string
	switch v := raw.(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	case float64:
		return floatToInt(v)
	case int:
		return int64(v), true
	case int64:
		return v, true
	default:
		return 0, false
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return floatToInt(f)
}

// floatToInt converts integral floats that fit in an int64.
func floatToInt(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// mergeGenres appends genres from a JSON array or a comma separated string,
// dropping blanks and duplicates while keeping first-seen order.
func mergeGenres(existing []string, raw any) []string {
	var candidates []string
	switch v := raw.(type) {
	case []any:
		for _, g := range v {
			candidates = append(candidates, stringValue(g))
		}
	case []string:
		candidates = v
	default:
		candidates = strings.Split(stringValue(raw), ",")
	}

	seen := make(map[string]bool, len(existing))
	for _, g := range existing {
		seen[g] = true
	}
	for _, g := range candidates {
		g = strings.TrimSpace(g)
		if g == "" || seen[g] {
			continue
		}
		seen[g] = true
		existing = append(existing, g)
	}
	return existing
}

// stringValue renders a decoded JSON value as a string.
func stringValue(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(v))
		for _, p := range v {
			parts = append(parts, stringValue(p))
		}
		return strings.Join(parts, ",")
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
