package event

import (
	"strings"
	"unicode"
)

// ToSnake converts PascalCase or camelCase to snake_case by inserting an
// underscore before every uppercase letter after the first rune and
// lowercasing the result. "EventType" becomes "event_type".
func ToSnake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

type field int

const (
	fieldType field = iota + 1
	fieldTimestamp
	fieldUser
	fieldClient
	fieldDevice
	fieldItemID
	fieldItemName
	fieldItemType
	fieldYear
	fieldGenres
	fieldRating
	fieldRuntimeTicks
	fieldPositionTicks
	fieldSeriesName
	fieldSeasonNumber
	fieldEpisodeNumber
)

var fieldTable = map[string]field{
	"event_type":              fieldType,
	"notification_type":       fieldType,
	"timestamp":               fieldTimestamp,
	"utc_timestamp":           fieldTimestamp,
	"user_name":               fieldUser,
	"username":                fieldUser,
	"notification_username":   fieldUser,
	"client_name":             fieldClient,
	"client":                  fieldClient,
	"device_name":             fieldDevice,
	"item_id":                 fieldItemID,
	"item_name":               fieldItemName,
	"name":                    fieldItemName,
	"item_type":               fieldItemType,
	"year":                    fieldYear,
	"genres":                  fieldGenres,
	"content_rating":          fieldRating,
	"official_rating":         fieldRating,
	"rating":                  fieldRating,
	"run_time_ticks":          fieldRuntimeTicks,
	"runtime_ticks":           fieldRuntimeTicks,
	"position_ticks":          fieldPositionTicks,
	"playback_position_ticks": fieldPositionTicks,
	"series_name":             fieldSeriesName,
	"season_number":           fieldSeasonNumber,
	"episode_number":          fieldEpisodeNumber,
}

// fieldFor looks up the canonical field for a snake_case key.
func fieldFor(snake string) (field, bool) {
	f, ok := fieldTable[snake]
	return f, ok
}

// envTriggers are the variables whose presence selects env decoding.
var envTriggers = []string{"EVENT_TYPE", "USER_NAME", "ITEM_NAME", "TIMESTAMP"}

var reservedEnv = map[string]bool{
	"PATH": true, "HOME": true, "PWD": true, "SHELL": true, "USER": true,
	"LANG": true, "TERM": true, "HOSTNAME": true, "SHLVL": true, "OLDPWD": true,
	"EPISODE_BUFFER": true, "SET_WANTED": true, "AUTO_SEARCH": true,
	"MONITOR_FUTURE_EPISODES": true,
}

var reservedEnvPrefixes = []string{
	"LC_", "XDG_",
	"SONARR_", "RADARR_", "SMTP_", "EMAIL_", "DISCORD_", "DESKTOP_", "JELLYHOOK_",
}

// reservedEnvKey reports whether an environment variable belongs to the
// process or to jellyhook's own configuration rather than to the event.
func reservedEnvKey(key string) bool {
	if reservedEnv[key] {
		return true
	}
	for _, p := range reservedEnvPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// upperSnake reports whether key looks like EVENT_TYPE.
func upperSnake(key string) bool {
	if key == "" || key[0] == '_' {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '_' {
			return false
		}
	}
	return true
}
