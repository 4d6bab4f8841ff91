package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func nowFn() time.Time { return fixedNow }

func TestToSnake(t *testing.T) {
	tests := map[string]string{
		"EventType":            "event_type",
		"RunTimeTicks":         "run_time_ticks",
		"ItemId":               "item_id",
		"NotificationUsername": "notification_username",
		"Name":                 "name",
		"userName":             "user_name",
		"":                     "",
	}
	for in, want := range tests {
		assert.Equal(t, want, ToSnake(in), in)
	}
}

func TestDecode_TransportInvariance(t *testing.T) {
	ts := "2024-05-06T07:08:09Z"

	fromJSON := Decode(Inputs{
		Args: []string{`{"EventType":"PlaybackStart","UserName":"alice","ItemName":"Pilot","ItemId":"abc123","Timestamp":"` + ts + `"}`},
		Now:  nowFn,
	})
	fromEnv := Decode(Inputs{
		Env: map[string]string{
			"EVENT_TYPE": "PlaybackStart",
			"USER_NAME":  "alice",
			"ITEM_NAME":  "Pilot",
			"ITEM_ID":    "abc123",
			"TIMESTAMP":  ts,
		},
		Now: nowFn,
	})
	fromArgs := Decode(Inputs{
		Args: []string{"PlaybackStart", "alice", "Pilot", "abc123", ts},
		Now:  nowFn,
	})

	assert.Equal(t, TransportJSON, fromJSON.Source)
	assert.Equal(t, TransportEnv, fromEnv.Source)
	assert.Equal(t, TransportArgs, fromArgs.Source)

	for _, e := range []Event{fromEnv, fromArgs} {
		assert.Equal(t, fromJSON.Type, e.Type)
		assert.Equal(t, fromJSON.User, e.User)
		assert.Equal(t, fromJSON.Item.Name, e.Item.Name)
		assert.Equal(t, fromJSON.Item.ID, e.Item.ID)
		assert.True(t, fromJSON.Timestamp.Equal(e.Timestamp))
	}
	assert.Equal(t, "PlaybackStart", fromJSON.Type)
	assert.False(t, fromJSON.TimestampDefaulted)
}

func TestDecode_MissingEventTypeIsUnknown(t *testing.T) {
	e := Decode(Inputs{Args: []string{`{"ItemName":"Film"}`}, Now: nowFn})
	assert.Equal(t, UnknownType, e.Type)
	assert.Equal(t, "Film", e.Item.Name)
	assert.Equal(t, fixedNow, e.Timestamp)
	assert.True(t, e.TimestampDefaulted)
}

func TestDecode_NoInputs(t *testing.T) {
	e := Decode(Inputs{Now: nowFn})
	assert.Equal(t, UnknownType, e.Type)
	assert.Equal(t, TransportNone, e.Source)
	assert.Empty(t, e.User)
	assert.NotNil(t, e.Extra)
}

func TestDecode_WhitespaceArgFallsToEnv(t *testing.T) {
	e := Decode(Inputs{
		Args: []string{"   "},
		Env:  map[string]string{"EVENT_TYPE": "ItemAdded"},
		Now:  nowFn,
	})
	assert.Equal(t, TransportEnv, e.Source)
	assert.Equal(t, "ItemAdded", e.Type)
}

func TestDecode_NonObjectJSONIsNotJSON(t *testing.T) {
	for _, arg := range []string{"42", `["a"]`, `"PlaybackStart"`} {
		e := Decode(Inputs{Args: []string{arg}, Now: nowFn})
		assert.Equal(t, TransportArgs, e.Source, arg)
	}

	e := Decode(Inputs{
		Args: []string{"42"},
		Env:  map[string]string{"USER_NAME": "bob"},
		Now:  nowFn,
	})
	assert.Equal(t, TransportEnv, e.Source)
	assert.Equal(t, "bob", e.User)
	assert.Equal(t, UnknownType, e.Type)
}

func TestDecode_ExtraPositionalArgsIgnored(t *testing.T) {
	e := Decode(Inputs{
		Args: []string{"ItemAdded", "carol", "Movie", "id1", "2024-01-01", "surplus", "more"},
		Now:  nowFn,
	})
	assert.Equal(t, "ItemAdded", e.Type)
	assert.Equal(t, "carol", e.User)
	assert.Empty(t, e.Extra)
	assert.Equal(t, 2024, e.Timestamp.Year())
}

func TestDecode_JSONFieldsAndExtras(t *testing.T) {
	payload := `{
		"NotificationType": "ItemAdded",
		"Name": "Arrival",
		"ItemType": "Movie",
		"Year": 2016,
		"Genres": ["Drama", "Sci-Fi", "Drama"],
		"OfficialRating": "PG-13",
		"RunTimeTicks": 69600000000,
		"ServerName": "den",
		"EpisodeGroupCount": 3
	}`
	e := Decode(Inputs{Args: []string{payload}, Now: nowFn})

	assert.Equal(t, "ItemAdded", e.Type)
	assert.Equal(t, "Arrival", e.Item.Name)
	assert.Equal(t, ItemMovie, e.Item.Type)
	assert.Equal(t, 2016, e.Item.Year)
	assert.Equal(t, []string{"Drama", "Sci-Fi"}, e.Item.Genres)
	assert.Equal(t, "PG-13", e.Item.Rating)
	assert.Equal(t, int64(69600000000), e.Item.RuntimeTicks)
	assert.Equal(t, 1*time.Hour+56*time.Minute, e.Item.Runtime())
	assert.Equal(t, int64(69600000000), e.Item.RuntimeTicks, "Runtime must not mutate ticks")

	assert.Equal(t, "den", e.Extra["ServerName"])
	assert.Equal(t, "3", e.Extra["EpisodeGroupCount"])
}

func TestDecode_EpisodeNumbers(t *testing.T) {
	e := Decode(Inputs{
		Args: []string{`{"EventType":"PlaybackStart","ItemType":"Episode","SeriesName":"Severance","SeasonNumber":1,"EpisodeNumber":3}`},
		Now:  nowFn,
	})
	require.NotNil(t, e.Item.SeasonNumber)
	require.NotNil(t, e.Item.EpisodeNumber)
	assert.Equal(t, 1, *e.Item.SeasonNumber)
	assert.Equal(t, 3, *e.Item.EpisodeNumber)
	assert.Equal(t, "S01E03", e.Item.EpisodeRef())
	assert.Equal(t, "Severance", e.Item.SeriesName)
}

func TestDecode_UnparseableNumbersKeptInExtra(t *testing.T) {
	e := Decode(Inputs{
		Env: map[string]string{
			"EVENT_TYPE":     "PlaybackStart",
			"SEASON_NUMBER":  "one",
			"RUN_TIME_TICKS": "lots",
			"EPISODE_NUMBER": "4",
		},
		Now: nowFn,
	})
	assert.Nil(t, e.Item.SeasonNumber)
	assert.Equal(t, "one", e.Extra["SEASON_NUMBER"])
	assert.Equal(t, "lots", e.Extra["RUN_TIME_TICKS"])
	require.NotNil(t, e.Item.EpisodeNumber)
	assert.Equal(t, 4, *e.Item.EpisodeNumber)
}

func TestDecode_OutOfRangeNumbersKeptInExtra(t *testing.T) {
	e := Decode(Inputs{Args: []string{`{"EventType":"ItemAdded","RunTimeTicks":1e30,"PlaybackPositionTicks":-1e19}`}, Now: nowFn})
	assert.Equal(t, int64(0), e.Item.RuntimeTicks)
	assert.Equal(t, int64(0), e.PositionTicks)
	assert.Equal(t, "1e30", e.Extra["RunTimeTicks"])
	assert.Equal(t, "-1e19", e.Extra["PlaybackPositionTicks"])

	e = Decode(Inputs{Env: map[string]string{"EVENT_TYPE": "ItemAdded", "RUN_TIME_TICKS": "9.3e18"}, Now: nowFn})
	assert.Equal(t, int64(0), e.Item.RuntimeTicks)
	assert.Equal(t, "9.3e18", e.Extra["RUN_TIME_TICKS"])

	e = Decode(Inputs{Env: map[string]string{"EVENT_TYPE": "ItemAdded", "RUN_TIME_TICKS": "6.96e10"}, Now: nowFn})
	assert.Equal(t, int64(69600000000), e.Item.RuntimeTicks)
}

func TestDecode_EnvReservedKeysExcluded(t *testing.T) {
	e := Decode(Inputs{
		Env: map[string]string{
			"EVENT_TYPE":          "PlaybackStop",
			"PATH":                "/usr/bin",
			"HOME":                "/root",
			"LC_ALL":              "C",
			"SONARR_APIKEY":       "secret",
			"SMTP_PASS":           "secret",
			"DISCORD_WEBHOOK_URL": "https://x",
			"EPISODE_BUFFER":      "6",
			"JELLYHOOK_HOME":      "/tmp",
			"SERVER_NAME":         "den",
			"lowercase":           "ignored",
		},
		Now: nowFn,
	})
	assert.Equal(t, map[string]string{"SERVER_NAME": "den"}, e.Extra)
}

func TestDecode_GenresCommaList(t *testing.T) {
	e := Decode(Inputs{
		Env: map[string]string{"EVENT_TYPE": "ItemAdded", "GENRES": "Drama, Comedy,,Drama"},
		Now: nowFn,
	})
	assert.Equal(t, []string{"Drama", "Comedy"}, e.Item.Genres)
}

func TestDecode_UnknownItemTypeKept(t *testing.T) {
	e := Decode(Inputs{Args: []string{`{"EventType":"ItemAdded","ItemType":"MusicAlbum"}`}, Now: nowFn})
	assert.Equal(t, ItemUnknown, e.Item.Type)
	assert.Equal(t, "MusicAlbum", e.Extra["ItemType"])
}

func TestDecodePayload(t *testing.T) {
	e, err := DecodePayload([]byte(`{"NotificationType":"PlaybackStop","NotificationUsername":"dan"}`), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "PlaybackStop", e.Type)
	assert.Equal(t, "dan", e.User)

	for _, body := range []string{"", "  ", "[]", "7", `{"a":1} trailing`, "{broken"} {
		_, err := DecodePayload([]byte(body), fixedNow)
		assert.ErrorIs(t, err, ErrNotObject, body)
	}
}

func TestRequirementsAndMissing(t *testing.T) {
	e := Decode(Inputs{Env: map[string]string{"EVENT_TYPE": "PlaybackStart", "USER_NAME": "eve"}, Now: nowFn})

	missing := e.Missing(Requirements(e.Type))
	assert.Equal(t, []string{"timestamp", "item_name", "item_type"}, missing)
	assert.Equal(t, []string{"event_type"}, Requirements("SomethingNew"))
}
