package sonarr

// Series represents a TV series in Sonarr
type Series struct {
	ID              int    `json:"id"`
	Title           string `json:"title"`
	TitleSlug       string `json:"titleSlug"`
	Year            int    `json:"year"`
	TvdbID          int    `json:"tvdbId"`
	Status          string `json:"status"`
	Monitored       bool   `json:"monitored"`
	MonitorNewItems string `json:"monitorNewItems,omitempty"`
}

// Episode represents a TV episode
type Episode struct {
	ID            int    `json:"id"`
	SeriesID      int    `json:"seriesId"`
	SeasonNumber  int    `json:"seasonNumber"`
	EpisodeNumber int    `json:"episodeNumber"`
	Title         string `json:"title"`
	AirDate       string `json:"airDate"`
	HasFile       bool   `json:"hasFile"`
	Monitored     bool   `json:"monitored"`
}

// EpisodesMonitoredResource is the body of PUT /api/v3/episode/monitor
type EpisodesMonitoredResource struct {
	EpisodeIDs []int `json:"episodeIds"`
	Monitored  bool  `json:"monitored"`
}

// Command is the body of POST /api/v3/command
type Command struct {
	Name       string `json:"name"`
	SeriesID   int    `json:"seriesId,omitempty"`
	EpisodeIDs []int  `json:"episodeIds,omitempty"`
}

// CommandResponse is returned when a command is queued
type CommandResponse struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// SeasonPassResource is the body of POST /api/v3/seasonPass
type SeasonPassResource struct {
	Series            []SeasonPassSeries `json:"series"`
	MonitoringOptions MonitoringOptions  `json:"monitoringOptions"`
}

type SeasonPassSeries struct {
	ID        int   `json:"id"`
	Monitored *bool `json:"monitored,omitempty"`
}

type MonitoringOptions struct {
	Monitor string `json:"monitor"`
}

// SystemStatus contains Sonarr system information
type SystemStatus struct {
	AppName string `json:"appName"`
	Version string `json:"version"`
}
