package radarr

type SystemStatus struct {
	AppName string `json:"appName"`
	Version string `json:"version"`
}

// Movie is a lookup or library movie. ID is zero for movies that are not
// in the library yet.
type Movie struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Year      int    `json:"year"`
	TmdbID    int    `json:"tmdbId"`
	ImdbID    string `json:"imdbId"`
	HasFile   bool   `json:"hasFile"`
	Monitored bool   `json:"monitored"`
}

// MovieEditorResource is the body of PUT /api/v3/movie/editor
type MovieEditorResource struct {
	MovieIDs  []int `json:"movieIds"`
	Monitored *bool `json:"monitored,omitempty"`
}
