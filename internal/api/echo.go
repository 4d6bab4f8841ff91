package api

import (
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/Nomadcxx/jellyhook/internal/logging"
)

// HandleEcho logs whatever it receives and acknowledges it. It is a
// stand-in target for testing webhook plugin configuration.
func (s *Server) HandleEcho(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_payload", "unable to read body")
		return
	}

	names := make([]string, 0, len(r.Header))
	for name := range r.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	headers := make(map[string]string, len(names))
	for _, name := range names {
		headers[name] = strings.Join(r.Header.Values(name), ", ")
	}
	if _, ok := headers[secretHeader]; ok {
		headers[secretHeader] = "[redacted]"
	}

	s.logger.Info("echo", "Received request",
		logging.F("method", r.Method),
		logging.F("path", r.URL.RequestURI()),
		logging.F("headers", headers),
		logging.F("body", string(body)))

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
