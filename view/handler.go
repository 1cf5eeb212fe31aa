package view

import (
	"bytes"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Handler serves the page returned by current as HTML on every request
func Handler(current func() Page, refresh time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}

		var buf bytes.Buffer
		if err := WriteHTML(&buf, current(), refresh); err != nil {
			log.Error().Msgf("Failed to render dashboard: %s", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = buf.WriteTo(w)
	})
}
