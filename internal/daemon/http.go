package daemon

import (
	"encoding/json"
	"net/http"

	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// Handler serves /metrics, /healthz and /builds.
func (d *Daemon) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.HTTPHandler(d.registry))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.HandleFunc("GET /builds", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, d.projection.History())
	})
	mux.HandleFunc("GET /builds/{id}", func(w http.ResponseWriter, r *http.Request) {
		summary, ok := d.projection.Build(r.PathValue("id"))
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "build not found"})
			return
		}
		writeJSON(w, http.StatusOK, summary)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
