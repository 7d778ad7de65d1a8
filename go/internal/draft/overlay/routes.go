package overlay

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// Routes serves the views of a set of mounted overlays.
//
//	GET /healthz
//	GET /overlays
//	GET /overlays/{kind}
//	GET /overlays/{kind}/best-available?n=4
//	GET /overlays/{kind}/team-history?n=4
//	GET /overlays/{kind}/next-teams?n=2
func Routes(overlays ...*Reconstructor) http.Handler {
	byKind := make(map[Kind]*Reconstructor, len(overlays))
	for _, o := range overlays {
		byKind[o.Kind()] = o
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/overlays", listOverlays(byKind))
	r.Route("/overlays/{kind}", func(r chi.Router) {
		r.Get("/", withOverlay(byKind, func(o *Reconstructor, _ int) any { return o.View() }))
		r.Get("/best-available", withOverlay(byKind, func(o *Reconstructor, n int) any { return o.BestAvailable(n) }))
		r.Get("/team-history", withOverlay(byKind, func(o *Reconstructor, n int) any { return o.TeamHistory(n) }))
		r.Get("/next-teams", withOverlay(byKind, func(o *Reconstructor, n int) any { return o.NextTeams(n) }))
	})
	return r
}

func listOverlays(byKind map[Kind]*Reconstructor) http.HandlerFunc {
	kinds := make([]string, 0, len(byKind))
	for k := range byKind {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, struct {
			Overlays []string `json:"overlays"`
		}{Overlays: kinds})
	}
}

func withOverlay(byKind map[Kind]*Reconstructor, fn func(o *Reconstructor, n int) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, err := ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		o, ok := byKind[kind]
		if !ok {
			http.Error(w, "overlay not mounted", http.StatusNotFound)
			return
		}

		n := 0
		if raw := r.URL.Query().Get("n"); raw != "" {
			n, err = strconv.Atoi(raw)
			if err != nil || n < 0 {
				http.Error(w, "n must be a non-negative integer", http.StatusBadRequest)
				return
			}
		}
		writeJSON(w, http.StatusOK, fn(o, n))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode overlay response")
	}
}
