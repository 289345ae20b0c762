package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jensholdgaard/auction-room/internal/auction"
	"github.com/jensholdgaard/auction-room/internal/roster"
)

type errorBody struct {
	Error string `json:"error"`
}

// PlayerView is a player with the outcome of its lot so far.
type PlayerView struct {
	roster.Player
	Sale *auction.SaleRecord `json:"sale,omitempty"`
}

// State serves the current room snapshot.
func State(mgr *auction.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, mgr.Snapshot())
	}
}

// Tracker serves the upcoming, unsold and sold lists. Optional query
// parameters: search (name or role) and set (number).
func Tracker(mgr *auction.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var set *int
		if v := r.URL.Query().Get("set"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "set must be a number"})
				return
			}
			set = &n
		}
		writeJSON(w, http.StatusOK, mgr.Room().Tracker(r.URL.Query().Get("search"), set))
	}
}

// Player serves one player by id.
func Player(mgr *auction.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p, ok := mgr.Seed().Player(id)
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown player"})
			return
		}
		view := PlayerView{Player: p}
		if sale, ok := mgr.Room().SaleFor(id); ok {
			view.Sale = &sale
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
