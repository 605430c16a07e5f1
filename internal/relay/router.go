package relay

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter exposes the listener over HTTP for companion-side delivery.
func NewRouter(l *Listener) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})

	r.Put("/v1/data-items/*", func(w http.ResponseWriter, r *http.Request) {
		var item DataItem
		if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": true, "message": "invalid data item"})
			return
		}
		item.Path = "/" + chi.URLParam(r, "*")

		received := l.OnDataChanged([]DataEvent{{Type: EventChanged, Item: item}})
		writeJSON(w, http.StatusOK, map[string]any{"accepted": len(received)})
	})

	r.Delete("/v1/data-items/*", func(w http.ResponseWriter, r *http.Request) {
		l.OnDataChanged([]DataEvent{{Type: EventDeleted, Item: DataItem{Path: "/" + chi.URLParam(r, "*")}}})
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/v1/events", func(w http.ResponseWriter, r *http.Request) {
		var batch struct {
			Events []DataEvent `json:"events"`
		}
		if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": true, "message": "invalid event batch"})
			return
		}

		received := l.OnDataChanged(batch.Events)
		writeJSON(w, http.StatusOK, map[string]any{"accepted": len(received)})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("error encoding response:", err)
	}
}
