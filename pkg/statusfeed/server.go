package statusfeed

import (
	"encoding/json"
	"net/http"
)

// NewMux serves the status API. metrics may be nil.
func NewMux(h *Hub, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"message": "RFID Bike Lock Controller API",
			"status":  "running",
		})
	})

	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		latest := h.Latest()
		w.Header().Set("Content-Type", "application/json")
		if latest == nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "No status available yet",
			})
			return
		}
		w.Write(latest)
	})

	mux.HandleFunc("/ws", h.ServeWS)

	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	return mux
}
