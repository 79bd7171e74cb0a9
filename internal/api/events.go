package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"dramadl/internal/event"

	"github.com/go-chi/chi/v5"
)

// EventHandler streams bus events over Server-Sent Events for clients that
// cannot hold a WebSocket.
type EventHandler struct {
	bus *event.Bus
}

func NewEventHandler(bus *event.Bus) *EventHandler {
	return &EventHandler{bus: bus}
}

func (h *EventHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Subscribe)
	return r
}

func (h *EventHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	events := h.bus.Subscribe()
	defer h.bus.Unsubscribe(events)

	fmt.Fprintf(w, "data: {\"type\": \"connected\"}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			jsonData, err := json.Marshal(ev)
			if err == nil {
				fmt.Fprintf(w, "data: %s\n\n", jsonData)
				flusher.Flush()
			}

		case <-ticker.C:
			fmt.Fprintf(w, ": keepalive\n\n")
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
