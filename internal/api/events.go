package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fbocquet/pronos/internal/bus"
)

// handleEvents streams score and bet events over Server-Sent Events.
// Slow clients have events dropped rather than blocking the bus.
func (r *Router) handleEvents(w http.ResponseWriter, req *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events := make(chan []byte, 64)
	sub, err := r.bus.Subscribe(bus.SubjectAll, func(data []byte) {
		select {
		case events <- data:
		default:
			// client too slow, drop
		}
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to subscribe")
		return
	}
	defer sub.Unsubscribe()

	clientIP := getClientIP(req)
	log.Printf("SSE client connected from %s", clientIP)
	defer log.Printf("SSE client disconnected from %s", clientIP)

	// Tell the client we are live
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-req.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		case data := <-events:
			var envelope struct {
				Type string `json:"event"`
			}
			eventType := "message"
			if err := json.Unmarshal(data, &envelope); err == nil && envelope.Type != "" {
				eventType = envelope.Type
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", uuid.NewString(), eventType, data)
			flusher.Flush()
		}
	}
}
