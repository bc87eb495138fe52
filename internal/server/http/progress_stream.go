package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	// ssePollInterval is how often the stream polls the syncer for state.
	ssePollInterval = 500 * time.Millisecond
	// sseMaxDuration is the maximum time an SSE stream may remain open.
	sseMaxDuration = 4 * time.Hour
)

// sseEvent represents an event sent via SSE.
type sseEvent struct {
	EventType string    `json:"event_type"`
	Message   string    `json:"message"`
	Progress  float64   `json:"progress"`
	Timestamp time.Time `json:"timestamp"`
}

// streamSyncProgress handles GET /api/v1/journals/sync/progress (SSE). The
// stream replays sync status until the sync finishes, then closes.
func (s *Server) streamSyncProgress(w http.ResponseWriter, r *http.Request) {
	// Set SSE headers.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	status := s.syncer.Status()

	// If no sync is in flight, send one event and close.
	if !s.syncer.Running() {
		sendSSEEvent(w, flusher, sseEvent{
			EventType: "completed",
			Message:   status.Message,
			Progress:  status.Progress,
			Timestamp: time.Now(),
		})
		return
	}

	sendSSEEvent(w, flusher, sseEvent{
		EventType: "stream_started",
		Message:   status.Message,
		Progress:  status.Progress,
		Timestamp: time.Now(),
	})

	deadlineTimer := time.NewTimer(sseMaxDuration)
	defer deadlineTimer.Stop()
	ticker := time.NewTicker(ssePollInterval)
	defer ticker.Stop()

	last := status
	for {
		select {
		case <-r.Context().Done():
			return

		case <-deadlineTimer.C:
			sendSSEEvent(w, flusher, sseEvent{
				EventType: "timeout",
				Message:   "stream max duration exceeded",
				Progress:  last.Progress,
				Timestamp: time.Now(),
			})
			return

		case <-ticker.C:
			current := s.syncer.Status()

			if !s.syncer.Running() {
				sendSSEEvent(w, flusher, sseEvent{
					EventType: "completed",
					Message:   current.Message,
					Progress:  current.Progress,
					Timestamp: time.Now(),
				})
				return
			}

			if current == last {
				continue
			}
			last = current

			sendSSEEvent(w, flusher, sseEvent{
				EventType: "progress_update",
				Message:   current.Message,
				Progress:  current.Progress,
				Timestamp: time.Now(),
			})
		}
	}
}

// sendSSEEvent writes a single SSE event to the response writer.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event sseEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.EventType, data)
	flusher.Flush()
}
