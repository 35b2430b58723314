package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/copilot-ai/copilot/internal/event"
	"github.com/copilot-ai/copilot/internal/logging"
)

// sseHeartbeatInterval keeps idle connections alive through proxies.
const sseHeartbeatInterval = 30 * time.Second

// sseWriter wraps http.ResponseWriter for SSE.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	rc      *http.ResponseController
}

// newSSEWriter creates an SSE writer.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}
	return &sseWriter{w: w, flusher: flusher, rc: http.NewResponseController(w)}, nil
}

// writeEvent writes one SSE event and flushes it.
func (s *sseWriter) writeEvent(eventType string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", eventType, payload); err != nil {
		return err
	}

	// ResponseController flushes through middleware wrappers; fall back to
	// the plain Flusher if it can't.
	if err := s.rc.Flush(); err != nil {
		s.flusher.Flush()
	}
	return nil
}

// writeHeartbeat writes an SSE comment line.
func (s *sseWriter) writeHeartbeat() {
	fmt.Fprintf(s.w, ": heartbeat\n\n")
	s.flusher.Flush()
}

// events handles GET /event: a firehose of bus events as SSE. A sessionId
// query param narrows session-scoped events to one session.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}

	w.WriteHeader(http.StatusOK)
	sse.flusher.Flush()

	if err := sse.writeEvent("connected", map[string]any{}); err != nil {
		return
	}

	events := make(chan event.Event, 10)
	unsub := s.bus.SubscribeAll(func(e event.Event) {
		select {
		case events <- e:
		default:
			logging.Warn().
				Str("eventType", string(e.Type)).
				Msg("SSE event dropped: channel full")
		}
	})
	defer unsub()

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			sse.writeHeartbeat()
		case e := <-events:
			if sessionID != "" && !eventMatchesSession(e, sessionID) {
				continue
			}
			if err := sse.writeEvent(string(e.Type), e.Data); err != nil {
				return
			}
		}
	}
}

// eventMatchesSession reports whether a session-scoped event belongs to the
// given session. Events without a session scope always pass.
func eventMatchesSession(e event.Event, sessionID string) bool {
	switch data := e.Data.(type) {
	case event.SessionData:
		return data.Session != nil && data.Session.ID == sessionID
	case event.MessagePushedData:
		return data.SessionID == sessionID
	case event.TitleGeneratedData:
		return data.SessionID == sessionID
	case event.TranscriptionData:
		return data.SessionID == sessionID
	default:
		return true
	}
}
