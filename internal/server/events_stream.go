package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/stresscore/internal/events"
)

// heartbeatInterval keeps idle streams open through proxies
const heartbeatInterval = 30 * time.Second

// EventsStreamHandler streams bus events to clients over SSE or WebSocket.
type EventsStreamHandler struct {
	eventBus *events.Bus
	log      zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(eventBus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		eventBus: eventBus,
		log:      log.With().Str("component", "events_stream").Logger(),
	}
}

// streamFrame is the JSON shape of one streamed event.
type streamFrame struct {
	Type      string                 `json:"type"`
	Module    string                 `json:"module,omitempty"`
	Timestamp string                 `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Message   string                 `json:"message,omitempty"`
}

func frameFor(event *events.Event) streamFrame {
	return streamFrame{
		Type:      string(event.Type),
		Module:    event.Module,
		Timestamp: event.Timestamp.Format(time.RFC3339),
		Data:      event.Data,
	}
}

// subscribe registers a buffered channel for the requested types (all when
// typesFilter is empty). The returned func unsubscribes.
func (h *EventsStreamHandler) subscribe(typesFilter string) (<-chan *events.Event, func()) {
	types := events.AllEventTypes
	if typesFilter != "" {
		types = nil
		for _, t := range strings.Split(typesFilter, ",") {
			if t = strings.TrimSpace(t); t != "" {
				types = append(types, events.EventType(strings.ToUpper(t)))
			}
		}
	}

	// Buffer to prevent blocking the publisher
	eventChan := make(chan *events.Event, 100)
	handler := func(event *events.Event) {
		select {
		case eventChan <- event:
		default:
			h.log.Warn().
				Str("event_type", string(event.Type)).
				Msg("Event channel full, dropping event")
		}
	}

	ids := make([]events.SubscriptionID, 0, len(types))
	for _, t := range types {
		ids = append(ids, h.eventBus.Subscribe(t, handler))
	}

	return eventChan, func() {
		for _, id := range ids {
			h.eventBus.Unsubscribe(id)
		}
	}
}

// ServeHTTP handles GET /api/events/stream requests (SSE).
// ?types=JOB_PROGRESS,JOB_COMPLETED narrows the stream.
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	typesFilter := r.URL.Query().Get("types")
	eventChan, unsubscribe := h.subscribe(typesFilter)
	defer unsubscribe()

	h.log.Info().Str("types_filter", typesFilter).Msg("Client connected to event stream")

	h.writeSSE(w, streamFrame{
		Type:      "connected",
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   "Connected to event stream",
	})
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return

		case event := <-eventChan:
			h.writeSSE(w, frameFor(event))
			flusher.Flush()

		case <-heartbeat.C:
			h.writeSSE(w, streamFrame{Type: "heartbeat", Timestamp: time.Now().Format(time.RFC3339)})
			flusher.Flush()
		}
	}
}

func (h *EventsStreamHandler) writeSSE(w http.ResponseWriter, frame streamFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to marshal event")
		data = []byte(`{"error":"failed to encode event"}`)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}

// ServeWebSocket handles GET /api/events/ws. Frames are the same JSON objects
// the SSE stream sends; the client never needs to write.
func (h *EventsStreamHandler) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	typesFilter := r.URL.Query().Get("types")
	eventChan, unsubscribe := h.subscribe(typesFilter)
	defer unsubscribe()

	// CloseRead discards client messages and cancels ctx once the peer goes away
	ctx := conn.CloseRead(r.Context())

	h.log.Info().Str("types_filter", typesFilter).Msg("Client connected to event websocket")

	if err := h.writeWS(ctx, conn, streamFrame{
		Type:      "connected",
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   "Connected to event stream",
	}); err != nil {
		return
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from event websocket")
			conn.Close(websocket.StatusNormalClosure, "")
			return

		case event := <-eventChan:
			if err := h.writeWS(ctx, conn, frameFor(event)); err != nil {
				return
			}

		case <-heartbeat.C:
			pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("WebSocket ping failed")
				return
			}
		}
	}
}

func (h *EventsStreamHandler) writeWS(ctx context.Context, conn *websocket.Conn, frame streamFrame) error {
	writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := wsjson.Write(writeCtx, conn, frame); err != nil {
		h.log.Debug().Err(err).Str("type", frame.Type).Msg("WebSocket write failed")
		return err
	}
	return nil
}
