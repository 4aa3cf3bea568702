package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"
	"github.com/smazurov/gpioled/internal/events"
)

// registerSSERoutes registers the native Huma SSE endpoint.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Real-time stream of session, line and lifecycle events",
		Tags:        []string{"events"},
	}, map[string]any{
		"session-opened":   events.SessionOpenedEvent{},
		"session-rejected": events.SessionRejectedEvent{},
		"session-closed":   events.SessionClosedEvent{},
		"line-changed":     events.LineChangedEvent{},
		"transfer-fault":   events.TransferFaultEvent{},
		"state-changed":    events.StateChangedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 16)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.SessionOpenedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.SessionRejectedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.SessionClosedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.LineChangedEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.TransferFaultEvent](s.options.EventBus, eventCh),
			events.SubscribeToChannel[events.StateChangedEvent](s.options.EventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		// Current state first so clients need no separate status fetch.
		state := "unknown"
		if s.options.Status != nil {
			state = s.options.Status.Status().State.String()
		}
		if err := send.Data(events.StateChangedEvent{
			From:      state,
			To:        state,
			Timestamp: time.Now().Format(time.RFC3339),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
