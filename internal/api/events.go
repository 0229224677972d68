package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/sse"

	"github.com/smazurov/videosqueeze/internal/events"
)

// registerSSERoutes registers the conversion event stream.
func (s *Server) registerSSERoutes() {
	sse.Register(s.api, huma.Operation{
		OperationID: "events-stream",
		Method:      http.MethodGet,
		Path:        "/api/events",
		Summary:     "Server-Sent Events Stream",
		Description: "Engine state, session lifecycle, progress and results. The current engine state is sent on connect.",
		Tags:        []string{"events"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, map[string]any{
		"engine":           events.EngineStateChangedEvent{},
		"session-created":  events.SessionCreatedEvent{},
		"session-deleted":  events.SessionDeletedEvent{},
		"state":            events.ConversionStateChangedEvent{},
		"progress":         events.ConversionProgressEvent{},
		"completed":        events.ConversionCompletedEvent{},
		"failed":           events.ConversionFailedEvent{},
		"presets-reloaded": events.PresetsReloadedEvent{},
	}, func(ctx context.Context, _ *struct{}, send sse.Sender) {
		eventCh := make(chan any, 64)

		unsubscribers := []func(){
			events.SubscribeToChannel[events.EngineStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SessionCreatedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.SessionDeletedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ConversionStateChangedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ConversionProgressEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ConversionCompletedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.ConversionFailedEvent](s.eventBus, eventCh),
			events.SubscribeToChannel[events.PresetsReloadedEvent](s.eventBus, eventCh),
		}
		defer func() {
			for _, unsub := range unsubscribers {
				unsub()
			}
		}()

		state, loadErr := s.driver.EngineState()
		if err := send.Data(events.EngineStateChangedEvent{
			State:     string(state),
			Error:     loadErr,
			Timestamp: events.Now(),
		}); err != nil {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.jobCtx.Done():
				return
			case event := <-eventCh:
				if err := send.Data(event); err != nil {
					return
				}
			}
		}
	})
}
