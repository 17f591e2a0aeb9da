package handlers

import (
	"context"

	"github.com/rs/zerolog"

	"dingd/internal/miniapp"
	"dingd/pkg/types"
)

const EventLogName = "event-log"

// EventLog records every mini-app event before any other handler runs.
type EventLog struct {
	log zerolog.Logger
}

// NewEventLog registers an EventLog at level 0.
func NewEventLog(exec *miniapp.Executor, logger *zerolog.Logger) *EventLog {
	h := &EventLog{log: zerolog.Nop()}
	if logger != nil {
		h.log = logger.With().Str("handler", EventLogName).Logger()
	}
	exec.Register(h)
	return h
}

func (h *EventLog) Name() string                        { return EventLogName }
func (h *EventLog) Level() int                          { return 0 }
func (h *EventLog) Supports(p *types.EventPayload) bool { return p.EventType.Code != "" }

func (h *EventLog) Process(_ context.Context, p *types.EventPayload) (bool, error) {
	h.log.Info().
		Str("event_id", p.EventID).
		Str("event_code", p.EventType.Code).
		Str("corp_id", p.CorpID).
		Str("app_id", p.AppID).
		Time("born", p.BornTime).
		Int("fields", len(p.Data)).
		Msg("mini-app event received")
	return true, nil
}
