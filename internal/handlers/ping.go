package handlers

import (
	"context"
	"time"

	"dingd/internal/chatbot"
	"dingd/pkg/types"
)

const PingName = "ping"

// NewPing registers a handler replying "pong" with the server time.
func NewPing(reg *chatbot.Registry) chatbot.Descriptor {
	d := chatbot.Descriptor{
		Name:        PingName,
		Description: "ping: check that the bot is alive",
		Priority:    -50,
		Predicate:   chatbot.Equals("ping"),
		Hooks: chatbot.Hooks{
			BeforeMessageSend: func(context.Context, types.App, *types.InboundPayload) any {
				return time.Now()
			},
			BuildMessage: func(_ context.Context, _ types.App, _ *types.InboundPayload, data any) (types.Message, error) {
				at, _ := data.(time.Time)
				return types.TextMessage{Content: "pong " + at.Format(time.RFC3339)}, nil
			},
		},
	}
	reg.Register(d)
	return d
}
