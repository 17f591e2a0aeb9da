package handlers

import (
	"context"
	"fmt"

	"dingd/internal/chatbot"
	"dingd/pkg/types"
)

const FallbackName = "fallback"

// NewFallback registers the catch-all handler. It only runs when no other
// handler matched and suggests "/help".
func NewFallback(reg *chatbot.Registry, ignoredApps ...string) chatbot.Descriptor {
	d := chatbot.Descriptor{
		Name:        FallbackName,
		Description: "reply to unrecognized messages",
		Priority:    1000,
		IgnoredApps: ignoredApps,
		Hooks: chatbot.Hooks{
			BuildMessage: func(_ context.Context, _ types.App, p *types.InboundPayload, _ any) (types.Message, error) {
				return types.TextMessage{Content: fmt.Sprintf("Sorry, I don't understand %q. Send /help for the list of commands.", p.Content())}, nil
			},
		},
	}
	reg.Register(d)
	return d
}
