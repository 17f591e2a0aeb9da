package handlers

import (
	"context"
	"fmt"
	"strings"

	"dingd/internal/chatbot"
	"dingd/pkg/types"
)

// HelpName is the registered name of the help handler.
const HelpName = "help"

// NewHelp registers a handler answering "/help" with the descriptions of
// every chat handler that applies to the calling app.
func NewHelp(reg *chatbot.Registry, title string) chatbot.Descriptor {
	d := chatbot.Descriptor{
		Name:        HelpName,
		Description: "/help: list available commands",
		Priority:    -100,
		Predicate:   chatbot.HasPrefix("/help"),
		Hooks: chatbot.Hooks{
			BuildMessage: func(_ context.Context, app types.App, _ *types.InboundPayload, _ any) (types.Message, error) {
				return types.MarkdownMessage{Title: title, Text: helpText(reg, app, title)}, nil
			},
		},
	}
	reg.Register(d)
	return d
}

func helpText(reg *chatbot.Registry, app types.App, title string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n", title)
	for _, d := range reg.All() {
		if d.Fallback() || d.Description == "" || d.Ignores(app.Type) {
			continue
		}
		fmt.Fprintf(&b, "- %s\n", d.Description)
	}
	return b.String()
}
