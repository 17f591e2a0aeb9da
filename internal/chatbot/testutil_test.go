package chatbot

import (
	"context"
	"errors"
	"sync"

	"dingd/pkg/types"
)

// recordingGateway captures sends and optionally fails them.
type recordingGateway struct {
	mu    sync.Mutex
	sends []sentMessage
	err   error
}

type sentMessage struct {
	app        string
	recipients []string
	msg        types.Message
}

func (g *recordingGateway) Send(ctx context.Context, app types.App, recipients []string, msg types.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.sends = append(g.sends, sentMessage{app: app.Key, recipients: append([]string(nil), recipients...), msg: msg})
	return nil
}

func (g *recordingGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sends)
}

var errSend = errors.New("send failed")

func payload(text string) *types.InboundPayload {
	return &types.InboundPayload{MsgID: "m1", Text: &types.TextContent{Content: text}, SenderStaffID: "staff1"}
}

func textReply(s string) Hooks {
	return Hooks{BuildMessage: func(context.Context, types.App, *types.InboundPayload, any) (types.Message, error) {
		return types.TextMessage{Content: s}, nil
	}}
}

func names(ds []Descriptor) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Name
	}
	return out
}

func equalNames(ds []Descriptor, want ...string) bool {
	got := names(ds)
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

var testApp = types.App{Key: "ding-test", Type: "helpdesk"}
