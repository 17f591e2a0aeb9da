package handlers

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"dingd/internal/gateway"
	"dingd/internal/miniapp"
	"dingd/pkg/types"
)

const NotifierName = "notifier"

// Notifier forwards selected mini-app events to a fixed recipient list
// through the robot of App.
type Notifier struct {
	gw         gateway.Gateway
	app        types.App
	recipients []string
	match      func(*types.EventPayload) bool
	template   string
}

// NewNotifier registers a level-1 Notifier. With no event codes it supports
// every event.
func NewNotifier(exec *miniapp.Executor, gw gateway.Gateway, app types.App, recipients, eventCodes []string) *Notifier {
	n := &Notifier{
		gw:         gw,
		app:        app,
		recipients: append([]string(nil), recipients...),
		match:      func(*types.EventPayload) bool { return true },
	}
	if len(eventCodes) > 0 {
		n.match = miniapp.ForCodes(eventCodes...)
	}
	exec.Register(n)
	return n
}

// UseCard makes the notifier send an interactive card built from
// templateID instead of a markdown message. The card receives the event
// title, code and data as string parameters.
func (n *Notifier) UseCard(templateID string) *Notifier {
	n.template = templateID
	return n
}

func (n *Notifier) Name() string { return NotifierName }
func (n *Notifier) Level() int   { return 1 }

func (n *Notifier) Supports(p *types.EventPayload) bool {
	return len(n.recipients) > 0 && n.match(p)
}

func (n *Notifier) Process(ctx context.Context, p *types.EventPayload) (bool, error) {
	var msg types.Message = types.MarkdownMessage{Title: p.EventType.String(), Text: render(p)}
	if n.template != "" {
		msg = card(n.template, p)
	}
	if err := n.gw.Send(ctx, n.app, n.recipients, msg); err != nil {
		return false, fmt.Errorf("notify %s: %w", p.EventType.Code, err)
	}
	return true, nil
}

func render(p *types.EventPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n", p.EventType)
	fmt.Fprintf(&b, "- app: %s\n- corp: %s\n", p.AppID, p.CorpID)
	keys := make([]string, 0, len(p.Data))
	for k := range p.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, p.Data[k])
	}
	return b.String()
}

func card(templateID string, p *types.EventPayload) types.CardMessage {
	track := p.EventID
	if track == "" {
		track = uuid.NewString()
	}
	params := map[string]string{
		"title": p.EventType.String(),
		"code":  p.EventType.Code,
		"app":   p.AppID,
	}
	for k, v := range p.Data {
		if _, taken := params[k]; !taken {
			params[k] = fmt.Sprint(v)
		}
	}
	return types.CardMessage{TemplateID: templateID, OutTrackID: "dingd-" + track, Params: params}
}
