package handlers

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"dingd/internal/chatbot"
	"dingd/internal/gateway"
	"dingd/internal/miniapp"
	"dingd/pkg/types"
)

type sentMessage struct {
	app        types.App
	recipients []string
	msg        types.Message
}

type recordingGateway struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (g *recordingGateway) Send(_ context.Context, app types.App, recipients []string, msg types.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.sent = append(g.sent, sentMessage{app: app, recipients: recipients, msg: msg})
	return nil
}

var _ gateway.Gateway = (*recordingGateway)(nil)

func chat(content string) *types.InboundPayload {
	return &types.InboundPayload{MsgID: "m1", Text: &types.TextContent{Content: content}, SenderStaffID: "staff-1"}
}

func newChat(gw gateway.Gateway) (*chatbot.Registry, *chatbot.Dispatcher) {
	reg := chatbot.NewRegistry()
	NewHelp(reg, "Commands")
	NewPing(reg)
	NewFallback(reg, "silent")
	return reg, chatbot.NewDispatcher(chatbot.Config{Registry: reg, Gateway: gw})
}

func TestBuiltinsRegistrationOrder(t *testing.T) {
	reg, _ := newChat(nil)
	all := reg.All()
	if len(all) != 3 || all[0].Name != HelpName || all[1].Name != PingName || all[2].Name != FallbackName {
		t.Fatalf("unexpected registry %+v", all)
	}
}

func TestHelpListsDescriptions(t *testing.T) {
	gw := &recordingGateway{}
	_, d := newChat(gw)
	res, err := d.Handle(context.Background(), types.App{Key: "k", Type: "helpdesk"}, chat("  /help "))
	if err != nil || res.Sent != 1 {
		t.Fatalf("Handle: %+v %v", res, err)
	}
	md, ok := gw.sent[0].msg.(types.MarkdownMessage)
	if !ok {
		t.Fatalf("expected markdown, got %T", gw.sent[0].msg)
	}
	if !strings.Contains(md.Text, "/help") || !strings.Contains(md.Text, "ping") {
		t.Fatalf("help text missing commands: %q", md.Text)
	}
	if strings.Contains(md.Text, "unrecognized") {
		t.Fatalf("help text lists the fallback: %q", md.Text)
	}
}

func TestPingAndFallback(t *testing.T) {
	gw := &recordingGateway{}
	_, d := newChat(gw)
	app := types.App{Key: "k", Type: "helpdesk"}

	if _, err := d.Handle(context.Background(), app, chat("ping")); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if txt := gw.sent[0].msg.(types.TextMessage).Content; !strings.HasPrefix(txt, "pong ") {
		t.Fatalf("unexpected ping reply %q", txt)
	}
	if gw.sent[0].recipients[0] != "staff-1" {
		t.Fatalf("reply not addressed to sender: %v", gw.sent[0].recipients)
	}

	if _, err := d.Handle(context.Background(), app, chat("what?")); err != nil {
		t.Fatalf("fallback: %v", err)
	}
	if txt := gw.sent[1].msg.(types.TextMessage).Content; !strings.Contains(txt, "/help") {
		t.Fatalf("unexpected fallback reply %q", txt)
	}

	res, _ := d.Handle(context.Background(), types.App{Key: "q", Type: "silent"}, chat("what?"))
	if res.Matched != 0 {
		t.Fatalf("fallback ran for an ignored app type")
	}
}

func event(code string) *types.EventPayload {
	return &types.EventPayload{
		EventID:   "e1",
		EventType: types.EventType{Code: code, Name: "Approval finished"},
		AppID:     "mini",
		Data:      map[string]any{"result": "agree", "instance": "i-1"},
	}
}

func TestNotifierLevelsAndFilter(t *testing.T) {
	gw := &recordingGateway{}
	exec := miniapp.NewExecutor(miniapp.Config{Workers: 2})
	defer exec.Close(context.Background())

	robot := types.App{Key: "robot"}
	NewEventLog(exec, nil)
	NewNotifier(exec, gw, robot, []string{"u1", "u2"}, []string{"approval_finish"})

	rep := exec.Dispatch(context.Background(), event("approval_finish"))
	if len(rep.Levels) != 2 || rep.Levels[0].Order != 0 || rep.Levels[1].Order != 1 {
		t.Fatalf("unexpected levels %+v", rep.Levels)
	}
	if len(gw.sent) != 1 || len(gw.sent[0].recipients) != 2 || gw.sent[0].app.Key != "robot" {
		t.Fatalf("unexpected sends %+v", gw.sent)
	}
	md := gw.sent[0].msg.(types.MarkdownMessage)
	if !strings.Contains(md.Text, "instance: i-1") || strings.Index(md.Text, "instance") > strings.Index(md.Text, "result") {
		t.Fatalf("unexpected rendering %q", md.Text)
	}

	rep = exec.Dispatch(context.Background(), event("user_add_org"))
	if rep.Selected != 1 {
		t.Fatalf("notifier should skip other codes, selected=%d", rep.Selected)
	}
}

func TestNotifierGatewayFailureRecorded(t *testing.T) {
	gw := &recordingGateway{err: errors.New("503")}
	exec := miniapp.NewExecutor(miniapp.Config{Workers: 1})
	defer exec.Close(context.Background())
	NewNotifier(exec, gw, types.App{Key: "robot"}, []string{"u1"}, nil)

	rep := exec.Dispatch(context.Background(), event("anything"))
	f := rep.Failures()
	if len(f) != 1 || f[0].Handler != NotifierName || f[0].Err == nil {
		t.Fatalf("expected recorded notifier failure, got %+v", f)
	}
}

func TestNotifierWithoutRecipientsIsInactive(t *testing.T) {
	exec := miniapp.NewExecutor(miniapp.Config{Workers: 1})
	defer exec.Close(context.Background())
	NewNotifier(exec, &recordingGateway{}, types.App{}, nil, nil)
	if rep := exec.Dispatch(context.Background(), event("x")); rep.Selected != 0 {
		t.Fatalf("expected no selected handlers")
	}
}

func TestNotifierSendsCardWhenTemplateSet(t *testing.T) {
	gw := &recordingGateway{}
	exec := miniapp.NewExecutor(miniapp.Config{Workers: 1})
	defer exec.Close(context.Background())
	NewNotifier(exec, gw, types.App{Key: "robot"}, []string{"u1"}, nil).UseCard("tpl-1")

	p := event("approval_finish")
	p.EventID = "e-42"
	if rep := exec.Dispatch(context.Background(), p); len(rep.Failures()) != 0 {
		t.Fatalf("unexpected failures %+v", rep.Failures())
	}
	if len(gw.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(gw.sent))
	}
	c, ok := gw.sent[0].msg.(types.CardMessage)
	if !ok {
		t.Fatalf("expected card message, got %T", gw.sent[0].msg)
	}
	if c.TemplateID != "tpl-1" || c.OutTrackID != "dingd-e-42" || c.Params["result"] != "agree" || c.Params["code"] != "approval_finish" {
		t.Fatalf("unexpected card %+v", c)
	}
}
