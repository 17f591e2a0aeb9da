package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dingd/internal/chatbot"
	"dingd/internal/dedup"
	"dingd/internal/miniapp"
	"dingd/pkg/types"
)

type fakeGateway struct {
	mu   sync.Mutex
	n    int
	fail error
}

func (g *fakeGateway) Send(context.Context, types.App, []string, types.Message) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return g.fail
	}
	g.n++
	return nil
}

func echo(reg *chatbot.Registry) {
	reg.Register(chatbot.Descriptor{
		Name:      "echo",
		Predicate: chatbot.HasPrefix("echo"),
		Hooks: chatbot.Hooks{
			BuildMessage: func(_ context.Context, _ types.App, p *types.InboundPayload, _ any) (types.Message, error) {
				return types.TextMessage{Content: p.Content()}, nil
			},
		},
	})
}

func newService(t *testing.T, gw *fakeGateway, store dedup.Store) (*Service, *atomic.Int32) {
	t.Helper()
	reg := chatbot.NewRegistry()
	echo(reg)
	exec := miniapp.NewExecutor(miniapp.Config{Workers: 2})
	var events atomic.Int32
	exec.Register(miniapp.Func{HandlerName: "count", Fn: func(context.Context, *types.EventPayload) (bool, error) {
		events.Add(1)
		return true, nil
	}})
	s := New(Config{
		Apps:     []types.App{{Key: "bot", Type: "helpdesk"}, {Key: "mini", Type: "h5"}},
		Chat:     chatbot.NewDispatcher(chatbot.Config{Registry: reg, Gateway: gw}),
		Executor: exec,
		Dedup:    store,
	})
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s, &events
}

func msg(id, content string) *types.InboundPayload {
	return &types.InboundPayload{MsgID: id, Text: &types.TextContent{Content: content}, SenderStaffID: "u1"}
}

func TestHandleMessage(t *testing.T) {
	gw := &fakeGateway{}
	s, _ := newService(t, gw, dedup.NewMemory(time.Minute))

	res, err := s.HandleMessage(context.Background(), "bot", msg("m1", "echo hi"))
	if err != nil || res.Matched != 1 || res.Sent != 1 || res.DispatchID == "" {
		t.Fatalf("unexpected result %+v %v", res, err)
	}
	res, err = s.HandleMessage(context.Background(), "bot", msg("m1", "echo hi"))
	if err != nil || !res.Duplicate || gw.n != 1 {
		t.Fatalf("redelivery not dropped: %+v %v sends=%d", res, err, gw.n)
	}
	res, err = s.HandleMessage(context.Background(), "bot", msg("", "   "))
	if err != nil || res.Matched != 0 {
		t.Fatalf("blank payload should be ignored: %+v %v", res, err)
	}
}

func TestHandleMessageErrors(t *testing.T) {
	gw := &fakeGateway{fail: errors.New("remote 500")}
	s, _ := newService(t, gw, nil)

	if _, err := s.HandleMessage(context.Background(), "nope", msg("m1", "echo")); !IsAppNotFound(err) {
		t.Fatalf("expected app not found, got %v", err)
	}
	res, err := s.HandleMessage(context.Background(), "bot", msg("m2", "echo"))
	if !IsDeliveryFailed(err) || res.Failed != 1 {
		t.Fatalf("expected delivery failure, got %+v %v", res, err)
	}
	var he interface{ StatusCode() int }
	if !errors.As(err, &he) || he.StatusCode() != http.StatusBadGateway {
		t.Fatalf("delivery failure should map to 502")
	}
}

func TestAcceptEvent(t *testing.T) {
	s, events := newService(t, &fakeGateway{}, dedup.NewMemory(time.Minute))
	p := &types.EventPayload{EventID: "e1", EventType: types.EventType{Code: "c"}}

	acc, err := s.AcceptEvent(context.Background(), "mini", p)
	if err != nil || acc.DispatchID == "" {
		t.Fatalf("AcceptEvent: %+v %v", acc, err)
	}
	if p.AppID != "mini" {
		t.Fatalf("app id not defaulted: %q", p.AppID)
	}
	acc, _ = s.AcceptEvent(context.Background(), "mini", &types.EventPayload{EventID: "e1", EventType: types.EventType{Code: "c"}})
	if !acc.Duplicate {
		t.Fatalf("expected duplicate")
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if events.Load() != 1 {
		t.Fatalf("expected one dispatched event, got %d", events.Load())
	}
	if _, err := s.AcceptEvent(context.Background(), "mini", p); !IsDraining(err) {
		t.Fatalf("expected draining error after Close, got %v", err)
	}
	if s.Ready() {
		t.Fatalf("closed service reports ready")
	}
}

func TestDispatchEventSynchronous(t *testing.T) {
	s, events := newService(t, &fakeGateway{}, nil)
	rep, err := s.DispatchEvent(context.Background(), "mini", &types.EventPayload{EventID: "e9", EventType: types.EventType{Code: "c"}})
	if err != nil || rep.Selected != 1 || events.Load() != 1 {
		t.Fatalf("unexpected %+v %v", rep, err)
	}
}

func TestListings(t *testing.T) {
	s, _ := newService(t, &fakeGateway{}, nil)
	h := s.Handlers()
	if len(h.Chat) != 1 || h.Chat[0].Name != "echo" || len(h.Events) != 1 || h.Events[0].Name != "count" {
		t.Fatalf("unexpected handlers %+v", h)
	}
	apps := s.Apps().Apps
	if len(apps) != 2 || apps[0].Key != "bot" || apps[1].Key != "mini" {
		t.Fatalf("unexpected apps %+v", apps)
	}
}

func TestDispatchEventInterruptedAllowsRedelivery(t *testing.T) {
	exec := miniapp.NewExecutor(miniapp.Config{Workers: 2})
	var late atomic.Int32
	exec.Register(miniapp.Func{HandlerName: "slow", HandlerLevel: 0, Fn: func(context.Context, *types.EventPayload) (bool, error) {
		time.Sleep(50 * time.Millisecond)
		return true, nil
	}})
	exec.Register(miniapp.Func{HandlerName: "late", HandlerLevel: 1, Fn: func(context.Context, *types.EventPayload) (bool, error) {
		late.Add(1)
		return true, nil
	}})
	s := New(Config{
		Apps:     []types.App{{Key: "mini", Type: "h5"}},
		Executor: exec,
		Dedup:    dedup.NewMemory(time.Minute),
	})
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	ev := func() *types.EventPayload {
		return &types.EventPayload{EventID: "e-int", EventType: types.EventType{Code: "c"}}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	rep, err := s.DispatchEvent(ctx, "mini", ev())
	if err != nil || !rep.Interrupted {
		t.Fatalf("expected interrupted dispatch, got %+v %v", rep, err)
	}
	if late.Load() != 0 {
		t.Fatalf("level 1 ran despite interruption")
	}

	rep, err = s.DispatchEvent(context.Background(), "mini", ev())
	if err != nil || rep.Interrupted || rep.Selected != 2 {
		t.Fatalf("redelivery not dispatched: %+v %v", rep, err)
	}
	if late.Load() != 1 {
		t.Fatalf("expected level 1 to run on redelivery, got %d", late.Load())
	}

	rep, _ = s.DispatchEvent(context.Background(), "mini", ev())
	if rep.Selected != 0 {
		t.Fatalf("completed event should be dropped as duplicate, got %+v", rep)
	}
}

func TestAcceptEventAfterExecutorClosed(t *testing.T) {
	store := dedup.NewMemory(time.Minute)
	s, events := newService(t, &fakeGateway{}, store)
	if err := s.exec.Close(context.Background()); err != nil {
		t.Fatalf("executor Close: %v", err)
	}
	p := &types.EventPayload{EventID: "e-late", EventType: types.EventType{Code: "c"}}
	if _, err := s.AcceptEvent(context.Background(), "mini", p); !IsDraining(err) {
		t.Fatalf("expected draining error, got %v", err)
	}
	if events.Load() != 0 {
		t.Fatalf("event ran after executor closed")
	}
	if seen, _ := store.Seen(context.Background(), "mini:evt:e-late"); seen {
		t.Fatalf("rejected event left its id recorded")
	}
}
