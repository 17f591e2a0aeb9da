// Package service connects the ingress transports to the dispatch core. It
// resolves the target application, drops redelivered callbacks and calls the
// chat dispatcher or the mini-app executor.
package service

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/rs/zerolog"

	"dingd/internal/chatbot"
	"dingd/internal/dedup"
	"dingd/internal/miniapp"
	"dingd/pkg/types"
)

// Config wires a Service.
type Config struct {
	Apps     []types.App
	Chat     *chatbot.Dispatcher
	Executor *miniapp.Executor
	// Dedup defaults to dedup.Off.
	Dedup  dedup.Store
	Logger *zerolog.Logger
}

// Service is safe for concurrent use.
type Service struct {
	apps   map[string]types.App
	order  []string
	chat   *chatbot.Dispatcher
	exec   *miniapp.Executor
	dedup  dedup.Store
	log    zerolog.Logger
	closed atomic.Bool
}

// New builds a Service. Apps are indexed by Key; later duplicates win.
func New(cfg Config) *Service {
	s := &Service{
		apps:  make(map[string]types.App, len(cfg.Apps)),
		chat:  cfg.Chat,
		exec:  cfg.Executor,
		dedup: cfg.Dedup,
		log:   zerolog.Nop(),
	}
	for _, a := range cfg.Apps {
		if _, ok := s.apps[a.Key]; !ok {
			s.order = append(s.order, a.Key)
		}
		s.apps[a.Key] = a
	}
	if s.chat == nil {
		s.chat = chatbot.NewDispatcher(chatbot.Config{})
	}
	if s.exec == nil {
		s.exec = miniapp.NewExecutor(miniapp.Config{})
	}
	if s.dedup == nil {
		s.dedup = dedup.Off{}
	}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("component", "service").Logger()
	}
	return s
}

// App returns the application registered under key.
func (s *Service) App(key string) (types.App, error) {
	a, ok := s.apps[key]
	if !ok {
		return types.App{}, ErrAppNotFound(key)
	}
	return a, nil
}

// HandleMessage dispatches a robot message for the app and waits for every
// reply pipeline. Handler failures are reported in the result; only a
// failed reply delivery is returned as an error.
func (s *Service) HandleMessage(ctx context.Context, appKey string, p *types.InboundPayload) (types.MessageResult, error) {
	var out types.MessageResult
	app, err := s.App(appKey)
	if err != nil {
		return out, err
	}
	if s.closed.Load() {
		return out, drainingError{}
	}
	if p != nil && s.seen(ctx, app, "msg:"+p.MsgID) {
		out.Duplicate = true
		return out, nil
	}
	res, err := s.chat.Handle(ctx, app, p)
	out.DispatchID = res.DispatchID
	out.Matched = res.Matched
	out.Sent = res.Sent
	out.Failed = res.Failed
	if err != nil && chatbot.IsGatewayError(err) {
		return out, deliveryError{err: err}
	}
	return out, nil
}

// AcceptEvent queues a mini-app event for leveled dispatch and returns
// without waiting for handlers.
func (s *Service) AcceptEvent(ctx context.Context, appKey string, p *types.EventPayload) (types.EventAccepted, error) {
	var out types.EventAccepted
	app, err := s.App(appKey)
	if err != nil {
		return out, err
	}
	if s.closed.Load() {
		return out, drainingError{}
	}
	if p == nil {
		return out, nil
	}
	if p.AppID == "" {
		p.AppID = app.Key
	}
	if s.seen(ctx, app, "evt:"+p.EventID) {
		out.Duplicate = true
		return out, nil
	}
	id, err := s.exec.DispatchAsync(p)
	if err != nil {
		s.forget(ctx, app, "evt:"+p.EventID)
		return out, drainingError{}
	}
	out.DispatchID = id
	return out, nil
}

// DispatchEvent runs a mini-app event synchronously and returns the report.
// Stream Mode uses it so the acknowledgement follows the handlers.
func (s *Service) DispatchEvent(ctx context.Context, appKey string, p *types.EventPayload) (miniapp.Report, error) {
	app, err := s.App(appKey)
	if err != nil {
		return miniapp.Report{}, err
	}
	if s.closed.Load() {
		return miniapp.Report{}, drainingError{}
	}
	if p == nil || s.seen(ctx, app, "evt:"+p.EventID) {
		return miniapp.Report{}, nil
	}
	if p.AppID == "" {
		p.AppID = app.Key
	}
	rep := s.exec.Dispatch(ctx, p)
	if rep.Interrupted {
		// Abandoned levels only run if the redelivery is let through.
		s.forget(ctx, app, "evt:"+p.EventID)
	}
	return rep, nil
}

// seen consults the de-dup store. Store errors are logged and the delivery
// is treated as new.
func (s *Service) seen(ctx context.Context, app types.App, id string) bool {
	if id == "msg:" || id == "evt:" {
		return false
	}
	dup, err := s.dedup.Seen(ctx, app.Key+":"+id)
	if err != nil {
		s.log.Warn().Err(err).Str("app", app.Key).Msg("dedup lookup failed")
		return false
	}
	if dup {
		duplicatesTotal.Inc()
		s.log.Debug().Str("app", app.Key).Str("delivery", id).Msg("redelivered callback dropped")
	}
	return dup
}

// forget releases a delivery id recorded by seen. The caller's ctx may
// already be done, so the store call runs detached from its cancellation.
func (s *Service) forget(ctx context.Context, app types.App, id string) {
	if id == "msg:" || id == "evt:" {
		return
	}
	if err := s.dedup.Forget(context.WithoutCancel(ctx), app.Key+":"+id); err != nil {
		s.log.Warn().Err(err).Str("app", app.Key).Msg("dedup forget failed")
	}
}

// Handlers lists the registered chat descriptors and mini-app handlers.
func (s *Service) Handlers() types.HandlersResponse {
	var out types.HandlersResponse
	for _, d := range s.chat.Registry().All() {
		out.Chat = append(out.Chat, types.HandlerInfo{
			Name:        d.Name,
			Description: d.Description,
			Order:       d.Priority,
			Fallback:    d.Fallback(),
			IgnoredApps: d.IgnoredApps,
		})
	}
	for _, h := range s.exec.Handlers() {
		out.Events = append(out.Events, types.HandlerInfo{Name: h.Name(), Order: h.Level()})
	}
	sort.SliceStable(out.Events, func(i, j int) bool { return out.Events[i].Order < out.Events[j].Order })
	return out
}

// Apps lists the configured applications in configuration order.
func (s *Service) Apps() types.AppsResponse {
	out := types.AppsResponse{Apps: make([]types.App, 0, len(s.order))}
	for _, k := range s.order {
		out.Apps = append(out.Apps, s.apps[k])
	}
	return out
}

// Ready reports whether the service accepts callbacks.
func (s *Service) Ready() bool { return !s.closed.Load() }

// Close stops accepting callbacks, waits for queued mini-app dispatches and
// closes the de-dup store.
func (s *Service) Close(ctx context.Context) error {
	s.closed.Store(true)
	err := s.exec.Close(ctx)
	if cerr := s.dedup.Close(); err == nil {
		err = cerr
	}
	return err
}
