package chatbot

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dingd/internal/events"
	"dingd/internal/gateway"
	"dingd/pkg/types"
)

// Config wires a Dispatcher.
type Config struct {
	Registry  *Registry
	Gateway   gateway.Gateway
	Publisher events.Publisher
	Logger    *zerolog.Logger
	// Concurrent runs each matched handler's pipeline on its own goroutine.
	// Hooks then share the payload concurrently and must not mutate it.
	Concurrent bool
}

// Dispatcher selects handlers for a payload and runs their reply pipelines.
type Dispatcher struct {
	reg        *Registry
	gw         gateway.Gateway
	pub        events.Publisher
	log        zerolog.Logger
	concurrent bool
}

// Result summarizes one Handle call.
type Result struct {
	DispatchID string
	Matched    int
	Sent       int
	Failed     int
}

type runOutcome struct {
	sent bool
	err  error
}

// NewDispatcher constructs a Dispatcher from cfg. A nil Registry is replaced
// by an empty one.
func NewDispatcher(cfg Config) *Dispatcher {
	d := &Dispatcher{
		reg:        cfg.Registry,
		gw:         cfg.Gateway,
		pub:        events.OrNoop(cfg.Publisher),
		log:        zerolog.Nop(),
		concurrent: cfg.Concurrent,
	}
	if d.reg == nil {
		d.reg = NewRegistry()
	}
	if cfg.Logger != nil {
		d.log = cfg.Logger.With().Str("component", "chatbot").Logger()
	}
	return d
}

// Registry returns the registry the dispatcher selects from.
func (d *Dispatcher) Registry() *Registry { return d.reg }

// Handle selects the handlers applying to p and runs the reply pipeline of
// each. Failures are contained per handler; the returned error joins every
// handler failure and is nil when all pipelines completed.
func (d *Dispatcher) Handle(ctx context.Context, app types.App, p *types.InboundPayload) (Result, error) {
	res := Result{DispatchID: uuid.NewString()}
	if p == nil || p.Content() == "" {
		messagesTotal.WithLabelValues("rejected").Inc()
		d.log.Debug().Str("app", app.Key).Msg("payload without text content skipped")
		return res, nil
	}
	matched, fallback := selectHandlers(d.reg, app, p)
	res.Matched = len(matched)
	switch {
	case len(matched) == 0:
		messagesTotal.WithLabelValues("unmatched").Inc()
		d.log.Debug().Str("app", app.Key).Str("dispatch_id", res.DispatchID).Msg("no applicable handler")
		return res, nil
	case fallback:
		messagesTotal.WithLabelValues("fallback").Inc()
	default:
		messagesTotal.WithLabelValues("matched").Inc()
	}
	names := make([]string, len(matched))
	for i, h := range matched {
		names[i] = h.Name
	}
	d.pub.Publish(events.New(events.MessageMatched, res.DispatchID, app.Key, map[string]any{
		"handlers": names,
		"fallback": fallback,
		"sender":   p.SenderStaffID,
	}))

	outcomes := make([]runOutcome, len(matched))
	if d.concurrent {
		var wg sync.WaitGroup
		for i, h := range matched {
			wg.Add(1)
			go func(i int, h Descriptor) {
				defer wg.Done()
				outcomes[i] = d.run(ctx, res.DispatchID, app, p, h)
			}(i, h)
		}
		wg.Wait()
	} else {
		for i, h := range matched {
			outcomes[i] = d.run(ctx, res.DispatchID, app, p, h)
		}
	}

	var errs []error
	for _, o := range outcomes {
		if o.sent {
			res.Sent++
		}
		if o.err != nil {
			res.Failed++
			errs = append(errs, o.err)
		}
	}
	return res, errors.Join(errs...)
}

// run executes one handler's pipeline: notify, prepare, send, after.
func (d *Dispatcher) run(ctx context.Context, dispatchID string, app types.App, p *types.InboundPayload, h Descriptor) (out runOutcome) {
	phase := "notify"
	log := d.log.With().Str("app", app.Key).Str("handler", h.Name).Str("dispatch_id", dispatchID).Logger()
	defer func() {
		if r := recover(); r != nil {
			out.err = &HandlerError{Handler: h.Name, Phase: phase, Panic: r}
		}
		d.record(log, dispatchID, app, h, out)
	}()

	h.Hooks.NotifyBeforeSend(ctx, app, p)

	phase = "before_send"
	data := h.Hooks.BeforeMessageSend(ctx, app, p)

	phase = "build"
	msg, err := h.Hooks.BuildMessage(ctx, app, p, data)
	if err != nil {
		return runOutcome{err: &HandlerError{Handler: h.Name, Phase: phase, Err: err}}
	}
	if msg != nil {
		phase = "send"
		if d.gw == nil {
			return runOutcome{err: &GatewayError{Handler: h.Name, Err: errors.New("no gateway configured")}}
		}
		if err := d.gw.Send(ctx, app, []string{p.SenderStaffID}, msg); err != nil {
			return runOutcome{err: &GatewayError{Handler: h.Name, Err: err}}
		}
		out.sent = true
	}

	phase = "after_send"
	h.Hooks.AfterMessageSent(ctx, app, p)
	return out
}

func (d *Dispatcher) record(log zerolog.Logger, dispatchID string, app types.App, h Descriptor, out runOutcome) {
	switch {
	case out.err != nil:
		result := "failed"
		if IsGatewayError(out.err) {
			result = "gateway_error"
		}
		handlerRunsTotal.WithLabelValues(h.Name, result).Inc()
		log.Error().Err(out.err).Msg("chat handler failed")
		d.pub.Publish(events.New(events.HandlerFailed, dispatchID, app.Key, map[string]any{
			"handler": h.Name,
			"error":   out.err.Error(),
		}))
	case out.sent:
		handlerRunsTotal.WithLabelValues(h.Name, "sent").Inc()
		log.Debug().Msg("reply sent")
		d.pub.Publish(events.New(events.MessageSent, dispatchID, app.Key, map[string]any{"handler": h.Name}))
	default:
		handlerRunsTotal.WithLabelValues(h.Name, "skipped").Inc()
		log.Debug().Msg("handler produced no reply")
	}
}
