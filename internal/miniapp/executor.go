package miniapp

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dingd/internal/events"
	"dingd/pkg/types"
)

// Config wires an Executor.
type Config struct {
	// Pool is shared between executors when set. Otherwise the executor owns
	// a pool of Workers workers and QueueDepth slots.
	Pool       *Pool
	Workers    int
	QueueDepth int
	Publisher  events.Publisher
	Logger     *zerolog.Logger
	// BaseContext bounds DispatchAsync calls. Defaults to Background.
	BaseContext context.Context
	// DispatchTimeout bounds each async dispatch; zero disables it.
	DispatchTimeout time.Duration
}

// Executor runs mini-app event handlers level by level.
type Executor struct {
	mu       sync.Mutex // serializes Register
	handlers atomic.Pointer[[]Handler]

	pool     *Pool
	ownsPool bool
	pub      events.Publisher
	log      zerolog.Logger
	baseCtx  context.Context
	timeout  time.Duration

	closeMu  sync.RWMutex // orders inflight.Add before Close's Wait
	closing  bool
	inflight sync.WaitGroup
}

// NewExecutor constructs an Executor from cfg.
func NewExecutor(cfg Config) *Executor {
	e := &Executor{
		pool:    cfg.Pool,
		pub:     events.OrNoop(cfg.Publisher),
		log:     zerolog.Nop(),
		baseCtx: cfg.BaseContext,
		timeout: cfg.DispatchTimeout,
	}
	if e.pool == nil {
		e.pool = NewPool(cfg.Workers, cfg.QueueDepth)
		e.ownsPool = true
	}
	if e.baseCtx == nil {
		e.baseCtx = context.Background()
	}
	if cfg.Logger != nil {
		e.log = cfg.Logger.With().Str("component", "miniapp").Logger()
	}
	empty := []Handler{}
	e.handlers.Store(&empty)
	return e
}

// Register appends h. Handlers are registered during bootstrap; there is no
// unregister.
func (e *Executor) Register(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur := *e.handlers.Load()
	next := make([]Handler, 0, len(cur)+1)
	next = append(next, cur...)
	next = append(next, h)
	e.handlers.Store(&next)
}

// Handlers returns the registered handlers in registration order.
func (e *Executor) Handlers() []Handler {
	cur := *e.handlers.Load()
	out := make([]Handler, len(cur))
	copy(out, cur)
	return out
}

// Pool returns the worker pool the executor submits to.
func (e *Executor) Pool() *Pool { return e.pool }

// DispatchAsync runs Dispatch on its own goroutine under the base context and
// returns the dispatch ID immediately. Once Close has started it returns
// ErrExecutorClosed and the event is not dispatched.
func (e *Executor) DispatchAsync(p *types.EventPayload) (string, error) {
	e.closeMu.RLock()
	defer e.closeMu.RUnlock()
	if e.closing {
		return "", ErrExecutorClosed
	}
	id := uuid.NewString()
	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		ctx := e.baseCtx
		if e.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.timeout)
			defer cancel()
		}
		e.dispatch(ctx, id, p)
	}()
	return id, nil
}

// Dispatch runs every supporting handler for p, one level at a time, and
// blocks until the last level completes or the wait is interrupted by ctx.
func (e *Executor) Dispatch(ctx context.Context, p *types.EventPayload) Report {
	return e.dispatch(ctx, uuid.NewString(), p)
}

func (e *Executor) dispatch(ctx context.Context, id string, p *types.EventPayload) Report {
	rep := Report{DispatchID: id}
	if p == nil {
		return rep
	}
	rep.Event = p.EventType
	log := e.log.With().Str("dispatch_id", id).Str("event_code", p.EventType.Code).Str("event_name", p.EventType.Name).Logger()
	log.Info().Msgf("dispatching mini-app event %s", p.EventType)

	var selected []Handler
	for _, h := range *e.handlers.Load() {
		if supports(h, p) {
			selected = append(selected, h)
		}
	}
	rep.Selected = len(selected)
	if len(selected) == 0 {
		log.Info().Msg("no handler supports event")
		return rep
	}
	e.pub.Publish(events.New(events.EventDispatchStart, id, p.AppID, map[string]any{
		"event":    p.EventType.Code,
		"handlers": len(selected),
	}))

	// Tasks run detached from ctx: an interrupted wait must not cancel
	// work that was already submitted.
	taskCtx := context.WithoutCancel(ctx)
	for _, lvl := range partition(selected) {
		results := make([]TaskResult, len(lvl.Handlers))
		jobs := make([]func(), len(lvl.Handlers))
		for i, h := range lvl.Handlers {
			t := Task{Payload: p, Handler: h}
			i := i
			jobs[i] = func() { results[i] = t.Call(taskCtx) }
		}
		start := time.Now()
		err := e.pool.InvokeAll(ctx, jobs)
		elapsed := time.Since(start)
		if err != nil {
			rep.Levels = append(rep.Levels, LevelReport{Order: lvl.Order, Duration: elapsed, Interrupted: true})
			rep.Interrupted = true
			rep.Cause = err
			interruptedTotal.Inc()
			log.Error().Err(err).Int("level", lvl.Order).Msgf("dispatch of mini-app event %s interrupted", p.EventType)
			e.pub.Publish(events.New(events.DispatchInterrupted, id, p.AppID, map[string]any{
				"level": lvl.Order,
				"error": err.Error(),
			}))
			return rep
		}
		levelDuration.WithLabelValues(strconv.Itoa(lvl.Order)).Observe(elapsed.Seconds())
		log.Debug().Int("level", lvl.Order).Int("handlers", len(lvl.Handlers)).Int64("elapsed_ms", elapsed.Milliseconds()).Msg("level done")
		for _, r := range results {
			e.observe(log, id, p, r)
		}
		rep.Levels = append(rep.Levels, LevelReport{Order: lvl.Order, Results: results, Duration: elapsed})
		e.pub.Publish(events.New(events.LevelDone, id, p.AppID, map[string]any{
			"level":       lvl.Order,
			"handlers":    len(lvl.Handlers),
			"duration_ms": elapsed.Milliseconds(),
		}))
	}
	e.pub.Publish(events.New(events.EventDispatchDone, id, p.AppID, map[string]any{
		"levels":   len(rep.Levels),
		"failures": len(rep.Failures()),
	}))
	return rep
}

func (e *Executor) observe(log zerolog.Logger, id string, p *types.EventPayload, r TaskResult) {
	result := "ok"
	switch {
	case r.Panicked:
		result = "panic"
	case r.Err != nil:
		result = "error"
	case !r.OK:
		result = "false"
	}
	tasksTotal.WithLabelValues(r.Handler, result).Inc()
	if !r.Failed() {
		log.Debug().Str("handler", r.Handler).Dur("duration", r.Duration).Msg("task done")
		return
	}
	log.Error().Err(r.Err).Str("handler", r.Handler).Int("level", r.Level).Str("result", result).Msg("task failed")
	e.pub.Publish(events.New(events.TaskFailed, id, p.AppID, map[string]any{
		"handler": r.Handler,
		"level":   r.Level,
		"result":  result,
	}))
}

// Close rejects further async dispatches, waits for in-flight ones (or ctx)
// and, when the executor owns its pool, shuts the pool down.
func (e *Executor) Close(ctx context.Context) error {
	e.closeMu.Lock()
	e.closing = true
	e.closeMu.Unlock()

	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for mini-app dispatches: %w", ctx.Err())
	}
	if e.ownsPool {
		e.pool.Close()
	}
	return nil
}

// supports guards against panicking Supports implementations.
func supports(h Handler, p *types.EventPayload) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return h.Supports(p)
}
