// Package bootstrap assembles the process from a loaded configuration: the
// outbound gateway, both dispatchers with their built-in handlers, the
// redelivery store, the audit trail, the service and its HTTP router.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"dingd/internal/audit"
	"dingd/internal/chatbot"
	"dingd/internal/config"
	"dingd/internal/dedup"
	"dingd/internal/events"
	"dingd/internal/gateway"
	"dingd/internal/handlers"
	"dingd/internal/httpapi"
	"dingd/internal/miniapp"
	"dingd/internal/service"
	"dingd/internal/stream"
	"dingd/pkg/types"
)

// Components is the assembled process.
type Components struct {
	Config    config.Config
	Apps      []types.App
	Gateway   gateway.Gateway
	Registry  *chatbot.Registry
	Chat      *chatbot.Dispatcher
	Pool      *miniapp.Pool
	Executor  *miniapp.Executor
	Dedup     dedup.Store
	Audit     *audit.Publisher
	Publisher events.Publisher
	Service   *service.Service
	Stream    *stream.Runner
	Handler   http.Handler
}

// Options adjust Build for tests and tools.
type Options struct {
	Logger *zerolog.Logger
	// Gateway replaces the gateway selected by cfg.Gateway.Mode.
	Gateway gateway.Gateway
	// Publisher receives dispatch events in addition to the audit trail.
	Publisher events.Publisher
	// BaseContext bounds asynchronous mini-app dispatches.
	BaseContext context.Context
}

// Build validates cfg and wires every component. Handlers are registered in
// a fixed order before Build returns, so the registries are complete before
// any traffic is accepted.
func Build(cfg config.Config, opts Options) (*Components, error) {
	config.Defaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log := opts.Logger
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}

	c := &Components{Config: cfg}
	for _, a := range cfg.Apps {
		c.Apps = append(c.Apps, a.App())
	}

	c.Gateway = opts.Gateway
	if c.Gateway == nil {
		switch cfg.Gateway.Mode {
		case config.GatewayLog:
			c.Gateway = gateway.NewLog(log)
		default:
			c.Gateway = gateway.NewDingTalk(gateway.DingTalkConfig{
				BaseURL: cfg.Gateway.BaseURL,
				Timeout: cfg.GatewayTimeout(),
				Logger:  log,
			})
		}
	}

	switch cfg.Dedup.Backend {
	case config.DedupRedis:
		store, err := dedup.NewRedis(dedup.RedisConfig{Addr: cfg.Dedup.RedisAddr, TTL: cfg.DedupTTL()})
		if err != nil {
			return nil, err
		}
		c.Dedup = store
	case config.DedupOff:
		c.Dedup = dedup.Off{}
	default:
		c.Dedup = dedup.NewMemory(cfg.DedupTTL())
	}

	if cfg.Audit.Enabled() {
		c.Audit = audit.New(audit.Config{Brokers: cfg.Audit.Brokers, Topic: cfg.Audit.Topic, Logger: log})
		c.Publisher = events.Multi(c.Audit, opts.Publisher)
	} else {
		c.Publisher = events.OrNoop(opts.Publisher)
	}

	c.Registry = chatbot.NewRegistry()
	c.Chat = chatbot.NewDispatcher(chatbot.Config{
		Registry:   c.Registry,
		Gateway:    c.Gateway,
		Publisher:  c.Publisher,
		Logger:     log,
		Concurrent: cfg.ConcurrentPipelines,
	})
	c.Pool = miniapp.NewPool(cfg.WorkerPoolSize, cfg.QueueDepth)
	c.Executor = miniapp.NewExecutor(miniapp.Config{
		Pool:            c.Pool,
		Publisher:       c.Publisher,
		Logger:          log,
		BaseContext:     opts.BaseContext,
		DispatchTimeout: cfg.DispatchTimeout(),
	})
	registerHandlers(c, log)

	c.Service = service.New(service.Config{
		Apps:     c.Apps,
		Chat:     c.Chat,
		Executor: c.Executor,
		Dedup:    c.Dedup,
		Logger:   log,
	})
	c.Stream = stream.NewRunner(c.Service, log)

	httpapi.SetLogger(*log)
	httpapi.SetDefaultLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(int64(cfg.MaxBodyBytes))
	httpapi.SetCallbackTimeoutSeconds(int64(cfg.DispatchTimeoutSeconds))
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)
	if opts.BaseContext != nil {
		httpapi.SetBaseContext(opts.BaseContext)
	}
	c.Handler = httpapi.NewMux(c.Service)
	return c, nil
}

// registerHandlers constructs the built-in handlers. Order matters: it is
// the registration order reported by `dingd handlers` and the tie-break
// order for equal priorities.
func registerHandlers(c *Components, log *zerolog.Logger) {
	handlers.NewHelp(c.Registry, c.Config.Help.Title)
	handlers.NewPing(c.Registry)
	handlers.NewFallback(c.Registry)

	handlers.NewEventLog(c.Executor, log)
	if len(c.Config.Notify.Recipients) > 0 {
		if app, ok := c.notifyApp(); ok {
			n := handlers.NewNotifier(c.Executor, c.Gateway, app, c.Config.Notify.Recipients, c.Config.Notify.EventCodes)
			if c.Config.Notify.CardTemplate != "" {
				n.UseCard(c.Config.Notify.CardTemplate)
			}
		} else {
			log.Warn().Str("app", c.Config.Notify.App).Msg("notifier disabled: no robot app configured")
		}
	}
}

func (c *Components) notifyApp() (types.App, bool) {
	for _, a := range c.Apps {
		if c.Config.Notify.App == "" || a.Key == c.Config.Notify.App {
			return a, true
		}
	}
	return types.App{}, false
}

// StartStream connects the Stream Mode apps.
func (c *Components) StartStream(ctx context.Context) error {
	return c.Stream.Start(ctx, c.Apps)
}

// Close drains the service, then flushes the audit trail and stops the pool.
func (c *Components) Close(ctx context.Context) error {
	c.Stream.Close()
	var errs []error
	if err := c.Service.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	c.Pool.Close()
	if c.Audit != nil {
		if err := c.Audit.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close audit: %w", err))
		}
	}
	return errors.Join(errs...)
}
