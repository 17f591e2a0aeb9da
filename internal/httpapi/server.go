package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dingd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	HandleMessage(ctx context.Context, appKey string, p *types.InboundPayload) (types.MessageResult, error)
	AcceptEvent(ctx context.Context, appKey string, p *types.EventPayload) (types.EventAccepted, error)
	Handlers() types.HandlersResponse
	Apps() types.AppsResponse
	Ready() bool
}

// NewMux builds the callback and admin router.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	r.Route("/callbacks/{appKey}", func(r chi.Router) {
		r.Post("/robot", robotHandler(svc))
		r.Post("/events", eventsHandler(svc))
	})

	r.Get("/handlers", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Handlers())
	})

	r.Get("/apps", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Apps())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("draining"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// robotHandler dispatches a robot message and answers once every reply
// pipeline has finished.
//
// @Summary      Robot message callback
// @Description  Selects matching chat handlers and sends their replies.
// @Tags         callbacks
// @Accept       json
// @Produce      json
// @Param        appKey  path  string                true  "Application key"
// @Param        body    body  types.InboundPayload  true  "Robot callback payload"
// @Success      200  {object}  types.MessageResult
// @Failure      400  {object}  types.ErrorResponse
// @Failure      404  {object}  types.ErrorResponse
// @Failure      502  {object}  types.ErrorResponse
// @Router       /callbacks/{appKey}/robot [post]
func robotHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appKey := chi.URLParam(r, "appKey")
		var p types.InboundPayload
		if !decodeJSON(w, r, &p) {
			return
		}
		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, "robot callback start", appKey)

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		if callbackTimeout > 0 {
			var tcancel context.CancelFunc
			ctx, tcancel = context.WithTimeout(ctx, time.Duration(callbackTimeout)*time.Second)
			defer tcancel()
		}
		res, err := svc.HandleMessage(ctx, appKey, &p)
		if err != nil {
			// If the client went away there is nobody to answer.
			if r.Context().Err() != nil {
				return
			}
			status := statusFor(err)
			writeJSONError(w, status, err.Error())
			logEnd(r, lvl, "robot callback end", status, time.Since(start), err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		logEnd(r, lvl, "robot callback end", http.StatusOK, time.Since(start), nil)
	}
}

// eventsHandler queues a mini-app event and answers 202 immediately.
//
// @Summary      Mini-app event callback
// @Description  Queues the event for leveled dispatch to mini-app handlers.
// @Tags         callbacks
// @Accept       json
// @Produce      json
// @Param        appKey  path  string              true  "Application key"
// @Param        body    body  types.EventPayload  true  "Event payload"
// @Success      202  {object}  types.EventAccepted
// @Failure      400  {object}  types.ErrorResponse
// @Failure      404  {object}  types.ErrorResponse
// @Failure      503  {object}  types.ErrorResponse
// @Router       /callbacks/{appKey}/events [post]
func eventsHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appKey := chi.URLParam(r, "appKey")
		var p types.EventPayload
		if !decodeJSON(w, r, &p) {
			return
		}
		if strings.TrimSpace(p.EventType.Code) == "" {
			writeJSONError(w, http.StatusBadRequest, "eventType.code is required")
			return
		}
		lvl := requestLogLevel(r)
		start := time.Now()
		logStart(r, lvl, "event callback", appKey)
		acc, err := svc.AcceptEvent(r.Context(), appKey, &p)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusServiceUnavailable {
				IncrementBackpressure("draining")
			}
			writeJSONError(w, status, err.Error())
			logEnd(r, lvl, "event callback end", status, time.Since(start), err)
			return
		}
		writeJSON(w, http.StatusAccepted, acc)
		logEnd(r, lvl, "event callback end", http.StatusAccepted, time.Since(start), nil)
	}
}

// decodeJSON enforces the content type and body limit and decodes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func statusFor(err error) int {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}
