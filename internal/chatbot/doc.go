// Package chatbot routes robot chat messages to registered handlers and runs
// each matched handler's reply pipeline. It is structured into small files by
// concern:
//
//   - descriptor.go: Descriptor, Hooks, Predicate and predicate helpers.
//   - registry.go: append-only, priority-ordered Registry.
//   - router.go: Select (predicate matching with catch-all fallback).
//   - dispatcher.go: Dispatcher and the four-phase reply pipeline.
//   - errors.go: GatewayError, HandlerError and IsXxx helpers.
//   - metrics.go: Prometheus counters for matching and handler runs.
//
// Handlers are registered once during bootstrap, before any traffic is
// accepted; the Registry has no unregister operation. Priority only orders
// predicate evaluation. It does not order execution of matched handlers.
package chatbot
