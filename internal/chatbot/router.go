package chatbot

import (
	"strings"

	"dingd/pkg/types"
)

// Select returns the handlers that apply to p for app, in registration order.
//
// Payloads without text content select nothing. Content is trimmed in place
// before matching, so calling Select again on the same payload is stable.
// When no predicate-bearing handler applies, the catch-all handlers not
// ignoring app are returned instead. IgnoredApps is honoured for catch-all
// handlers too, so the fallback set can be smaller than the full set of
// predicate-less handlers.
func Select(reg *Registry, app types.App, p *types.InboundPayload) []Descriptor {
	out, _ := selectHandlers(reg, app, p)
	return out
}

// Select is shorthand for Select(r, app, p).
func (r *Registry) Select(app types.App, p *types.InboundPayload) []Descriptor {
	return Select(r, app, p)
}

// selectHandlers also reports whether the result came from the fallback set.
func selectHandlers(reg *Registry, app types.App, p *types.InboundPayload) ([]Descriptor, bool) {
	if p == nil || p.Content() == "" {
		return nil, false
	}
	p.Text.Content = strings.TrimSpace(p.Text.Content)
	if p.Text.Content == "" {
		return nil, false
	}
	all := reg.snapshot()
	var matched []Descriptor
	for _, d := range all {
		if d.Predicate == nil || d.Ignores(app.Type) {
			continue
		}
		if safeMatch(d.Predicate, p) {
			matched = append(matched, d)
		}
	}
	if len(matched) > 0 {
		return matched, false
	}
	var fallback []Descriptor
	for _, d := range all {
		if d.Predicate == nil && !d.Ignores(app.Type) {
			fallback = append(fallback, d)
		}
	}
	return fallback, len(fallback) > 0
}

// safeMatch treats a panicking predicate as a non-match.
func safeMatch(pred Predicate, p *types.InboundPayload) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return pred(p)
}
