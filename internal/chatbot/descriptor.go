package chatbot

import (
	"context"
	"regexp"
	"strings"

	"dingd/pkg/types"
)

// Predicate decides whether a handler applies to a payload. It must be pure.
type Predicate func(p *types.InboundPayload) bool

// Hooks are the reply pipeline phases of a handler. Nil hooks are replaced by
// no-op defaults when the descriptor is registered.
type Hooks struct {
	// NotifyBeforeSend runs first; its outcome is ignored.
	NotifyBeforeSend func(ctx context.Context, app types.App, p *types.InboundPayload)
	// BeforeMessageSend produces an opaque value handed to BuildMessage.
	BeforeMessageSend func(ctx context.Context, app types.App, p *types.InboundPayload) any
	// BuildMessage returns the reply. A nil message means "nothing to send".
	BuildMessage func(ctx context.Context, app types.App, p *types.InboundPayload, data any) (types.Message, error)
	// AfterMessageSent runs after a successful (or skipped) send.
	AfterMessageSent func(ctx context.Context, app types.App, p *types.InboundPayload)
}

// Descriptor is one registered chat handler.
type Descriptor struct {
	Name        string
	Description string
	// Priority orders predicate evaluation; lower registers earlier.
	Priority int
	// Predicate nil marks a catch-all handler used only as fallback.
	Predicate Predicate
	// IgnoredApps lists app types this handler never runs for.
	IgnoredApps []string
	Hooks       Hooks
}

// Fallback reports whether d is a catch-all handler.
func (d Descriptor) Fallback() bool { return d.Predicate == nil }

// Ignores reports whether d must not run for apps of the given type.
func (d Descriptor) Ignores(appType string) bool {
	for _, t := range d.IgnoredApps {
		if t == appType {
			return true
		}
	}
	return false
}

func withDefaultHooks(h Hooks) Hooks {
	if h.NotifyBeforeSend == nil {
		h.NotifyBeforeSend = func(context.Context, types.App, *types.InboundPayload) {}
	}
	if h.BeforeMessageSend == nil {
		h.BeforeMessageSend = func(context.Context, types.App, *types.InboundPayload) any { return nil }
	}
	if h.BuildMessage == nil {
		h.BuildMessage = func(context.Context, types.App, *types.InboundPayload, any) (types.Message, error) { return nil, nil }
	}
	if h.AfterMessageSent == nil {
		h.AfterMessageSent = func(context.Context, types.App, *types.InboundPayload) {}
	}
	return h
}

// HasPrefix matches payloads whose content starts with prefix.
func HasPrefix(prefix string) Predicate {
	return func(p *types.InboundPayload) bool { return strings.HasPrefix(p.Content(), prefix) }
}

// Equals matches payloads whose content is exactly s.
func Equals(s string) Predicate {
	return func(p *types.InboundPayload) bool { return p.Content() == s }
}

// Matches matches payloads whose content matches the regular expression.
func Matches(re *regexp.Regexp) Predicate {
	return func(p *types.InboundPayload) bool { return re.MatchString(p.Content()) }
}
