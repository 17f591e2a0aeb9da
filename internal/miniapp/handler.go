package miniapp

import (
	"context"

	"dingd/pkg/types"
)

// Handler processes mini-app events of the kinds it supports.
type Handler interface {
	Name() string
	// Supports reports whether the handler applies to p.
	Supports(p *types.EventPayload) bool
	// Level is the execution level; lower levels run first.
	Level() int
	// Process handles p. The boolean is the handler's own success report and
	// does not influence dispatch.
	Process(ctx context.Context, p *types.EventPayload) (bool, error)
}

// Func adapts plain functions to Handler.
type Func struct {
	HandlerName  string
	HandlerLevel int
	// Match nil supports every event.
	Match func(p *types.EventPayload) bool
	Fn    func(ctx context.Context, p *types.EventPayload) (bool, error)
}

func (f Func) Name() string { return f.HandlerName }
func (f Func) Level() int   { return f.HandlerLevel }

func (f Func) Supports(p *types.EventPayload) bool {
	if f.Match == nil {
		return true
	}
	return f.Match(p)
}

func (f Func) Process(ctx context.Context, p *types.EventPayload) (bool, error) {
	if f.Fn == nil {
		return true, nil
	}
	return f.Fn(ctx, p)
}

// ForCodes returns a Match func accepting the given event codes.
func ForCodes(codes ...string) func(p *types.EventPayload) bool {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return func(p *types.EventPayload) bool {
		_, ok := set[p.EventType.Code]
		return ok
	}
}
