// Package gateway delivers outbound robot messages to DingTalk.
//
// The dispatch core only depends on the Gateway interface; DingTalk is the
// production implementation and Log is a dry-run used for local development.
package gateway

import (
	"context"

	"dingd/pkg/types"
)

// Gateway sends one message to a set of users on behalf of an app.
// A failed send returns an *Error; no retry is attempted.
type Gateway interface {
	Send(ctx context.Context, app types.App, recipients []string, msg types.Message) error
}

// CardUpdater changes the parameters of an interactive card already sent
// with Send, identified by its OutTrackID.
type CardUpdater interface {
	UpdateCard(ctx context.Context, app types.App, card types.CardMessage) error
}

// Func adapts a function to the Gateway interface.
type Func func(ctx context.Context, app types.App, recipients []string, msg types.Message) error

func (f Func) Send(ctx context.Context, app types.App, recipients []string, msg types.Message) error {
	return f(ctx, app, recipients, msg)
}
