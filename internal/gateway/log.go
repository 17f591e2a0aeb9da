package gateway

import (
	"context"

	"github.com/rs/zerolog"

	"dingd/pkg/types"
)

// Log is a dry-run gateway that only logs outbound messages.
type Log struct {
	log zerolog.Logger
}

// NewLog returns a dry-run gateway writing to l (nil discards).
func NewLog(l *zerolog.Logger) *Log {
	if l == nil {
		return &Log{log: zerolog.Nop()}
	}
	return &Log{log: l.With().Str("component", "gateway").Logger()}
}

func (g *Log) Send(ctx context.Context, app types.App, recipients []string, msg types.Message) error {
	param, err := msg.MsgParam()
	if err != nil {
		return &Error{App: app.Key, Err: err}
	}
	g.log.Info().Str("app", app.Key).Strs("recipients", recipients).Str("msg_key", msg.MsgKey()).Str("msg_param", param).Msg("dry-run send")
	return nil
}

func (g *Log) UpdateCard(ctx context.Context, app types.App, card types.CardMessage) error {
	g.log.Info().Str("app", app.Key).Str("out_track_id", card.OutTrackID).Interface("params", card.Params).Msg("dry-run card update")
	return nil
}

var (
	_ Gateway     = (*Log)(nil)
	_ CardUpdater = (*Log)(nil)
)
