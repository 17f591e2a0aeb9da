// Package stream receives robot messages and mini-app events over DingTalk
// Stream Mode, the long-lived websocket alternative to HTTP callbacks.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/open-dingtalk/dingtalk-stream-sdk-go/chatbot"
	"github.com/open-dingtalk/dingtalk-stream-sdk-go/client"
	"github.com/open-dingtalk/dingtalk-stream-sdk-go/event"
	"github.com/open-dingtalk/dingtalk-stream-sdk-go/handler"
	"github.com/open-dingtalk/dingtalk-stream-sdk-go/payload"
	"github.com/rs/zerolog"

	"dingd/internal/miniapp"
	"dingd/pkg/types"
)

// Target is the part of the service the stream callbacks feed.
type Target interface {
	HandleMessage(ctx context.Context, appKey string, p *types.InboundPayload) (types.MessageResult, error)
	DispatchEvent(ctx context.Context, appKey string, p *types.EventPayload) (miniapp.Report, error)
}

// Runner owns one stream client per Stream Mode app.
type Runner struct {
	target  Target
	log     zerolog.Logger
	clients []*client.StreamClient
}

// NewRunner returns a Runner feeding target. A nil logger disables logging.
func NewRunner(target Target, logger *zerolog.Logger) *Runner {
	r := &Runner{target: target, log: zerolog.Nop()}
	if logger != nil {
		r.log = logger.With().Str("component", "stream").Logger()
	}
	return r
}

// Start connects every app with Stream set. Apps without it are skipped.
// On error, clients started so far are closed.
func (r *Runner) Start(ctx context.Context, apps []types.App) error {
	for _, app := range apps {
		if !app.Stream {
			continue
		}
		cli := client.NewStreamClient(
			client.WithAppCredential(client.NewAppCredentialConfig(app.Key, app.Secret)),
		)
		cli.RegisterChatBotCallbackRouter(r.onBotMessage(app.Key))
		cli.RegisterAllEventRouter(r.onEvent(app.Key))
		if err := cli.Start(ctx); err != nil {
			r.Close()
			return fmt.Errorf("start stream client for %s: %w", app.Key, err)
		}
		r.log.Info().Str("app", app.Key).Msg("stream client connected")
		r.clients = append(r.clients, cli)
	}
	return nil
}

// Connected returns the number of running clients.
func (r *Runner) Connected() int { return len(r.clients) }

// Close disconnects every client.
func (r *Runner) Close() {
	for _, c := range r.clients {
		c.Close()
	}
	r.clients = nil
}

func (r *Runner) onBotMessage(appKey string) chatbot.IChatBotMessageHandler {
	return func(ctx context.Context, data *chatbot.BotCallbackDataModel) ([]byte, error) {
		res, err := r.target.HandleMessage(ctx, appKey, inboundFromBot(data))
		if err != nil {
			r.log.Error().Err(err).Str("app", appKey).Msg("stream robot message failed")
			return nil, err
		}
		r.log.Debug().Str("app", appKey).Int("matched", res.Matched).Int("sent", res.Sent).Msg("stream robot message handled")
		return nil, nil
	}
}

// onEvent handles raw event frames so the ack can depend on the dispatch
// report: an interrupted dispatch is answered "later" for redelivery.
func (r *Runner) onEvent(appKey string) handler.IFrameHandler {
	return func(ctx context.Context, df *payload.DataFrame) (*payload.DataFrameResponse, error) {
		p, err := eventFromFrame(df)
		if err != nil {
			// Undecodable events are acknowledged so they are not redelivered forever.
			r.log.Warn().Err(err).Str("app", appKey).Msg("stream event dropped")
			return event.NewSuccessResponse()
		}
		rep, err := r.target.DispatchEvent(ctx, appKey, p)
		if err != nil || rep.Interrupted {
			r.log.Warn().Err(err).Str("app", appKey).Str("event_id", p.EventID).Msg("stream event deferred")
			return event.NewLaterResponse()
		}
		return event.NewSuccessResponse()
	}
}

func inboundFromBot(data *chatbot.BotCallbackDataModel) *types.InboundPayload {
	if data == nil {
		return nil
	}
	return &types.InboundPayload{
		MsgID:            data.MsgId,
		MsgType:          data.Msgtype,
		Text:             &types.TextContent{Content: data.Text.Content},
		SenderStaffID:    data.SenderStaffId,
		SenderNick:       data.SenderNick,
		ConversationID:   data.ConversationId,
		ConversationType: data.ConversationType,
		CreateAt:         data.CreateAt,
	}
}

func eventFromFrame(df *payload.DataFrame) (*types.EventPayload, error) {
	if df == nil {
		return nil, fmt.Errorf("empty data frame")
	}
	h := event.NewEventHeaderFromDataFrame(df)
	if strings.TrimSpace(h.EventType) == "" {
		return nil, fmt.Errorf("data frame without event type")
	}
	p := &types.EventPayload{
		EventID:   h.EventId,
		EventType: types.EventType{Code: h.EventType},
		CorpID:    h.EventCorpId,
		AppID:     h.EventUnifiedAppId,
	}
	if h.EventBornTime > 0 {
		p.BornTime = time.UnixMilli(h.EventBornTime).UTC()
	}
	if df.Data != "" {
		if err := json.Unmarshal([]byte(df.Data), &p.Data); err != nil {
			return nil, fmt.Errorf("decode event %s data: %w", h.EventId, err)
		}
	}
	return p, nil
}
