package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"dingd/pkg/types"
)

// DefaultBaseURL is the DingTalk open API host.
const DefaultBaseURL = "https://api.dingtalk.com"

const defaultTimeout = 10 * time.Second

const (
	batchSendPath = "/v1.0/robot/oToMessages/batchSend"
	cardSendPath  = "/v1.0/im/interactiveCards/send"
	cardPath      = "/v1.0/im/interactiveCards"
)

// DingTalkConfig configures the DingTalk gateway.
type DingTalkConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// DingTalk sends robot one-to-one messages through
// POST /v1.0/robot/oToMessages/batchSend, and interactive cards through
// POST /v1.0/im/interactiveCards/send.
type DingTalk struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger

	mu     sync.Mutex
	tokens map[string]oauth2.TokenSource
}

type batchSendRequest struct {
	RobotCode string   `json:"robotCode"`
	UserIDs   []string `json:"userIds"`
	MsgKey    string   `json:"msgKey"`
	MsgParam  string   `json:"msgParam"`
}

type batchSendResponse struct {
	ProcessQueryKey           string   `json:"processQueryKey"`
	InvalidStaffIDList        []string `json:"invalidStaffIdList,omitempty"`
	FlowControlledStaffIDList []string `json:"flowControlledStaffIdList,omitempty"`
}

type cardData struct {
	CardParamMap map[string]string `json:"cardParamMap"`
}

type cardSendRequest struct {
	CardTemplateID     string   `json:"cardTemplateId"`
	OutTrackID         string   `json:"outTrackId"`
	RobotCode          string   `json:"robotCode"`
	ReceiverUserIDList []string `json:"receiverUserIdList"`
	// 0 is a one-to-one chat.
	ConversationType int      `json:"conversationType"`
	CallbackRouteKey string   `json:"callbackRouteKey,omitempty"`
	CardData         cardData `json:"cardData"`
}

type cardSendResponse struct {
	Result struct {
		ProcessQueryKey string `json:"processQueryKey"`
	} `json:"result"`
}

type cardOptions struct {
	UpdateCardDataByKey    bool `json:"updateCardDataByKey"`
	UpdatePrivateDataByKey bool `json:"updatePrivateDataByKey"`
}

type cardUpdateRequest struct {
	OutTrackID string   `json:"outTrackId"`
	CardData   cardData `json:"cardData"`
	// 1 means user ids are staff ids.
	UserIDType  int         `json:"userIdType"`
	CardOptions cardOptions `json:"cardOptions"`
}

type errorResponse struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewDingTalk builds a DingTalk gateway, applying defaults for unset fields.
func NewDingTalk(cfg DingTalkConfig) *DingTalk {
	g := &DingTalk{
		baseURL: cfg.BaseURL,
		client:  cfg.HTTPClient,
		tokens:  make(map[string]oauth2.TokenSource),
		log:     zerolog.Nop(),
	}
	if g.baseURL == "" {
		g.baseURL = DefaultBaseURL
	}
	if g.client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		g.client = &http.Client{Timeout: timeout}
	}
	if cfg.Logger != nil {
		g.log = cfg.Logger.With().Str("component", "gateway").Logger()
	}
	return g
}

func (g *DingTalk) tokenSource(app types.App) oauth2.TokenSource {
	g.mu.Lock()
	defer g.mu.Unlock()
	ts, ok := g.tokens[app.Key]
	if !ok {
		ts = NewTokenSource(g.client, g.baseURL, app)
		g.tokens[app.Key] = ts
	}
	return ts
}

// token returns the cached app token, fetching it when needed. The fetch
// itself is bounded by the token source's own timeout; ctx only bounds how
// long the caller waits. A fetch outlived by ctx still fills the cache.
func (g *DingTalk) token(ctx context.Context, app types.App) (*oauth2.Token, error) {
	type result struct {
		tok *oauth2.Token
		err error
	}
	ts := g.tokenSource(app)
	ch := make(chan result, 1)
	go func() {
		tok, err := ts.Token()
		ch <- result{tok, err}
	}()
	select {
	case r := <-ch:
		return r.tok, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send delivers msg to recipients. An empty recipient list is a no-op.
// A types.CardMessage is sent as an interactive card.
func (g *DingTalk) Send(ctx context.Context, app types.App, recipients []string, msg types.Message) error {
	if len(recipients) == 0 {
		return nil
	}
	if card, ok := asCard(msg); ok {
		return g.sendCard(ctx, app, recipients, card)
	}
	param, err := msg.MsgParam()
	if err != nil {
		return &Error{App: app.Key, Err: err}
	}
	var out batchSendResponse
	err = g.call(ctx, app, http.MethodPost, batchSendPath, batchSendRequest{
		RobotCode: app.Robot(),
		UserIDs:   recipients,
		MsgKey:    msg.MsgKey(),
		MsgParam:  param,
	}, &out)
	if err != nil {
		return err
	}
	ev := g.log.Debug().Str("app", app.Key).Str("msg_key", msg.MsgKey()).Int("recipients", len(recipients)).Str("process_query_key", out.ProcessQueryKey)
	if len(out.InvalidStaffIDList) > 0 {
		ev = ev.Strs("invalid_staff_ids", out.InvalidStaffIDList)
	}
	ev.Msg("robot message sent")
	return nil
}

func (g *DingTalk) sendCard(ctx context.Context, app types.App, recipients []string, card types.CardMessage) error {
	if err := validCard(card); err != nil {
		return &Error{App: app.Key, Err: err}
	}
	var out cardSendResponse
	err := g.call(ctx, app, http.MethodPost, cardSendPath, cardSendRequest{
		CardTemplateID:     card.TemplateID,
		OutTrackID:         card.OutTrackID,
		RobotCode:          app.Robot(),
		ReceiverUserIDList: recipients,
		CallbackRouteKey:   card.CallbackRouteKey,
		CardData:           cardData{CardParamMap: card.Params},
	}, &out)
	if err != nil {
		return err
	}
	g.log.Debug().Str("app", app.Key).Str("out_track_id", card.OutTrackID).Int("recipients", len(recipients)).Str("process_query_key", out.Result.ProcessQueryKey).Msg("interactive card sent")
	return nil
}

// UpdateCard replaces the parameters of a card sent earlier, matched by
// card.OutTrackID. Only keys present in card.Params change.
func (g *DingTalk) UpdateCard(ctx context.Context, app types.App, card types.CardMessage) error {
	if card.OutTrackID == "" {
		return &Error{App: app.Key, Err: errors.New("card update needs an out track id")}
	}
	err := g.call(ctx, app, http.MethodPut, cardPath, cardUpdateRequest{
		OutTrackID:  card.OutTrackID,
		CardData:    cardData{CardParamMap: card.Params},
		UserIDType:  1,
		CardOptions: cardOptions{UpdateCardDataByKey: true, UpdatePrivateDataByKey: true},
	}, nil)
	if err != nil {
		return err
	}
	g.log.Debug().Str("app", app.Key).Str("out_track_id", card.OutTrackID).Msg("interactive card updated")
	return nil
}

// call performs one authenticated open API request. Every failure is an *Error.
func (g *DingTalk) call(ctx context.Context, app types.App, method, path string, in, out any) error {
	tok, err := g.token(ctx, app)
	if err != nil {
		return &Error{App: app.Key, Err: err}
	}
	body, err := json.Marshal(in)
	if err != nil {
		return &Error{App: app.Key, Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &Error{App: app.Key, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-acs-dingtalk-access-token", tok.AccessToken)
	resp, err := g.client.Do(req)
	if err != nil {
		return &Error{App: app.Key, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		var er errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&er)
		return &Error{App: app.Key, StatusCode: resp.StatusCode, Code: er.Code, Message: er.Message}
	}
	if out != nil {
		_ = json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func asCard(msg types.Message) (types.CardMessage, bool) {
	switch m := msg.(type) {
	case types.CardMessage:
		return m, true
	case *types.CardMessage:
		if m != nil {
			return *m, true
		}
	}
	return types.CardMessage{}, false
}

func validCard(card types.CardMessage) error {
	switch {
	case card.TemplateID == "":
		return errors.New("card message needs a template id")
	case card.OutTrackID == "":
		return errors.New("card message needs an out track id")
	}
	return nil
}

var (
	_ Gateway     = (*DingTalk)(nil)
	_ CardUpdater = (*DingTalk)(nil)
)
