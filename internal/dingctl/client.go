package dingctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"dingd/pkg/types"
)

// Client posts simulated DingTalk callbacks to a running dingd.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient trims a trailing slash from baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// statusError carries a non-2xx reply from the server.
type statusError struct {
	Code int
	Msg  string
}

func (e statusError) Error() string { return fmt.Sprintf("server returned %d: %s", e.Code, e.Msg) }

// IsStatus reports whether err is a server reply with the given code.
func IsStatus(err error, code int) bool {
	se, ok := err.(statusError)
	return ok && se.Code == code
}

// Robot sends a text message as if the robot had been @-mentioned.
// An empty msgID is replaced with a fresh one so the server does not de-dup it.
func (c *Client) Robot(ctx context.Context, app, text, sender, msgID string) (types.MessageResult, error) {
	if msgID == "" {
		msgID = uuid.NewString()
	}
	in := types.InboundPayload{
		MsgID:         msgID,
		MsgType:       "text",
		Text:          &types.TextContent{Content: text},
		SenderStaffID: sender,
		CreateAt:      time.Now().UnixMilli(),
	}
	var out types.MessageResult
	err := c.do(ctx, http.MethodPost, "/callbacks/"+app+"/robot", in, &out)
	return out, err
}

// Event posts a mini-app event callback.
func (c *Client) Event(ctx context.Context, app, code string, data map[string]any) (types.EventAccepted, error) {
	ev := types.EventPayload{
		EventID:   uuid.NewString(),
		EventType: types.EventType{Code: code},
		AppID:     app,
		BornTime:  time.Now().UTC(),
		Data:      data,
	}
	var out types.EventAccepted
	err := c.do(ctx, http.MethodPost, "/callbacks/"+app+"/events", ev, &out)
	return out, err
}

func (c *Client) Handlers(ctx context.Context) (types.HandlersResponse, error) {
	var out types.HandlersResponse
	err := c.do(ctx, http.MethodGet, "/handlers", nil, &out)
	return out, err
}

func (c *Client) Apps(ctx context.Context) (types.AppsResponse, error) {
	var out types.AppsResponse
	err := c.do(ctx, http.MethodGet, "/apps", nil, &out)
	return out, err
}

// Wait polls path until it answers 200 or ctx ends.
func (c *Client) Wait(ctx context.Context, path string, every time.Duration) error {
	if every <= 0 {
		every = time.Second
	}
	for {
		if err := c.do(ctx, http.MethodGet, path, nil, nil); err == nil {
			return nil
		}
		select {
		case <-time.After(every):
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for %s%s: %w", c.BaseURL, path, ctx.Err())
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		var er types.ErrorResponse
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return statusError{Code: resp.StatusCode, Msg: msg}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
