package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"dingd/pkg/types"
)

// appTokenSource fetches an app access token from the DingTalk open API.
// It is always wrapped in oauth2.ReuseTokenSource so the token is cached
// until shortly before expiry. oauth2.TokenSource takes no context, so each
// fetch has its own 10s timeout; callers that must not wait longer than
// their own context go through DingTalk.token.
type appTokenSource struct {
	client  *http.Client
	baseURL string
	app     types.App
}

type accessTokenRequest struct {
	AppKey    string `json:"appKey"`
	AppSecret string `json:"appSecret"`
}

type accessTokenResponse struct {
	AccessToken string `json:"accessToken"`
	ExpireIn    int64  `json:"expireIn"`
	Code        string `json:"code,omitempty"`
	Message     string `json:"message,omitempty"`
}

// NewTokenSource returns a caching token source for app.
func NewTokenSource(client *http.Client, baseURL string, app types.App) oauth2.TokenSource {
	if client == nil {
		client = http.DefaultClient
	}
	return oauth2.ReuseTokenSource(nil, &appTokenSource{client: client, baseURL: baseURL, app: app})
}

func (s *appTokenSource) Token() (*oauth2.Token, error) {
	body, err := json.Marshal(accessTokenRequest{AppKey: s.app.Key, AppSecret: s.app.Secret})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1.0/oauth2/accessToken", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	defer resp.Body.Close()
	var out accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("access token: decode: %w", err)
	}
	if resp.StatusCode/100 != 2 || out.AccessToken == "" {
		return nil, fmt.Errorf("access token: status %d: %s %s", resp.StatusCode, out.Code, out.Message)
	}
	return &oauth2.Token{
		AccessToken: out.AccessToken,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Duration(out.ExpireIn) * time.Second),
	}, nil
}
