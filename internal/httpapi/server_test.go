package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dingd/pkg/types"
)

type mockService struct {
	ready    bool
	msgErr   error
	eventErr error
	lastApp  string
	lastMsg  *types.InboundPayload
	lastEvt  *types.EventPayload
}

func (m *mockService) HandleMessage(ctx context.Context, appKey string, p *types.InboundPayload) (types.MessageResult, error) {
	m.lastApp, m.lastMsg = appKey, p
	if m.msgErr != nil {
		return types.MessageResult{}, m.msgErr
	}
	return types.MessageResult{DispatchID: "d1", Matched: 1, Sent: 1}, nil
}

func (m *mockService) AcceptEvent(ctx context.Context, appKey string, p *types.EventPayload) (types.EventAccepted, error) {
	m.lastApp, m.lastEvt = appKey, p
	if m.eventErr != nil {
		return types.EventAccepted{}, m.eventErr
	}
	return types.EventAccepted{DispatchID: "d2"}, nil
}

func (m *mockService) Handlers() types.HandlersResponse {
	return types.HandlersResponse{
		Chat:   []types.HandlerInfo{{Name: "help"}, {Name: "fallback", Fallback: true}},
		Events: []types.HandlerInfo{{Name: "event-log"}},
	}
}

func (m *mockService) Apps() types.AppsResponse {
	return types.AppsResponse{Apps: []types.App{{Key: "bot", Secret: "s3cret", Type: "helpdesk"}}}
}

func (m *mockService) Ready() bool { return m.ready }

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(w, req)
	return w
}

func TestRobotCallback(t *testing.T) {
	svc := &mockService{}
	w := postJSON(NewMux(svc), "/callbacks/bot/robot", `{"msgId":"m1","msgtype":"text","text":{"content":" ping "},"senderStaffId":"u1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var res types.MessageResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if res.Sent != 1 || svc.lastApp != "bot" || svc.lastMsg.Text.Content != " ping " || svc.lastMsg.SenderStaffID != "u1" {
		t.Fatalf("unexpected dispatch: %+v app=%s msg=%+v", res, svc.lastApp, svc.lastMsg)
	}
}

func TestEventCallbackAccepted(t *testing.T) {
	svc := &mockService{}
	w := postJSON(NewMux(svc), "/callbacks/mini/events", `{"eventId":"e1","eventType":{"code":"user_add_org"},"data":{"userId":"u1"}}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if svc.lastEvt.EventType.Code != "user_add_org" || svc.lastEvt.Data["userId"] != "u1" {
		t.Fatalf("unexpected event %+v", svc.lastEvt)
	}
}

func TestEventCallbackRequiresCode(t *testing.T) {
	w := postJSON(NewMux(&mockService{}), "/callbacks/mini/events", `{"eventId":"e1"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCallbackErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{mockHTTPError{"app not found: x", http.StatusNotFound}, http.StatusNotFound},
		{mockHTTPError{"reply delivery failed", http.StatusBadGateway}, http.StatusBadGateway},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, c := range cases {
		w := postJSON(NewMux(&mockService{msgErr: c.err}), "/callbacks/x/robot", `{"text":{"content":"hi"}}`)
		if w.Code != c.want {
			t.Fatalf("%v: status=%d want %d", c.err, w.Code, c.want)
		}
		var body types.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Code != c.want || body.Error != c.err.Error() {
			t.Fatalf("unexpected error body %q", w.Body.String())
		}
	}
	w := postJSON(NewMux(&mockService{eventErr: mockHTTPError{"shutting down", http.StatusServiceUnavailable}}), "/callbacks/x/events", `{"eventType":{"code":"c"}}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCallbackBadJSON(t *testing.T) {
	w := postJSON(NewMux(&mockService{}), "/callbacks/bot/robot", "not-json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCallbackUnsupportedMediaType(t *testing.T) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/callbacks/bot/robot", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	NewMux(&mockService{}).ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestCallbackBodyTooLarge(t *testing.T) {
	// Create >1MiB body
	big := make([]byte, (1<<20)+10)
	for i := range big {
		big[i] = 'a'
	}
	w := postJSON(NewMux(&mockService{}), "/callbacks/bot/robot", string(big))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too-large body, got %d", w.Code)
	}
}

func TestHandlersAndApps(t *testing.T) {
	h := NewMux(&mockService{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/handlers", nil))
	var hs types.HandlersResponse
	if err := json.Unmarshal(w.Body.Bytes(), &hs); err != nil || len(hs.Chat) != 2 || !hs.Chat[1].Fallback {
		t.Fatalf("unexpected handlers %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/apps", nil))
	if strings.Contains(w.Body.String(), "s3cret") {
		t.Fatalf("app secret leaked: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"helpdesk"`) {
		t.Fatalf("unexpected apps %s", w.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{ready: true}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{ready: false}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "draining") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}
