package types

import "encoding/json"

// Message is an outbound robot message. MsgKey and MsgParam map onto the
// DingTalk robot message template (e.g. sampleText / {"content": "..."}).
type Message interface {
	MsgKey() string
	MsgParam() (string, error)
}

// TextMessage is a plain text reply.
type TextMessage struct {
	Content string `json:"content"`
}

func (TextMessage) MsgKey() string { return "sampleText" }

func (m TextMessage) MsgParam() (string, error) { return marshalParam(m) }

// MarkdownMessage renders markdown in the client.
type MarkdownMessage struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

func (MarkdownMessage) MsgKey() string { return "sampleMarkdown" }

func (m MarkdownMessage) MsgParam() (string, error) { return marshalParam(m) }

// ActionCardMessage is a card with a single jump button.
type ActionCardMessage struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	SingleTitle string `json:"singleTitle"`
	SingleURL   string `json:"singleURL"`
}

func (ActionCardMessage) MsgKey() string { return "sampleActionCard" }

func (m ActionCardMessage) MsgParam() (string, error) { return marshalParam(m) }

// CardMessage is an interactive card built from a card template registered
// in the DingTalk developer console. OutTrackID identifies the card instance
// for later updates and must be unique per card.
type CardMessage struct {
	TemplateID       string            `json:"cardTemplateId"`
	OutTrackID       string            `json:"outTrackId"`
	CallbackRouteKey string            `json:"callbackRouteKey,omitempty"`
	Params           map[string]string `json:"cardParamMap"`
}

func (CardMessage) MsgKey() string { return "interactiveCard" }

func (m CardMessage) MsgParam() (string, error) { return marshalParam(m) }

func marshalParam(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
