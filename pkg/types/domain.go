package types

import "time"

// App is a DingTalk application identity: a robot or a mini-app (H5 micro app).
type App struct {
	// Application key (clientId) issued by the developer console.
	// example: dingxxxxxxxxxxxx
	Key string `json:"key" example:"dingxxxxxxxxxxxx"`
	// Application secret. Never serialized.
	Secret string `json:"-"`
	// Application type used for ignored-app checks (e.g., helpdesk, ops).
	// example: helpdesk
	Type string `json:"type" example:"helpdesk"`
	// Human-friendly name.
	// example: Helpdesk Bot
	Name string `json:"name,omitempty" example:"Helpdesk Bot"`
	// Robot code used for outbound robot messages. Defaults to Key.
	// example: dingxxxxxxxxxxxx
	RobotCode string `json:"robot_code,omitempty" example:"dingxxxxxxxxxxxx"`
	// Whether inbound traffic for this app arrives over Stream Mode.
	Stream bool `json:"stream,omitempty"`
}

// Robot returns the robot code used for outbound sends.
func (a App) Robot() string {
	if a.RobotCode != "" {
		return a.RobotCode
	}
	return a.Key
}

// TextContent is the text section of a robot callback.
type TextContent struct {
	Content string `json:"content"`
}

// InboundPayload is a robot chat message delivered by DingTalk.
type InboundPayload struct {
	// example: msgHxIjDmSVsLYQ2sTLOu4qeA==
	MsgID string `json:"msgId" example:"msgHxIjDmSVsLYQ2sTLOu4qeA=="`
	// example: text
	MsgType string       `json:"msgtype" example:"text"`
	Text    *TextContent `json:"text,omitempty"`
	// Staff id of the human sender; replies are addressed to it.
	// example: manager4220
	SenderStaffID string `json:"senderStaffId" example:"manager4220"`
	// example: Alice
	SenderNick string `json:"senderNick,omitempty" example:"Alice"`
	// example: cidJbfmqUHSmLCUKjWcXzMZeg==
	ConversationID string `json:"conversationId,omitempty"`
	// "1" single chat, "2" group chat.
	// example: 1
	ConversationType string `json:"conversationType,omitempty" example:"1"`
	RobotCode        string `json:"robotCode,omitempty"`
	// Unix millis.
	CreateAt int64 `json:"createAt,omitempty"`
}

// Content returns the text content or "" when the payload carries none.
func (p *InboundPayload) Content() string {
	if p == nil || p.Text == nil {
		return ""
	}
	return p.Text.Content
}

// EventType identifies a mini-app event by code and display name.
type EventType struct {
	// example: user_add_org
	Code string `json:"code" example:"user_add_org"`
	// example: user joined organization
	Name string `json:"name,omitempty" example:"user joined organization"`
}

// String renders the event type as code(name).
func (e EventType) String() string {
	if e.Name == "" {
		return e.Code
	}
	return e.Code + "(" + e.Name + ")"
}

// EventPayload is a decrypted mini-app event callback.
type EventPayload struct {
	// example: 5b8e0f7c2b0b4d6b9a2d
	EventID   string         `json:"eventId" example:"5b8e0f7c2b0b4d6b9a2d"`
	EventType EventType      `json:"eventType"`
	CorpID    string         `json:"corpId,omitempty"`
	AppID     string         `json:"appId,omitempty"`
	BornTime  time.Time      `json:"bornTime,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}
