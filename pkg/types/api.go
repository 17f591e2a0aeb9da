package types

// MessageResult is returned by POST /callbacks/{appKey}/robot.
type MessageResult struct {
	// example: 6f1c2c1e-6a43-4c8e-9d8e-4f2f4f0f6c11
	DispatchID string `json:"dispatch_id,omitempty" example:"6f1c2c1e-6a43-4c8e-9d8e-4f2f4f0f6c11"`
	// Number of handlers selected for the payload.
	// example: 1
	Matched int `json:"matched" example:"1"`
	// Number of handlers whose reply was delivered.
	// example: 1
	Sent int `json:"sent" example:"1"`
	// Number of handlers whose pipeline failed.
	// example: 0
	Failed int `json:"failed" example:"0"`
	// True when the payload was a redelivery and was skipped.
	Duplicate bool `json:"duplicate,omitempty"`
}

// EventAccepted is returned by POST /callbacks/{appKey}/events.
type EventAccepted struct {
	// example: 6f1c2c1e-6a43-4c8e-9d8e-4f2f4f0f6c11
	DispatchID string `json:"dispatch_id,omitempty" example:"6f1c2c1e-6a43-4c8e-9d8e-4f2f4f0f6c11"`
	Duplicate  bool   `json:"duplicate,omitempty"`
}

// HandlerInfo describes one registered handler for GET /handlers.
type HandlerInfo struct {
	// example: help
	Name string `json:"name" example:"help"`
	// example: list available commands
	Description string `json:"description,omitempty" example:"list available commands"`
	// Match priority for chat handlers, execution level for event handlers.
	// example: 0
	Order int `json:"order" example:"0"`
	// True for chat handlers without a predicate.
	Fallback    bool     `json:"fallback,omitempty"`
	IgnoredApps []string `json:"ignored_apps,omitempty"`
}

// HandlersResponse wraps GET /handlers.
type HandlersResponse struct {
	Chat   []HandlerInfo `json:"chat"`
	Events []HandlerInfo `json:"events"`
}

// AppsResponse wraps GET /apps.
type AppsResponse struct {
	Apps []App `json:"apps"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
