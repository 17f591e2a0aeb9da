// Package apidocs registers the OpenAPI document of the dingd HTTP API with
// swag. Regenerate the template with `swag init -g cmd/dingd/docs.go -o internal/apidocs`.
package apidocs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/callbacks/{appKey}/robot": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["callbacks"],
                "summary": "Robot message callback",
                "parameters": [
                    {"type": "string", "description": "Application key", "name": "appKey", "in": "path", "required": true},
                    {"description": "Robot callback payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.InboundPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.MessageResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/callbacks/{appKey}/events": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["callbacks"],
                "summary": "Mini-app event callback",
                "parameters": [
                    {"type": "string", "description": "Application key", "name": "appKey", "in": "path", "required": true},
                    {"description": "Event payload", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.EventPayload"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/types.EventAccepted"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/handlers": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "List registered handlers",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HandlersResponse"}}}
            }
        },
        "/apps": {
            "get": {
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "List configured applications",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.AppsResponse"}}}
            }
        }
    },
    "definitions": {
        "types.App": {
            "type": "object",
            "properties": {
                "key": {"type": "string", "example": "dingxxxxxxxxxxxx"},
                "type": {"type": "string", "example": "helpdesk"},
                "name": {"type": "string", "example": "Helpdesk Bot"},
                "robot_code": {"type": "string"},
                "stream": {"type": "boolean"}
            }
        },
        "types.TextContent": {
            "type": "object",
            "properties": {"content": {"type": "string"}}
        },
        "types.InboundPayload": {
            "type": "object",
            "properties": {
                "msgId": {"type": "string"},
                "msgtype": {"type": "string", "example": "text"},
                "text": {"$ref": "#/definitions/types.TextContent"},
                "senderStaffId": {"type": "string"},
                "senderNick": {"type": "string"},
                "conversationId": {"type": "string"},
                "conversationType": {"type": "string"},
                "robotCode": {"type": "string"},
                "createAt": {"type": "integer"}
            }
        },
        "types.EventType": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "name": {"type": "string"}}
        },
        "types.EventPayload": {
            "type": "object",
            "properties": {
                "eventId": {"type": "string"},
                "eventType": {"$ref": "#/definitions/types.EventType"},
                "corpId": {"type": "string"},
                "appId": {"type": "string"},
                "bornTime": {"type": "string", "format": "date-time"},
                "data": {"type": "object"}
            }
        },
        "types.MessageResult": {
            "type": "object",
            "properties": {
                "dispatch_id": {"type": "string"},
                "matched": {"type": "integer"},
                "sent": {"type": "integer"},
                "failed": {"type": "integer"},
                "duplicate": {"type": "boolean"}
            }
        },
        "types.EventAccepted": {
            "type": "object",
            "properties": {"dispatch_id": {"type": "string"}, "duplicate": {"type": "boolean"}}
        },
        "types.HandlerInfo": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "order": {"type": "integer"},
                "fallback": {"type": "boolean"},
                "ignored_apps": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.HandlersResponse": {
            "type": "object",
            "properties": {
                "chat": {"type": "array", "items": {"$ref": "#/definitions/types.HandlerInfo"}},
                "events": {"type": "array", "items": {"$ref": "#/definitions/types.HandlerInfo"}}
            }
        },
        "types.AppsResponse": {
            "type": "object",
            "properties": {"apps": {"type": "array", "items": {"$ref": "#/definitions/types.App"}}}
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "code": {"type": "integer"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "dingd API",
	Description:      "DingTalk robot and mini-app callback dispatcher.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
