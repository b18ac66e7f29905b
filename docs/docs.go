// Package docs registers the OpenAPI document served at /swagger/*.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/internal/recordings/audio-ready": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Registers the recording as PENDING (idempotent) and queues it for analysis",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Internal"],
                "summary": "Report uploaded session audio",
                "parameters": [
                    {
                        "description": "Uploaded recording",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/recording.AudioReadyRequest"}
                    }
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/recording.AudioReadyResponse"}},
                    "400": {"description": "Invalid request or validation failed", "schema": {"type": "object", "additionalProperties": true}},
                    "401": {"description": "Missing or invalid service token", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Recording exists with different attributes", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/recordings/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the analysis status, and the report once the recording is COMPLETED",
                "produces": ["application/json"],
                "tags": ["Recordings"],
                "summary": "Get recording status and report",
                "parameters": [
                    {"type": "string", "description": "Recording ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/recording.RecordingResponse"}},
                    "400": {"description": "Invalid recording ID", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Recording not found", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/recordings/{id}/utterances": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the transcript with roles, behavioral codes, feedback and SilentSlots",
                "produces": ["application/json"],
                "tags": ["Recordings"],
                "summary": "List coded utterances",
                "parameters": [
                    {"type": "string", "description": "Recording ID (UUID)", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/recording.UtteranceListResponse"}},
                    "404": {"description": "Recording not found", "schema": {"type": "object", "additionalProperties": true}},
                    "409": {"description": "Recording not analyzed yet", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/users/{user_id}/weekly-report": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Aggregates COMPLETED sessions of the week starting at week (default: this Monday, UTC) and compares with the previous week",
                "produces": ["application/json", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "tags": ["Reports"],
                "summary": "Weekly progress report",
                "parameters": [
                    {"type": "string", "description": "User ID (UUID)", "name": "user_id", "in": "path", "required": true},
                    {"type": "string", "description": "Week start date (YYYY-MM-DD)", "name": "week", "in": "query"},
                    {"type": "string", "description": "json or xlsx", "name": "format", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "Invalid user ID or week", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "definitions": {
        "recording.AudioReadyRequest": {
            "type": "object",
            "required": ["audio_key", "mode", "recording_id", "user_id"],
            "properties": {
                "recording_id": {"type": "string"},
                "user_id": {"type": "string"},
                "mode": {"type": "string", "enum": ["CDI", "PDI"]},
                "duration_seconds": {"type": "number"},
                "audio_key": {"type": "string", "maxLength": 1024}
            }
        },
        "recording.AudioReadyResponse": {
            "type": "object",
            "properties": {
                "recording_id": {"type": "string"},
                "analysis_status": {"type": "string"},
                "enqueued": {"type": "boolean"}
            }
        },
        "recording.RecordingResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "user_id": {"type": "string"},
                "mode": {"type": "string"},
                "duration_seconds": {"type": "number"},
                "analysis_status": {"type": "string", "enum": ["PENDING", "PROCESSING", "COMPLETED", "FAILED"]},
                "retry_count": {"type": "integer"},
                "permanent_failure": {"type": "boolean"},
                "analysis_error": {"type": "string"},
                "result": {"type": "object", "additionalProperties": true},
                "processing_started_at": {"type": "string"},
                "analyzed_at": {"type": "string"},
                "failed_at": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "recording.UtteranceResponse": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "speaker": {"type": "string"},
                "text": {"type": "string"},
                "start_time": {"type": "number"},
                "end_time": {"type": "number"},
                "silence": {"type": "boolean"},
                "role": {"type": "string"},
                "tag": {"type": "string"},
                "simplified_tag": {"type": "string"},
                "feedback": {"type": "string"}
            }
        },
        "recording.UtteranceListResponse": {
            "type": "object",
            "properties": {
                "recording_id": {"type": "string"},
                "total": {"type": "integer"},
                "utterances": {"type": "array", "items": {"$ref": "#/definitions/recording.UtteranceResponse"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the service JWT.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "PlayCoach API",
	Description:      "Play-session recording analysis: audio-ready trigger, recording reports and weekly progress",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
