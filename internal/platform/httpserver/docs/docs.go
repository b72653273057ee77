// Package docs registers the pollbooth OpenAPI document with swag so the
// /swagger/ UI can serve it.
package docs

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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/healthz": {
            "get": {"summary": "Liveness check", "tags": ["platform"], "responses": {"200": {"description": "OK"}}}
        },
        "/v1/auth/login": {
            "post": {
                "summary": "Log in and receive a session token",
                "tags": ["auth"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}},
                    "401": {"description": "invalid_credentials", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/auth/logout": {
            "post": {
                "summary": "End the current session",
                "tags": ["auth"],
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "No Content"}, "401": {"description": "unauthenticated", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/v1/auth/me": {
            "get": {
                "summary": "Current user",
                "tags": ["auth"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/MeResponse"}}}
            }
        },
        "/v1/polls": {
            "get": {
                "summary": "Latest published questions",
                "tags": ["polls"],
                "parameters": [{"in": "query", "name": "limit", "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/QuestionListResponse"}}}
            }
        },
        "/v1/polls/open": {
            "get": {
                "summary": "Questions currently accepting votes",
                "tags": ["polls"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/QuestionListResponse"}}}
            }
        },
        "/v1/polls/{question_id}": {
            "get": {
                "summary": "Question detail with choices",
                "tags": ["polls"],
                "parameters": [{"in": "path", "name": "question_id", "required": true, "type": "integer"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/QuestionDetailResponse"}},
                    "404": {"description": "not_found", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/polls/{question_id}/vote": {
            "post": {
                "summary": "Cast or change a vote",
                "tags": ["polls"],
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "question_id", "required": true, "type": "integer"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CastVoteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CastVoteResponse"}},
                    "403": {"description": "not_yet_published or voting_closed", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "422": {"description": "no_choice_selected", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "429": {"description": "rate_limited", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/v1/polls/{question_id}/results": {
            "get": {
                "summary": "Vote counts per choice",
                "tags": ["polls"],
                "parameters": [{"in": "path", "name": "question_id", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResultsResponse"}}}
            }
        },
        "/v1/admin/polls": {
            "post": {
                "summary": "Create a question",
                "tags": ["admin"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreateQuestionRequest"}}],
                "responses": {"201": {"description": "Created"}, "403": {"description": "forbidden", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/v1/admin/polls/{question_id}": {
            "patch": {
                "summary": "Edit a question",
                "tags": ["admin"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "question_id", "required": true, "type": "integer"}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/admin/polls/{question_id}/choices": {
            "post": {
                "summary": "Add a choice",
                "tags": ["admin"],
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "question_id", "required": true, "type": "integer"}],
                "responses": {"201": {"description": "Created"}}
            }
        }
    },
    "definitions": {
        "ErrorResponse": {"type": "object", "properties": {"code": {"type": "string"}, "message": {"type": "string"}}},
        "LoginRequest": {"type": "object", "required": ["username", "password"], "properties": {"username": {"type": "string"}, "password": {"type": "string"}}},
        "LoginResponse": {"type": "object", "properties": {"token": {"type": "string"}, "expires_at": {"type": "string", "format": "date-time"}, "user_id": {"type": "string"}, "username": {"type": "string"}, "is_staff": {"type": "boolean"}}},
        "MeResponse": {"type": "object", "properties": {"user_id": {"type": "string"}, "username": {"type": "string"}, "is_staff": {"type": "boolean"}}},
        "QuestionItem": {"type": "object", "properties": {
            "question_id": {"type": "integer"}, "question_text": {"type": "string"},
            "pub_date": {"type": "string", "format": "date-time"}, "end_date": {"type": "string", "format": "date-time"},
            "status": {"type": "string"}, "is_published": {"type": "boolean"}, "can_vote": {"type": "boolean"},
            "was_published_recently": {"type": "boolean"}
        }},
        "QuestionListResponse": {"type": "object", "properties": {"items": {"type": "array", "items": {"$ref": "#/definitions/QuestionItem"}}}},
        "ChoiceItem": {"type": "object", "properties": {"choice_id": {"type": "integer"}, "choice_text": {"type": "string"}}},
        "QuestionDetailResponse": {"allOf": [{"$ref": "#/definitions/QuestionItem"}, {"type": "object", "properties": {
            "choices": {"type": "array", "items": {"$ref": "#/definitions/ChoiceItem"}}, "selected_choice_id": {"type": "integer"}
        }}]},
        "CastVoteRequest": {"type": "object", "properties": {"choice_id": {"type": "integer"}}},
        "CastVoteResponse": {"type": "object", "properties": {
            "vote_id": {"type": "string"}, "question_id": {"type": "integer"}, "choice_id": {"type": "integer"},
            "created": {"type": "boolean"}, "changed": {"type": "boolean"}, "previous_choice_id": {"type": "integer"},
            "results_url": {"type": "string"}
        }},
        "ResultsResponse": {"type": "object", "properties": {
            "question_id": {"type": "integer"}, "question_text": {"type": "string"}, "status": {"type": "string"},
            "total_votes": {"type": "integer"},
            "choices": {"type": "array", "items": {"type": "object", "properties": {"choice_id": {"type": "integer"}, "choice_text": {"type": "string"}, "votes": {"type": "integer"}}}}
        }},
        "CreateQuestionRequest": {"type": "object", "required": ["question_text"], "properties": {
            "question_text": {"type": "string"}, "pub_date": {"type": "string", "format": "date-time"},
            "end_date": {"type": "string", "format": "date-time"}, "choices": {"type": "array", "items": {"type": "string"}}
        }}
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "pollbooth API",
	Description:      "Questions, choices and one-vote-per-user polling.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
