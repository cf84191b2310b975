// Package docs は /swagger で配る OpenAPI 定義。
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
    "securityDefinitions": {
        "Bearer": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"Bearer": []}],
    "paths": {
        "/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Issue an access token",
                "security": [],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/LoginResponse"}}, "401": {"description": "Unauthorized"}}
            }
        },
        "/register": {
            "post": {
                "tags": ["auth"],
                "summary": "Create an account (first account bootstraps an admin)",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreateUserRequest"}}],
                "responses": {"201": {"description": "Created"}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}}
            }
        },
        "/me": {
            "get": {"tags": ["auth"], "summary": "Current account", "responses": {"200": {"description": "OK"}}}
        },
        "/users": {
            "get": {"tags": ["users"], "summary": "List accounts (admin)", "responses": {"200": {"description": "OK"}}},
            "post": {
                "tags": ["users"],
                "summary": "Create account (admin)",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreateUserRequest"}}],
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/users/{id}": {
            "get": {"tags": ["users"], "summary": "Get account", "parameters": [{"$ref": "#/parameters/userID"}], "responses": {"200": {"description": "OK"}}},
            "put": {"tags": ["users"], "summary": "Update account (admin)", "parameters": [{"$ref": "#/parameters/userID"}], "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["users"], "summary": "Delete account (admin)", "parameters": [{"$ref": "#/parameters/userID"}], "responses": {"204": {"description": "No Content"}, "409": {"description": "Conflict"}}}
        },
        "/reports": {
            "get": {
                "tags": ["reports"],
                "summary": "Reports visible to the caller",
                "parameters": [{"$ref": "#/parameters/start"}, {"$ref": "#/parameters/end"}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["reports"],
                "summary": "Submit a report (section accounts)",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReportRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "Validation failed"}, "403": {"description": "Forbidden"}}
            }
        },
        "/reports/{id}": {
            "get": {"tags": ["reports"], "summary": "Get a report", "parameters": [{"$ref": "#/parameters/reportID"}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}},
            "delete": {"tags": ["reports"], "summary": "Delete a report", "parameters": [{"$ref": "#/parameters/reportID"}], "responses": {"204": {"description": "No Content"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}
        },
        "/reports/{id}/export": {
            "get": {
                "tags": ["export"],
                "summary": "Download one report",
                "produces": ["application/pdf", "text/csv"],
                "parameters": [{"$ref": "#/parameters/reportID"}, {"$ref": "#/parameters/format"}, {"$ref": "#/parameters/token"}],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/summary": {
            "get": {"tags": ["stats"], "summary": "Totals and per-section breakdown", "parameters": [{"$ref": "#/parameters/start"}, {"$ref": "#/parameters/end"}], "responses": {"200": {"description": "OK"}}}
        },
        "/weekly-stats": {
            "get": {
                "tags": ["stats"],
                "summary": "Weekly statistics of one section",
                "parameters": [
                    {"in": "query", "name": "date", "type": "string", "format": "date"},
                    {"in": "query", "name": "section_id", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/admin/weekly-stats": {
            "get": {
                "tags": ["stats"],
                "summary": "Weekly statistics of every active section (unrestricted scopes)",
                "parameters": [{"in": "query", "name": "date", "type": "string", "format": "date"}],
                "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}
            }
        },
        "/current-offering": {
            "get": {"tags": ["stats"], "summary": "Offering total of the current week", "responses": {"200": {"description": "OK"}}}
        },
        "/export": {
            "get": {
                "tags": ["export"],
                "summary": "Download reports in range",
                "produces": ["application/pdf", "text/csv"],
                "parameters": [
                    {"$ref": "#/parameters/start"}, {"$ref": "#/parameters/end"},
                    {"in": "query", "name": "section_id", "type": "integer"},
                    {"$ref": "#/parameters/format"},
                    {"in": "query", "name": "include_stats", "type": "boolean"},
                    {"in": "query", "name": "include_details", "type": "boolean"},
                    {"in": "query", "name": "include_notes", "type": "boolean"},
                    {"$ref": "#/parameters/token"}
                ],
                "responses": {"200": {"description": "File"}}
            }
        }
    },
    "parameters": {
        "userID": {"in": "path", "name": "id", "required": true, "type": "integer"},
        "reportID": {"in": "path", "name": "id", "required": true, "type": "string"},
        "start": {"in": "query", "name": "start", "type": "string", "format": "date"},
        "end": {"in": "query", "name": "end", "type": "string", "format": "date"},
        "format": {"in": "query", "name": "format", "type": "string", "enum": ["pdf", "csv"]},
        "token": {"in": "query", "name": "token", "type": "string"}
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "LoginResponse": {
            "type": "object",
            "properties": {
                "access_token": {"type": "string"},
                "expires_at": {"type": "string", "format": "date-time"},
                "id": {"type": "integer"},
                "username": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "section", "viewer"]}
            }
        },
        "CreateUserRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["admin", "section", "viewer"]}
            }
        },
        "CreateReportRequest": {
            "type": "object",
            "required": ["date", "preacher", "total_attendees"],
            "properties": {
                "date": {"type": "string", "format": "date"},
                "preacher": {"type": "string"},
                "total_attendees": {"type": "integer"},
                "men": {"type": "integer"},
                "women": {"type": "integer"},
                "children": {"type": "integer"},
                "youth": {"type": "integer"},
                "offering": {"type": "number"},
                "notes": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo は起動時に Host などを差し替えられる。
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "ResumeSection API",
	Description:      "Section activity reports, weekly statistics and exports.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
