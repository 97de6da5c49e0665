package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Stages Admin API",
        "description": "JSON surface of the internship administration console",
        "version": "1.0.0"
    },
    "basePath": "/api",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {"name": "Dashboard", "description": "Stage and report counters"},
        {"name": "Options", "description": "Organisational unit lists of the stage form"},
        {"name": "Audit", "description": "Audit trail (administrators)"}
    ],
    "paths": {
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Dashboard statistics",
                "description": "Aggregated stage and report counters with the unit breakdown and the stages needing attention",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "No session", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "502": {"description": "Backend unreachable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/options/directions": {
            "get": {
                "tags": ["Options"],
                "summary": "List directions",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/options/divisions": {
            "get": {
                "tags": ["Options"],
                "summary": "List the divisions of a direction",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "direction", "in": "query", "required": true, "type": "string", "description": "Direction code"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/options/unites": {
            "get": {
                "tags": ["Options"],
                "summary": "List the assignment units",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/options/services": {
            "get": {
                "tags": ["Options"],
                "summary": "List the services of a unit",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "unite", "in": "query", "required": true, "type": "string", "description": "Unit name"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/audit": {
            "get": {
                "tags": ["Audit"],
                "summary": "Recent audit entries",
                "produces": ["application/json"],
                "parameters": [
                    {"name": "username", "in": "query", "type": "string", "description": "Filter by username"},
                    {"name": "resource", "in": "query", "type": "string", "description": "Filter by resource"},
                    {"name": "since", "in": "query", "type": "string", "description": "RFC3339 lower bound"},
                    {"name": "limit", "in": "query", "type": "integer", "description": "Maximum entries (default 50, max 500)"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid filter", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Not an administrator", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
