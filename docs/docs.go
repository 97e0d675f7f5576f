// Package docs holds the OpenAPI description served at /swagger.
// Regenerate with: swag init -g cmd/main.go
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
        "/health": {
            "get": {"tags": ["system"], "summary": "Health check", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}
        },
        "/auth/sign-up": {
            "post": {"tags": ["auth"], "summary": "Register an operator", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.operatorCredentials"}}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/auth/sign-in": {
            "post": {"tags": ["auth"], "summary": "Sign in and receive a bearer token", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.operatorCredentials"}}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}
        },
        "/api/v1/bms/status": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["telemetry"], "summary": "Latest BMS status", "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.BmsStatus"}}, "404": {"description": "Not Found"}}}
        },
        "/api/v1/bms/history": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["telemetry"], "summary": "Telemetry history", "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "start", "in": "query", "required": true},
                    {"type": "string", "name": "end", "in": "query", "required": true}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Snapshot"}}}, "400": {"description": "Bad Request"}}}
        },
        "/api/v1/bms/temperature/history": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["telemetry"], "summary": "Recent readings for the temperature chart", "produces": ["application/json"],
                "parameters": [{"type": "integer", "default": 10, "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Snapshot"}}}}}
        },
        "/api/v1/bms/control": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["control"], "summary": "Switch FETs", "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/handlers.fetRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.dispatchResponse"}}, "400": {"description": "Bad Request"}, "502": {"description": "Bad Gateway"}}}
        },
        "/api/v1/bms/control/charge": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["control"], "summary": "Switch the charge FET",
                "parameters": [{"type": "boolean", "name": "status", "in": "query", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.dispatchResponse"}}}}
        },
        "/api/v1/bms/control/discharge": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["control"], "summary": "Switch the discharge FET",
                "parameters": [{"type": "boolean", "name": "status", "in": "query", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.dispatchResponse"}}}}
        },
        "/api/v1/bms/control/charge-discharge": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["control"], "summary": "Switch both FETs", "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/handlers.chargeDischargeRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.dispatchResponse"}}}}
        },
        "/api/v1/bms/control/electronic-load": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["control"], "summary": "Control the electronic load", "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/handlers.electronicLoadRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.dispatchResponse"}}}}
        },
        "/api/v1/bms/settings/thresholds": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["settings"], "summary": "Set protection thresholds", "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/models.ThresholdSet"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.dispatchResponse"}}, "400": {"description": "Bad Request"}}}
        },
        "/api/v1/bms/settings/delays": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["settings"], "summary": "Set protection delays", "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/models.DelaySet"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.dispatchResponse"}}, "400": {"description": "Bad Request"}}}
        },
        "/api/v1/bms/settings/reset": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["settings"], "summary": "Restore factory protection settings",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.dispatchResponse"}}}}
        },
        "/api/v1/bms/hardware/status": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["hardware"], "summary": "Live status from the hardware controller",
                "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        },
        "/api/v1/bms/hardware/settings": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["hardware"], "summary": "Protection settings from the hardware controller",
                "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        },
        "/ws": {
            "get": {"tags": ["telemetry"], "summary": "Live event stream",
                "parameters": [{"type": "string", "name": "channels", "in": "query"}],
                "responses": {"101": {"description": "Switching Protocols"}, "400": {"description": "Bad Request"}}}
        }
    },
    "definitions": {
        "handlers.operatorCredentials": {"type": "object", "required": ["password", "username"],
            "properties": {"password": {"type": "string"}, "username": {"type": "string"}}},
        "handlers.fetRequest": {"type": "object",
            "properties": {"charge_fet_status": {"type": "boolean"}, "discharge_fet_status": {"type": "boolean"}}},
        "handlers.chargeDischargeRequest": {"type": "object",
            "properties": {"chargeEnabled": {"type": "boolean"}, "dischargeEnabled": {"type": "boolean"}}},
        "handlers.electronicLoadRequest": {"type": "object", "required": ["electronicLoadEnabled"],
            "properties": {"electronicLoadEnabled": {"type": "boolean"}, "loadMode": {"type": "string"}, "cpModeLevel": {"type": "integer"}}},
        "handlers.dispatchResponse": {"type": "object",
            "properties": {"status": {"type": "string"}, "channel": {"type": "string"}, "command_id": {"type": "string"}, "command": {"type": "string"}}},
        "models.CurrentDelay": {"type": "object",
            "properties": {"delay": {"type": "integer"}, "release": {"type": "integer"}}},
        "models.DelaySet": {"type": "object",
            "properties": {
                "voltage_delay": {"type": "integer"},
                "charge_current_delay": {"$ref": "#/definitions/models.CurrentDelay"},
                "discharge_current_delay": {"$ref": "#/definitions/models.CurrentDelay"}
            }},
        "models.ThresholdSet": {"type": "object",
            "properties": {
                "overcharge_voltage": {"type": "number"},
                "undercharge_voltage": {"type": "number"},
                "overcharge_current": {"type": "number"},
                "discharge_current": {"type": "number"}
            }},
        "models.BmsStatus": {"type": "object",
            "properties": {
                "total_voltage": {"type": "number"},
                "current": {"type": "number"},
                "temperature": {"type": "number"},
                "remaining_capacity_percent": {"type": "number"},
                "charge_fet_status": {"type": "boolean"},
                "discharge_fet_status": {"type": "boolean"},
                "cell_voltages": {"type": "array", "items": {"type": "number"}},
                "timestamp": {"type": "string"}
            }},
        "models.Snapshot": {"type": "object",
            "properties": {
                "id": {"type": "integer"},
                "total_voltage": {"type": "number"},
                "current": {"type": "number"},
                "temperature": {"type": "number"},
                "remaining_capacity": {"type": "number"},
                "charge_fet_status": {"type": "boolean"},
                "discharge_fet_status": {"type": "boolean"},
                "cell_voltages": {"type": "array", "items": {"type": "number"}},
                "timestamp": {"type": "string"}
            }}
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "BMS Bridge API",
	Description:      "Command dispatch and telemetry bridge for a battery management system.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
