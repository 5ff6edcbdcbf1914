// Package docs holds the swagger spec served at /swagger. Regenerate
// with swag init when handler annotations change.
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
    "paths": {
        "/healthz": {
            "get": {
                "tags": ["health"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/webhook/tradingview": {
            "post": {
                "tags": ["webhook"],
                "summary": "Ingest a trading signal webhook",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/api/v1/signals": {
            "get": {
                "tags": ["signals"],
                "summary": "List signals",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["signals"],
                "summary": "Create a signal manually",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/alerts": {
            "get": {
                "tags": ["alerts"],
                "summary": "List my alert rules",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["alerts"],
                "summary": "Create an alert rule",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/alerts/{id}": {
            "patch": {
                "tags": ["alerts"],
                "summary": "Update an alert rule",
                "responses": {
                    "200": {"description": "OK"},
                    "404": {"description": "Not Found"}
                }
            },
            "delete": {
                "tags": ["alerts"],
                "summary": "Delete an alert rule",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/timing/preferences": {
            "get": {
                "tags": ["timing"],
                "summary": "List my smart-timing preferences",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["timing"],
                "summary": "Create or replace a smart-timing preference",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/timing/decide": {
            "post": {
                "tags": ["timing"],
                "summary": "Evaluate the smart-timing gate",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/notifications": {
            "get": {
                "tags": ["notifications"],
                "summary": "List my notification history",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/notifications/{id}/retry": {
            "post": {
                "tags": ["notifications"],
                "summary": "Retry a failed notification",
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/api/v1/admin/queue/process": {
            "post": {
                "tags": ["admin"],
                "summary": "Force one queue processing pass",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/admin/queue/stats": {
            "get": {
                "tags": ["admin"],
                "summary": "Queue depth by status",
                "responses": {"200": {"description": "OK"}}
            }
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "ProudProfit Dispatch API",
	Description:      "Signal ingestion, alert rules, smart timing, and notification delivery.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
