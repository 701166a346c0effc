package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>nexabuild — Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "nexabuild", "version": "v0.1.0" },
  "paths": {
    "/api/{collection}": {
      "parameters": [{ "name": "collection", "in": "path", "required": true, "schema": { "type": "string" } }],
      "post": {
        "summary": "Save a document (upsert by id; id generated when absent)",
        "requestBody": { "content": { "application/json": { "schema": { "type": "object" } } } },
        "responses": {
          "200": { "description": "{status: success, id, data}" },
          "400": { "description": "invalid payload" },
          "413": { "description": "payload too large" },
          "503": { "description": "storage unavailable" }
        }
      },
      "get": {
        "summary": "List documents, most recently created first",
        "responses": { "200": { "description": "array of documents" }, "503": { "description": "storage unavailable" } }
      }
    },
    "/api/{collection}/{id}": {
      "delete": { "summary": "Delete a document (no-op when absent)", "responses": { "200": { "description": "{status: deleted}" } } }
    },
    "/workspaces": {
      "post": {
        "summary": "Create a workspace from generator output",
        "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"prompt":{"type":"string"},"output":{"type":"object"}}}}}},
        "responses": { "201": { "description": "workspace" } }
      }
    },
    "/workspaces/{id}": { "get": { "summary": "Get workspace state", "responses": { "200": { "description": "workspace" }, "404": { "description": "not found" } } } },
    "/workspaces/{id}/files": {
      "put": { "summary": "Replace files with new generator output", "responses": { "200": { "description": "workspace" } } },
      "patch": { "summary": "Merge a file tree into the workspace", "responses": { "200": { "description": "workspace" } } }
    },
    "/workspaces/{id}/files/{path}": {
      "put": { "summary": "Write one file (raw body)", "responses": { "200": { "description": "workspace" } } },
      "delete": { "summary": "Remove one file", "responses": { "200": { "description": "workspace" } } }
    },
    "/workspaces/{id}/messages": { "post": { "summary": "Append a chat message", "responses": { "200": { "description": "workspace" } } } },
    "/workspaces/{id}/preview": { "get": { "summary": "Combined single-page preview", "responses": { "200": { "description": "text/html" }, "404": { "description": "nothing to preview" } } } },
    "/workspaces/{id}/archive": { "get": { "summary": "Download site.zip", "responses": { "200": { "description": "application/zip" } } } },
    "/workspaces/{id}/publish": { "post": { "summary": "Upload site.zip to object storage", "responses": { "200": { "description": "{url}" }, "503": { "description": "publishing is not configured" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
