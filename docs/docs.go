// Package docs registers the Swagger document served at /api/swagger.
//
// Regenerate with: swag init -g internal/server/server.go -o docs
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
        "/auth/signin": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "tags": ["auth"],
                "summary": "Sign in",
                "parameters": [
                    {"type": "string", "name": "email", "in": "formData", "required": true},
                    {"type": "string", "name": "password", "in": "formData", "required": true}
                ],
                "responses": {"303": {"description": "Redirect to / or /login?error="}}
            }
        },
        "/auth/signup": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "tags": ["auth"],
                "summary": "Sign up",
                "parameters": [
                    {"type": "string", "name": "email", "in": "formData", "required": true},
                    {"type": "string", "name": "password", "in": "formData", "required": true},
                    {"type": "string", "name": "display_name", "in": "formData", "required": true}
                ],
                "responses": {"303": {"description": "Redirect to /login?message= or /signup?error="}}
            }
        },
        "/auth/signout": {
            "post": {
                "tags": ["auth"],
                "summary": "Sign out",
                "responses": {"303": {"description": "Redirect to /login"}}
            }
        },
        "/posts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "List the feed",
                "parameters": [
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "string", "name": "before", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.FeedPage"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            },
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["posts"],
                "summary": "Compose a post",
                "parameters": [
                    {"type": "string", "name": "content", "in": "formData"},
                    {"type": "file", "name": "files", "in": "formData"},
                    {"type": "string", "name": "redirect", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Post"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/delete": {
            "post": {
                "tags": ["posts"],
                "summary": "Delete a post",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"303": {"description": "Redirect to / or /?error="}}
            }
        },
        "/posts/{id}/comments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "List comments",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.Comment"}}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["comments"],
                "summary": "Add a comment",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.commentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/models.Comment"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/comments/{commentId}": {
            "delete": {
                "tags": ["comments"],
                "summary": "Delete a comment",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "commentId", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/posts/{id}/reactions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reactions"],
                "summary": "Reaction summary",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.ReactionSummary"}}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["reactions"],
                "summary": "React to a post",
                "parameters": [
                    {"type": "integer", "name": "id", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.reactionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/service.ReactionResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/profiles/me": {
            "get": {
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "Own profile",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Profile"}}}
            }
        },
        "/profiles/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "Get a profile",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Profile"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/models.ErrorResponse"}}
                }
            }
        },
        "/profiles/{id}/posts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["profiles"],
                "summary": "Posts by one profile",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "string", "name": "before", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.FeedPage"}}}
            }
        },
        "/profile/update": {
            "post": {
                "consumes": ["multipart/form-data"],
                "tags": ["profiles"],
                "summary": "Update own profile",
                "parameters": [
                    {"type": "string", "name": "display_name", "in": "formData", "required": true},
                    {"type": "string", "name": "bio", "in": "formData"},
                    {"type": "file", "name": "avatar", "in": "formData"}
                ],
                "responses": {"303": {"description": "Redirect to /profile/edit?message= or /profile/edit?error="}}
            }
        },
        "/admin/cleanup-old-posts": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "tags": ["admin"],
                "summary": "Delete old posts",
                "parameters": [{"type": "integer", "name": "months", "in": "formData"}],
                "responses": {"303": {"description": "Redirect to /admin?message= or /admin?error="}}
            }
        },
        "/ws/posts/{id}": {
            "get": {
                "tags": ["realtime"],
                "summary": "Realtime post sync",
                "parameters": [{"type": "integer", "name": "id", "in": "path", "required": true}],
                "responses": {"101": {"description": "Switching Protocols"}}
            }
        }
    },
    "definitions": {
        "models.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "details": {"type": "string"}
            }
        },
        "models.Profile": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "display_name": {"type": "string"},
                "avatar_url": {"type": "string"},
                "bio": {"type": "string"},
                "is_admin": {"type": "boolean"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "models.Post": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "user_id": {"type": "string"},
                "author": {"$ref": "#/definitions/models.Profile"},
                "content": {"type": "string"},
                "media_urls": {"type": "array", "items": {"type": "string"}},
                "created_at": {"type": "string"}
            }
        },
        "models.Comment": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "post_id": {"type": "integer"},
                "user_id": {"type": "string"},
                "author": {"$ref": "#/definitions/models.Profile"},
                "content": {"type": "string"},
                "created_at": {"type": "string"}
            }
        },
        "models.ReactionCount": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "emoji": {"type": "string"},
                "count": {"type": "integer"}
            }
        },
        "models.ReactionSummary": {
            "type": "object",
            "properties": {
                "post_id": {"type": "integer"},
                "total": {"type": "integer"},
                "counts": {"type": "array", "items": {"$ref": "#/definitions/models.ReactionCount"}},
                "names": {"type": "array", "items": {"type": "string"}},
                "more": {"type": "integer"},
                "viewer_reaction": {"type": "string"}
            }
        },
        "server.commentRequest": {
            "type": "object",
            "properties": {"content": {"type": "string"}}
        },
        "server.reactionRequest": {
            "type": "object",
            "properties": {"type": {"type": "string", "enum": ["like", "love", "laugh", "celebrate"]}}
        },
        "service.FeedPage": {
            "type": "object",
            "properties": {
                "posts": {"type": "array", "items": {"$ref": "#/definitions/models.Post"}},
                "next_cursor": {"type": "string"}
            }
        },
        "service.ReactionResult": {
            "type": "object",
            "properties": {
                "post_id": {"type": "integer"},
                "reaction": {"type": "string"},
                "transition": {"type": "string"},
                "summary": {"$ref": "#/definitions/models.ReactionSummary"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "fambam API",
	Description:      "Private family feed: posts, comments, reactions and realtime sync.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
