// Package docs holds the OpenAPI document served by the dev Swagger UI.
// Regenerate with: swag init -g cmd/api/main.go
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
            "get": {
                "description": "Reports database and Redis reachability",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.HealthResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/http.HealthResponse"}}
                }
            }
        },
        "/auth/signup": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Start signup",
                "description": "Store the signup data and email a 5-digit verification code. The account is created by verify-otp. Role ADMIN is refused with a field error unless AUTH_ALLOW_ADMIN_SIGNUP is enabled.",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/auth.SignupRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/auth.SignupResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}}
                }
            }
        },
        "/auth/resend-otp": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Resend verification code",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/auth.ResendOTPRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/auth.ResendOTPResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}}
                }
            }
        },
        "/auth/verify-otp": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Verify code and create the account",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/auth.VerifyOTPRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/auth.VerifyOTPResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign in",
                "parameters": [{"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/auth.LoginRequest"}}],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Rotate the refresh token",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/auth/logout": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Revoke the refresh token",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current user",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/auth/forgot-password": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["auth"],
                "summary": "Email a password reset link",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/reset-password": {
            "post": {
                "consumes": ["application/json"],
                "tags": ["auth"],
                "summary": "Set a new password",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/venues": {
            "get": {
                "produces": ["application/json"],
                "tags": ["venues"],
                "summary": "List venues",
                "parameters": [
                    {"type": "string", "name": "sport", "in": "query"},
                    {"type": "string", "name": "city", "in": "query"},
                    {"type": "integer", "name": "page", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/venue.ListResult"}}}
            }
        },
        "/venues/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["venues"],
                "summary": "Venue detail",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/venue.Detail"}},
                    "404": {"description": "Not found or not visible", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}}
                }
            }
        },
        "/venues/upload": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["venues"],
                "summary": "Upload venue",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/venue.UploadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httputil.ErrorResponse"}},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/admin/venues/{id}/status": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Review venue",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/venue.StatusRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/bookings": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["bookings"],
                "summary": "My bookings",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/bookings/quote": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["bookings"],
                "summary": "Price a booking",
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        }
    },
    "definitions": {
        "httputil.FieldError": {
            "type": "object",
            "properties": {"field": {"type": "string"}, "message": {"type": "string"}}
        },
        "httputil.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "code": {"type": "string"},
                "details": {"type": "array", "items": {"$ref": "#/definitions/httputil.FieldError"}}
            }
        },
        "http.HealthResponse": {
            "type": "object",
            "properties": {"status": {"type": "string"}, "checks": {"type": "object", "additionalProperties": {"type": "string"}}}
        },
        "auth.SignupRequest": {
            "type": "object",
            "required": ["email", "fullName", "password", "role"],
            "properties": {
                "fullName": {"type": "string", "minLength": 2},
                "email": {"type": "string"},
                "password": {"type": "string", "minLength": 6},
                "role": {"type": "string", "enum": ["CUSTOMER", "FACILITY_OWNER", "ADMIN"]}
            }
        },
        "auth.SignupResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}, "email": {"type": "string"}, "otp": {"type": "string"}}
        },
        "auth.ResendOTPRequest": {
            "type": "object",
            "required": ["email"],
            "properties": {"email": {"type": "string"}}
        },
        "auth.ResendOTPResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}, "otp": {"type": "string"}}
        },
        "auth.VerifyOTPRequest": {
            "type": "object",
            "required": ["email", "otp"],
            "properties": {"email": {"type": "string"}, "otp": {"type": "string", "minLength": 5, "maxLength": 5}}
        },
        "auth.VerifyOTPResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}, "userId": {"type": "string"}}
        },
        "auth.LoginRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "venue.Summary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "description": {"type": "string"},
                "address": {"type": "string"},
                "city": {"type": "string"},
                "sports": {"type": "array", "items": {"type": "string"}},
                "amenities": {"type": "array", "items": {"type": "string"}},
                "photoUrl": {"type": "string"},
                "startingPrice": {"type": "number"},
                "rating": {"type": "number"},
                "reviewCount": {"type": "integer"},
                "createdAt": {"type": "string"},
                "status": {"type": "string"},
                "isOwner": {"type": "boolean"}
            }
        },
        "venue.Detail": {
            "allOf": [
                {"$ref": "#/definitions/venue.Summary"},
                {
                    "type": "object",
                    "properties": {
                        "phone": {"type": "string"},
                        "email": {"type": "string"},
                        "operatingHours": {"type": "string"},
                        "photos": {"type": "array", "items": {"type": "object"}},
                        "courts": {"type": "array", "items": {"type": "object"}},
                        "reviews": {"type": "array", "items": {"type": "object"}}
                    }
                }
            ]
        },
        "venue.ListResult": {
            "type": "object",
            "properties": {
                "venues": {"type": "array", "items": {"$ref": "#/definitions/venue.Summary"}},
                "pagination": {
                    "type": "object",
                    "properties": {"page": {"type": "integer"}, "limit": {"type": "integer"}, "total": {"type": "integer"}, "pages": {"type": "integer"}}
                }
            }
        },
        "venue.UploadResponse": {
            "type": "object",
            "properties": {"message": {"type": "string"}, "facilityId": {"type": "string"}, "status": {"type": "string"}}
        },
        "venue.StatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {"status": {"type": "string", "enum": ["approved", "rejected"]}, "comment": {"type": "string"}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Type \"Bearer\" followed by a space and the access token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "QuickCourt API",
	Description:      "Sports facility booking: venue discovery, OTP-verified signup, venue uploads and bookings.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
