// Package docs содержит описание REST API для swagger UI.
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
        "/images": {
            "get": {
                "description": "Возвращает URL варианта. Если варианта нет, обрабатывает все размеры категории",
                "produces": ["application/json"],
                "tags": ["images"],
                "summary": "URL одного размера",
                "parameters": [
                    {"type": "string", "description": "URL исходного изображения", "name": "url", "in": "query", "required": true},
                    {"type": "string", "description": "poster, profile или backdrop", "name": "category", "in": "query", "required": true},
                    {"type": "string", "description": "Размер (по умолчанию размер категории)", "name": "size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.URLResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/images/process": {
            "post": {
                "description": "Создаёт недостающие варианты изображения и возвращает URL всех размеров категории",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["images"],
                "summary": "Обработка всех размеров",
                "parameters": [
                    {"description": "Исходное изображение", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.ProcessImageRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.ProcessImageResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ProcessImageResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/http.ProcessImageResponse"}}
                }
            }
        },
        "/images/batch": {
            "post": {
                "description": "Обрабатывает изображения последовательно. Ошибка одной задачи не влияет на остальные",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["images"],
                "summary": "Пакетная обработка",
                "parameters": [
                    {"description": "Задачи", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.BatchRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.BatchResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/images/responsive": {
            "get": {
                "description": "URL по точкам small, medium, large, xlarge, original",
                "produces": ["application/json"],
                "tags": ["images"],
                "summary": "Набор для адаптивной вёрстки",
                "parameters": [
                    {"type": "string", "description": "URL исходного изображения", "name": "url", "in": "query", "required": true},
                    {"type": "string", "description": "poster, profile или backdrop", "name": "category", "in": "query", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/images/optimized": {
            "get": {
                "description": "Возвращает URL варианта для относительного пути TMDB, при ошибке ссылку на TMDB",
                "produces": ["application/json"],
                "tags": ["images"],
                "summary": "URL по пути TMDB",
                "parameters": [
                    {"type": "string", "description": "Путь TMDB, например /abc.jpg", "name": "path", "in": "query", "required": true},
                    {"type": "string", "description": "poster, profile или backdrop", "name": "category", "in": "query", "required": true},
                    {"type": "string", "description": "Размер", "name": "size", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.URLResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        },
        "/images/movies": {
            "post": {
                "description": "Обрабатывает постеры и фоны. Ключи результата: {id}_poster, {id}_backdrop",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["images"],
                "summary": "Изображения фильмов",
                "parameters": [
                    {"description": "Фильмы", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/http.MoviesRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.BatchResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/http.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.BatchItem": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "id": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "domain.BatchItemResult": {
            "type": "object",
            "properties": {
                "errors": {"type": "array", "items": {"type": "string"}},
                "success": {"type": "boolean"},
                "variants": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "domain.MovieImages": {
            "type": "object",
            "properties": {
                "backdrop_path": {"type": "string"},
                "id": {"type": "string"},
                "poster_path": {"type": "string"}
            }
        },
        "http.BatchRequest": {
            "type": "object",
            "properties": {
                "images": {"type": "array", "items": {"$ref": "#/definitions/domain.BatchItem"}}
            }
        },
        "http.BatchResponse": {
            "type": "object",
            "properties": {
                "results": {"type": "object", "additionalProperties": {"$ref": "#/definitions/domain.BatchItemResult"}}
            }
        },
        "http.ErrorResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "message": {"type": "string"}
            }
        },
        "http.MoviesRequest": {
            "type": "object",
            "properties": {
                "movies": {"type": "array", "items": {"$ref": "#/definitions/domain.MovieImages"}}
            }
        },
        "http.ProcessImageRequest": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "url": {"type": "string"}
            }
        },
        "http.ProcessImageResponse": {
            "type": "object",
            "properties": {
                "message": {"type": "string"},
                "success": {"type": "boolean"},
                "variants": {"type": "object", "additionalProperties": {"type": "string"}}
            }
        },
        "http.URLResponse": {
            "type": "object",
            "properties": {
                "url": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Baphomet images API",
	Description:      "Генерация и выдача вариантов изображений TMDB из Cloudflare R2",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
