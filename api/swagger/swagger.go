package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Colloquium Planning API",
        "description": "Oral exam scheduling for bachelor and master colloquia",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Login and token lifecycle"},
        {"name": "Exams", "description": "Colloquium registrations"},
        {"name": "Staff", "description": "Examiner and protocolist roster"},
        {"name": "Settings", "description": "Planning window and room mappings"},
        {"name": "Plan", "description": "Schedule versions and events"},
        {"name": "Merge", "description": "Team session merging"},
        {"name": "Export", "description": "Plan downloads"},
        {"name": "Import", "description": "Workbook ingestion"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and issue tokens",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate the refresh token",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/exams": {
            "get": {
                "tags": ["Exams"],
                "summary": "List exams",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Exams"],
                "summary": "Register an exam",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/staff": {
            "get": {
                "tags": ["Staff"],
                "summary": "List staff members",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Staff"],
                "summary": "Register a staff member",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/settings/schedule": {
            "get": {
                "tags": ["Settings"],
                "summary": "Get planning parameters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Settings"],
                "summary": "Replace planning parameters",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/versions": {
            "get": {
                "tags": ["Plan"],
                "summary": "List schedule versions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Plan"],
                "summary": "Create a draft version",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/versions/{id}/generate": {
            "post": {
                "tags": ["Plan"],
                "summary": "Generate the schedule for a draft version",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "412": {"description": "No schedule configuration defined"}
                }
            }
        },
        "/versions/{id}/plan": {
            "get": {
                "tags": ["Plan"],
                "summary": "Read the generated plan",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/versions/{id}/publish": {
            "post": {
                "tags": ["Plan"],
                "summary": "Publish a version",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already published"}
                }
            }
        },
        "/versions/{id}/merge": {
            "post": {
                "tags": ["Merge"],
                "summary": "Commit a team session merge",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Not mergeable"}
                }
            }
        },
        "/versions/{id}/export": {
            "get": {
                "tags": ["Export"],
                "summary": "Download the plan as csv, xlsx, or pdf",
                "responses": {
                    "200": {"description": "File download"}
                }
            }
        },
        "/import": {
            "post": {
                "tags": ["Import"],
                "summary": "Import exams and staff from a workbook",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
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
                "pagination": {"$ref": "#/definitions/Pagination"},
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
