package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Timetable API",
        "description": "Greedy weekly timetable generation, versioned storage and exports.",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "consumes": [
        "application/json"
    ],
    "produces": [
        "application/json"
    ],
    "tags": [
        {
            "name": "Timetables",
            "description": "Solve, store, publish and export weekly timetables"
        },
        {
            "name": "Observability",
            "description": "Probes and metrics"
        }
    ],
    "paths": {
        "/health": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Liveness probe",
                "responses": {
                    "200": {
                        "description": "OK"
                    }
                }
            }
        },
        "/ready": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Readiness probe pinging PostgreSQL and Redis",
                "responses": {
                    "200": {
                        "description": "Ready"
                    },
                    "503": {
                        "description": "A dependency is down"
                    }
                }
            }
        },
        "/metrics": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Prometheus metrics",
                "produces": [
                    "text/plain"
                ],
                "responses": {
                    "200": {
                        "description": "Metrics in exposition format"
                    }
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Aggregated service counters",
                "responses": {
                    "200": {
                        "description": "Snapshot"
                    }
                }
            }
        },
        "/api/v1/timetables/generate": {
            "post": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Generate a timetable proposal",
                "description": "Runs the greedy solver for a term and keeps the result as an unsaved proposal.",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/GenerateTimetableRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Envelope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid payload",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "412": {
                        "description": "No class sections for the term",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "422": {
                        "description": "Malformed scheduling input",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "504": {
                        "description": "Solve timed out",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetables/save": {
            "post": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Save a proposal as a new timetable version",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SaveTimetableRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Envelope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Proposal not found, expired or already saved",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Proposal is infeasible and allowPartial is false, or a concurrent save took the same run version",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetables/jobs": {
            "post": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Queue a background generate-and-save job",
                "parameters": [
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/EnqueueTimetableJobRequest"
                        }
                    }
                ],
                "responses": {
                    "202": {
                        "description": "Envelope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "503": {
                        "description": "Job queue full",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetables/jobs/{id}": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Get background job status",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Job ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Envelope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Unknown job",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetables/runs": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "List stored timetable runs",
                "parameters": [
                    {
                        "name": "termId",
                        "in": "query",
                        "required": true,
                        "type": "string"
                    },
                    {
                        "name": "grade",
                        "in": "query",
                        "required": false,
                        "type": "string"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Envelope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetables/runs/{id}": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Get a stored timetable run",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Run ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Envelope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Run not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Delete a draft run",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Run ID"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "Deleted"
                    },
                    "409": {
                        "description": "Run is published",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetables/runs/{id}/assignments": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "List the placements of a stored run",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Run ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Envelope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetables/runs/{id}/publish": {
            "post": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Publish a draft run",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Run ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Envelope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Already published",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetables/runs/{id}/export": {
            "post": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Render a run to CSV or PDF",
                "description": "Stores the rendered file and returns a signed, expiring download link.",
                "parameters": [
                    {
                        "name": "id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Run ID"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ExportTimetableRequest"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Envelope",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/api/v1/timetables/exports/{token}": {
            "get": {
                "tags": [
                    "Timetables"
                ],
                "summary": "Download a rendered export",
                "parameters": [
                    {
                        "name": "token",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Signed download token"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "File contents",
                        "schema": {
                            "type": "file"
                        }
                    },
                    "404": {
                        "description": "Link invalid or expired",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                },
                "produces": [
                    "text/csv",
                    "application/pdf"
                ]
            }
        }
    },
    "definitions": {
        "GenerateTimetableRequest": {
            "type": "object",
            "required": [
                "termId"
            ],
            "properties": {
                "termId": {
                    "type": "string"
                },
                "grade": {
                    "type": "string"
                }
            }
        },
        "SaveTimetableRequest": {
            "type": "object",
            "required": [
                "proposalId"
            ],
            "properties": {
                "proposalId": {
                    "type": "string"
                },
                "publish": {
                    "type": "boolean"
                },
                "allowPartial": {
                    "type": "boolean"
                }
            }
        },
        "EnqueueTimetableJobRequest": {
            "type": "object",
            "required": [
                "termId"
            ],
            "properties": {
                "termId": {
                    "type": "string"
                },
                "grade": {
                    "type": "string"
                },
                "publish": {
                    "type": "boolean"
                },
                "allowPartial": {
                    "type": "boolean"
                }
            }
        },
        "ExportTimetableRequest": {
            "type": "object",
            "required": [
                "format"
            ],
            "properties": {
                "format": {
                    "type": "string",
                    "enum": [
                        "csv",
                        "pdf"
                    ]
                }
            }
        },
        "Assignment": {
            "type": "object",
            "properties": {
                "classId": {
                    "type": "string"
                },
                "teacherId": {
                    "type": "string"
                },
                "roomId": {
                    "type": "string"
                },
                "day": {
                    "type": "integer"
                },
                "block": {
                    "type": "integer"
                },
                "grade": {
                    "type": "string"
                },
                "violation": {
                    "type": "integer"
                }
            }
        },
        "Conflict": {
            "type": "object",
            "properties": {
                "kind": {
                    "type": "string",
                    "enum": [
                        "no_teacher",
                        "no_room",
                        "no_slot",
                        "cancelled"
                    ]
                },
                "classId": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                }
            }
        },
        "TimetableProposal": {
            "type": "object",
            "properties": {
                "proposalId": {
                    "type": "string"
                },
                "termId": {
                    "type": "string"
                },
                "grade": {
                    "type": "string"
                },
                "feasible": {
                    "type": "boolean"
                },
                "softViolations": {
                    "type": "integer"
                },
                "considered": {
                    "type": "integer"
                },
                "assignments": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/Assignment"
                    }
                },
                "conflicts": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/Conflict"
                    }
                },
                "stats": {
                    "type": "object",
                    "properties": {
                        "assignments": {
                            "type": "integer"
                        },
                        "teachersUsed": {
                            "type": "integer"
                        },
                        "roomsUsed": {
                            "type": "integer"
                        },
                        "durationMs": {
                            "type": "integer"
                        }
                    }
                },
                "expiresAt": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "TimetableRun": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "term_id": {
                    "type": "string"
                },
                "grade": {
                    "type": "string"
                },
                "version": {
                    "type": "integer"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "DRAFT",
                        "PUBLISHED"
                    ]
                },
                "feasible": {
                    "type": "boolean"
                },
                "soft_violations": {
                    "type": "integer"
                },
                "meta": {
                    "type": "object"
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "updated_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "TimetableJob": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "QUEUED",
                        "RUNNING",
                        "SUCCEEDED",
                        "FAILED"
                    ]
                },
                "termId": {
                    "type": "string"
                },
                "grade": {
                    "type": "string"
                },
                "runId": {
                    "type": "string"
                },
                "error": {
                    "type": "string"
                },
                "attempts": {
                    "type": "integer"
                },
                "createdAt": {
                    "type": "string",
                    "format": "date-time"
                },
                "updatedAt": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {
                    "type": "integer"
                },
                "pageSize": {
                    "type": "integer"
                },
                "totalCount": {
                    "type": "integer"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                },
                "details": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "pagination": {
                    "$ref": "#/definitions/Pagination"
                },
                "meta": {
                    "type": "object"
                }
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
