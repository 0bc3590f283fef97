package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Assessment API",
        "description": "Weighted assessment scoring and stage-gated conduction engine",
        "version": "1.0.0"
    },
    "basePath": "/",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Assessment Types", "description": "Weighted assessment type catalog"},
        {"name": "Assessment Setups", "description": "Ordered assessment type collections"},
        {"name": "Grade Subject Assessments", "description": "Grade and subject bindings to setups"},
        {"name": "Conducted Assessments", "description": "Per-term stage gates"},
        {"name": "Assessment Scores", "description": "Marksheet generation and score entry"}
    ],
    "paths": {
        "/health": {
            "get": {
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/ready": {
            "get": {
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready"},
                    "503": {"description": "Database unavailable"}
                }
            }
        },
        "/api/v1/assessment-types": {
            "get": {
                "tags": ["Assessment Types"],
                "summary": "List assessment types",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Assessment Types"],
                "summary": "Create assessment type",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAssessmentTypeRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assessment-types/{id}": {
            "get": {
                "tags": ["Assessment Types"],
                "summary": "Get assessment type",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Assessment Types"],
                "summary": "Update assessment type",
                "description": "Weight is frozen while any setup uses the type.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAssessmentTypeRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Assessment Types"],
                "summary": "Delete assessment type",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assessment-setups": {
            "get": {
                "tags": ["Assessment Setups"],
                "summary": "List assessment setups",
                "parameters": [
                    {"name": "search", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Assessment Setups"],
                "summary": "Create assessment setup",
                "description": "Type weights must sum to 100.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssessmentSetupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assessment-setups/default": {
            "get": {
                "tags": ["Assessment Setups"],
                "summary": "Get the default assessment setup",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assessment-setups/{id}": {
            "get": {
                "tags": ["Assessment Setups"],
                "summary": "Get assessment setup",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Assessment Setups"],
                "summary": "Update assessment setup",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssessmentSetupRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Assessment Setups"],
                "summary": "Delete assessment setup",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/grade-subject-assessments": {
            "get": {
                "tags": ["Grade Subject Assessments"],
                "summary": "List grade subject assessments",
                "parameters": [
                    {"name": "gradeId", "in": "query", "type": "string"},
                    {"name": "subjectId", "in": "query", "type": "string"},
                    {"name": "setupId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Grade Subject Assessments"],
                "summary": "Create grade subject assessment",
                "description": "An empty setupId selects the default setup.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateGSARequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/grade-subject-assessments/{id}": {
            "get": {
                "tags": ["Grade Subject Assessments"],
                "summary": "Get grade subject assessment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "termId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Grade Subject Assessments"],
                "summary": "Delete grade subject assessment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/grade-subject-assessments/{id}/setup": {
            "put": {
                "tags": ["Grade Subject Assessments"],
                "summary": "Assign an assessment setup",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AssignSetupRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/grade-subject-assessments/{id}/recalculate": {
            "post": {
                "tags": ["Grade Subject Assessments"],
                "summary": "Queue a result recalculation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "termId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/recalculation-jobs/{id}": {
            "get": {
                "tags": ["Grade Subject Assessments"],
                "summary": "Get recalculation job status",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/conducted-assessments": {
            "get": {
                "tags": ["Conducted Assessments"],
                "summary": "List conducted assessments",
                "parameters": [
                    {"name": "gsaId", "in": "query", "type": "string"},
                    {"name": "termId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Conducted Assessments"],
                "summary": "Open a conducted assessment for a term",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateConductedAssessmentRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/conducted-assessments/{id}": {
            "get": {
                "tags": ["Conducted Assessments"],
                "summary": "Get conducted assessment",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/conducted-assessments/conduct": {
            "post": {
                "tags": ["Conducted Assessments"],
                "summary": "Mark an assessment stage as conducted",
                "description": "Stages must be conducted in setup order.",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/MarkStageConductedRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assessment-scores": {
            "get": {
                "tags": ["Assessment Scores"],
                "summary": "List marksheets",
                "parameters": [
                    {"name": "gsaId", "in": "query", "type": "string"},
                    {"name": "studentId", "in": "query", "type": "string"},
                    {"name": "subjectId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assessment-scores/generate/single": {
            "post": {
                "tags": ["Assessment Scores"],
                "summary": "Generate a marksheet for one student",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateSingleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assessment-scores/generate/multiple": {
            "post": {
                "tags": ["Assessment Scores"],
                "summary": "Generate marksheets for a list of students",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateMultipleRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assessment-scores/generate/bulk": {
            "post": {
                "tags": ["Assessment Scores"],
                "summary": "Generate marksheets for every student of a grade",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/GenerateBulkRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assessment-scores/student/{studentId}": {
            "get": {
                "tags": ["Assessment Scores"],
                "summary": "List a student's marksheets",
                "parameters": [
                    {"name": "studentId", "in": "path", "required": true, "type": "string"},
                    {"name": "subjectId", "in": "query", "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assessment-scores/{id}": {
            "get": {
                "tags": ["Assessment Scores"],
                "summary": "Get marksheet",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Assessment Scores"],
                "summary": "Update marksheet scores",
                "description": "Scores are clamped to 0-100; every type must already be conducted.",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateScoresRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/api/v1/assessment-scores/batch": {
            "put": {
                "tags": ["Assessment Scores"],
                "summary": "Update one assessment type for many students",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/BatchUpdateScoresRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateAssessmentTypeRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "weight": {"type": "number"},
                "description": {"type": "string"}
            },
            "required": ["name", "weight"]
        },
        "AssessmentSetupRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "typeIds": {"type": "array", "items": {"type": "string"}}
            },
            "required": ["name", "typeIds"]
        },
        "CreateGSARequest": {
            "type": "object",
            "properties": {
                "gradeId": {"type": "string"},
                "subjectId": {"type": "string"},
                "setupId": {"type": "string"}
            },
            "required": ["gradeId", "subjectId"]
        },
        "AssignSetupRequest": {
            "type": "object",
            "properties": {
                "setupId": {"type": "string"}
            },
            "required": ["setupId"]
        },
        "CreateConductedAssessmentRequest": {
            "type": "object",
            "properties": {
                "gsaId": {"type": "string"},
                "academicTermId": {"type": "string"}
            },
            "required": ["gsaId", "academicTermId"]
        },
        "MarkStageConductedRequest": {
            "type": "object",
            "properties": {
                "gsaId": {"type": "string"},
                "gradeId": {"type": "string"},
                "subjectId": {"type": "string"},
                "academicTermId": {"type": "string"},
                "assessmentTypeId": {"type": "string"}
            },
            "required": ["assessmentTypeId"]
        },
        "GenerateSingleRequest": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "subjectId": {"type": "string"}
            },
            "required": ["studentId", "subjectId"]
        },
        "GenerateMultipleRequest": {
            "type": "object",
            "properties": {
                "studentIds": {"type": "array", "items": {"type": "string"}},
                "subjectId": {"type": "string"}
            },
            "required": ["studentIds", "subjectId"]
        },
        "GenerateBulkRequest": {
            "type": "object",
            "properties": {
                "gradeId": {"type": "string"},
                "subjectId": {"type": "string"}
            },
            "required": ["gradeId", "subjectId"]
        },
        "ScoreInput": {
            "type": "object",
            "properties": {
                "typeId": {"type": "string"},
                "score": {"type": "number"}
            },
            "required": ["typeId", "score"]
        },
        "UpdateScoresRequest": {
            "type": "object",
            "properties": {
                "academicTermId": {"type": "string"},
                "scores": {"type": "array", "items": {"$ref": "#/definitions/ScoreInput"}}
            },
            "required": ["scores"]
        },
        "StudentScoreInput": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "score": {"type": "number"}
            },
            "required": ["studentId", "score"]
        },
        "BatchUpdateScoresRequest": {
            "type": "object",
            "properties": {
                "gsaId": {"type": "string"},
                "assessmentTypeId": {"type": "string"},
                "academicTermId": {"type": "string"},
                "scores": {"type": "array", "items": {"$ref": "#/definitions/StudentScoreInput"}}
            },
            "required": ["gsaId", "assessmentTypeId", "scores"]
        },
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
                "success": {"type": "boolean"},
                "message": {"type": "string"},
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
