// Package docs registers the OpenAPI document served under /swagger/.
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
        "/v1/elections": {
            "post": {
                "tags": ["elections"],
                "summary": "Create an election with its ordered positions and attendance roster",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreateElectionRequest"}}],
                "responses": {"201": {"description": "Created"}, "400": {"description": "invalid_request", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/v1/elections/{election_id}/close": {
            "post": {
                "tags": ["elections"],
                "summary": "Close an election and force-complete unfinished positions",
                "parameters": [{"in": "path", "name": "election_id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "not_found", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/v1/elections/{election_id}/finalize": {
            "post": {
                "tags": ["elections"],
                "summary": "Finalize a closed election",
                "parameters": [{"in": "path", "name": "election_id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "invalid_transition", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/v1/elections/{election_id}/positions": {
            "get": {
                "tags": ["elections"],
                "summary": "List the election positions in ballot order",
                "parameters": [{"in": "path", "name": "election_id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/elections/{election_id}/positions/open-next": {
            "post": {
                "tags": ["sequencer"],
                "summary": "Activate the next pending position",
                "parameters": [{"in": "path", "name": "election_id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "invalid_transition", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/v1/election-positions/{election_position_id}/open": {
            "post": {
                "tags": ["sequencer"],
                "summary": "Activate a specific pending position",
                "parameters": [{"in": "path", "name": "election_position_id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "invalid_transition", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/v1/election-positions/{election_position_id}/advance-scrutiny": {
            "post": {
                "tags": ["sequencer"],
                "summary": "Move an active position to its next scrutiny round",
                "parameters": [{"in": "path", "name": "election_position_id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "position_not_active", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/v1/election-positions/{election_position_id}/complete": {
            "post": {
                "tags": ["sequencer"],
                "summary": "Complete an active position",
                "parameters": [{"in": "path", "name": "election_position_id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/election-positions/{election_position_id}/force-complete": {
            "post": {
                "tags": ["sequencer"],
                "summary": "Force-complete a position with an audit reason",
                "parameters": [
                    {"in": "path", "name": "election_position_id", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ForceCompleteRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/election-positions/{election_position_id}/close-round": {
            "post": {
                "tags": ["scrutiny"],
                "summary": "Tally the current round and decide the outcome",
                "parameters": [{"in": "path", "name": "election_position_id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}, "422": {"description": "quorum_unavailable", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/v1/election-positions/{election_position_id}/tie": {
            "get": {
                "tags": ["scrutiny"],
                "summary": "Report whether the third scrutiny ended in a tie",
                "parameters": [{"in": "path", "name": "election_position_id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/election-positions/{election_position_id}/tie/resolve": {
            "post": {
                "tags": ["scrutiny"],
                "summary": "Record the manually chosen winner of a third scrutiny tie",
                "parameters": [
                    {"in": "path", "name": "election_position_id", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ResolveTieRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/election-positions/{election_position_id}/attendance-snapshot": {
            "post": {
                "tags": ["attendance"],
                "summary": "Freeze the attendance roster for a position",
                "parameters": [{"in": "path", "name": "election_position_id", "type": "string", "required": true}],
                "responses": {"200": {"description": "Snapshot already existed"}, "201": {"description": "Created"}}
            }
        },
        "/v1/elections/{election_id}/positions/{position_id}/candidates": {
            "get": {
                "tags": ["candidates"],
                "summary": "List candidates for a position",
                "parameters": [
                    {"in": "path", "name": "election_id", "type": "string", "required": true},
                    {"in": "path", "name": "position_id", "type": "string", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["candidates"],
                "summary": "Replace the candidate list for a position",
                "parameters": [
                    {"in": "path", "name": "election_id", "type": "string", "required": true},
                    {"in": "path", "name": "position_id", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/ReplaceCandidatesRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/votes": {
            "post": {
                "tags": ["ballots"],
                "summary": "Cast a ballot in the current round",
                "parameters": [
                    {"in": "header", "name": "X-User-Id", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CastVoteRequest"}}
                ],
                "responses": {"201": {"description": "Created"}, "409": {"description": "duplicate_vote", "schema": {"$ref": "#/definitions/ErrorResponse"}}}
            }
        },
        "/v1/elections/{election_id}/positions/{position_id}/votes/me": {
            "get": {
                "tags": ["ballots"],
                "summary": "Report whether the caller already voted in a round",
                "parameters": [
                    {"in": "header", "name": "X-User-Id", "type": "string", "required": true},
                    {"in": "path", "name": "election_id", "type": "string", "required": true},
                    {"in": "path", "name": "position_id", "type": "string", "required": true},
                    {"in": "query", "name": "scrutiny", "type": "integer", "required": true}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/elections/{election_id}/attendance/{member_id}": {
            "put": {
                "tags": ["attendance"],
                "summary": "Mark a member present or absent",
                "parameters": [
                    {"in": "path", "name": "election_id", "type": "string", "required": true},
                    {"in": "path", "name": "member_id", "type": "string", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/SetAttendanceRequest"}}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/elections/{election_id}/attendance/count": {
            "get": {
                "tags": ["attendance"],
                "summary": "Count present members on the main roster",
                "parameters": [{"in": "path", "name": "election_id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/elections/{election_id}/results": {
            "get": {
                "tags": ["results"],
                "summary": "Election results per position",
                "parameters": [{"in": "path", "name": "election_id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/v1/results/latest": {
            "get": {"tags": ["results"], "summary": "Results of the most recent election", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/results/history": {
            "get": {"tags": ["results"], "summary": "Results of every election, newest first", "responses": {"200": {"description": "OK"}}}
        },
        "/v1/positions": {
            "get": {"tags": ["positions"], "summary": "List position templates", "responses": {"200": {"description": "OK"}}},
            "post": {
                "tags": ["positions"],
                "summary": "Create a position template",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/CreatePositionRequest"}}],
                "responses": {"201": {"description": "Created"}}
            }
        }
    },
    "definitions": {
        "ErrorResponse": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "CreateElectionRequest": {
            "type": "object",
            "properties": {"name": {"type": "string"}}
        },
        "ForceCompleteRequest": {
            "type": "object",
            "properties": {"reason": {"type": "string"}, "shouldReopen": {"type": "boolean"}}
        },
        "ResolveTieRequest": {
            "type": "object",
            "properties": {"winnerId": {"type": "string"}}
        },
        "ReplaceCandidatesRequest": {
            "type": "object",
            "properties": {
                "candidates": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {"name": {"type": "string"}, "email": {"type": "string"}, "memberId": {"type": "string"}}
                    }
                }
            }
        },
        "CastVoteRequest": {
            "type": "object",
            "properties": {
                "electionId": {"type": "string"},
                "positionId": {"type": "string"},
                "candidateId": {"type": "string"},
                "scrutinyRound": {"type": "integer"}
            }
        },
        "SetAttendanceRequest": {
            "type": "object",
            "properties": {"isPresent": {"type": "boolean"}}
        },
        "CreatePositionRequest": {
            "type": "object",
            "properties": {"name": {"type": "string"}, "orderIndex": {"type": "integer"}}
        }
    }
}`

var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Fellowship election engine API",
	Description:      "Sequential position voting with majority scrutiny rounds.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
