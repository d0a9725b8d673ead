// Package http exposes the workforce services over a JSON API.
//
// Every response uses one envelope: {"success","data","error":{"code","message","details"}}.
// Service error kinds map to status codes in responder.go: unauthenticated 401,
// forbidden 403, not found 404, conflict 409 and validation 422.
//
// Routes (see router.go):
//   - POST /api/v1/auth/login, POST /api/v1/auth/logout, GET /api/v1/auth/me
//   - POST /api/v1/attendance/checkin, GET /api/v1/attendance/worked-times,
//     PUT /api/v1/attendance/worked-times/{id}/note
//   - GET /api/v1/devices/code authenticated by the X-Device-Code header,
//     GET|POST /api/v1/devices, DELETE /api/v1/devices/{id}
//   - GET|POST /api/v1/users, GET|PUT|DELETE /api/v1/users/{id},
//     GET /api/v1/users/{id}/logs; user reads accept anonymous callers and
//     hide names accordingly
//   - GET|POST /api/v1/roles, GET|POST /api/v1/request-types
//   - GET|POST /api/v1/schedules, GET /api/v1/schedules/plan,
//     PUT /api/v1/schedules/{id}/inactive,
//     DELETE /api/v1/schedules/{id}
//   - GET|POST /api/v1/requests, GET|DELETE /api/v1/requests/{id},
//     POST /api/v1/requests/{id}/process
//   - GET /health
//
// Request and response DTOs live alongside their handlers.
package http
