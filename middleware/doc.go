// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and response helpers.

# Request Logging

WithLogging logs request start and completion with duration:

	mux.HandleFunc("POST /elections", middleware.WithLogging(handler.CreateElection))

The logged remote address is resolved through proxy headers via GetClientIP.
The client IP is logged for operational visibility only; it is never stored
with a ballot.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusConflict, models.KindAlreadyVoted, "ballot already cast")
	middleware.ParseJSONBody(r, &req)

ErrorResponse always includes a stable error kind so clients can branch
deterministically.

# CORS

CORS allows cross-origin requests and handles preflight OPTIONS requests.
*/
package middleware
