// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	r.HandleFunc("/health", middleware.WithLogging(handler))

Logs request start (request_id, method, path, remote) and completion
(duration_ms). The request id comes from X-Request-ID or a new UUID and is
echoed in the response header.

# Slack Verification

Reject commands that do not carry an accepted verification token:

	middleware.WithSlackToken(cfg.SlackTokens, handler)

The form body is parsed before the check, so handlers read r.PostForm.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Used in request logs.
*/
package middleware
