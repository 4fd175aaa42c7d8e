// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the pokerbot API.

# Route Registration

NewRouter creates a gorilla/mux router with all endpoints:

	r := router.NewRouter(commandHandler, cfg)

# Endpoints

	GET  /health         - Liveness check, returns "OK"
	POST /slack/commands - Slack slash command (form encoded)
	GET  /               - Version banner

Routes are method specific; a known path with another method returns 405.

# Middleware

The command route is wrapped with request logging and Slack token
verification. Requests whose token is not in cfg.SlackTokens get 401 and
never reach the handler.
*/
package router
