// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth verifies inbound Slack commands.

# Verification Tokens

Slack sends a static verification token with every slash command. The server
accepts any token listed in SLACK_TOKENS:

	if err := auth.ValidateToken(form.Get("token"), cfg.SlackTokens); err != nil {
		// reject with 401
	}

Tokens are compared with hmac.Equal so timing does not reveal how much of a
token matched.
*/
package auth
