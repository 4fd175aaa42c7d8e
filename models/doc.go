// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the Slack request and response types for the API.

# Request Types

  - Command: one slash command invocation as Slack posts it
    (token, team_id, channel_id, channel_name, user_id, user_name,
    command, text, response_url)

# Response Types

  - Message: response_type, text and attachments. Returned directly
    from the command endpoint or posted to a response_url.
  - Attachment: text, color and either image_url or thumb_url
  - ErrorResponse: error and message, used for non-Slack failures
    such as a bad verification token

# Constants

Response types:

	ResponseInChannel = "in_channel"
	ResponseEphemeral = "ephemeral"

Attachment colors:

	ColorGood    = "good"
	ColorWarning = "warning"
*/
package models
