// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP handler for pokerbot slash commands.

# Handler Types

CommandHandler holds the round controller, the message renderer and a
Broadcaster for delayed messages:

	commandHandler := handlers.NewCommandHandler(ctrl, cfg, notifier)

# Commands

Slack posts every invocation of the slash command as a form to a single
endpoint. The first word of the text selects the verb:

	setup <f|s|t|e>   → Controller.Setup
	deal <ticket>     → Controller.Deal
	vote <token>      → Controller.Vote
	tally             → Controller.Tally
	reveal            → Controller.Reveal
	end               → Controller.End
	help              → command list

Empty text returns a hint; any other verb returns "Invalid command".

# Responses

Every command is answered with 200 and a Slack message in JSON. Setup, deal,
tally, reveal and end are posted to the channel (response_type in_channel).
Vote acknowledgements, help and errors are private (ephemeral).

A first vote in a round also sends "<name> voted" to the command's
response_url through the Broadcaster. The send happens in the background and
its failure never changes the voter's acknowledgement.

# Error Handling

Controller errors are rendered with render.Renderer.Error. Validation and
precondition failures are logged at info level, store failures at error level.
*/
package handlers
