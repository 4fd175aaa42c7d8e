// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package render turns round results into Slack messages.
package render

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielhkuo/pokerbot/models"
	"github.com/danielhkuo/pokerbot/round"
	"github.com/danielhkuo/pokerbot/scales"
	"github.com/danielhkuo/pokerbot/storage"
)

// timeLayout is how session start and end times are shown
const timeLayout = "2006-01-02 15:04:05"

// Renderer knows the slash command name used in hints
type Renderer struct {
	Command string
}

func (r Renderer) HelpHint() models.Message {
	return models.Ephemeral(fmt.Sprintf("Type *%s help* for pokerbot commands.", r.Command))
}

func (r Renderer) Help() models.Message {
	return models.Ephemeral("Pokerbot helps you play Agile/Scrum poker planning.\n\n" +
		"Use the following commands:\n" +
		" " + r.Command + " setup <size in f, s, t or e>\n" +
		" " + r.Command + " deal <JIRA Ticket ID>\n" +
		" " + r.Command + " vote <valid size or ?>\n" +
		" " + r.Command + " tally\n" +
		" " + r.Command + " reveal\n" +
		" " + r.Command + " end")
}

func (r Renderer) InvalidCommand() models.Message {
	return models.Ephemeral(fmt.Sprintf("Invalid command. Type *%s help* for pokerbot commands.", r.Command))
}

func (r Renderer) Setup(scale scales.Scale) models.Message {
	msg := models.InChannel(fmt.Sprintf("*Channel Estimation size set to %s*", scale.Name))
	msg.AddAttachment("Valid Estimate Sizes are Below", "", scale.Composite, false)
	return msg
}

func (r Renderer) Deal(res round.DealResult) models.Message {
	msg := models.InChannel(fmt.Sprintf("*The planning poker game has started* for %s.", res.Ticket))
	msg.AddAttachment(fmt.Sprintf("Vote by typing *%s vote <size>*.", r.Command), "", res.Scale.Composite, false)
	return msg
}

// Vote is the private acknowledgement sent to the voter
func (r Renderer) Vote(res round.VoteResult) models.Message {
	if res.First {
		return models.Ephemeral(fmt.Sprintf("You voted *%s*.", res.Token))
	}
	return models.Ephemeral(fmt.Sprintf("You changed your vote to *%s*.", res.Token))
}

// VoteBroadcast tells the channel someone voted, without the token
func (r Renderer) VoteBroadcast(name string) models.Message {
	return models.InChannel(fmt.Sprintf("%s voted", name))
}

func (r Renderer) Tally(res round.TallyResult) models.Message {
	switch len(res.Voters) {
	case 0:
		return models.InChannel("No one has voted yet.")
	case 1:
		return models.InChannel(fmt.Sprintf("%s has voted.", res.Voters[0]))
	default:
		return models.InChannel(fmt.Sprintf("%s have voted.", JoinNames(res.Voters)))
	}
}

func (r Renderer) Reveal(res round.RevealResult) models.Message {
	if res.Outcome.Unanimous {
		token := res.Outcome.Token()
		msg := models.InChannel(fmt.Sprintf("*Congratulations!*\n_%s_: %s", res.Ticket, token))
		msg.AddAttachment("Everyone selected the same number.", models.ColorGood, res.Scale.Asset(token), false)
		return msg
	}

	msg := models.InChannel("*No winner yet.* Discuss and continue voting.")
	for _, g := range res.Outcome.Groups {
		msg.AddAttachment(strings.Join(g.Voters, ", "), models.ColorWarning, res.Scale.Asset(g.Token), true)
	}
	return msg
}

func (r Renderer) End(rec storage.Record) models.Message {
	msg := models.InChannel("*Session has ended, see results below:*")

	var b strings.Builder
	b.WriteString("*Session Info*\n")
	fmt.Fprintf(&b, "*Session Date*: %s\n", rec.Date)
	fmt.Fprintf(&b, "*Start Time*: %s\n", formatTime(rec.StartTime))
	fmt.Fprintf(&b, "*End Time*: %s\n", formatTime(rec.EndTime))
	msg.AddAttachment(b.String(), models.ColorGood, "", false)

	for _, e := range rec.Estimates {
		msg.AddAttachment(fmt.Sprintf("*%s*: %s", round.DisplayTicket(e.Ticket), e.Estimate), models.ColorGood, "", false)
	}
	return msg
}

// Error turns a controller error into a private message
func (r Renderer) Error(err error) models.Message {
	var rerr *round.Error
	if !errors.As(err, &rerr) {
		return models.Ephemeral("Sorry, something went wrong. Please try again.")
	}

	switch rerr.Code {
	case round.CodeMissingScale:
		return models.Ephemeral(fmt.Sprintf("You must enter a size format: `%s setup [%s]`.", r.Command, rerr.Metadata["choices"]))
	case round.CodeInvalidScale:
		return models.Ephemeral(fmt.Sprintf("Your choices are %s in format %s setup <choice>.", rerr.Metadata["choices"], r.Command))
	case round.CodeChannelNotConfigured:
		return models.Ephemeral(fmt.Sprintf("Setup channel for size configuration first. ex: %s setup <size>.", r.Command))
	case round.CodeMissingTicket:
		return models.Ephemeral(fmt.Sprintf("You did not enter a JIRA ticket number. ex: %s deal PROJECT-1234", r.Command))
	case round.CodeNoActiveSession:
		return models.Ephemeral("The poker planning game hasn't started yet.")
	case round.CodeMissingVote:
		return models.Ephemeral("Your vote was not counted. You didn't enter a size.")
	case round.CodeInvalidVote:
		return models.Ephemeral("Your vote was not counted. Please enter a valid poker planning size. One of: " + rerr.Metadata["valid"])
	case round.CodeStoreFailure:
		if rerr.Retryable {
			return models.Ephemeral("Sorry, the pokerbot store is not responding. Please try again.")
		}
		return models.Ephemeral("Sorry, something went wrong saving your command.")
	}

	return models.Ephemeral("Sorry, something went wrong. Please try again.")
}

// JoinNames lists names as "a", "a and b" or "a, b and c"
func JoinNames(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return t.Local().Format(timeLayout)
}
