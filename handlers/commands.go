// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/pokerbot/cliparse"
	"github.com/danielhkuo/pokerbot/middleware"
	"github.com/danielhkuo/pokerbot/models"
	"github.com/danielhkuo/pokerbot/render"
	"github.com/danielhkuo/pokerbot/round"
)

// Broadcaster posts a message to a Slack response URL without blocking
type Broadcaster interface {
	Send(url string, msg models.Message)
}

type CommandHandler struct {
	ctrl      *round.Controller
	render    render.Renderer
	broadcast Broadcaster
	timeout   time.Duration
}

func NewCommandHandler(ctrl *round.Controller, cfg cliparse.Config, broadcast Broadcaster) *CommandHandler {
	return &CommandHandler{
		ctrl:      ctrl,
		render:    render.Renderer{Command: cfg.CommandName},
		broadcast: broadcast,
		timeout:   cfg.StoreTimeout,
	}
}

// HandleCommand handles POST /slack/commands.
// Slack expects a 200 for every command it delivers, so failures are
// reported as private messages rather than error statuses.
func (h *CommandHandler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid form body")
		return
	}
	cmd := parseCommand(r)

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	msg := h.dispatch(ctx, cmd)
	middleware.JSONResponse(w, http.StatusOK, msg)
}

func (h *CommandHandler) dispatch(ctx context.Context, cmd models.Command) models.Message {
	args := strings.Fields(cmd.Text)
	if len(args) == 0 {
		return h.render.HelpHint()
	}
	verb, arg := args[0], ""
	if len(args) > 1 {
		arg = args[1]
	}

	ch := round.Channel{Team: cmd.TeamID, ID: cmd.ChannelID, Name: cmd.ChannelName}

	switch verb {
	case "help":
		return h.render.Help()

	case "setup":
		scale, err := h.ctrl.Setup(ctx, ch, arg)
		if err != nil {
			return h.fail(cmd, verb, err)
		}
		return h.render.Setup(scale)

	case "deal":
		res, err := h.ctrl.Deal(ctx, ch, arg)
		if err != nil {
			return h.fail(cmd, verb, err)
		}
		return h.render.Deal(res)

	case "vote":
		voter := round.Voter{ID: cmd.UserID, Name: cmd.UserName}
		res, err := h.ctrl.Vote(ctx, ch, voter, arg)
		if err != nil {
			return h.fail(cmd, verb, err)
		}
		if res.First {
			h.broadcast.Send(cmd.ResponseURL, h.render.VoteBroadcast(cmd.UserName))
		}
		return h.render.Vote(res)

	case "tally":
		res, err := h.ctrl.Tally(ctx, ch)
		if err != nil {
			return h.fail(cmd, verb, err)
		}
		return h.render.Tally(res)

	case "reveal":
		res, err := h.ctrl.Reveal(ctx, ch)
		if err != nil {
			return h.fail(cmd, verb, err)
		}
		return h.render.Reveal(res)

	case "end":
		rec, err := h.ctrl.End(ctx, ch)
		if err != nil {
			return h.fail(cmd, verb, err)
		}
		return h.render.End(rec)
	}

	return h.render.InvalidCommand()
}

// fail logs err at a level matching its kind and renders it privately
func (h *CommandHandler) fail(cmd models.Command, verb string, err error) models.Message {
	attrs := []any{"verb", verb, "team", cmd.TeamID, "channel", cmd.ChannelID, "user", cmd.UserID, "error", err}

	var rerr *round.Error
	if errors.As(err, &rerr) && rerr.Code.Kind() != round.KindCollaborator {
		slog.Info("command rejected", attrs...)
	} else {
		slog.Error("command failed", attrs...)
	}

	return h.render.Error(err)
}

func parseCommand(r *http.Request) models.Command {
	f := r.PostForm
	return models.Command{
		Token:       f.Get("token"),
		TeamID:      f.Get("team_id"),
		TeamDomain:  f.Get("team_domain"),
		ChannelID:   f.Get("channel_id"),
		ChannelName: f.Get("channel_name"),
		UserID:      f.Get("user_id"),
		UserName:    f.Get("user_name"),
		Command:     f.Get("command"),
		Text:        f.Get("text"),
		ResponseURL: f.Get("response_url"),
	}
}
