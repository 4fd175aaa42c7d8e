// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/danielhkuo/pokerbot/cliparse"
	"github.com/danielhkuo/pokerbot/handlers"
	"github.com/danielhkuo/pokerbot/middleware"
)

func NewRouter(commandHandler *handlers.CommandHandler, cfg cliparse.Config) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Slash commands (token verified before dispatch)
	r.HandleFunc("/slack/commands",
		middleware.WithLogging(middleware.WithSlackToken(cfg.SlackTokens, commandHandler.HandleCommand)),
	).Methods("POST")

	// Root endpoint
	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pokerbot API v1"))
	}).Methods("GET")

	return r
}
