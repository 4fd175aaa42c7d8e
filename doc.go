// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the pokerbot server.

Pokerbot runs planning poker rounds in Slack channels through a single slash
command. A facilitator deals a ticket, members vote privately, and reveal
announces either the agreed estimate or the split between voters.

# Starting the Server

The server reads a .env file, then environment variables, then CLI flags:

	SLACK_TOKENS=xxxx IMAGE_LOCATION=https://cdn.example/cards/ go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -tokens xxxx

# Configuration

Required settings:

  - SLACK_TOKENS (-tokens): Comma-separated verification tokens
  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - IMAGE_LOCATION (-images): Base URL of the card images
  - COMMAND_NAME: Slash command shown in help (default: /pokerbot)
  - REDIS_URL (-redis): Share round state between instances
  - SESSION_TTL: Expiry of abandoned rounds in Redis (default: 24h)
  - KAFKA_BROKERS, KAFKA_TOPIC: Publish round events
  - STORE_TIMEOUT, BROADCAST_TIMEOUT: Collaborator timeouts

# Architecture

  - handlers: Slash command dispatch
  - router: Route definitions using gorilla/mux
  - middleware: Logging, Slack token check, JSON helpers
  - round: Round controller and its error codes
  - session: Active round state (memory or Redis)
  - consensus: Unanimous or split evaluation
  - scales: Estimate scales and card images
  - storage: Channel config and session records (SQL)
  - render: Slack message formatting
  - notify: Background posts to response URLs
  - events: Round event stream (Kafka)
  - models: Slack request/response types
  - auth: Token validation
  - db: Connection and schema
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
