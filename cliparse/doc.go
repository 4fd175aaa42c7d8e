// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration from environment variables and CLI flags.

# Configuration Sources

Settings are read from the environment first (github.com/caarlos0/env), then
CLI flags override them. main loads a .env file beforehand when one exists.

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Settings

Required:

  - DATABASE_URL (-d): database connection string
  - SLACK_TOKENS (-tokens): comma-separated Slack verification tokens

Optional:

  - PORT (-p): server port (default 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default sqlite)
  - IMAGE_LOCATION (-images): base URL of the card images
  - COMMAND_NAME: slash command shown in help text (default /pokerbot)
  - REDIS_URL (-redis): share round state across server instances
  - SESSION_TTL: expiry of abandoned rounds in Redis (default 24h)
  - KAFKA_BROKERS, KAFKA_TOPIC: publish round events
  - STORE_TIMEOUT: bound on each database call (default 3s)
  - BROADCAST_TIMEOUT: bound on each delayed Slack message (default 5s)
*/
package cliparse
