// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps sessions in Redis so every server instance sees the same round.
//
// A session is three keys sharing one hash tag:
//
//	pokerbot:session:{team:channel}        ticket (string, carries the TTL)
//	pokerbot:session:{team:channel}:votes  voter id -> vote JSON (hash)
//	pokerbot:session:{team:channel}:order  voter ids in first-vote order (list)
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// voteScript upserts one vote server side. It returns -1 when no round is
// active, 1 for the voter's first vote and 0 for a revote.
var voteScript = redis.NewScript(`
local ttl = redis.call('PTTL', KEYS[1])
if ttl == -2 then
	return -1
end
local added = redis.call('HSET', KEYS[2], ARGV[1], ARGV[2])
if added == 1 then
	redis.call('RPUSH', KEYS[3], ARGV[1])
end
if ttl > 0 then
	redis.call('PEXPIRE', KEYS[2], ttl)
	redis.call('PEXPIRE', KEYS[3], ttl)
end
return added
`)

func NewRedisStore(ctx context.Context, addr string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("error parsing redis URL: %w", err)
	}

	c := redis.NewClient(opts)

	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	return &RedisStore{client: c, ttl: ttl}, nil
}

type redisKeys struct {
	ticket, votes, order string
}

func keysFor(key Key) redisKeys {
	base := fmt.Sprintf("pokerbot:session:{%s:%s}", key.Team, key.Channel)
	return redisKeys{ticket: base, votes: base + ":votes", order: base + ":order"}
}

func (rs *RedisStore) Deal(ctx context.Context, key Key, ticket string) error {
	k := keysFor(key)

	_, err := rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k.votes, k.order)
		pipe.Set(ctx, k.ticket, ticket, rs.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (rs *RedisStore) Vote(ctx context.Context, key Key, v Vote) (bool, error) {
	k := keysFor(key)

	data, err := json.Marshal(v)
	if err != nil {
		return false, fmt.Errorf("failed to marshal vote: %w", err)
	}

	added, err := voteScript.Run(ctx, rs.client, []string{k.ticket, k.votes, k.order}, v.VoterID, data).Int()
	if err != nil {
		return false, fmt.Errorf("failed to record vote: %w", err)
	}
	if added < 0 {
		return false, ErrNoSession
	}
	return added == 1, nil
}

func (rs *RedisStore) Get(ctx context.Context, key Key) (Session, error) {
	return rs.read(ctx, key, false)
}

func (rs *RedisStore) Take(ctx context.Context, key Key) (Session, error) {
	return rs.read(ctx, key, true)
}

// read loads the session in one MULTI, deleting it when remove is set
func (rs *RedisStore) read(ctx context.Context, key Key, remove bool) (Session, error) {
	k := keysFor(key)

	var (
		ticket *redis.StringCmd
		votes  *redis.MapStringStringCmd
		order  *redis.StringSliceCmd
	)
	_, err := rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		ticket = pipe.Get(ctx, k.ticket)
		votes = pipe.HGetAll(ctx, k.votes)
		order = pipe.LRange(ctx, k.order, 0, -1)
		if remove {
			pipe.Del(ctx, k.ticket, k.votes, k.order)
		}
		return nil
	})
	// A missing ticket surfaces as redis.Nil from the pipeline
	if err != nil && !errors.Is(err, redis.Nil) {
		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}

	if errors.Is(ticket.Err(), redis.Nil) {
		return Session{}, ErrNoSession
	}

	s := Session{Ticket: ticket.Val(), Votes: make([]Vote, 0, len(order.Val()))}
	byVoter := votes.Val()
	for _, id := range order.Val() {
		raw, ok := byVoter[id]
		if !ok {
			continue
		}
		var v Vote
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return Session{}, fmt.Errorf("failed to decode vote: %w", err)
		}
		s.Votes = append(s.Votes, v)
	}
	return s, nil
}

func (rs *RedisStore) Close() error {
	if err := rs.client.Close(); err != nil {
		return fmt.Errorf("error closing redis client: %w", err)
	}
	return nil
}
