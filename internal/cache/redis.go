package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/Domenick1991/busbooking/config"
	"github.com/Domenick1991/busbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client     *redis.Client
	tripsTTL   time.Duration
	sessionTTL time.Duration
}

// NewRedisCache wires the trip list cache and the session revocation store.
// sessionTTL is the lifetime of issued session tokens.
func NewRedisCache(cfg config.RedisConfig, tripsTTL, sessionTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		tripsTTL:   tripsTTL,
		sessionTTL: sessionTTL,
	}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetTrips returns nil, nil on a cache miss.
func (c *RedisCache) GetTrips(ctx context.Context) ([]domain.Trip, error) {
	data, err := c.client.Get(ctx, tripsKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var trips []domain.Trip
	if err := json.Unmarshal(data, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}

// setTripsIfGeneration writes the list only while no invalidation has happened
// since the caller read the generation.
var setTripsIfGeneration = redis.NewScript(`
if (redis.call("GET", KEYS[2]) or "0") ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// TripsGeneration returns the counter bumped by every InvalidateTrips.
func (c *RedisCache) TripsGeneration(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, tripsGenerationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// SetTrips stores the list read at generation gen. A write that lost the race
// with an invalidation is dropped.
func (c *RedisCache) SetTrips(ctx context.Context, trips []domain.Trip, gen int64) error {
	payload, err := json.Marshal(trips)
	if err != nil {
		return err
	}
	keys := []string{tripsKey(), tripsGenerationKey()}
	return setTripsIfGeneration.Run(ctx, c.client, keys, strconv.FormatInt(gen, 10), payload, c.tripsTTL.Milliseconds()).Err()
}

func (c *RedisCache) InvalidateTrips(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, tripsGenerationKey())
		pipe.Del(ctx, tripsKey())
		return nil
	})
	return err
}

// RevokeSession blocks a session token id until it would have expired anyway.
func (c *RedisCache) RevokeSession(ctx context.Context, tokenID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, revokedSessionKey(tokenID), "1", ttl).Err()
}

func (c *RedisCache) IsSessionRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := c.client.Exists(ctx, revokedSessionKey(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RevokeUserSessions invalidates every session of the user issued before the
// given second. The marker outlives the longest token it can affect.
func (c *RedisCache) RevokeUserSessions(ctx context.Context, userID int64, before time.Time) error {
	return c.client.Set(ctx, userSessionsKey(userID), before.Unix(), c.sessionTTL).Err()
}

// SessionsRevokedBefore returns the zero time when the user has no cutoff.
func (c *RedisCache) SessionsRevokedBefore(ctx context.Context, userID int64) (time.Time, error) {
	sec, err := c.client.Get(ctx, userSessionsKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(sec, 0), nil
}

func tripsKey() string {
	return "cache:trips"
}

func tripsGenerationKey() string {
	return "cache:trips:gen"
}

func revokedSessionKey(tokenID string) string {
	return "session:revoked:" + tokenID
}

func userSessionsKey(userID int64) string {
	return "session:user:" + strconv.FormatInt(userID, 10) + ":before"
}
