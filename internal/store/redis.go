package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/caesar-terminal/offerwatch/internal/poll"
	"github.com/caesar-terminal/offerwatch/internal/tradeoffer"
)

// RedisClient is the subset of Redis used by RedisStore. GoRedis adapts a
// *redis.Client to it; tests use a mock.
type RedisClient interface {
	HSet(ctx context.Context, key string, values ...any) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
}

// GoRedis adapts *redis.Client to RedisClient.
type GoRedis struct {
	*redis.Client
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, addr, password string, db int) (*GoRedis, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		c.Close()
		return nil, fmt.Errorf("store: redis ping %s: %w", addr, err)
	}
	slog.Info("redis store connected", "addr", addr, "db", db)
	return &GoRedis{Client: c}, nil
}

func (g *GoRedis) HSet(ctx context.Context, key string, values ...any) error {
	return g.Client.HSet(ctx, key, values...).Err()
}

func (g *GoRedis) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return g.Client.HGetAll(ctx, key).Result()
}

// RedisStore keeps the cursor in one hash:
//
//	Key:    {key}
//	Fields: offers_since, last_poll, last_poll_full_update (epoch seconds),
//	        state_map (JSON object of offer id to state)
//
// HSET replaces all fields in one command, so readers never see a mix of
// two saves.
type RedisStore struct {
	client RedisClient
	key    string
}

func NewRedisStore(client RedisClient, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (poll.Data, error) {
	fields, err := s.client.HGetAll(ctx, s.key)
	if err != nil {
		return poll.Data{}, fmt.Errorf("store: redis hgetall %s: %w", s.key, err)
	}
	d := poll.NewData()
	if len(fields) == 0 {
		return d, nil
	}

	times := []struct {
		field string
		dst   *time.Time
	}{
		{"offers_since", &d.OffersSince},
		{"last_poll", &d.LastPoll},
		{"last_poll_full_update", &d.LastPollFullUpdate},
	}
	for _, f := range times {
		v, ok := fields[f.field]
		if !ok {
			continue
		}
		secs, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return poll.Data{}, fmt.Errorf("store: redis field %s: %w", f.field, err)
		}
		*f.dst = fromUnix(secs)
	}

	if raw, ok := fields["state_map"]; ok && raw != "" {
		states := make(map[uint64]tradeoffer.State)
		if err := json.Unmarshal([]byte(raw), &states); err != nil {
			return poll.Data{}, fmt.Errorf("store: redis field state_map: %w", err)
		}
		d.StateMap = states
	}
	return d, nil
}

func (s *RedisStore) Save(ctx context.Context, d poll.Data) error {
	states, err := json.Marshal(d.StateMap)
	if err != nil {
		return fmt.Errorf("store: encode state_map: %w", err)
	}
	err = s.client.HSet(ctx, s.key,
		"offers_since", strconv.FormatInt(unixOrZero(d.OffersSince), 10),
		"last_poll", strconv.FormatInt(unixOrZero(d.LastPoll), 10),
		"last_poll_full_update", strconv.FormatInt(unixOrZero(d.LastPollFullUpdate), 10),
		"state_map", string(states),
	)
	if err != nil {
		return fmt.Errorf("store: redis hset %s: %w", s.key, err)
	}
	return nil
}

var _ poll.Store = (*RedisStore)(nil)
