package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okian/bolao/internal/domain/model"
)

const defaultRedisPrefix = "bolao"

// RedisStore is a Store backed by Redis. Each user's predictions live in one
// hash keyed by match id, so an upsert is a single HSET of one field.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces every key the store touches.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{rdb: rdb, prefix: defaultRedisPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OpenRedis dials addr and verifies the connection with PING.
func OpenRedis(ctx context.Context, addr, password string, db int, opts ...RedisOption) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return NewRedisStore(rdb, opts...), nil
}

// redisMatch is the JSON record kept per match.
type redisMatch struct {
	Round       int       `json:"round"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	ScheduledAt time.Time `json:"scheduled_at"`
	HomeScore   *int      `json:"home_score,omitempty"`
	AwayScore   *int      `json:"away_score,omitempty"`
}

func (s *RedisStore) usersKey() string      { return s.prefix + ":users" }
func (s *RedisStore) matchesKey() string    { return s.prefix + ":matches" }
func (s *RedisStore) predictorsKey() string { return s.prefix + ":predictors" }
func (s *RedisStore) predictionsKey(id model.UserID) string {
	return s.prefix + ":predictions:" + id.String()
}

// Driver implements Store.
func (s *RedisStore) Driver() string { return DriverRedis }

// Close implements Store.
func (s *RedisStore) Close() error { return s.rdb.Close() }

// Truncate implements Store. Only keys under the store's prefix are removed.
func (s *RedisStore) Truncate(ctx context.Context) (err error) {
	defer func(start time.Time) { observeWrite(DriverRedis, "truncate", start, err) }(time.Now())
	ids, err := s.rdb.SMembers(ctx, s.predictorsKey()).Result()
	if err != nil {
		return fmt.Errorf("list predictors: %w", err)
	}
	keys := []string{s.usersKey(), s.matchesKey(), s.predictorsKey()}
	for _, raw := range ids {
		keys = append(keys, s.prefix+":predictions:"+raw)
	}
	if err = s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	return nil
}

func encodeScore(home, away int) string {
	return strconv.Itoa(home) + ":" + strconv.Itoa(away)
}

func decodePrediction(userID model.UserID, field, value string) (model.Prediction, error) {
	matchID, err := model.ParseMatchID(field)
	if err != nil {
		return model.Prediction{}, fmt.Errorf("prediction field %q: %w", field, ErrInvalidRecord)
	}
	h, a, ok := strings.Cut(value, ":")
	if !ok {
		return model.Prediction{}, fmt.Errorf("prediction value %q: %w", value, ErrInvalidRecord)
	}
	home, err1 := strconv.Atoi(h)
	away, err2 := strconv.Atoi(a)
	if err1 != nil || err2 != nil {
		return model.Prediction{}, fmt.Errorf("prediction value %q: %w", value, ErrInvalidRecord)
	}
	return model.Prediction{UserID: userID, MatchID: matchID, HomeScore: home, AwayScore: away}, nil
}

// UpsertPrediction implements PredictionStore. HSET and SADD run in one
// MULTI/EXEC block.
func (s *RedisStore) UpsertPrediction(ctx context.Context, p model.Prediction) (err error) {
	defer func(start time.Time) { observeWrite(DriverRedis, "upsert_prediction", start, err) }(time.Now())
	if !validPrediction(p) {
		return fmt.Errorf("prediction %v: %w", p.Key(), ErrInvalidRecord)
	}
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.predictionsKey(p.UserID), p.MatchID.String(), encodeScore(p.HomeScore, p.AwayScore))
		pipe.SAdd(ctx, s.predictorsKey(), p.UserID.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert prediction: %w", err)
	}
	return nil
}

// GetPrediction implements PredictionStore.
func (s *RedisStore) GetPrediction(ctx context.Context, userID model.UserID, matchID model.MatchID) (p model.Prediction, err error) {
	defer func(start time.Time) { observeRead(DriverRedis, "get_prediction", start, err) }(time.Now())
	v, err := s.rdb.HGet(ctx, s.predictionsKey(userID), matchID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return model.Prediction{}, ErrNotFound
	}
	if err != nil {
		return model.Prediction{}, fmt.Errorf("get prediction: %w", err)
	}
	return decodePrediction(userID, matchID.String(), v)
}

// PredictionsByUser implements PredictionStore.
func (s *RedisStore) PredictionsByUser(ctx context.Context, userID model.UserID) (out []model.Prediction, err error) {
	defer func(start time.Time) { observeRead(DriverRedis, "predictions_by_user", start, err) }(time.Now())
	fields, err := s.rdb.HGetAll(ctx, s.predictionsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("predictions by user: %w", err)
	}
	out = make([]model.Prediction, 0, len(fields))
	for f, v := range fields {
		p, err := decodePrediction(userID, f, v)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sortPredictions(out)
	return out, nil
}

// Predictions implements PredictionStore. One pipelined HGETALL per predictor.
func (s *RedisStore) Predictions(ctx context.Context) (out []model.Prediction, err error) {
	defer func(start time.Time) { observeRead(DriverRedis, "predictions", start, err) }(time.Now())
	ids, err := s.rdb.SMembers(ctx, s.predictorsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list predictors: %w", err)
	}

	users := make([]model.UserID, 0, len(ids))
	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))
	_, err = s.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, raw := range ids {
			id, err := model.ParseUserID(raw)
			if err != nil {
				return fmt.Errorf("predictor %q: %w", raw, ErrInvalidRecord)
			}
			users = append(users, id)
			cmds = append(cmds, pipe.HGetAll(ctx, s.predictionsKey(id)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read predictions: %w", err)
	}

	out = make([]model.Prediction, 0)
	for i, cmd := range cmds {
		for f, v := range cmd.Val() {
			p, err := decodePrediction(users[i], f, v)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
	}
	sortPredictions(out)
	return out, nil
}

// CountPredictions implements PredictionStore.
func (s *RedisStore) CountPredictions(ctx context.Context) (int, error) {
	ps, err := s.Predictions(ctx)
	if err != nil {
		return 0, err
	}
	return len(ps), nil
}

// PutMatch implements MatchStore.
func (s *RedisStore) PutMatch(ctx context.Context, m model.Match) (err error) {
	defer func(start time.Time) { observeWrite(DriverRedis, "put_match", start, err) }(time.Now())
	if !validMatch(m) {
		return fmt.Errorf("match %d: %w", m.ID, ErrInvalidRecord)
	}
	raw, err := json.Marshal(redisMatch{
		Round: m.Round, HomeTeam: m.HomeTeam, AwayTeam: m.AwayTeam,
		ScheduledAt: m.ScheduledAt.UTC(), HomeScore: m.HomeScore, AwayScore: m.AwayScore,
	})
	if err != nil {
		return fmt.Errorf("encode match: %w", err)
	}
	if err = s.rdb.HSet(ctx, s.matchesKey(), m.ID.String(), raw).Err(); err != nil {
		return fmt.Errorf("put match: %w", err)
	}
	return nil
}

func decodeMatch(field, value string) (model.Match, error) {
	id, err := model.ParseMatchID(field)
	if err != nil {
		return model.Match{}, fmt.Errorf("match field %q: %w", field, ErrInvalidRecord)
	}
	var r redisMatch
	if err := json.Unmarshal([]byte(value), &r); err != nil {
		return model.Match{}, fmt.Errorf("match %d: %w", id, ErrInvalidRecord)
	}
	return model.Match{
		ID: id, Round: r.Round, HomeTeam: r.HomeTeam, AwayTeam: r.AwayTeam,
		ScheduledAt: r.ScheduledAt, HomeScore: r.HomeScore, AwayScore: r.AwayScore,
	}, nil
}

// Match implements MatchStore.
func (s *RedisStore) Match(ctx context.Context, id model.MatchID) (m model.Match, err error) {
	defer func(start time.Time) { observeRead(DriverRedis, "match", start, err) }(time.Now())
	v, err := s.rdb.HGet(ctx, s.matchesKey(), id.String()).Result()
	if errors.Is(err, redis.Nil) {
		return model.Match{}, ErrNotFound
	}
	if err != nil {
		return model.Match{}, fmt.Errorf("get match: %w", err)
	}
	return decodeMatch(id.String(), v)
}

// Matches implements MatchStore.
func (s *RedisStore) Matches(ctx context.Context) (out []model.Match, err error) {
	defer func(start time.Time) { observeRead(DriverRedis, "matches", start, err) }(time.Now())
	all, err := s.rdb.HGetAll(ctx, s.matchesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	out = make([]model.Match, 0, len(all))
	for f, v := range all {
		m, err := decodeMatch(f, v)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sortMatches(out)
	return out, nil
}

// SetResult implements MatchStore. The read-modify-write runs under WATCH so
// a concurrent PutMatch cannot be lost.
func (s *RedisStore) SetResult(ctx context.Context, id model.MatchID, home, away int) (err error) {
	defer func(start time.Time) { observeWrite(DriverRedis, "set_result", start, err) }(time.Now())
	if !validScore(home, away) {
		return ErrInvalidScore
	}
	key := s.matchesKey()
	return s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		v, err := tx.HGet(ctx, key, id.String()).Result()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get match: %w", err)
		}
		var r redisMatch
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return fmt.Errorf("match %d: %w", id, ErrInvalidRecord)
		}
		r.HomeScore, r.AwayScore = model.Score(home), model.Score(away)
		raw, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode match: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, id.String(), raw)
			return nil
		})
		return err
	}, key)
}

// PutUser implements UserStore.
func (s *RedisStore) PutUser(ctx context.Context, u model.User) (err error) {
	defer func(start time.Time) { observeWrite(DriverRedis, "put_user", start, err) }(time.Now())
	if !u.ID.Valid() {
		return fmt.Errorf("user %d: %w", u.ID, ErrInvalidRecord)
	}
	if err = s.rdb.HSet(ctx, s.usersKey(), u.ID.String(), u.Name).Err(); err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// User implements UserStore.
func (s *RedisStore) User(ctx context.Context, id model.UserID) (u model.User, err error) {
	defer func(start time.Time) { observeRead(DriverRedis, "user", start, err) }(time.Now())
	name, err := s.rdb.HGet(ctx, s.usersKey(), id.String()).Result()
	if errors.Is(err, redis.Nil) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	return model.User{ID: id, Name: name}, nil
}

// Users implements UserStore.
func (s *RedisStore) Users(ctx context.Context) (out []model.User, err error) {
	defer func(start time.Time) { observeRead(DriverRedis, "users", start, err) }(time.Now())
	all, err := s.rdb.HGetAll(ctx, s.usersKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	out = make([]model.User, 0, len(all))
	for f, name := range all {
		id, err := model.ParseUserID(f)
		if err != nil {
			return nil, fmt.Errorf("user field %q: %w", f, ErrInvalidRecord)
		}
		out = append(out, model.User{ID: id, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
