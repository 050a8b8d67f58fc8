package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/bolao/internal/domain/model"
)

// Default Postgres connection settings.
const (
	defaultPostgresMaxConns     = 10
	defaultPostgresConnectWait  = 30 * time.Second
	postgresPingTimeout         = 2 * time.Second
	postgresConnectRetryBackoff = time.Second
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS users (
	id   BIGINT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS matches (
	id           BIGINT PRIMARY KEY,
	round        INTEGER NOT NULL CHECK (round > 0),
	home_team    TEXT NOT NULL,
	away_team    TEXT NOT NULL,
	scheduled_at TIMESTAMPTZ NOT NULL,
	home_score   INTEGER CHECK (home_score >= 0),
	away_score   INTEGER CHECK (away_score >= 0),
	CHECK ((home_score IS NULL) = (away_score IS NULL))
);

CREATE TABLE IF NOT EXISTS predictions (
	user_id    BIGINT NOT NULL,
	match_id   BIGINT NOT NULL,
	home_score INTEGER NOT NULL CHECK (home_score >= 0),
	away_score INTEGER NOT NULL CHECK (away_score >= 0),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, match_id)
);`

// PostgresStore is a Store backed by a pgx connection pool. Prediction
// uniqueness is the table's primary key; upserts use ON CONFLICT.
type PostgresStore struct {
	pool        *pgxpool.Pool
	maxConns    int32
	connectWait time.Duration
}

// PostgresOption configures a PostgresStore.
type PostgresOption func(*PostgresStore)

// WithMaxConns bounds the pool size.
func WithMaxConns(n int32) PostgresOption {
	return func(s *PostgresStore) {
		if n > 0 {
			s.maxConns = n
		}
	}
}

// WithConnectWait sets how long OpenPostgres keeps retrying the first connection.
func WithConnectWait(d time.Duration) PostgresOption {
	return func(s *PostgresStore) {
		if d > 0 {
			s.connectWait = d
		}
	}
}

// OpenPostgres connects to url, retrying until the connect wait elapses, and
// ensures the schema exists.
func OpenPostgres(ctx context.Context, url string, opts ...PostgresOption) (*PostgresStore, error) {
	s := &PostgresStore{maxConns: defaultPostgresMaxConns, connectWait: defaultPostgresConnectWait}
	for _, opt := range opts {
		opt(s)
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = s.maxConns

	deadline := time.Now().Add(s.connectWait)
	for {
		pool, err := connectOnce(ctx, cfg)
		if err == nil {
			s.pool = pool
			break
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(postgresConnectRetryBackoff):
		}
	}

	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		s.pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return s, nil
}

func connectOnce(ctx context.Context, cfg *pgxpool.Config) (*pgxpool.Pool, error) {
	pingCtx, cancel := context.WithTimeout(ctx, postgresPingTimeout)
	defer cancel()
	pool, err := pgxpool.NewWithConfig(pingCtx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Driver implements Store.
func (s *PostgresStore) Driver() string { return DriverPostgres }

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// UpsertPrediction implements PredictionStore with a single INSERT .. ON CONFLICT.
func (s *PostgresStore) UpsertPrediction(ctx context.Context, p model.Prediction) (err error) {
	defer func(start time.Time) { observeWrite(DriverPostgres, "upsert_prediction", start, err) }(time.Now())
	if !validPrediction(p) {
		return fmt.Errorf("prediction %v: %w", p.Key(), ErrInvalidRecord)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO predictions (user_id, match_id, home_score, away_score)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, match_id)
		DO UPDATE SET home_score = EXCLUDED.home_score, away_score = EXCLUDED.away_score, updated_at = now()`,
		int64(p.UserID), int64(p.MatchID), p.HomeScore, p.AwayScore)
	if err != nil {
		return fmt.Errorf("upsert prediction: %w", err)
	}
	return nil
}

// GetPrediction implements PredictionStore.
func (s *PostgresStore) GetPrediction(ctx context.Context, userID model.UserID, matchID model.MatchID) (p model.Prediction, err error) {
	defer func(start time.Time) { observeRead(DriverPostgres, "get_prediction", start, err) }(time.Now())
	row := s.pool.QueryRow(ctx,
		`SELECT user_id, match_id, home_score, away_score FROM predictions WHERE user_id = $1 AND match_id = $2`,
		int64(userID), int64(matchID))
	p, err = scanPrediction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Prediction{}, ErrNotFound
	}
	if err != nil {
		return model.Prediction{}, fmt.Errorf("get prediction: %w", err)
	}
	return p, nil
}

// PredictionsByUser implements PredictionStore.
func (s *PostgresStore) PredictionsByUser(ctx context.Context, userID model.UserID) (out []model.Prediction, err error) {
	defer func(start time.Time) { observeRead(DriverPostgres, "predictions_by_user", start, err) }(time.Now())
	return s.queryPredictions(ctx,
		`SELECT user_id, match_id, home_score, away_score FROM predictions WHERE user_id = $1 ORDER BY match_id`,
		int64(userID))
}

// Predictions implements PredictionStore.
func (s *PostgresStore) Predictions(ctx context.Context) (out []model.Prediction, err error) {
	defer func(start time.Time) { observeRead(DriverPostgres, "predictions", start, err) }(time.Now())
	return s.queryPredictions(ctx,
		`SELECT user_id, match_id, home_score, away_score FROM predictions ORDER BY user_id, match_id`)
}

// CountPredictions implements PredictionStore.
func (s *PostgresStore) CountPredictions(ctx context.Context) (n int, err error) {
	defer func(start time.Time) { observeRead(DriverPostgres, "count_predictions", start, err) }(time.Now())
	if err = s.pool.QueryRow(ctx, `SELECT count(*) FROM predictions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count predictions: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) queryPredictions(ctx context.Context, sql string, args ...any) ([]model.Prediction, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	out := make([]model.Prediction, 0)
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPrediction(row pgx.Row) (model.Prediction, error) {
	var userID, matchID int64
	var p model.Prediction
	if err := row.Scan(&userID, &matchID, &p.HomeScore, &p.AwayScore); err != nil {
		return model.Prediction{}, err
	}
	p.UserID, p.MatchID = model.UserID(userID), model.MatchID(matchID)
	return p, nil
}

// PutMatch implements MatchStore.
func (s *PostgresStore) PutMatch(ctx context.Context, m model.Match) (err error) {
	defer func(start time.Time) { observeWrite(DriverPostgres, "put_match", start, err) }(time.Now())
	if !validMatch(m) {
		return fmt.Errorf("match %d: %w", m.ID, ErrInvalidRecord)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO matches (id, round, home_team, away_team, scheduled_at, home_score, away_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			round = EXCLUDED.round, home_team = EXCLUDED.home_team, away_team = EXCLUDED.away_team,
			scheduled_at = EXCLUDED.scheduled_at, home_score = EXCLUDED.home_score, away_score = EXCLUDED.away_score`,
		int64(m.ID), m.Round, m.HomeTeam, m.AwayTeam, m.ScheduledAt.UTC(), m.HomeScore, m.AwayScore)
	if err != nil {
		return fmt.Errorf("put match: %w", err)
	}
	return nil
}

const matchColumns = `id, round, home_team, away_team, scheduled_at, home_score, away_score`

// Match implements MatchStore.
func (s *PostgresStore) Match(ctx context.Context, id model.MatchID) (m model.Match, err error) {
	defer func(start time.Time) { observeRead(DriverPostgres, "match", start, err) }(time.Now())
	m, err = scanMatch(s.pool.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, int64(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Match{}, ErrNotFound
	}
	if err != nil {
		return model.Match{}, fmt.Errorf("get match: %w", err)
	}
	return m, nil
}

// Matches implements MatchStore.
func (s *PostgresStore) Matches(ctx context.Context) (out []model.Match, err error) {
	defer func(start time.Time) { observeRead(DriverPostgres, "matches", start, err) }(time.Now())
	rows, err := s.pool.Query(ctx, `SELECT `+matchColumns+` FROM matches ORDER BY scheduled_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query matches: %w", err)
	}
	defer rows.Close()

	out = make([]model.Match, 0)
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMatch(row pgx.Row) (model.Match, error) {
	var id int64
	var m model.Match
	if err := row.Scan(&id, &m.Round, &m.HomeTeam, &m.AwayTeam, &m.ScheduledAt, &m.HomeScore, &m.AwayScore); err != nil {
		return model.Match{}, err
	}
	m.ID = model.MatchID(id)
	return m, nil
}

// SetResult implements MatchStore. Both scores change in one UPDATE.
func (s *PostgresStore) SetResult(ctx context.Context, id model.MatchID, home, away int) (err error) {
	defer func(start time.Time) { observeWrite(DriverPostgres, "set_result", start, err) }(time.Now())
	if !validScore(home, away) {
		return ErrInvalidScore
	}
	tag, err := s.pool.Exec(ctx, `UPDATE matches SET home_score = $2, away_score = $3 WHERE id = $1`,
		int64(id), home, away)
	if err != nil {
		return fmt.Errorf("set result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PutUser implements UserStore.
func (s *PostgresStore) PutUser(ctx context.Context, u model.User) (err error) {
	defer func(start time.Time) { observeWrite(DriverPostgres, "put_user", start, err) }(time.Now())
	if !u.ID.Valid() {
		return fmt.Errorf("user %d: %w", u.ID, ErrInvalidRecord)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, name) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name`,
		int64(u.ID), u.Name)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// User implements UserStore.
func (s *PostgresStore) User(ctx context.Context, id model.UserID) (u model.User, err error) {
	defer func(start time.Time) { observeRead(DriverPostgres, "user", start, err) }(time.Now())
	err = s.pool.QueryRow(ctx, `SELECT name FROM users WHERE id = $1`, int64(id)).Scan(&u.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("get user: %w", err)
	}
	u.ID = id
	return u, nil
}

// Users implements UserStore.
func (s *PostgresStore) Users(ctx context.Context) (out []model.User, err error) {
	defer func(start time.Time) { observeRead(DriverPostgres, "users", start, err) }(time.Now())
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	out = make([]model.User, 0)
	for rows.Next() {
		var id int64
		var u model.User
		if err := rows.Scan(&id, &u.Name); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.ID = model.UserID(id)
		out = append(out, u)
	}
	return out, rows.Err()
}

// Truncate implements Store.
func (s *PostgresStore) Truncate(ctx context.Context) (err error) {
	defer func(start time.Time) { observeWrite(DriverPostgres, "truncate", start, err) }(time.Now())
	if _, err = s.pool.Exec(ctx, `TRUNCATE predictions, matches, users`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	return nil
}
