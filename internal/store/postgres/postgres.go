// Package postgres implements the coach stores on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/blueberrycongee/llmcoach/internal/store"
	"github.com/blueberrycongee/llmcoach/pkg/types"
)

// Schema creates the tables used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS coach_memories (
	id           UUID PRIMARY KEY,
	user_id      TEXT NOT NULL,
	seq          BIGSERIAL,
	type         TEXT NOT NULL,
	content      TEXT NOT NULL,
	confidence   TEXT NOT NULL,
	context_id   TEXT,
	extracted_at TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_coach_memories_user_recent
	ON coach_memories (user_id, created_at DESC, seq DESC);

CREATE TABLE IF NOT EXISTS progress_logs (
	id           UUID PRIMARY KEY,
	user_id      TEXT NOT NULL,
	seq          BIGSERIAL,
	date         TIMESTAMPTZ NOT NULL,
	weight       DOUBLE PRECISION,
	calories     INTEGER,
	mood         TEXT,
	sleep_hours  DOUBLE PRECISION,
	stress_level INTEGER,
	steps        INTEGER,
	notes        TEXT
);
CREATE INDEX IF NOT EXISTS idx_progress_logs_user_date
	ON progress_logs (user_id, date DESC, seq DESC);

CREATE TABLE IF NOT EXISTS user_profiles (
	id             UUID PRIMARY KEY,
	user_id        TEXT NOT NULL UNIQUE,
	name           TEXT,
	goal           TEXT NOT NULL,
	weight_kg      DOUBLE PRECISION,
	height_cm      DOUBLE PRECISION,
	diet_type      TEXT,
	activity_level INTEGER NOT NULL,
	sleep_hours    DOUBLE PRECISION,
	stress_level   INTEGER,
	steps_per_day  INTEGER,
	created_at     TIMESTAMPTZ NOT NULL,
	updated_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS meal_feedback (
	id           UUID PRIMARY KEY,
	user_id      TEXT NOT NULL,
	meal_plan_id TEXT,
	kind         TEXT NOT NULL,
	rating       INTEGER,
	feedback     TEXT,
	meal_type    TEXT,
	issues       JSONB,
	issue_type   TEXT,
	description  TEXT,
	suggestion   TEXT,
	severity     TEXT,
	created_at   TIMESTAMPTZ NOT NULL
);`

// Config contains PostgreSQL connection settings.
type Config struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	User         string        `yaml:"user"`
	Password     string        `yaml:"password"`
	Database     string        `yaml:"database"`
	SSLMode      string        `yaml:"ssl_mode"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	ConnLifetime time.Duration `yaml:"conn_lifetime"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         5432,
		Database:     "llmcoach",
		SSLMode:      "disable",
		MaxOpenConns: 25,
		MaxIdleConns: 5,
		ConnLifetime: 5 * time.Minute,
	}
}

// DSN renders the lib/pq connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Store implements store.Store using PostgreSQL.
type Store struct {
	db        *sql.DB
	retention store.Retention
	now       func() time.Time
}

var _ store.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithRetention sets the memory log retention policy.
func WithRetention(r store.Retention) Option {
	return func(s *Store) { s.retention = r }
}

// WithClock sets the clock used to stamp records.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New opens a connection pool and verifies connectivity.
func New(cfg Config, opts ...Option) (*Store, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewWithDB(db, opts...), nil
}

// NewWithDB wraps an existing handle.
func NewWithDB(db *sql.DB, opts ...Option) *Store {
	s := &Store{db: db, retention: store.DefaultRetention(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DBStats returns connection pool statistics.
func (s *Store) DBStats() sql.DBStats {
	return s.db.Stats()
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendMemories inserts the records and applies retention in one transaction.
func (s *Store) AppendMemories(ctx context.Context, userID string, records []types.InsightRecord) (out []types.MemoryRecord, err error) {
	if userID == "" {
		return nil, fmt.Errorf("append memories: empty user id")
	}
	if len(records) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := s.now().UTC()
	query := `
		INSERT INTO coach_memories
			(id, user_id, type, content, confidence, context_id, extracted_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq`

	out = make([]types.MemoryRecord, 0, len(records))
	for _, r := range records {
		rec := types.MemoryRecord{
			ID:            uuid.NewString(),
			UserID:        userID,
			InsightRecord: r,
			CreatedAt:     now,
		}
		if err = tx.QueryRowContext(ctx, query,
			rec.ID, userID, r.Type, r.Content, r.Metadata.Confidence,
			nullString(r.Metadata.ContextID), r.Metadata.ExtractedAt, now,
		).Scan(&rec.Seq); err != nil {
			return nil, fmt.Errorf("insert memory: %w", err)
		}
		out = append(out, rec)
	}

	if err = s.applyRetention(ctx, tx, userID, now); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (s *Store) applyRetention(ctx context.Context, tx *sql.Tx, userID string, now time.Time) error {
	if s.retention.MaxAge > 0 {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM coach_memories WHERE user_id = $1 AND created_at < $2`,
			userID, now.Add(-s.retention.MaxAge),
		); err != nil {
			return fmt.Errorf("expire memories: %w", err)
		}
	}
	if s.retention.MaxRecords > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM coach_memories
			WHERE user_id = $1 AND id NOT IN (
				SELECT id FROM coach_memories
				WHERE user_id = $1
				ORDER BY created_at DESC, seq DESC
				LIMIT $2
			)`,
			userID, s.retention.MaxRecords,
		); err != nil {
			return fmt.Errorf("trim memories: %w", err)
		}
	}
	return nil
}

// LoadRecentMemories returns at most limit records, newest first.
func (s *Store) LoadRecentMemories(ctx context.Context, userID string, limit int) ([]types.MemoryRecord, error) {
	var b strings.Builder
	b.WriteString(`
		SELECT id, user_id, seq, type, content, confidence, context_id, extracted_at, created_at
		FROM coach_memories
		WHERE user_id = $1`)
	args := []any{userID}
	if s.retention.MaxAge > 0 {
		args = append(args, s.now().UTC().Add(-s.retention.MaxAge))
		fmt.Fprintf(&b, " AND created_at >= $%d", len(args))
	}
	b.WriteString(" ORDER BY created_at DESC, seq DESC")
	if limit > 0 {
		args = append(args, limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query memories: %w", err)
	}
	defer rows.Close()

	out := make([]types.MemoryRecord, 0)
	for rows.Next() {
		var m types.MemoryRecord
		var contextID sql.NullString
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.Seq, &m.Type, &m.Content,
			&m.Metadata.Confidence, &contextID, &m.Metadata.ExtractedAt, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan memory: %w", err)
		}
		m.Metadata.ContextID = contextID.String
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memories: %w", err)
	}
	return out, nil
}

// AppendProgress inserts one progress entry.
func (s *Store) AppendProgress(ctx context.Context, e types.ProgressEntry) (types.ProgressEntry, error) {
	if e.UserID == "" {
		return types.ProgressEntry{}, fmt.Errorf("append progress: empty user id")
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Date.IsZero() {
		e.Date = s.now().UTC()
	}

	query := `
		INSERT INTO progress_logs
			(id, user_id, date, weight, calories, mood, sleep_hours, stress_level, steps, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if _, err := s.db.ExecContext(ctx, query,
		e.ID, e.UserID, e.Date, nullFloat(e.Weight), nullInt(e.Calories), nullString(e.Mood),
		nullFloat(e.SleepHours), nullInt(e.StressLevel), nullInt(e.Steps), nullString(e.Notes),
	); err != nil {
		return types.ProgressEntry{}, fmt.Errorf("insert progress: %w", err)
	}
	return e, nil
}

// LoadRecentProgress returns at most limit entries, newest date first.
func (s *Store) LoadRecentProgress(ctx context.Context, userID string, limit int) ([]types.ProgressEntry, error) {
	query := `
		SELECT id, user_id, date, weight, calories, mood, sleep_hours, stress_level, steps, notes
		FROM progress_logs
		WHERE user_id = $1
		ORDER BY date DESC, seq DESC`
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	out := make([]types.ProgressEntry, 0)
	for rows.Next() {
		var e types.ProgressEntry
		var weight, sleep sql.NullFloat64
		var calories, stress, steps sql.NullInt64
		var mood, notes sql.NullString
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &weight, &calories, &mood, &sleep, &stress, &steps, &notes); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		e.Weight = floatPtr(weight)
		e.Calories = intPtr(calories)
		e.Mood = mood.String
		e.SleepHours = floatPtr(sleep)
		e.StressLevel = intPtr(stress)
		e.Steps = intPtr(steps)
		e.Notes = notes.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate progress: %w", err)
	}
	return out, nil
}

// GetProfile returns store.ErrNotFound when the user has no profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (types.UserProfile, error) {
	query := `
		SELECT id, user_id, name, goal, weight_kg, height_cm, diet_type, activity_level,
		       sleep_hours, stress_level, steps_per_day, created_at, updated_at
		FROM user_profiles
		WHERE user_id = $1`

	var p types.UserProfile
	var name, diet sql.NullString
	var weight, height, sleep sql.NullFloat64
	var stress, steps sql.NullInt64

	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &name, &p.Goal, &weight, &height, &diet, &p.ActivityLevel,
		&sleep, &stress, &steps, &p.CreatedAt, &p.UpdatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return types.UserProfile{}, fmt.Errorf("profile %s: %w", userID, store.ErrNotFound)
	}
	if err != nil {
		return types.UserProfile{}, fmt.Errorf("query profile: %w", err)
	}

	p.Name = name.String
	p.DietType = diet.String
	p.WeightKg = floatPtr(weight)
	p.HeightCm = floatPtr(height)
	p.SleepHours = floatPtr(sleep)
	p.StressLevel = intPtr(stress)
	p.StepsPerDay = intPtr(steps)
	return p, nil
}

// UpsertProfile inserts or updates the profile keyed by user ID.
func (s *Store) UpsertProfile(ctx context.Context, p types.UserProfile) error {
	if p.UserID == "" {
		return fmt.Errorf("upsert profile: empty user id")
	}
	now := s.now().UTC()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}

	query := `
		INSERT INTO user_profiles
			(id, user_id, name, goal, weight_kg, height_cm, diet_type, activity_level,
			 sleep_hours, stress_level, steps_per_day, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			goal = EXCLUDED.goal,
			weight_kg = EXCLUDED.weight_kg,
			height_cm = EXCLUDED.height_cm,
			diet_type = EXCLUDED.diet_type,
			activity_level = EXCLUDED.activity_level,
			sleep_hours = EXCLUDED.sleep_hours,
			stress_level = EXCLUDED.stress_level,
			steps_per_day = EXCLUDED.steps_per_day,
			updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, query,
		p.ID, p.UserID, nullString(p.Name), p.Goal, nullFloat(p.WeightKg), nullFloat(p.HeightCm),
		nullString(p.DietType), p.ActivityLevel, nullFloat(p.SleepHours), nullInt(p.StressLevel),
		nullInt(p.StepsPerDay), p.CreatedAt, now,
	); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// RecordFeedback inserts a rating or issue report.
func (s *Store) RecordFeedback(ctx context.Context, fb types.MealFeedback) (types.MealFeedback, error) {
	if fb.UserID == "" {
		return types.MealFeedback{}, fmt.Errorf("record feedback: empty user id")
	}
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = s.now().UTC()
	}

	var issues any
	if len(fb.Issues) > 0 {
		b, err := json.Marshal(fb.Issues)
		if err != nil {
			return types.MealFeedback{}, fmt.Errorf("marshal issues: %w", err)
		}
		issues = string(b)
	}

	query := `
		INSERT INTO meal_feedback
			(id, user_id, meal_plan_id, kind, rating, feedback, meal_type, issues,
			 issue_type, description, suggestion, severity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	if _, err := s.db.ExecContext(ctx, query,
		fb.ID, fb.UserID, nullString(fb.MealPlanID), string(fb.Kind), nullInt(fb.Rating),
		nullString(fb.Feedback), nullString(fb.MealType), issues, nullString(fb.IssueType),
		nullString(fb.Description), nullString(fb.Suggestion), nullString(fb.Severity), fb.CreatedAt,
	); err != nil {
		return types.MealFeedback{}, fmt.Errorf("insert feedback: %w", err)
	}
	return fb, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return int64(*v)
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
