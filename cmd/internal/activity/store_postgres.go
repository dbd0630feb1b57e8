package activity

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"techheal/cmd/identity"
)

// PostgresStore persists activities and meal analyses.
//
// The pgx pool is owned by the caller; this store must NOT close it.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema (default "techheal").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("activity: empty schema")
		}
		if !identRe.MatchString(schema) {
			return fmt.Errorf("activity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore with secure defaults.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "techheal",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("activity: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) ident(name string) string {
	return pgx.Identifier{s.schema, name}.Sanitize()
}

const activityColumns = `id, user_id, activity_type, duration_minutes, intensity, notes, created_at`

// CreateActivity inserts one workout entry.
func (s *PostgresStore) CreateActivity(ctx context.Context, in CreateActivityInput) (Activity, error) {
	const op = "activity.CreateActivity"

	if strings.TrimSpace(in.UserID) == "" {
		return Activity{}, identity.OpError{Op: op, Kind: identity.ErrInvalidInput, Msg: "user id is required"}
	}
	if strings.TrimSpace(in.ActivityType) == "" {
		return Activity{}, identity.OpError{Op: op, Kind: identity.ErrInvalidInput, Msg: "activity_type is required"}
	}
	if in.DurationMinutes <= 0 {
		return Activity{}, identity.OpError{Op: op, Kind: identity.ErrInvalidInput, Msg: "duration_minutes must be positive"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := identity.NewULID(now)
	if err != nil {
		return Activity{}, err
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.ident("activities")+` (
		     id, user_id, activity_type, duration_minutes, intensity, notes, created_at
		   ) VALUES ($1,$2,$3,$4,$5,$6,$7)
		   RETURNING `+activityColumns,
		id, in.UserID, strings.TrimSpace(in.ActivityType), in.DurationMinutes,
		in.Intensity, in.Notes, now,
	)
	return scanActivity(row)
}

// RecentActivities returns the newest entries for the user, newest first.
func (s *PostgresStore) RecentActivities(ctx context.Context, userID string, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+activityColumns+` FROM `+s.ident("activities")+`
		   WHERE user_id = $1
		   ORDER BY created_at DESC
		   LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

// ActivitiesSince returns entries created at or after since, newest first.
func (s *PostgresStore) ActivitiesSince(ctx context.Context, userID string, since time.Time) ([]Activity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+activityColumns+` FROM `+s.ident("activities")+`
		   WHERE user_id = $1 AND created_at >= $2
		   ORDER BY created_at DESC`,
		userID, since,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectActivities(rows)
}

const mealColumns = `id, user_id, meal_name, analysis, image_url, created_at`

// CreateMealAnalysis inserts one analysis record.
func (s *PostgresStore) CreateMealAnalysis(ctx context.Context, in CreateMealAnalysisInput) (MealAnalysis, error) {
	const op = "activity.CreateMealAnalysis"

	if strings.TrimSpace(in.UserID) == "" {
		return MealAnalysis{}, identity.OpError{Op: op, Kind: identity.ErrInvalidInput, Msg: "user id is required"}
	}
	// Meal name may be empty: upload-produced records arrive as image + analysis.
	if len(in.Analysis) == 0 {
		in.Analysis = []byte(`{}`)
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := identity.NewULID(now)
	if err != nil {
		return MealAnalysis{}, err
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.ident("meal_analyses")+` (
		     id, user_id, meal_name, analysis, image_url, created_at
		   ) VALUES ($1,$2,$3,$4,$5,$6)
		   RETURNING `+mealColumns,
		id, in.UserID, strings.TrimSpace(in.MealName), in.Analysis, in.ImageURL, now,
	)
	return scanMealAnalysis(row)
}

// RecentMealAnalyses returns the newest analyses for the user, newest first.
func (s *PostgresStore) RecentMealAnalyses(ctx context.Context, userID string, limit int) ([]MealAnalysis, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+mealColumns+` FROM `+s.ident("meal_analyses")+`
		   WHERE user_id = $1
		   ORDER BY created_at DESC
		   LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []MealAnalysis{}
	for rows.Next() {
		m, err := scanMealAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanActivity(row pgx.Row) (Activity, error) {
	var a Activity
	err := row.Scan(&a.ID, &a.UserID, &a.ActivityType, &a.DurationMinutes,
		&a.Intensity, &a.Notes, &a.CreatedAt)
	if err != nil {
		return Activity{}, err
	}
	return a, nil
}

func scanMealAnalysis(row pgx.Row) (MealAnalysis, error) {
	var m MealAnalysis
	err := row.Scan(&m.ID, &m.UserID, &m.MealName, &m.Analysis, &m.ImageURL, &m.CreatedAt)
	if err != nil {
		return MealAnalysis{}, err
	}
	return m, nil
}

func collectActivities(rows pgx.Rows) ([]Activity, error) {
	out := []Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
