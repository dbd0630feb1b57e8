package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements identity persistence over PostgreSQL.
//
// Notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via
//   identifiers.
// - Errors are mapped to identity sentinel kinds where appropriate.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the identity store (default
// "techheal"). The schema name is validated to be a legal identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
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
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const userColumns = `id, username, username_norm, email, email_norm, password_hash,
	age, weight_kg, height_cm, goal, diet, activity_level, health_conditions,
	profile_picture, created_at, updated_at`

// CreateUser creates a new user with a hashed credential.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if username == "" {
		return User{}, pgInvalid(op, "username is required")
	}
	if email == "" {
		return User{}, pgInvalid(op, "email is required")
	}
	if strings.TrimSpace(in.Password) == "" {
		return User{}, pgInvalid(op, "password is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	usernameNorm := NormalizeUsername(username)
	emailNorm := NormalizeEmail(email)

	pwHash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, pgInvalid(op, err.Error())
	}

	userID, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	users := pgIdent(s.schema, "users")

	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+users+` (
		     id, username, username_norm, email, email_norm, password_hash,
		     age, weight_kg, height_cm, goal, diet, activity_level,
		     health_conditions, profile_picture, created_at, updated_at
		   ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$15)
		   RETURNING `+userColumns,
		userID, username, usernameNorm, email, emailNorm, pwHash,
		in.Profile.Age, in.Profile.WeightKg, in.Profile.HeightCm,
		in.Profile.Goal, in.Profile.Diet, in.Profile.ActivityLevel,
		in.Profile.HealthConditions, in.Profile.ProfilePicture, now,
	)

	u, err := scanUser(row)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}
	return u, nil
}

// GetUserByEmail loads a user by normalized email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetUserByEmail"

	emailNorm := NormalizeEmail(email)
	if emailNorm == "" {
		return User{}, pgInvalid(op, "email is required")
	}

	users := pgIdent(s.schema, "users")
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+users+` WHERE email_norm = $1`,
		emailNorm,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, OpError{Op: op, Kind: ErrNotFound}
		}
		return User{}, err
	}
	return u, nil
}

// GetUserByID loads a user by primary key.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	id = strings.TrimSpace(id)
	if id == "" {
		return User{}, pgInvalid(op, "id is required")
	}

	users := pgIdent(s.schema, "users")
	row := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM `+users+` WHERE id = $1`,
		id,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, OpError{Op: op, Kind: ErrNotFound}
		}
		return User{}, err
	}
	return u, nil
}

// UpdateProfile applies a partial profile update; nil patch fields keep their
// stored values under COALESCE.
func (s *PostgresStore) UpdateProfile(ctx context.Context, userID string, patch ProfilePatch, now time.Time) (User, error) {
	const op = "identity.UpdateProfile"

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return User{}, pgInvalid(op, "user id is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	users := pgIdent(s.schema, "users")
	row := s.pool.QueryRow(ctx,
		`UPDATE `+users+` SET
		     age               = COALESCE($2, age),
		     weight_kg         = COALESCE($3, weight_kg),
		     height_cm         = COALESCE($4, height_cm),
		     goal              = COALESCE($5, goal),
		     diet              = COALESCE($6, diet),
		     activity_level    = COALESCE($7, activity_level),
		     health_conditions = COALESCE($8, health_conditions),
		     profile_picture   = COALESCE($9, profile_picture),
		     updated_at        = $10
		   WHERE id = $1
		   RETURNING `+userColumns,
		userID,
		patch.Age, patch.WeightKg, patch.HeightCm,
		patch.Goal, patch.Diet, patch.ActivityLevel,
		patch.HealthConditions, patch.ProfilePicture,
		now,
	)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, OpError{Op: op, Kind: ErrNotFound}
		}
		return User{}, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Username, &u.UsernameNorm, &u.Email, &u.EmailNorm, &u.PasswordHash,
		&u.Age, &u.WeightKg, &u.HeightCm, &u.Goal, &u.Diet, &u.ActivityLevel,
		&u.HealthConditions, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// pgInvalid standardizes invalid input errors.
func pgInvalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable schema constraint names; fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch c {
	case "uq_users_username_norm":
		return "username", true
	case "uq_users_email_norm":
		return "email", true
	default:
		if strings.Contains(c, "email") {
			return "email", true
		}
		if strings.Contains(c, "username") {
			return "username", true
		}
		return "unknown", true
	}
}
