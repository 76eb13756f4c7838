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
// Design notes:
// - The pgx pool is owned by the caller; this store must NOT close it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Errors are mapped to identity sentinel kinds where appropriate.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the identity store (default "scb").
// The schema name is validated to be a legal PostgreSQL identifier.
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
		schema: "scb",
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

// CreateUser registers a new user with an already-encoded stored hash.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	admission := strings.TrimSpace(in.AdmissionNumber)
	if admission == "" {
		return User{}, pgInvalid(op, "admission number is required")
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return User{}, pgInvalid(op, "password hash is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	norm := NormalizeAdmissionNumber(admission)
	users := pgIdent(s.schema, "users")

	var out User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO `+users+` (
		     admission_number, admission_norm, display_name, password_hash, points, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, 0, $5, $5)
		   RETURNING id`,
		admission,
		norm,
		pgTrimPtr(in.DisplayName),
		in.PasswordHash,
		now,
	).Scan(&out.ID)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	out.AdmissionNumber = admission
	out.AdmissionNorm = norm
	out.DisplayName = pgTrimPtr(in.DisplayName)
	out.PasswordHash = in.PasswordHash
	out.CreatedAt = now

	return out, nil
}

// LookupByAdmissionNumber resolves a user by normalized admission number.
func (s *PostgresStore) LookupByAdmissionNumber(ctx context.Context, admissionNumber string) (User, error) {
	const op = "identity.LookupByAdmissionNumber"

	if s == nil || s.pool == nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}

	norm := NormalizeAdmissionNumber(admissionNumber)
	if norm == "" {
		return User{}, pgInvalid(op, "admission number is required")
	}

	users := pgIdent(s.schema, "users")

	var out User
	err := s.pool.QueryRow(ctx,
		`SELECT id, admission_number, admission_norm, display_name, password_hash, points, created_at
		   FROM `+users+`
		  WHERE admission_norm = $1`,
		norm,
	).Scan(
		&out.ID,
		&out.AdmissionNumber,
		&out.AdmissionNorm,
		&out.DisplayName,
		&out.PasswordHash,
		&out.Points,
		&out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, NotFoundError{Op: op, Resource: "user"}
		}
		return User{}, err
	}

	return out, nil
}

// ReplaceCredential swaps the stored hash wholesale.
func (s *PostgresStore) ReplaceCredential(ctx context.Context, userID int64, storedHash string, now time.Time) error {
	const op = "identity.ReplaceCredential"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if strings.TrimSpace(storedHash) == "" {
		return pgInvalid(op, "stored hash is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	users := pgIdent(s.schema, "users")

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+users+` SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		storedHash, now, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// AwardPoints increments the leaderboard counter.
func (s *PostgresStore) AwardPoints(ctx context.Context, userID int64, points int64) error {
	const op = "identity.AwardPoints"

	if s == nil || s.pool == nil {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "nil store"}
	}
	if points == 0 {
		return nil
	}

	users := pgIdent(s.schema, "users")

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+users+` SET points = points + $1 WHERE id = $2`,
		points, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// ---- helpers ----

// pgTrimPtr trims a string pointer, returning nil if result is empty.
func pgTrimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
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

	// Prefer stable schema constraint names. Fall back to heuristic matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))

	switch {
	case c == "uq_users_admission_norm", strings.Contains(c, "admission"):
		return "admission_number", true
	default:
		return "unique", true
	}
}
