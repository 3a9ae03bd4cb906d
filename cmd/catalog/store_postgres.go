package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus/cmd/identity/ids"
)

// PostgresStore implements catalog persistence over PostgreSQL.
//
// The pgx pool is owned by the caller; this store must NOT close it.
// The registration-counter clamp is pushed into SQL (GREATEST(... , 0)) so it
// holds even when two decrements race.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the catalog store (default "campus").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("catalog: empty schema")
		}
		if !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("catalog: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "campus",
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
		return nil, fmt.Errorf("catalog: nil pool")
	}
	return st, nil
}

const courseColumns = `id, title, description, instructor_id, registration_count, created_at, updated_at`

func (s *PostgresStore) courses() string {
	return pgx.Identifier{s.schema, "courses"}.Sanitize()
}

// CreateCourse inserts a course with a zero registration counter.
func (s *PostgresStore) CreateCourse(ctx context.Context, in CreateCourseInput) (Course, error) {
	const op = "catalog.CreateCourse"

	if err := ctx.Err(); err != nil {
		return Course{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return Course{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "title is required"}
	}
	if strings.TrimSpace(in.InstructorID) == "" {
		return Course{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "instructor id is required"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := ids.NewULID(now)
	if err != nil {
		return Course{}, err
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO `+s.courses()+` (
		     id, title, description, instructor_id, registration_count, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, 0, $5, $5)
		   RETURNING `+courseColumns,
		id, title, strings.TrimSpace(in.Description), in.InstructorID, now,
	)
	return scanCourse(row, op)
}

// GetCourse loads a course by id.
func (s *PostgresStore) GetCourse(ctx context.Context, id string) (Course, error) {
	const op = "catalog.GetCourse"

	if err := ctx.Err(); err != nil {
		return Course{}, err
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+courseColumns+` FROM `+s.courses()+` WHERE id = $1`, id)
	return scanCourse(row, op)
}

// ListCourses returns all courses ordered by id.
func (s *PostgresStore) ListCourses(ctx context.Context) ([]Course, error) {
	return s.listCourses(ctx, `SELECT `+courseColumns+` FROM `+s.courses()+` ORDER BY id`)
}

// ListCoursesByInstructor returns the instructor's courses ordered by id.
func (s *PostgresStore) ListCoursesByInstructor(ctx context.Context, instructorID string) ([]Course, error) {
	return s.listCourses(ctx,
		`SELECT `+courseColumns+` FROM `+s.courses()+` WHERE instructor_id = $1 ORDER BY id`,
		instructorID)
}

// UpdateCourse applies a partial update.
func (s *PostgresStore) UpdateCourse(ctx context.Context, id string, in UpdateCourseInput) (Course, error) {
	const op = "catalog.UpdateCourse"

	if err := ctx.Err(); err != nil {
		return Course{}, err
	}

	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return Course{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "title must not be empty"}
	}
	if in.InstructorID != nil && strings.TrimSpace(*in.InstructorID) == "" {
		return Course{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "instructor id must not be empty"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE `+s.courses()+` SET
		     title = COALESCE($2, title),
		     description = COALESCE($3, description),
		     instructor_id = COALESCE($4, instructor_id),
		     updated_at = $5
		 WHERE id = $1
		 RETURNING `+courseColumns,
		id, trimPtr(in.Title), trimPtr(in.Description), trimPtr(in.InstructorID), now,
	)
	return scanCourse(row, op)
}

// DeleteCourse removes the course row and returns the removed record.
func (s *PostgresStore) DeleteCourse(ctx context.Context, id string) (Course, error) {
	const op = "catalog.DeleteCourse"

	if err := ctx.Err(); err != nil {
		return Course{}, err
	}

	row := s.pool.QueryRow(ctx,
		`DELETE FROM `+s.courses()+` WHERE id = $1 RETURNING `+courseColumns, id)
	return scanCourse(row, op)
}

// AdjustRegistrationCount adds delta to the counter, clamped at zero in SQL.
func (s *PostgresStore) AdjustRegistrationCount(ctx context.Context, id string, delta int, now time.Time) error {
	const op = "catalog.AdjustRegistrationCount"

	if err := ctx.Err(); err != nil {
		return err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.courses()+` SET
		     registration_count = GREATEST(registration_count + $2, 0),
		     updated_at = $3
		 WHERE id = $1`,
		id, delta, now,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotFound, Msg: "course"}
	}
	return nil
}

// SetRegistrationCount overwrites the counter (reconciliation sweep).
func (s *PostgresStore) SetRegistrationCount(ctx context.Context, id string, count int, now time.Time) error {
	const op = "catalog.SetRegistrationCount"

	if err := ctx.Err(); err != nil {
		return err
	}
	if count < 0 {
		return OpError{Op: op, Kind: ErrInvalidInput, Msg: "negative count"}
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+s.courses()+` SET registration_count = $2, updated_at = $3 WHERE id = $1`,
		id, count, now,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return OpError{Op: op, Kind: ErrNotFound, Msg: "course"}
	}
	return nil
}

// ---- internals ----

func (s *PostgresStore) listCourses(ctx context.Context, sql string, args ...any) ([]Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Course
	for rows.Next() {
		var c Course
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Description, &c.InstructorID,
			&c.RegistrationCount, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCourse(row pgx.Row, op string) (Course, error) {
	var c Course
	err := row.Scan(
		&c.ID, &c.Title, &c.Description, &c.InstructorID,
		&c.RegistrationCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Course{}, OpError{Op: op, Kind: ErrNotFound, Msg: "course"}
	}
	if err != nil {
		return Course{}, err
	}
	return c, nil
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" {
		return nil
	}
	return &s
}
