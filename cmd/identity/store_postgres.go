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
// - The membership lists live in campus.enrollments / campus.created_courses;
//   the course registration counter lives on the catalog side and is NEVER
//   written here. The two writes are deliberately not joined in a transaction
//   (see the enrollment manager's failure model).
// - Errors are mapped to identity sentinel kinds where appropriate.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the identity store (default "campus").
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
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

const userColumns = `id, name, email, email_norm, role, avatar, bio, social_links, skills, created_at, updated_at`

// CreateUser creates a new user row.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" {
		return User{}, pgInvalid(op, "name and email are required")
	}
	if strings.TrimSpace(in.Password) == "" {
		return User{}, pgInvalid(op, "password is required")
	}

	role := in.Role
	if role == "" {
		role = RoleStudent
	}
	if _, ok := ParseRole(string(role)); !ok {
		return User{}, pgInvalid(op, "unknown role")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	pwHash, err := HashPassword(in.Password, DefaultArgon2idParams())
	if err != nil {
		return User{}, pgInvalid(op, err.Error())
	}

	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	users := pgIdent(s.schema, "users")

	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+users+` (
		     id, name, email, email_norm, password_hash, role, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		id, name, email, NormalizeEmail(email), pwHash, string(role), now,
	)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, err
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID loads a user by internal id, lists included.
func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"
	return s.getUser(ctx, op, `id = $1`, id)
}

// GetUserByEmail loads a user by normalized email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetUserByEmail"
	return s.getUser(ctx, op, `email_norm = $1`, NormalizeEmail(email))
}

// GetUserAuthByEmail loads a user plus password hash for a login check.
func (s *PostgresStore) GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error) {
	const op = "identity.GetUserAuthByEmail"

	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}

	users := pgIdent(s.schema, "users")

	var hash string
	err := s.pool.QueryRow(ctx,
		`SELECT password_hash FROM `+users+` WHERE email_norm = $1`,
		NormalizeEmail(email),
	).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return UserAuth{}, err
	}

	u, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return UserAuth{}, err
	}
	return UserAuth{User: u, PasswordHash: hash}, nil
}

// ListUsers returns all users ordered by id.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users := pgIdent(s.schema, "users")

	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM `+users+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.loadCourseRefs(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// UpdateUser applies a partial update (name, role).
func (s *PostgresStore) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (User, error) {
	const op = "identity.UpdateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return User{}, pgInvalid(op, "name must not be empty")
	}
	if in.Role != nil {
		if _, ok := ParseRole(string(*in.Role)); !ok {
			return User{}, pgInvalid(op, "unknown role")
		}
	}

	users := pgIdent(s.schema, "users")

	tag, err := s.pool.Exec(ctx,
		`UPDATE `+users+` SET
		     name = COALESCE($2, name),
		     role = COALESCE($3, role),
		     updated_at = $4
		 WHERE id = $1`,
		id, pgTrimPtr(in.Name), (*string)(in.Role), now,
	)
	if err != nil {
		return User{}, err
	}
	if tag.RowsAffected() == 0 {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}

	return s.GetUserByID(ctx, id)
}

// DeleteUser removes the user row and its membership rows, returning the
// removed record. Registration counters are the enrollment manager's concern.
func (s *PostgresStore) DeleteUser(ctx context.Context, id string) (User, error) {
	const op = "identity.DeleteUser"

	u, err := s.GetUserByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	users := pgIdent(s.schema, "users")

	// enrollments/created_courses rows go with the user via ON DELETE CASCADE.
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+users+` WHERE id = $1`, id)
	if err != nil {
		return User{}, err
	}
	if tag.RowsAffected() == 0 {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return u, nil
}

// AddEnrolledCourse inserts a membership row. Already-present rows are kept
// as-is (ON CONFLICT DO NOTHING) so retries stay safe; the duplicate-enrollment
// conflict is raised by the enrollment manager, not here.
func (s *PostgresStore) AddEnrolledCourse(ctx context.Context, userID, courseID string, now time.Time) error {
	return s.addRef(ctx, "identity.AddEnrolledCourse", "enrollments", userID, courseID, now)
}

// RemoveEnrolledCourse deletes a membership row; absent rows are a no-op.
func (s *PostgresStore) RemoveEnrolledCourse(ctx context.Context, userID, courseID string, now time.Time) error {
	return s.removeRef(ctx, "identity.RemoveEnrolledCourse", "enrollments", userID, courseID, now)
}

// AddCreatedCourse inserts a created-course reference row.
func (s *PostgresStore) AddCreatedCourse(ctx context.Context, userID, courseID string, now time.Time) error {
	return s.addRef(ctx, "identity.AddCreatedCourse", "created_courses", userID, courseID, now)
}

// RemoveCreatedCourse deletes a created-course reference row; absent rows are a no-op.
func (s *PostgresStore) RemoveCreatedCourse(ctx context.Context, userID, courseID string, now time.Time) error {
	return s.removeRef(ctx, "identity.RemoveCreatedCourse", "created_courses", userID, courseID, now)
}

// RemoveCourseRefs strips courseID from both reference tables.
func (s *PostgresStore) RemoveCourseRefs(ctx context.Context, courseID string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, table := range []string{"enrollments", "created_courses"} {
		refs := pgIdent(s.schema, table)
		if _, err := s.pool.Exec(ctx, `DELETE FROM `+refs+` WHERE course_id = $1`, courseID); err != nil {
			return err
		}
	}
	return nil
}

// ListUsersByEnrolledCourse returns the users enrolled in courseID.
func (s *PostgresStore) ListUsersByEnrolledCourse(ctx context.Context, courseID string) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	users := pgIdent(s.schema, "users")
	enr := pgIdent(s.schema, "enrollments")

	rows, err := s.pool.Query(ctx,
		`SELECT `+userColumns+` FROM `+users+` u
		 JOIN `+enr+` e ON e.user_id = u.id
		 WHERE e.course_id = $1
		 ORDER BY u.id`,
		courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		if err := s.loadCourseRefs(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// CountEnrollmentsByCourse recomputes per-course enrollment counts from the
// membership rows. Input for the reconciliation sweep.
func (s *PostgresStore) CountEnrollmentsByCourse(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	enr := pgIdent(s.schema, "enrollments")

	rows, err := s.pool.Query(ctx,
		`SELECT course_id, count(*) FROM `+enr+` GROUP BY course_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// ---- internals ----

func (s *PostgresStore) getUser(ctx context.Context, op, where string, arg any) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	users := pgIdent(s.schema, "users")

	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM `+users+` WHERE `+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, err
	}

	if err := s.loadCourseRefs(ctx, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *PostgresStore) loadCourseRefs(ctx context.Context, u *User) error {
	for _, ref := range []struct {
		table string
		dst   *[]string
	}{
		{"enrollments", &u.EnrolledCourses},
		{"created_courses", &u.CreatedCourses},
	} {
		refs := pgIdent(s.schema, ref.table)
		rows, err := s.pool.Query(ctx,
			`SELECT course_id FROM `+refs+` WHERE user_id = $1 ORDER BY added_at, course_id`, u.ID)
		if err != nil {
			return err
		}
		var ids []string
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		*ref.dst = ids
	}
	return nil
}

func (s *PostgresStore) addRef(ctx context.Context, op, table, userID, courseID string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	refs := pgIdent(s.schema, table)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+refs+` (user_id, course_id, added_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, course_id) DO NOTHING`,
		userID, courseID, now,
	)
	if pgIsForeignKeyViolation(err) {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return err
}

func (s *PostgresStore) removeRef(ctx context.Context, op, table, userID, courseID string, _ time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	refs := pgIdent(s.schema, table)

	_, err := s.pool.Exec(ctx,
		`DELETE FROM `+refs+` WHERE user_id = $1 AND course_id = $2`,
		userID, courseID,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

type pgRow interface {
	Scan(dest ...any) error
}

func scanUser(row pgRow) (User, error) {
	var u User
	var role string
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.EmailNorm, &role,
		&u.Profile.Avatar, &u.Profile.Bio, &u.Profile.SocialLinks, &u.Profile.Skills,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}

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

func pgIsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23503" // foreign_key_violation
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
	switch {
	case c == "uq_users_email_norm" || strings.Contains(c, "email"):
		return "email", true
	default:
		return "unique", true
	}
}
