package identity

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is the in-memory Store used when no database is configured and
// throughout the unit tests. All maps are guarded by a single mutex; the
// per-request service model never holds the lock across a blocking call.
type MemoryStore struct {
	mu      sync.Mutex
	byID    map[string]*memUser
	byEmail map[string]string // email_norm -> id
}

type memUser struct {
	user   User
	pwHash string
}

// NewMemoryStore constructs an empty in-memory identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*memUser),
		byEmail: make(map[string]string),
	}
}

// CreateUser registers a new user with a hashed password.
func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	if name == "" || email == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "name and email are required"}
	}
	if strings.TrimSpace(in.Password) == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "password is required"}
	}

	role := in.Role
	if role == "" {
		role = RoleStudent
	}
	if _, ok := ParseRole(string(role)); !ok {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "unknown role"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	pwHash, err := HashPassword(in.Password, DefaultArgon2idParams())
	if err != nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	id, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	norm := NormalizeEmail(email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[norm]; exists {
		return User{}, ConflictError{Op: op, Field: "email"}
	}

	u := User{
		ID:        id,
		Name:      name,
		Email:     email,
		EmailNorm: norm,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byID[id] = &memUser{user: u, pwHash: pwHash}
	s.byEmail[norm] = id

	return cloneUser(u), nil
}

// GetUserByID loads a user by internal id.
func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetUserByID"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return cloneUser(mu.user), nil
}

// GetUserByEmail loads a user by (normalized) email.
func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetUserByEmail"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	return cloneUser(s.byID[id].user), nil
}

// GetUserAuthByEmail loads a user plus password hash for a login check.
func (s *MemoryStore) GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error) {
	const op = "identity.GetUserAuthByEmail"

	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
	}
	mu := s.byID[id]
	return UserAuth{User: cloneUser(mu.user), PasswordHash: mu.pwHash}, nil
}

// ListUsers returns all users ordered by id (ULIDs sort by creation time).
func (s *MemoryStore) ListUsers(ctx context.Context) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]User, 0, len(s.byID))
	for _, mu := range s.byID {
		out = append(out, cloneUser(mu.user))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateUser applies a partial update (name, role).
func (s *MemoryStore) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (User, error) {
	const op = "identity.UpdateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "name must not be empty"}
		}
		mu.user.Name = name
	}
	if in.Role != nil {
		if _, ok := ParseRole(string(*in.Role)); !ok {
			return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "unknown role"}
		}
		mu.user.Role = *in.Role
	}
	mu.user.UpdatedAt = now

	return cloneUser(mu.user), nil
}

// DeleteUser removes the user row and returns the removed record.
func (s *MemoryStore) DeleteUser(ctx context.Context, id string) (User, error) {
	const op = "identity.DeleteUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	delete(s.byID, id)
	delete(s.byEmail, mu.user.EmailNorm)
	return cloneUser(mu.user), nil
}

// AddEnrolledCourse appends courseID to the user's enrollment list.
// Appending an already-present reference is a no-op so retries stay safe;
// the duplicate-enrollment conflict is the enrollment manager's to raise.
func (s *MemoryStore) AddEnrolledCourse(ctx context.Context, userID, courseID string, now time.Time) error {
	return s.mutateUser(ctx, "identity.AddEnrolledCourse", userID, now, func(u *User) {
		u.EnrolledCourses = appendRef(u.EnrolledCourses, courseID)
	})
}

// RemoveEnrolledCourse removes courseID from the user's enrollment list.
// Removing an absent reference is a no-op.
func (s *MemoryStore) RemoveEnrolledCourse(ctx context.Context, userID, courseID string, now time.Time) error {
	return s.mutateUser(ctx, "identity.RemoveEnrolledCourse", userID, now, func(u *User) {
		u.EnrolledCourses = removeRef(u.EnrolledCourses, courseID)
	})
}

// AddCreatedCourse appends courseID to the user's created-course list.
func (s *MemoryStore) AddCreatedCourse(ctx context.Context, userID, courseID string, now time.Time) error {
	return s.mutateUser(ctx, "identity.AddCreatedCourse", userID, now, func(u *User) {
		u.CreatedCourses = appendRef(u.CreatedCourses, courseID)
	})
}

// RemoveCreatedCourse removes courseID from the user's created-course list.
func (s *MemoryStore) RemoveCreatedCourse(ctx context.Context, userID, courseID string, now time.Time) error {
	return s.mutateUser(ctx, "identity.RemoveCreatedCourse", userID, now, func(u *User) {
		u.CreatedCourses = removeRef(u.CreatedCourses, courseID)
	})
}

// RemoveCourseRefs strips courseID from every user's lists.
func (s *MemoryStore) RemoveCourseRefs(ctx context.Context, courseID string, now time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, mu := range s.byID {
		before := len(mu.user.EnrolledCourses) + len(mu.user.CreatedCourses)
		mu.user.EnrolledCourses = removeRef(mu.user.EnrolledCourses, courseID)
		mu.user.CreatedCourses = removeRef(mu.user.CreatedCourses, courseID)
		if len(mu.user.EnrolledCourses)+len(mu.user.CreatedCourses) != before {
			mu.user.UpdatedAt = now
		}
	}
	return nil
}

// ListUsersByEnrolledCourse returns all users enrolled in courseID.
func (s *MemoryStore) ListUsersByEnrolledCourse(ctx context.Context, courseID string) ([]User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []User
	for _, mu := range s.byID {
		if mu.user.IsEnrolled(courseID) {
			out = append(out, cloneUser(mu.user))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CountEnrollmentsByCourse recomputes per-course enrollment counts from the lists.
func (s *MemoryStore) CountEnrollmentsByCourse(ctx context.Context) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	for _, mu := range s.byID {
		for _, courseID := range mu.user.EnrolledCourses {
			counts[courseID]++
		}
	}
	return counts, nil
}

func (s *MemoryStore) mutateUser(ctx context.Context, op, userID string, now time.Time, fn func(*User)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	fn(&mu.user)
	mu.user.UpdatedAt = now
	return nil
}

func appendRef(refs []string, id string) []string {
	for _, r := range refs {
		if r == id {
			return refs
		}
	}
	return append(refs, id)
}

func removeRef(refs []string, id string) []string {
	out := refs[:0]
	for _, r := range refs {
		if r != id {
			out = append(out, r)
		}
	}
	return out
}

func cloneUser(u User) User {
	u.EnrolledCourses = append([]string(nil), u.EnrolledCourses...)
	u.CreatedCourses = append([]string(nil), u.CreatedCourses...)
	u.Profile.SocialLinks = append([]string(nil), u.Profile.SocialLinks...)
	u.Profile.Skills = append([]string(nil), u.Profile.Skills...)
	return u
}
