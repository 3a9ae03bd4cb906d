package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"campus/cmd/identity/ids"
)

// MemoryStore is the in-memory Store used when no database is configured and
// throughout the unit tests.
type MemoryStore struct {
	mu      sync.Mutex
	courses map[string]Course
}

// NewMemoryStore constructs an empty in-memory catalog store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{courses: make(map[string]Course)}
}

// CreateCourse adds a course with a zero registration counter.
func (s *MemoryStore) CreateCourse(ctx context.Context, in CreateCourseInput) (Course, error) {
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

	c := Course{
		ID:           id,
		Title:        title,
		Description:  strings.TrimSpace(in.Description),
		InstructorID: in.InstructorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	s.courses[id] = c
	s.mu.Unlock()

	return c, nil
}

// GetCourse loads a course by id.
func (s *MemoryStore) GetCourse(ctx context.Context, id string) (Course, error) {
	const op = "catalog.GetCourse"

	if err := ctx.Err(); err != nil {
		return Course{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok {
		return Course{}, OpError{Op: op, Kind: ErrNotFound, Msg: "course"}
	}
	return c, nil
}

// ListCourses returns all courses ordered by id.
func (s *MemoryStore) ListCourses(ctx context.Context) ([]Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Course, 0, len(s.courses))
	for _, c := range s.courses {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListCoursesByInstructor returns the instructor's courses ordered by id.
func (s *MemoryStore) ListCoursesByInstructor(ctx context.Context, instructorID string) ([]Course, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Course
	for _, c := range s.courses {
		if c.InstructorID == instructorID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateCourse applies a partial update.
func (s *MemoryStore) UpdateCourse(ctx context.Context, id string, in UpdateCourseInput) (Course, error) {
	const op = "catalog.UpdateCourse"

	if err := ctx.Err(); err != nil {
		return Course{}, err
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok {
		return Course{}, OpError{Op: op, Kind: ErrNotFound, Msg: "course"}
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return Course{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "title must not be empty"}
		}
		c.Title = title
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if in.InstructorID != nil {
		if strings.TrimSpace(*in.InstructorID) == "" {
			return Course{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "instructor id must not be empty"}
		}
		c.InstructorID = *in.InstructorID
	}
	c.UpdatedAt = now

	s.courses[id] = c
	return c, nil
}

// DeleteCourse removes the course and returns the removed record.
func (s *MemoryStore) DeleteCourse(ctx context.Context, id string) (Course, error) {
	const op = "catalog.DeleteCourse"

	if err := ctx.Err(); err != nil {
		return Course{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok {
		return Course{}, OpError{Op: op, Kind: ErrNotFound, Msg: "course"}
	}
	delete(s.courses, id)
	return c, nil
}

// AdjustRegistrationCount adds delta to the counter, clamped at zero.
func (s *MemoryStore) AdjustRegistrationCount(ctx context.Context, id string, delta int, now time.Time) error {
	const op = "catalog.AdjustRegistrationCount"

	if err := ctx.Err(); err != nil {
		return err
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok {
		return OpError{Op: op, Kind: ErrNotFound, Msg: "course"}
	}

	c.RegistrationCount += delta
	if c.RegistrationCount < 0 {
		c.RegistrationCount = 0
	}
	c.UpdatedAt = now

	s.courses[id] = c
	return nil
}

// SetRegistrationCount overwrites the counter (reconciliation sweep).
func (s *MemoryStore) SetRegistrationCount(ctx context.Context, id string, count int, now time.Time) error {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[id]
	if !ok {
		return OpError{Op: op, Kind: ErrNotFound, Msg: "course"}
	}
	c.RegistrationCount = count
	c.UpdatedAt = now

	s.courses[id] = c
	return nil
}
