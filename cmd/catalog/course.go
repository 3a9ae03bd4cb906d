package catalog

import (
	"context"
	"time"
)

// Course is a catalog entry authored by an instructor.
//
// RegistrationCount is redundant state: it mirrors how many users carry this
// course in their enrollment list. The invariant is maintained by convention
// through the enrollment manager, not by a database constraint.
type Course struct {
	ID                string
	Title             string
	Description       string
	InstructorID      string
	RegistrationCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateCourseInput describes a new course. RegistrationCount starts at zero.
type CreateCourseInput struct {
	Title        string
	Description  string
	InstructorID string
	Now          time.Time
}

// UpdateCourseInput describes a partial course update. Nil fields are left unchanged.
type UpdateCourseInput struct {
	Title        *string
	Description  *string
	InstructorID *string
	Now          time.Time
}

// Store is the catalog persistence boundary.
//
// AdjustRegistrationCount and SetRegistrationCount exist for the enrollment
// manager; API handlers must not call them directly.
type Store interface {
	CreateCourse(ctx context.Context, in CreateCourseInput) (Course, error)
	GetCourse(ctx context.Context, id string) (Course, error)
	ListCourses(ctx context.Context) ([]Course, error)
	ListCoursesByInstructor(ctx context.Context, instructorID string) ([]Course, error)
	UpdateCourse(ctx context.Context, id string, in UpdateCourseInput) (Course, error)

	// DeleteCourse removes the course row and returns the removed record.
	// The cross-aggregate cascade (membership lists) is the enrollment
	// manager's responsibility.
	DeleteCourse(ctx context.Context, id string) (Course, error)

	// AdjustRegistrationCount adds delta to the counter, clamped at zero.
	// The counter never goes negative, even after a lost decrement.
	AdjustRegistrationCount(ctx context.Context, id string, delta int, now time.Time) error

	// SetRegistrationCount overwrites the counter. Used by the reconciliation
	// sweep that recomputes counts from membership lists.
	SetRegistrationCount(ctx context.Context, id string, count int, now time.Time) error
}
