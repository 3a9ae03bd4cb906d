package identity

import (
	"context"
	"time"
)

// Role is the platform role attached to a user.
type Role string

const (
	// RoleStudent may enroll in courses.
	RoleStudent Role = "student"
	// RoleTeacher may author and manage courses.
	RoleTeacher Role = "teacher"
	// RoleAdmin may manage users and courses.
	RoleAdmin Role = "admin"
)

// ParseRole maps a raw string onto a known role. Unknown values are rejected
// rather than defaulted so a typo in an admin request cannot grant the wrong role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return Role(s), true
	default:
		return "", false
	}
}

// Profile carries the optional, free-form part of a user record.
type Profile struct {
	Avatar      *string
	Bio         *string
	SocialLinks []string
	Skills      []string
}

// User is the campus platform's canonical security principal.
//
// EnrolledCourses and CreatedCourses hold catalog course IDs. They are the
// membership side of the enrollment relation; the count side lives on the
// course. Only the enrollment manager writes both.
type User struct {
	ID        string
	Name      string
	Email     string
	EmailNorm string
	Role      Role

	EnrolledCourses []string
	CreatedCourses  []string

	Profile Profile

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAuth pairs a user with its password hash for login checks.
// The hash never leaves the auth path.
type UserAuth struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a registration request. An empty Role defaults to
// RoleStudent; admins are only ever minted by an existing admin.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     Role
	Now      time.Time
}

// UpdateUserInput describes a partial user update. Nil fields are left unchanged.
type UpdateUserInput struct {
	Name *string
	Role *Role
	Now  time.Time
}

// Store is the identity persistence boundary.
//
// The enrollment-list mutators (AddEnrolledCourse, RemoveEnrolledCourse,
// RemoveCourseRefs, ...) exist for the enrollment manager; API handlers must
// not call them directly.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdateUser(ctx context.Context, id string, in UpdateUserInput) (User, error)

	// DeleteUser removes the user row only. The caller is responsible for the
	// cross-aggregate cascade (see the enrollment manager).
	DeleteUser(ctx context.Context, id string) (User, error)

	// Membership-list writes. All removals of absent references are no-ops.
	AddEnrolledCourse(ctx context.Context, userID, courseID string, now time.Time) error
	RemoveEnrolledCourse(ctx context.Context, userID, courseID string, now time.Time) error
	AddCreatedCourse(ctx context.Context, userID, courseID string, now time.Time) error
	RemoveCreatedCourse(ctx context.Context, userID, courseID string, now time.Time) error

	// RemoveCourseRefs strips courseID from every user's enrolled and created
	// lists. Used by the course-deletion cascade; idempotent under retry.
	RemoveCourseRefs(ctx context.Context, courseID string, now time.Time) error

	// ListUsersByEnrolledCourse returns the users whose enrollment list
	// contains courseID.
	ListUsersByEnrolledCourse(ctx context.Context, courseID string) ([]User, error)

	// CountEnrollmentsByCourse recomputes, from the membership lists, how many
	// users are enrolled in each course. Input for the reconciliation sweep.
	CountEnrollmentsByCourse(ctx context.Context) (map[string]int, error)
}

// IsEnrolled reports whether the user's enrollment list contains courseID.
func (u User) IsEnrolled(courseID string) bool {
	for _, id := range u.EnrolledCourses {
		if id == courseID {
			return true
		}
	}
	return false
}
