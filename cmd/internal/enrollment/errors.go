package enrollment

import (
	"errors"
	"fmt"
)

// Sentinel error kinds.
var (
	// ErrNotFound covers a missing course or user.
	ErrNotFound = errors.New("not_found")

	// ErrAlreadyEnrolled is the membership precondition for Enroll: the
	// student's list already contains the course.
	ErrAlreadyEnrolled = errors.New("already_enrolled")

	// ErrNotEnrolled is the membership precondition for Unenroll.
	ErrNotEnrolled = errors.New("not_enrolled")
)

// OpError carries a stable operation name and kind.
type OpError struct {
	Op   string
	Kind error
	Msg  string
}

func (e OpError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Kind, e.Msg)
}

func (e OpError) Unwrap() error { return e.Kind }

// IsNotFound reports whether err represents ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAlreadyEnrolled reports whether err represents ErrAlreadyEnrolled.
func IsAlreadyEnrolled(err error) bool { return errors.Is(err, ErrAlreadyEnrolled) }

// IsNotEnrolled reports whether err represents ErrNotEnrolled.
func IsNotEnrolled(err error) bool { return errors.Is(err, ErrNotEnrolled) }
