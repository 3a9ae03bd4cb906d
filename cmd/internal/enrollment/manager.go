package enrollment

import (
	"context"
	"log/slog"
	"time"

	"campus/cmd/catalog"
	"campus/cmd/identity"
	"campus/cmd/internal/metrics"
)

// Manager owns every write that spans the user and course aggregates.
//
// API handlers go through the Manager for membership changes and for the
// cascading deletes; they never touch the membership lists or the
// registration counters directly.
type Manager struct {
	users   identity.Store
	courses catalog.Store
	log     *slog.Logger
	rec     metrics.Recorder
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the manager's clock. For tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithMetrics attaches a metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(m *Manager) { m.rec = rec }
}

// NewManager wires the two aggregate stores together.
func NewManager(users identity.Store, courses catalog.Store, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		users:   users,
		courses: courses,
		log:     log,
		rec:     (*metrics.Collector)(nil),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	return m
}

// Enroll adds courseID to the student's enrollment list and increments the
// course's registration counter, in that order.
//
// Precondition failures come back as ErrNotFound or ErrAlreadyEnrolled. Once
// the list write has succeeded the enrollment stands: a failed counter write
// is logged and counted, never rolled back, and Reconcile repairs it later.
func (m *Manager) Enroll(ctx context.Context, studentID, courseID string) error {
	const op = "enrollment.Enroll"

	if _, err := m.courses.GetCourse(ctx, courseID); err != nil {
		if catalog.IsNotFound(err) {
			return OpError{Op: op, Kind: ErrNotFound, Msg: "course"}
		}
		return err
	}

	student, err := m.users.GetUserByID(ctx, studentID)
	if err != nil {
		if identity.IsNotFound(err) {
			return OpError{Op: op, Kind: ErrNotFound, Msg: "student"}
		}
		return err
	}
	if student.IsEnrolled(courseID) {
		return OpError{Op: op, Kind: ErrAlreadyEnrolled}
	}

	now := m.now().UTC()

	if err := m.users.AddEnrolledCourse(ctx, studentID, courseID, now); err != nil {
		if identity.IsNotFound(err) {
			return OpError{Op: op, Kind: ErrNotFound, Msg: "student"}
		}
		return err
	}

	if err := m.courses.AdjustRegistrationCount(ctx, courseID, +1, now); err != nil {
		m.rec.RecordCounterWriteFailure("enroll")
		m.log.ErrorContext(ctx, "registration counter increment failed after list write",
			"op", op, "student_id", studentID, "course_id", courseID, "error", err)
		return nil
	}

	m.rec.RecordEnrollment()
	return nil
}

// Unenroll removes courseID from the student's enrollment list and decrements
// the course's registration counter, clamped at zero.
func (m *Manager) Unenroll(ctx context.Context, studentID, courseID string) error {
	const op = "enrollment.Unenroll"

	if _, err := m.courses.GetCourse(ctx, courseID); err != nil {
		if catalog.IsNotFound(err) {
			return OpError{Op: op, Kind: ErrNotFound, Msg: "course"}
		}
		return err
	}

	student, err := m.users.GetUserByID(ctx, studentID)
	if err != nil {
		if identity.IsNotFound(err) {
			return OpError{Op: op, Kind: ErrNotFound, Msg: "student"}
		}
		return err
	}
	if !student.IsEnrolled(courseID) {
		return OpError{Op: op, Kind: ErrNotEnrolled}
	}

	now := m.now().UTC()

	if err := m.users.RemoveEnrolledCourse(ctx, studentID, courseID, now); err != nil {
		return err
	}

	if err := m.courses.AdjustRegistrationCount(ctx, courseID, -1, now); err != nil {
		m.rec.RecordCounterWriteFailure("unenroll")
		m.log.ErrorContext(ctx, "registration counter decrement failed after list write",
			"op", op, "student_id", studentID, "course_id", courseID, "error", err)
		return nil
	}

	m.rec.RecordUnenrollment()
	return nil
}

// CreateCourse creates a course and records it on the instructor's
// created-courses list. The course is the primary write; a failed list write
// is logged and left for the instructor's list to be repaired manually.
func (m *Manager) CreateCourse(ctx context.Context, in catalog.CreateCourseInput) (catalog.Course, error) {
	const op = "enrollment.CreateCourse"

	if _, err := m.users.GetUserByID(ctx, in.InstructorID); err != nil {
		if identity.IsNotFound(err) {
			return catalog.Course{}, OpError{Op: op, Kind: ErrNotFound, Msg: "instructor"}
		}
		return catalog.Course{}, err
	}

	if in.Now.IsZero() {
		in.Now = m.now().UTC()
	}

	c, err := m.courses.CreateCourse(ctx, in)
	if err != nil {
		return catalog.Course{}, err
	}

	if err := m.users.AddCreatedCourse(ctx, in.InstructorID, c.ID, in.Now); err != nil {
		m.log.ErrorContext(ctx, "created-courses list write failed after course create",
			"op", op, "instructor_id", in.InstructorID, "course_id", c.ID, "error", err)
	}
	return c, nil
}

// DeleteCourse removes the course, then strips its id from every user's
// enrollment list and from its instructor's created list. Removing absent
// references is a no-op, so a retry after partial failure converges.
func (m *Manager) DeleteCourse(ctx context.Context, courseID string) (catalog.Course, error) {
	const op = "enrollment.DeleteCourse"

	c, err := m.courses.DeleteCourse(ctx, courseID)
	if err != nil {
		if catalog.IsNotFound(err) {
			return catalog.Course{}, OpError{Op: op, Kind: ErrNotFound, Msg: "course"}
		}
		return catalog.Course{}, err
	}

	if err := m.users.RemoveCourseRefs(ctx, courseID, m.now().UTC()); err != nil {
		m.log.ErrorContext(ctx, "course reference cleanup failed after course delete",
			"op", op, "course_id", courseID, "error", err)
		return c, err
	}
	return c, nil
}

// DeleteUser removes the user and runs the reverse cascade: authored courses
// are deleted outright (with their own cascade) and the counters of courses
// the user was enrolled in are decremented.
func (m *Manager) DeleteUser(ctx context.Context, userID string) (identity.User, error) {
	const op = "enrollment.DeleteUser"

	u, err := m.users.DeleteUser(ctx, userID)
	if err != nil {
		if identity.IsNotFound(err) {
			return identity.User{}, OpError{Op: op, Kind: ErrNotFound, Msg: "user"}
		}
		return identity.User{}, err
	}

	now := m.now().UTC()

	deleted := make(map[string]bool, len(u.CreatedCourses))
	for _, courseID := range u.CreatedCourses {
		if _, err := m.DeleteCourse(ctx, courseID); err != nil && !IsNotFound(err) {
			m.log.ErrorContext(ctx, "authored course cascade failed during user delete",
				"op", op, "user_id", userID, "course_id", courseID, "error", err)
			continue
		}
		deleted[courseID] = true
	}

	for _, courseID := range u.EnrolledCourses {
		if deleted[courseID] {
			continue
		}
		err := m.courses.AdjustRegistrationCount(ctx, courseID, -1, now)
		if err != nil && !catalog.IsNotFound(err) {
			m.rec.RecordCounterWriteFailure("delete_user")
			m.log.ErrorContext(ctx, "registration counter decrement failed during user delete",
				"op", op, "user_id", userID, "course_id", courseID, "error", err)
		}
	}

	return u, nil
}

// Repair records one counter rewritten by Reconcile.
type Repair struct {
	CourseID string `json:"courseId"`
	Before   int    `json:"before"`
	After    int    `json:"after"`
}

// Report summarizes one reconciliation sweep.
type Report struct {
	CoursesChecked   int      `json:"coursesChecked"`
	CountersRepaired int      `json:"countersRepaired"`
	Repairs          []Repair `json:"repairs,omitempty"`
}

// Reconcile recomputes every registration counter from the membership lists
// and rewrites the ones that drifted. The lists are the source of truth.
func (m *Manager) Reconcile(ctx context.Context) (Report, error) {
	const op = "enrollment.Reconcile"

	counts, err := m.users.CountEnrollmentsByCourse(ctx)
	if err != nil {
		return Report{}, err
	}

	courses, err := m.courses.ListCourses(ctx)
	if err != nil {
		return Report{}, err
	}

	now := m.now().UTC()

	var rep Report
	rep.CoursesChecked = len(courses)
	for _, c := range courses {
		want := counts[c.ID]
		if c.RegistrationCount == want {
			continue
		}
		if err := m.courses.SetRegistrationCount(ctx, c.ID, want, now); err != nil {
			if catalog.IsNotFound(err) {
				continue
			}
			return rep, err
		}
		rep.CountersRepaired++
		rep.Repairs = append(rep.Repairs, Repair{CourseID: c.ID, Before: c.RegistrationCount, After: want})
		m.log.InfoContext(ctx, "registration counter repaired",
			"op", op, "course_id", c.ID, "before", c.RegistrationCount, "after", want)
	}

	m.rec.RecordReconcileRepairs(rep.CountersRepaired)
	return rep, nil
}
