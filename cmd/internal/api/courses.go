package api

import (
	"log/slog"
	"net/http"
	"time"

	"campus/cmd/catalog"
	"campus/cmd/identity"
	"campus/cmd/internal/auth"
	"campus/cmd/internal/enrollment"
)

// CourseHandler serves the course service: catalog CRUD and enrollment.
type CourseHandler struct {
	users   identity.Store
	courses catalog.Store
	mgr     *enrollment.Manager
	authn   *auth.Authenticator
	log     *slog.Logger
	views   viewBuilder
	now     func() time.Time
}

// CourseHandlerConfig carries the collaborators of a CourseHandler.
type CourseHandlerConfig struct {
	Users   identity.Store
	Courses catalog.Store
	Manager *enrollment.Manager
	Authn   *auth.Authenticator
	Log     *slog.Logger

	// Now overrides the clock. For tests.
	Now func() time.Time
}

// NewCourseHandler builds the course-service handler.
func NewCourseHandler(cfg CourseHandlerConfig) *CourseHandler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &CourseHandler{
		users:   cfg.Users,
		courses: cfg.Courses,
		mgr:     cfg.Manager,
		authn:   cfg.Authn,
		log:     log,
		views:   viewBuilder{users: cfg.Users, courses: cfg.Courses},
		now:     now,
	}
}

// Routes registers the course-service routes on mux. Reads of the catalog are
// public; every write and every enrollment view requires authentication.
func (h *CourseHandler) Routes(mux *http.ServeMux) {
	authed := func(fn http.HandlerFunc) http.Handler { return h.authn.Require(fn) }

	mux.HandleFunc("GET /api/courses", h.listCourses)
	mux.HandleFunc("GET /api/courses/{id}", h.getCourse)
	mux.Handle("POST /api/courses", authed(h.createCourse))
	mux.Handle("PUT /api/courses/{id}", authed(h.updateCourse))
	mux.Handle("DELETE /api/courses/{id}", authed(h.deleteCourse))

	mux.Handle("POST /api/courses/{courseId}/enroll", authed(h.enroll))
	mux.Handle("DELETE /api/courses/{courseId}/unenroll", authed(h.unenroll))
	mux.Handle("GET /api/courses/enrolled/my-courses", authed(h.myCourses))
	mux.Handle("GET /api/courses/{courseId}/enrollments", authed(h.courseEnrollments))
	mux.Handle("GET /api/courses/{courseId}/enrollment-status", authed(h.enrollmentStatus))

	mux.Handle("POST /internal/reconcile", authed(h.reconcile))
}

func (h *CourseHandler) listCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListCourses(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]courseView, 0, len(courses))
	for _, c := range courses {
		views = append(views, h.views.courseView(r.Context(), c))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(views),
		"data":    views,
	})
}

func (h *CourseHandler) getCourse(w http.ResponseWriter, r *http.Request) {
	c, err := h.courses.GetCourse(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    h.views.courseView(r.Context(), c),
	})
}

func (h *CourseHandler) createCourse(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	if err := auth.Authorize(actor, auth.RuleTeacherOrAdmin, ""); err != nil {
		writeDomainError(w, err)
		return
	}

	var in struct {
		Title        string `json:"title"`
		Description  string `json:"description"`
		InstructorID string `json:"instructorId"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}

	// The authenticated teacher is the instructor unless an explicit one is
	// named (an admin registering a course on a teacher's behalf).
	instructorID := in.InstructorID
	if instructorID == "" {
		instructorID = actor.ID
	}

	c, err := h.mgr.CreateCourse(r.Context(), catalog.CreateCourseInput{
		Title:        in.Title,
		Description:  in.Description,
		InstructorID: instructorID,
		Now:          h.now().UTC(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.log.InfoContext(r.Context(), "course created",
		"course_id", c.ID, "instructor_id", instructorID, "actor_id", actor.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Course created successfully",
		"data":    h.views.courseView(r.Context(), c),
	})
}

func (h *CourseHandler) updateCourse(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	if err := auth.Authorize(actor, auth.RuleTeacherOrAdmin, ""); err != nil {
		writeDomainError(w, err)
		return
	}

	var in struct {
		Title        *string `json:"title"`
		Description  *string `json:"description"`
		InstructorID *string `json:"instructorId"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "malformed JSON body")
		return
	}

	c, err := h.courses.UpdateCourse(r.Context(), r.PathValue("id"), catalog.UpdateCourseInput{
		Title:        in.Title,
		Description:  in.Description,
		InstructorID: in.InstructorID,
		Now:          h.now().UTC(),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Course updated successfully",
		"data":    h.views.courseView(r.Context(), c),
	})
}

func (h *CourseHandler) deleteCourse(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	if err := auth.Authorize(actor, auth.RuleTeacherOrAdmin, ""); err != nil {
		writeDomainError(w, err)
		return
	}

	c, err := h.mgr.DeleteCourse(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.log.InfoContext(r.Context(), "course deleted", "course_id", c.ID, "actor_id", actor.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Course deleted successfully",
		"data":    map[string]string{"id": c.ID, "title": c.Title},
	})
}

func (h *CourseHandler) enroll(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	courseID := r.PathValue("courseId")

	if err := h.mgr.Enroll(r.Context(), actor.ID, courseID); err != nil {
		writeDomainError(w, err)
		return
	}

	c, err := h.courses.GetCourse(r.Context(), courseID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.log.InfoContext(r.Context(), "student enrolled", "student_id", actor.ID, "course_id", courseID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Successfully enrolled in course",
		"data": map[string]string{
			"courseId":    c.ID,
			"courseTitle": c.Title,
			"studentId":   actor.ID,
		},
	})
}

func (h *CourseHandler) unenroll(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	courseID := r.PathValue("courseId")

	if err := h.mgr.Unenroll(r.Context(), actor.ID, courseID); err != nil {
		writeDomainError(w, err)
		return
	}

	c, err := h.courses.GetCourse(r.Context(), courseID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.log.InfoContext(r.Context(), "student unenrolled", "student_id", actor.ID, "course_id", courseID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Successfully unenrolled from course",
		"data": map[string]string{
			"courseId":    c.ID,
			"courseTitle": c.Title,
			"studentId":   actor.ID,
		},
	})
}

func (h *CourseHandler) myCourses(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())

	u, err := h.users.GetUserByID(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := h.views.courseViews(r.Context(), u.EnrolledCourses)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(views),
		"data":    views,
	})
}

func (h *CourseHandler) courseEnrollments(w http.ResponseWriter, r *http.Request) {
	courseID := r.PathValue("courseId")

	c, err := h.courses.GetCourse(r.Context(), courseID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	students, err := h.users.ListUsersByEnrolledCourse(r.Context(), courseID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	summaries := make([]userSummary, 0, len(students))
	for _, s := range students {
		summaries = append(summaries, summarize(s))
	}

	cv := h.views.courseView(r.Context(), c)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"course": map[string]any{
			"id":         cv.ID,
			"title":      cv.Title,
			"instructor": cv.Instructor,
		},
		"count":    len(summaries),
		"students": summaries,
	})
}

func (h *CourseHandler) enrollmentStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	courseID := r.PathValue("courseId")

	u, err := h.users.GetUserByID(r.Context(), actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"isEnrolled": u.IsEnrolled(courseID),
		"courseId":   courseID,
	})
}

func (h *CourseHandler) reconcile(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	if err := auth.Authorize(actor, auth.RuleAdminOnly, ""); err != nil {
		writeDomainError(w, err)
		return
	}

	rep, err := h.mgr.Reconcile(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	h.log.InfoContext(r.Context(), "reconciliation sweep completed",
		"admin_id", actor.ID, "checked", rep.CoursesChecked, "repaired", rep.CountersRepaired)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"report":  rep,
	})
}
