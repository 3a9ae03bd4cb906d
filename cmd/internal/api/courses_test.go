package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"campus/cmd/catalog"
	"campus/cmd/identity"
)

func (f *fixture) createCourse(t *testing.T, title, instructorID string) catalog.Course {
	t.Helper()
	c, err := f.mgr.CreateCourse(context.Background(), catalog.CreateCourseInput{
		Title:        title,
		InstructorID: instructorID,
	})
	if err != nil {
		t.Fatalf("CreateCourse(%s): %v", title, err)
	}
	return c
}

func TestListCoursesIsPublic(t *testing.T) {
	f := newFixture(t, 100)
	tea := f.createUser(t, "Tea", "tea@example.com", identity.RoleTeacher)
	f.createCourse(t, "Go 101", tea.ID)

	rec := f.do(t, http.MethodGet, "/api/courses", "", nil)
	wantStatus(t, rec, http.StatusOK)

	body := decodeBody(t, rec)
	if body["count"].(float64) != 1 {
		t.Fatalf("count = %v, want 1", body["count"])
	}
	course := body["data"].([]any)[0].(map[string]any)
	instructor := course["instructor"].(map[string]any)
	if instructor["id"] != tea.ID {
		t.Fatalf("instructor.id = %v, want %s", instructor["id"], tea.ID)
	}
}

func TestCreateCourseRequiresTeacherOrAdmin(t *testing.T) {
	f := newFixture(t, 100)
	stu := f.createUser(t, "Stu", "stu@example.com", "")
	tea := f.createUser(t, "Tea", "tea@example.com", identity.RoleTeacher)

	rec := f.do(t, http.MethodPost, "/api/courses", f.tokenCookie(t, stu.Email),
		map[string]string{"title": "Go 101"})
	wantStatus(t, rec, http.StatusForbidden)

	rec = f.do(t, http.MethodPost, "/api/courses", f.tokenCookie(t, tea.Email),
		map[string]string{"title": "Go 101", "description": "intro"})
	wantStatus(t, rec, http.StatusCreated)

	data := decodeBody(t, rec)["data"].(map[string]any)
	// The authenticated teacher becomes the instructor by default.
	if data["instructor"].(map[string]any)["id"] != tea.ID {
		t.Fatalf("instructor = %v", data["instructor"])
	}
	if data["numberOfRegistrations"].(float64) != 0 {
		t.Fatalf("numberOfRegistrations = %v, want 0", data["numberOfRegistrations"])
	}

	// The course lands on the teacher's created list.
	u, err := f.users.GetUserByID(context.Background(), tea.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if len(u.CreatedCourses) != 1 {
		t.Fatalf("CreatedCourses = %v", u.CreatedCourses)
	}
}

func TestUpdateAndDeleteCourse(t *testing.T) {
	f := newFixture(t, 100)
	tea := f.createUser(t, "Tea", "tea@example.com", identity.RoleTeacher)
	c := f.createCourse(t, "Go 101", tea.ID)

	rec := f.do(t, http.MethodPut, "/api/courses/"+c.ID, f.tokenCookie(t, tea.Email),
		map[string]string{"title": "Go 102"})
	wantStatus(t, rec, http.StatusOK)
	if got := decodeBody(t, rec)["data"].(map[string]any)["title"]; got != "Go 102" {
		t.Fatalf("title = %v", got)
	}

	rec = f.do(t, http.MethodDelete, "/api/courses/"+c.ID, f.tokenCookie(t, tea.Email), nil)
	wantStatus(t, rec, http.StatusOK)

	rec = f.do(t, http.MethodGet, "/api/courses/"+c.ID, "", nil)
	wantStatus(t, rec, http.StatusNotFound)
	if !strings.Contains(rec.Body.String(), "Course not found") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestEnrollFlow(t *testing.T) {
	f := newFixture(t, 100)
	stu := f.createUser(t, "Stu", "stu@example.com", "")
	tea := f.createUser(t, "Tea", "tea@example.com", identity.RoleTeacher)
	c := f.createCourse(t, "Go 101", tea.ID)
	cookie := f.tokenCookie(t, stu.Email)

	rec := f.do(t, http.MethodPost, "/api/courses/"+c.ID+"/enroll", cookie, nil)
	wantStatus(t, rec, http.StatusOK)
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["courseId"] != c.ID || data["studentId"] != stu.ID {
		t.Fatalf("data = %v", data)
	}

	// The registration counter follows the list write.
	rec = f.do(t, http.MethodGet, "/api/courses/"+c.ID, "", nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decodeBody(t, rec)["data"].(map[string]any)["numberOfRegistrations"].(float64); got != 1 {
		t.Fatalf("numberOfRegistrations = %v, want 1", got)
	}

	rec = f.do(t, http.MethodGet, "/api/courses/"+c.ID+"/enrollment-status", cookie, nil)
	wantStatus(t, rec, http.StatusOK)
	if got := decodeBody(t, rec)["isEnrolled"].(bool); !got {
		t.Fatal("isEnrolled = false after enroll")
	}

	rec = f.do(t, http.MethodPost, "/api/courses/"+c.ID+"/enroll", cookie, nil)
	wantStatus(t, rec, http.StatusConflict)
	if !strings.Contains(rec.Body.String(), "Already enrolled in this course") {
		t.Fatalf("body = %s", rec.Body.String())
	}

	rec = f.do(t, http.MethodDelete, "/api/courses/"+c.ID+"/unenroll", cookie, nil)
	wantStatus(t, rec, http.StatusOK)

	rec = f.do(t, http.MethodDelete, "/api/courses/"+c.ID+"/unenroll", cookie, nil)
	wantStatus(t, rec, http.StatusConflict)
	if !strings.Contains(rec.Body.String(), "Not enrolled in this course") {
		t.Fatalf("body = %s", rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/courses/missing-course/enroll", cookie, nil)
	wantStatus(t, rec, http.StatusNotFound)
	if !strings.Contains(rec.Body.String(), "Course not found") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestMyCoursesAndEnrollments(t *testing.T) {
	f := newFixture(t, 100)
	stu := f.createUser(t, "Stu", "stu@example.com", "")
	tea := f.createUser(t, "Tea", "tea@example.com", identity.RoleTeacher)
	c1 := f.createCourse(t, "Go 101", tea.ID)
	f.createCourse(t, "Go 102", tea.ID)
	cookie := f.tokenCookie(t, stu.Email)

	rec := f.do(t, http.MethodPost, "/api/courses/"+c1.ID+"/enroll", cookie, nil)
	wantStatus(t, rec, http.StatusOK)

	rec = f.do(t, http.MethodGet, "/api/courses/enrolled/my-courses", cookie, nil)
	wantStatus(t, rec, http.StatusOK)
	body := decodeBody(t, rec)
	if body["count"].(float64) != 1 {
		t.Fatalf("count = %v, want 1", body["count"])
	}

	rec = f.do(t, http.MethodGet, "/api/courses/"+c1.ID+"/enrollments", cookie, nil)
	wantStatus(t, rec, http.StatusOK)
	body = decodeBody(t, rec)
	students := body["students"].([]any)
	if len(students) != 1 || students[0].(map[string]any)["id"] != stu.ID {
		t.Fatalf("students = %v", students)
	}
}

func TestReconcileEndpointAdminOnly(t *testing.T) {
	f := newFixture(t, 100)
	tea := f.createUser(t, "Tea", "tea@example.com", identity.RoleTeacher)
	admin := f.createUser(t, "Root", "root@example.com", identity.RoleAdmin)
	c := f.createCourse(t, "Go 101", tea.ID)

	rec := f.do(t, http.MethodPost, "/internal/reconcile", f.tokenCookie(t, tea.Email), nil)
	wantStatus(t, rec, http.StatusForbidden)

	// Drift the counter, then let the sweep repair it.
	if err := f.courses.SetRegistrationCount(context.Background(), c.ID, 5, time.Now().UTC()); err != nil {
		t.Fatalf("SetRegistrationCount: %v", err)
	}

	rec = f.do(t, http.MethodPost, "/internal/reconcile", f.tokenCookie(t, admin.Email), nil)
	wantStatus(t, rec, http.StatusOK)
	report := decodeBody(t, rec)["report"].(map[string]any)
	if report["countersRepaired"].(float64) != 1 {
		t.Fatalf("report = %v", report)
	}

	rec = f.do(t, http.MethodGet, "/api/courses/"+c.ID, "", nil)
	if got := decodeBody(t, rec)["data"].(map[string]any)["numberOfRegistrations"].(float64); got != 0 {
		t.Fatalf("numberOfRegistrations after sweep = %v, want 0", got)
	}
}
