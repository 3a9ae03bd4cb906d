package api

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"campus/cmd/catalog"
	"campus/cmd/identity"
	"campus/cmd/internal/auth"
)

type timelineEntry struct {
	CourseName   string    `json:"courseName"`
	EnrolledDate time.Time `json:"enrolledDate"`
	Instructor   string    `json:"instructor"`
}

type instructorShare struct {
	Instructor      string `json:"instructor"`
	CoursesEnrolled int    `json:"coursesEnrolled"`
}

type popularityEntry struct {
	CourseTitle   string `json:"courseTitle"`
	TotalStudents int    `json:"totalStudents"`
}

type studentAnalytics struct {
	TotalEnrolledCourses   int               `json:"totalEnrolledCourses"`
	EnrollmentTimeline     []timelineEntry   `json:"enrollmentTimeline"`
	InstructorDistribution []instructorShare `json:"instructorDistribution"`
	CoursePopularity       []popularityEntry `json:"coursePopularity"`
	AverageClassSize       int               `json:"averageClassSize"`
	MostPopularCourse      *popularityEntry  `json:"mostPopularCourse"`
}

type performanceEntry struct {
	CourseID         string    `json:"courseId"`
	CourseTitle      string    `json:"courseTitle"`
	StudentsEnrolled int       `json:"studentsEnrolled"`
	CreatedAt        time.Time `json:"createdAt"`
}

type trendEntry struct {
	Month          string `json:"month"`
	CoursesCreated int    `json:"coursesCreated"`
}

type distributionEntry struct {
	CourseTitle string `json:"courseTitle"`
	Students    int    `json:"students"`
}

type teacherAnalytics struct {
	TotalCoursesCreated      int                 `json:"totalCoursesCreated"`
	TotalStudentsReached     int                 `json:"totalStudentsReached"`
	AverageStudentsPerCourse int                 `json:"averageStudentsPerCourse"`
	CoursePerformance        []performanceEntry  `json:"coursePerformance"`
	CreationTrend            []trendEntry        `json:"creationTrend"`
	EnrollmentDistribution   []distributionEntry `json:"enrollmentDistribution"`
	MostPopularCourse        *performanceEntry   `json:"mostPopularCourse"`
	LeastPopularCourse       *performanceEntry   `json:"leastPopularCourse"`
	TotalCoursesEnrolledIn   int                 `json:"totalCoursesEnrolledIn"`
	EngagementRate           string              `json:"engagementRate"`
}

type adminAnalytics struct {
	Note        string         `json:"note"`
	AccountInfo map[string]any `json:"accountInfo"`
}

type userAnalytics struct {
	UserID           string    `json:"userId"`
	UserName         string    `json:"userName"`
	UserEmail        string    `json:"userEmail"`
	UserRole         string    `json:"userRole"`
	AccountCreatedAt time.Time `json:"accountCreatedAt"`
	AccountAgeDays   int       `json:"accountAge"`

	Student *studentAnalytics `json:"studentAnalytics,omitempty"`
	Teacher *teacherAnalytics `json:"teacherAnalytics,omitempty"`
	Admin   *adminAnalytics   `json:"adminAnalytics,omitempty"`
}

func (h *UserHandler) analytics(w http.ResponseWriter, r *http.Request) {
	actor, _ := auth.ActorFromContext(r.Context())
	if err := auth.Authorize(actor, auth.RuleAdminOnly, ""); err != nil {
		h.log.WarnContext(r.Context(), "unauthorized analytics access attempt", "actor_id", actor.ID)
		writeDomainError(w, err)
		return
	}

	u, err := h.users.GetUserByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	a := h.buildAnalytics(r.Context(), u)
	h.log.InfoContext(r.Context(), "admin accessed user analytics",
		"admin_id", actor.ID, "user_id", u.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"analytics": a,
	})
}

func (h *UserHandler) buildAnalytics(ctx context.Context, u identity.User) userAnalytics {
	now := h.now().UTC()
	a := userAnalytics{
		UserID:           u.ID,
		UserName:         u.Name,
		UserEmail:        u.Email,
		UserRole:         string(u.Role),
		AccountCreatedAt: u.CreatedAt,
		AccountAgeDays:   int(now.Sub(u.CreatedAt).Hours() / 24),
	}

	switch u.Role {
	case identity.RoleStudent:
		a.Student = h.studentAnalytics(ctx, u)
	case identity.RoleTeacher:
		a.Teacher = h.teacherAnalytics(ctx, u)
	case identity.RoleAdmin:
		a.Admin = &adminAnalytics{
			Note: "Admin accounts have limited analytics",
			AccountInfo: map[string]any{
				"role":       string(u.Role),
				"createdAt":  u.CreatedAt,
				"accountAge": a.AccountAgeDays,
			},
		}
	}
	return a
}

func (h *UserHandler) resolveCourses(ctx context.Context, ids []string) []catalog.Course {
	out := make([]catalog.Course, 0, len(ids))
	for _, id := range ids {
		c, err := h.views.courses.GetCourse(ctx, id)
		if err != nil {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (h *UserHandler) instructorName(ctx context.Context, instructorID string) string {
	u, err := h.users.GetUserByID(ctx, instructorID)
	if err != nil {
		return "Unknown"
	}
	return u.Name
}

func (h *UserHandler) studentAnalytics(ctx context.Context, u identity.User) *studentAnalytics {
	enrolled := h.resolveCourses(ctx, u.EnrolledCourses)

	timeline := make([]timelineEntry, 0, len(enrolled))
	byInstructor := make(map[string]int)
	popularity := make([]popularityEntry, 0, len(enrolled))
	totalSeats := 0

	for _, c := range enrolled {
		name := h.instructorName(ctx, c.InstructorID)
		timeline = append(timeline, timelineEntry{
			CourseName:   c.Title,
			EnrolledDate: c.CreatedAt,
			Instructor:   name,
		})
		byInstructor[name]++
		popularity = append(popularity, popularityEntry{
			CourseTitle:   c.Title,
			TotalStudents: c.RegistrationCount,
		})
		totalSeats += c.RegistrationCount
	}

	sort.Slice(timeline, func(i, j int) bool {
		return timeline[i].EnrolledDate.Before(timeline[j].EnrolledDate)
	})

	distribution := make([]instructorShare, 0, len(byInstructor))
	for name, n := range byInstructor {
		distribution = append(distribution, instructorShare{Instructor: name, CoursesEnrolled: n})
	}
	sort.Slice(distribution, func(i, j int) bool {
		if distribution[i].CoursesEnrolled != distribution[j].CoursesEnrolled {
			return distribution[i].CoursesEnrolled > distribution[j].CoursesEnrolled
		}
		return distribution[i].Instructor < distribution[j].Instructor
	})

	sort.Slice(popularity, func(i, j int) bool {
		return popularity[i].TotalStudents > popularity[j].TotalStudents
	})

	sa := &studentAnalytics{
		TotalEnrolledCourses:   len(enrolled),
		EnrollmentTimeline:     timeline,
		InstructorDistribution: distribution,
		CoursePopularity:       popularity,
	}
	if len(enrolled) > 0 {
		sa.AverageClassSize = int(float64(totalSeats)/float64(len(enrolled)) + 0.5)
		sa.MostPopularCourse = &popularity[0]
	}
	return sa
}

func (h *UserHandler) teacherAnalytics(ctx context.Context, u identity.User) *teacherAnalytics {
	created := h.resolveCourses(ctx, u.CreatedCourses)

	totalReached := 0
	performance := make([]performanceEntry, 0, len(created))
	byMonth := make(map[string]int)
	distribution := make([]distributionEntry, 0, len(created))

	for _, c := range created {
		totalReached += c.RegistrationCount
		performance = append(performance, performanceEntry{
			CourseID:         c.ID,
			CourseTitle:      c.Title,
			StudentsEnrolled: c.RegistrationCount,
			CreatedAt:        c.CreatedAt,
		})
		byMonth[c.CreatedAt.Format("2006-01")]++
		distribution = append(distribution, distributionEntry{
			CourseTitle: c.Title,
			Students:    c.RegistrationCount,
		})
	}

	sort.Slice(performance, func(i, j int) bool {
		return performance[i].StudentsEnrolled > performance[j].StudentsEnrolled
	})

	trend := make([]trendEntry, 0, len(byMonth))
	for month, n := range byMonth {
		trend = append(trend, trendEntry{Month: month, CoursesCreated: n})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Month < trend[j].Month })

	ta := &teacherAnalytics{
		TotalCoursesCreated:    len(created),
		TotalStudentsReached:   totalReached,
		CoursePerformance:      performance,
		CreationTrend:          trend,
		EnrollmentDistribution: distribution,
		TotalCoursesEnrolledIn: len(u.EnrolledCourses),
		EngagementRate:         "0%",
	}
	if len(created) > 0 {
		ta.AverageStudentsPerCourse = int(float64(totalReached)/float64(len(created)) + 0.5)
		ta.MostPopularCourse = &performance[0]
		ta.LeastPopularCourse = &performance[len(performance)-1]
		// Reach relative to a nominal class size of 100 per course.
		ta.EngagementRate = fmt.Sprintf("%.2f%%", float64(totalReached)/float64(len(created)*100)*100)
	}
	return ta
}
