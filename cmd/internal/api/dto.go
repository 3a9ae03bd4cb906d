package api

import (
	"context"
	"time"

	"campus/cmd/catalog"
	"campus/cmd/identity"
)

// instructorView is the embedded instructor summary on course payloads.
type instructorView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// courseView is the wire shape of a course, instructor populated.
type courseView struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Instructor        *instructorView `json:"instructor"`
	RegistrationCount int             `json:"numberOfRegistrations"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

type profileView struct {
	Avatar      *string  `json:"avatar"`
	Bio         *string  `json:"bio"`
	SocialLinks []string `json:"socialLinks"`
	Skills      []string `json:"skills"`
}

type userStats struct {
	TotalEnrolledCourses int `json:"totalEnrolledCourses"`
	TotalCreatedCourses  int `json:"totalCreatedCourses"`
}

// userView is the wire shape of a user, course lists populated.
type userView struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	Role            string       `json:"role"`
	Profile         profileView  `json:"profile"`
	EnrolledCourses []courseView `json:"enrolledCourses"`
	CreatedCourses  []courseView `json:"createdCourses"`
	Stats           userStats    `json:"stats"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// userSummary is the short shape used in delete responses and listings of
// enrolled students.
type userSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// viewBuilder resolves cross-aggregate references for response payloads.
type viewBuilder struct {
	users   identity.Store
	courses catalog.Store
}

func (b viewBuilder) courseView(ctx context.Context, c catalog.Course) courseView {
	v := courseView{
		ID:                c.ID,
		Title:             c.Title,
		Description:       c.Description,
		RegistrationCount: c.RegistrationCount,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
	if u, err := b.users.GetUserByID(ctx, c.InstructorID); err == nil {
		v.Instructor = &instructorView{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	return v
}

func (b viewBuilder) courseViews(ctx context.Context, ids []string) []courseView {
	out := make([]courseView, 0, len(ids))
	for _, id := range ids {
		c, err := b.courses.GetCourse(ctx, id)
		if err != nil {
			// A reference that lost its course mid-cascade is skipped, not fatal.
			continue
		}
		out = append(out, b.courseView(ctx, c))
	}
	return out
}

func (b viewBuilder) userView(ctx context.Context, u identity.User) userView {
	enrolled := b.courseViews(ctx, u.EnrolledCourses)
	created := b.courseViews(ctx, u.CreatedCourses)
	return userView{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Role:  string(u.Role),
		Profile: profileView{
			Avatar:      u.Profile.Avatar,
			Bio:         u.Profile.Bio,
			SocialLinks: emptyIfNil(u.Profile.SocialLinks),
			Skills:      emptyIfNil(u.Profile.Skills),
		},
		EnrolledCourses: enrolled,
		CreatedCourses:  created,
		Stats: userStats{
			TotalEnrolledCourses: len(enrolled),
			TotalCreatedCourses:  len(created),
		},
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func summarize(u identity.User) userSummary {
	return userSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
