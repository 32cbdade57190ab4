package moodle

import (
	"strings"

	"moodle-portal/internal/domain"
)

func (c Course) toDomain() domain.Course {
	category := c.CategoryID
	if category == 0 {
		category = c.Category
	}
	visible := true
	if c.Visible != nil {
		visible = bool(*c.Visible)
	}
	return domain.Course{
		ID:            int64(c.ID),
		ShortName:     c.ShortName,
		FullName:      c.FullName,
		DisplayName:   firstNonEmpty(c.DisplayName, c.FullName),
		IDNumber:      c.IDNumber,
		Summary:       c.Summary,
		SummaryFormat: int(c.SummaryFormat),
		Format:        c.Format,
		StartDate:     int64(c.StartDate),
		EndDate:       int64(c.EndDate),
		CategoryID:    int64(category),
		Visible:       visible,
		ImageURL:      pickCourseImage(c),
	}
}

func pickCourseImage(c Course) string {
	if s := strings.TrimSpace(c.CourseImage); s != "" {
		return s
	}
	for _, f := range c.OverviewFiles {
		if strings.HasPrefix(f.MimeType, "image/") && f.FileURL != "" {
			return f.FileURL
		}
	}
	return ""
}

func coursesToDomain(in []Course) []domain.Course {
	out := make([]domain.Course, 0, len(in))
	for _, c := range in {
		out = append(out, c.toDomain())
	}
	return out
}

func (u User) toDomain() domain.User {
	full := u.FullName
	if strings.TrimSpace(full) == "" {
		full = strings.TrimSpace(u.FirstName + " " + u.LastName)
	}
	return domain.User{
		ID:           int64(u.ID),
		Username:     u.Username,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		FullName:     full,
		Email:        u.Email,
		Department:   u.Department,
		Institution:  u.Institution,
		City:         u.City,
		Country:      u.Country,
		Auth:         u.Auth,
		Suspended:    bool(u.Suspended),
		ProfileImage: u.ProfileImageURLSmall,
	}
}

func usersToDomain(in []User) []domain.User {
	out := make([]domain.User, 0, len(in))
	for _, u := range in {
		out = append(out, u.toDomain())
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}
