package domain

// SiteFormat is the format Moodle gives the pseudo-course that represents the
// whole site (course id 1 on most installations).
const SiteFormat = "site"

// Course is the canonical representation of a Moodle course inside this service.
// The moodle package maps every listing shape into this model.
type Course struct {
	ID            int64  `json:"id"`
	ShortName     string `json:"shortname"`
	FullName      string `json:"fullname"`
	DisplayName   string `json:"displayname,omitempty"`
	IDNumber      string `json:"idnumber,omitempty"`
	Summary       string `json:"summary,omitempty"` // HTML
	SummaryFormat int    `json:"summaryformat,omitempty"`
	Format        string `json:"format,omitempty"`
	StartDate     int64  `json:"startdate,omitempty"` // unix seconds
	EndDate       int64  `json:"enddate,omitempty"`
	CategoryID    int64  `json:"categoryid,omitempty"`
	Visible       bool   `json:"visible"`
	ImageURL      string `json:"courseimage,omitempty"`
}

// IsSite reports whether c is the site pseudo-course.
func (c Course) IsSite() bool { return c.Format == SiteFormat }

// WithoutSite drops the site pseudo-course. The result is never nil.
func WithoutSite(courses []Course) []Course {
	out := make([]Course, 0, len(courses))
	for _, c := range courses {
		if c.IsSite() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// NewCourse is what staff submit from the course creation form.
type NewCourse struct {
	FullName   string `json:"fullname" form:"fullname" validate:"required,max=254"`
	ShortName  string `json:"shortname" form:"shortname" validate:"required,max=255"`
	CategoryID int64  `json:"categoryid,omitempty" form:"categoryid" validate:"gte=0"`
	IDNumber   string `json:"idnumber,omitempty" form:"idnumber" validate:"max=100"`
	Summary    string `json:"summary,omitempty" form:"summary"`
	Format     string `json:"format,omitempty" form:"format"`
}
