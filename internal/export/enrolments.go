package export

import (
	"io"
	"sort"
	"strconv"

	"moodle-portal/internal/domain"
)

var enrolmentHeader = []string{
	"USER_ID",
	"USERNAME",
	"EMAIL",
	"COURSE_ID",
	"SHORTNAME",
	"FULLNAME",
}

// Enrolment is one user enrolled in one course.
type Enrolment struct {
	User   domain.User
	Course domain.Course
}

// Enrolments pairs u with each of its courses.
func Enrolments(u domain.User, courses []domain.Course) []Enrolment {
	out := make([]Enrolment, 0, len(courses))
	for _, c := range courses {
		out = append(out, Enrolment{User: u, Course: c})
	}
	return out
}

// WriteEnrolmentsCSV writes one row per enrolment ordered by user then course.
func WriteEnrolmentsCSV(w io.Writer, enrolments []Enrolment) error {
	sorted := append([]Enrolment(nil), enrolments...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].User.ID != sorted[j].User.ID {
			return sorted[i].User.ID < sorted[j].User.ID
		}
		return sorted[i].Course.ID < sorted[j].Course.ID
	})

	rows := make([][]string, 0, len(sorted))
	for _, e := range sorted {
		rows = append(rows, []string{
			strconv.FormatInt(e.User.ID, 10),
			e.User.Username,
			e.User.Email,
			strconv.FormatInt(e.Course.ID, 10),
			oneLine(e.Course.ShortName),
			oneLine(e.Course.FullName),
		})
	}
	return writeCSV(w, enrolmentHeader, rows)
}
