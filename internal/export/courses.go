package export

import (
	"io"
	"strconv"
	"time"

	"moodle-portal/internal/domain"
)

var courseHeader = []string{
	"COURSE_ID",
	"SHORTNAME",
	"FULLNAME",
	"FORMAT",
	"CATEGORY_ID",
	"VISIBLE",
	"START_DATE",
	"COURSE_URL",
	"IMAGE_URL",
}

// WriteCoursesCSV writes the course catalog. courseURL builds the link to a
// course in Moodle.
func WriteCoursesCSV(w io.Writer, courses []domain.Course, courseURL func(id int64) string) error {
	rows := make([][]string, 0, len(courses))
	for _, c := range courses {
		rows = append(rows, courseRow(c, courseURL))
	}
	return writeCSV(w, courseHeader, rows)
}

func courseRow(c domain.Course, courseURL func(id int64) string) []string {
	start := ""
	if c.StartDate > 0 {
		start = time.Unix(c.StartDate, 0).UTC().Format("2006-01-02")
	}
	link := ""
	if courseURL != nil {
		link = courseURL(c.ID)
	}
	return []string{
		strconv.FormatInt(c.ID, 10),
		oneLine(c.ShortName),
		oneLine(c.FullName),
		c.Format,
		strconv.FormatInt(c.CategoryID, 10),
		strconv.FormatBool(c.Visible),
		start,
		link,
		c.ImageURL,
	}
}
