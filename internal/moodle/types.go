package moodle

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Shape tells which of the accepted response layouts a list came in.
type Shape int

const (
	ShapeUnknown Shape = iota // anything else; not usable
	ShapeBare                 // [ ... ]
	ShapeWrapped              // {"courses": [ ... ]} / {"users": [ ... ]}
)

// Usable reports whether the response carried a list at all.
func (s Shape) Usable() bool { return s != ShapeUnknown }

// Flag is a boolean Moodle may send as true/false, 0/1 or "true"/"1".
type Flag bool

func (f *Flag) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	switch strings.ToLower(s) {
	case "true", "1":
		*f = true
	default:
		*f = false
	}
	return nil
}

// Int is an integer Moodle may send as a number or a numeric string.
type Int int64

func (n *Int) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = Int(v)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = Int(int64(f))
	return nil
}

type overviewFile struct {
	FileURL  string `json:"fileurl"`
	MimeType string `json:"mimetype"`
}

// Course is a course as returned by the course listing functions.
type Course struct {
	ID            Int            `json:"id"`
	ShortName     string         `json:"shortname"`
	FullName      string         `json:"fullname"`
	DisplayName   string         `json:"displayname"`
	IDNumber      string         `json:"idnumber"`
	Summary       string         `json:"summary"`
	SummaryFormat Int            `json:"summaryformat"`
	Format        string         `json:"format"`
	StartDate     Int            `json:"startdate"`
	EndDate       Int            `json:"enddate"`
	CategoryID    Int            `json:"categoryid"`
	Category      Int            `json:"category"` // core_enrol_get_users_courses uses this name
	Visible       *Flag          `json:"visible"`
	CourseImage   string         `json:"courseimage"`
	OverviewFiles []overviewFile `json:"overviewfiles"`
}

// User is a user as returned by the user lookup functions.
type User struct {
	ID                   Int    `json:"id"`
	Username             string `json:"username"`
	FirstName            string `json:"firstname"`
	LastName             string `json:"lastname"`
	FullName             string `json:"fullname"`
	Email                string `json:"email"`
	Department           string `json:"department"`
	Institution          string `json:"institution"`
	City                 string `json:"city"`
	Country              string `json:"country"`
	Auth                 string `json:"auth"`
	Suspended            Flag   `json:"suspended"`
	ProfileImageURLSmall string `json:"profileimageurlsmall"`
}

// CourseList accepts a bare array or a {"courses": [...]} wrapper.
type CourseList struct {
	Courses []Course
	Shape   Shape
}

func (l *CourseList) UnmarshalJSON(b []byte) error {
	items, shape, err := decodeList[Course](b, "courses")
	if err != nil {
		return err
	}
	l.Courses, l.Shape = items, shape
	return nil
}

// UserList accepts a bare array or a {"users": [...]} wrapper.
type UserList struct {
	Users []User
	Shape Shape
}

func (l *UserList) UnmarshalJSON(b []byte) error {
	items, shape, err := decodeList[User](b, "users")
	if err != nil {
		return err
	}
	l.Users, l.Shape = items, shape
	return nil
}

// decodeList probes the two accepted layouts. Any other layout is reported as
// ShapeUnknown rather than as an error so fallback chains can move on.
func decodeList[T any](b []byte, wrapperKey string) ([]T, Shape, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return nil, ShapeUnknown, nil
	}

	switch b[0] {
	case '[':
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return nil, ShapeUnknown, err
		}
		if items == nil {
			items = []T{}
		}
		return items, ShapeBare, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(b, &obj); err != nil {
			return nil, ShapeUnknown, err
		}
		raw, ok := obj[wrapperKey]
		raw = bytes.TrimSpace(raw)
		if !ok || len(raw) == 0 || raw[0] != '[' {
			return nil, ShapeUnknown, nil
		}
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, ShapeUnknown, err
		}
		if items == nil {
			items = []T{}
		}
		return items, ShapeWrapped, nil
	}
	return nil, ShapeUnknown, nil
}

// created is the {id, username|shortname} record the create functions return.
type created struct {
	ID        Int    `json:"id"`
	Username  string `json:"username"`
	ShortName string `json:"shortname"`
}

type loginURLResponse struct {
	LoginURL string `json:"loginurl"`
}

type warning struct {
	Item        string `json:"item"`
	WarningCode string `json:"warningcode"`
	Message     string `json:"message"`
}

type signupResponse struct {
	Success  Flag      `json:"success"`
	Warnings []warning `json:"warnings"`
}
