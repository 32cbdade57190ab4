package portal

import (
	"fmt"
	"sync"
	"time"

	"moodle-portal/internal/domain"
)

// View is the screen a browser is looking at.
type View string

const (
	ViewCourses      View = "courses"
	ViewMyCourses    View = "my_courses"
	ViewUsers        View = "users"
	ViewCreateCourse View = "create_course"
	ViewCreateUser   View = "create_user"
)

// ParseView accepts the view names the front-end sends.
func ParseView(s string) (View, error) {
	switch v := View(s); v {
	case ViewCourses, ViewMyCourses, ViewUsers, ViewCreateCourse, ViewCreateUser:
		return v, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownView, s)
}

// fetches reports whether switching to v loads a list.
func (v View) fetches() bool {
	return v == ViewCourses || v == ViewMyCourses || v == ViewUsers
}

// state is the UI state of one browser session.
type state struct {
	mu sync.Mutex

	session     *domain.Session
	view        View
	courses     []domain.Course
	userCourses []domain.Course
	users       []domain.User
	loading     int
	err         string
	notice      string
	noticeUntil time.Time
}

func newState() *state {
	return &state{
		view:        ViewCourses,
		courses:     []domain.Course{},
		userCourses: []domain.Course{},
		users:       []domain.User{},
	}
}

// Snapshot is the state as handed to the browser.
type Snapshot struct {
	View         View            `json:"view"`
	Session      *domain.Session `json:"session,omitempty"`
	Courses      []domain.Course `json:"courses"`
	UserCourses  []domain.Course `json:"userCourses"`
	Users        []domain.User   `json:"users"`
	Loading      bool            `json:"loading"`
	Error        string          `json:"error,omitempty"`
	Notification string          `json:"notification,omitempty"`
}

func (s *state) snapshot(now time.Time) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		View:        s.view,
		Courses:     append([]domain.Course{}, s.courses...),
		UserCourses: append([]domain.Course{}, s.userCourses...),
		Users:       append([]domain.User{}, s.users...),
		Loading:     s.loading > 0,
		Error:       s.err,
	}
	if s.session != nil {
		pub := s.session.Public()
		snap.Session = &pub
	}
	if s.notice != "" && now.Before(s.noticeUntil) {
		snap.Notification = s.notice
	}
	return snap
}

// begin marks an operation as running and returns the func that ends it.
func (s *state) begin() func() {
	s.mu.Lock()
	s.loading++
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.loading--
		s.mu.Unlock()
	}
}

func (s *state) setError(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *state) notify(msg string, until time.Time) {
	s.mu.Lock()
	s.notice, s.noticeUntil = msg, until
	s.mu.Unlock()
}

func (s *state) currentSession() (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return domain.Session{}, false
	}
	return *s.session, true
}
