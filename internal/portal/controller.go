// Package portal holds the per-browser UI state and the actions staff take
// from the portal: sign in, browse, create, and jump into Moodle.
package portal

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"moodle-portal/internal/domain"
	"moodle-portal/internal/moodle"
	"moodle-portal/internal/session"
)

// API is the part of the Moodle client the controller drives.
type API interface {
	FetchCourses(ctx context.Context) ([]domain.Course, error)
	FetchUserCourses(ctx context.Context, userID int64) ([]domain.Course, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	FindUserByField(ctx context.Context, field moodle.UserField, value string) (domain.User, error)
	CreateCourse(ctx context.Context, in domain.NewCourse) ([]domain.Course, error)
	CreateUser(ctx context.Context, in domain.NewUser) ([]domain.User, error)
	RequestLoginURL(ctx context.Context, userID int64, username, email string) (string, error)
}

// Sessions persists the signed-in session of each browser.
type Sessions interface {
	Open(ctx context.Context, key string) (domain.Session, error)
	Save(ctx context.Context, key string, s domain.Session) error
	Clear(ctx context.Context, key string) error
}

type Options struct {
	// MoodleURL is the site root hand-offs point at.
	MoodleURL        string
	NotificationTTL  time.Duration
	SSOFallbackDelay time.Duration
	Log              *zap.Logger
}

type Controller struct {
	api      API
	sessions Sessions
	validate *validator.Validate
	log      *zap.Logger

	moodleURL string
	noticeTTL time.Duration
	ssoDelay  time.Duration
	now       func() time.Time

	mu     sync.RWMutex
	states map[string]*state

	bg sync.WaitGroup
}

func New(api API, sessions Sessions, opts Options) *Controller {
	if opts.NotificationTTL <= 0 {
		opts.NotificationTTL = 5 * time.Second
	}
	if opts.SSOFallbackDelay <= 0 {
		opts.SSOFallbackDelay = 5 * time.Second
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Controller{
		api:       api,
		sessions:  sessions,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		log:       opts.Log,
		moodleURL: strings.TrimRight(opts.MoodleURL, "/"),
		noticeTTL: opts.NotificationTTL,
		ssoDelay:  opts.SSOFallbackDelay,
		now:       time.Now,
		states:    map[string]*state{},
	}
}

// lookup returns the tracked state of key. Only signed-in keys are tracked.
func (c *Controller) lookup(key string) (*state, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.states[key]
	return st, ok
}

func (c *Controller) state(key string) *state {
	if st, ok := c.lookup(key); ok {
		return st
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.states[key]; ok {
		return st
	}
	st := newState()
	c.states[key] = st
	return st
}

func (c *Controller) track(key string, st *state) {
	c.mu.Lock()
	c.states[key] = st
	c.mu.Unlock()
}

func (c *Controller) notify(st *state, msg string) {
	st.notify(msg, c.now().Add(c.noticeTTL))
}

// Wait blocks until background work started by Login has finished.
func (c *Controller) Wait() { c.bg.Wait() }

// Login signs key in as username. The password is not checked against Moodle;
// it is kept in the session for the direct login hand-off. A failed login of
// an untracked key leaves nothing behind.
func (c *Controller) Login(ctx context.Context, key, username, password string) (domain.Session, error) {
	st, tracked := c.lookup(key)
	if !tracked {
		st = newState()
	}
	done := st.begin()
	defer done()
	st.setError("")

	fail := func(err error) (domain.Session, error) {
		st.setError(err.Error())
		return domain.Session{}, err
	}

	if password == "" {
		return fail(ErrPasswordRequired)
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return fail(ErrUsernameRequired)
	}

	u, err := c.api.FindUserByField(ctx, moodle.FieldUsername, username)
	if errors.Is(err, moodle.ErrUserNotFound) {
		return fail(ErrUserNotFound)
	}
	if err != nil {
		c.log.Warn("login lookup failed", zap.String("username", username), zap.Error(err))
		return fail(&ActionError{Message: err.Error(), Err: err})
	}
	if !u.CanLogin() {
		return fail(ErrAccountDisabled)
	}

	sess := domain.NewSession(u, password)
	if err := c.sessions.Save(ctx, key, sess); err != nil {
		c.log.Error("saving session failed", zap.Error(err))
		return fail(err)
	}

	st.mu.Lock()
	st.session = &sess
	st.view = ViewCourses
	st.courses = []domain.Course{}
	st.userCourses = []domain.Course{}
	st.users = []domain.User{}
	st.mu.Unlock()
	if !tracked {
		c.track(key, st)
	}

	c.log.Info("signed in", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	c.preloadUserCourses(ctx, st, sess)
	c.load(ctx, st, sess, ViewCourses)
	return sess, nil
}

// preloadUserCourses fills the enrolled courses in the background. Failures
// are only logged.
func (c *Controller) preloadUserCourses(ctx context.Context, st *state, sess domain.Session) {
	ctx = context.WithoutCancel(ctx)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		courses, err := c.api.FetchUserCourses(ctx, sess.UserID)
		if err != nil {
			c.log.Warn("background load of user courses failed", zap.Int64("user_id", sess.UserID), zap.Error(err))
			return
		}
		st.mu.Lock()
		defer st.mu.Unlock()
		if st.session != nil && st.session.UserID == sess.UserID {
			st.userCourses = courses
		}
	}()
}

// Logout forgets everything about key, even when the stored record cannot be
// removed.
func (c *Controller) Logout(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.states, key)
	c.mu.Unlock()

	if err := c.sessions.Clear(ctx, key); err != nil {
		c.log.Error("clearing session failed", zap.Error(err))
		return err
	}
	return nil
}

// Restore returns the session stored for key, making it current.
func (c *Controller) Restore(ctx context.Context, key string) (domain.Session, error) {
	if st, ok := c.lookup(key); ok {
		if s, ok := st.currentSession(); ok {
			return s, nil
		}
	}
	s, err := c.sessions.Open(ctx, key)
	if err != nil {
		return domain.Session{}, err
	}
	st := c.state(key)
	st.mu.Lock()
	st.session = &s
	st.mu.Unlock()
	return s, nil
}

// Snapshot returns the current state of key.
func (c *Controller) Snapshot(ctx context.Context, key string) Snapshot {
	if _, err := c.Restore(ctx, key); err != nil && !errors.Is(err, session.ErrNoSession) {
		c.log.Warn("restoring session failed", zap.Error(err))
	}
	st, ok := c.lookup(key)
	if !ok {
		return newState().snapshot(c.now())
	}
	return st.snapshot(c.now())
}

// authed returns the state of a signed-in key.
func (c *Controller) authed(ctx context.Context, key string) (*state, domain.Session, error) {
	s, err := c.Restore(ctx, key)
	if errors.Is(err, session.ErrNoSession) {
		return nil, domain.Session{}, ErrNotAuthenticated
	}
	if err != nil {
		return nil, domain.Session{}, err
	}
	return c.state(key), s, nil
}
