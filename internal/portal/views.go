package portal

import (
	"context"

	"go.uber.org/zap"

	"moodle-portal/internal/domain"
)

// SwitchView moves key to view. List views clear the error banner and reload
// their list; the create forms only switch.
func (c *Controller) SwitchView(ctx context.Context, key string, view View) error {
	if _, err := ParseView(string(view)); err != nil {
		return err
	}
	st, sess, err := c.authed(ctx, key)
	if err != nil {
		return err
	}

	st.mu.Lock()
	st.view = view
	st.mu.Unlock()

	if view.fetches() {
		st.setError("")
		c.load(ctx, st, sess, view)
	}
	return nil
}

// load fetches the list behind view. A failure empties the list and shows a
// banner; it is not returned.
func (c *Controller) load(ctx context.Context, st *state, sess domain.Session, view View) {
	done := st.begin()
	defer done()

	switch view {
	case ViewCourses:
		courses, err := c.api.FetchCourses(ctx)
		st.mu.Lock()
		defer st.mu.Unlock()
		if err != nil {
			st.courses = []domain.Course{}
			st.err = "failed to load available courses: " + err.Error()
			c.log.Warn("loading courses failed", zap.Error(err))
			return
		}
		st.courses = domain.WithoutSite(courses)

	case ViewMyCourses:
		courses, err := c.api.FetchUserCourses(ctx, sess.UserID)
		st.mu.Lock()
		defer st.mu.Unlock()
		if err != nil {
			st.userCourses = []domain.Course{}
			st.err = "failed to load your enrolled courses: " + err.Error()
			c.log.Warn("loading enrolled courses failed", zap.Int64("user_id", sess.UserID), zap.Error(err))
			return
		}
		if courses == nil {
			courses = []domain.Course{}
		}
		st.userCourses = courses

	case ViewUsers:
		users, err := c.api.ListUsers(ctx)
		st.mu.Lock()
		defer st.mu.Unlock()
		if err != nil {
			st.users = []domain.User{}
			st.err = "failed to load users: " + err.Error()
			c.log.Warn("loading users failed", zap.Error(err))
			return
		}
		if users == nil {
			users = []domain.User{}
		}
		st.users = users
	}
}
