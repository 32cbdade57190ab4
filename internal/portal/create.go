package portal

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"moodle-portal/internal/domain"
	"moodle-portal/internal/moodle"
)

// CreateCourse validates in, creates the course and shows the course list.
// Invalid input is returned as validator.ValidationErrors without touching
// the state.
func (c *Controller) CreateCourse(ctx context.Context, key string, in domain.NewCourse) ([]domain.Course, error) {
	st, sess, err := c.authed(ctx, key)
	if err != nil {
		return nil, err
	}
	in.FullName = strings.TrimSpace(in.FullName)
	in.ShortName = strings.TrimSpace(in.ShortName)
	if err := c.validate.StructCtx(ctx, in); err != nil {
		return nil, err
	}

	done := st.begin()
	defer done()
	st.setError("")

	created, err := c.api.CreateCourse(ctx, in)
	if err != nil {
		msg := err.Error()
		if moodle.IsMissingCapability(err) {
			msg = msgMissingCourseCreate
		}
		c.log.Warn("create course failed", zap.String("shortname", in.ShortName), zap.Error(err))
		st.setError(msg)
		return nil, &ActionError{Message: msg, Err: err}
	}

	c.log.Info("course created", zap.String("shortname", in.ShortName), zap.Int64("by", sess.UserID))
	c.notify(st, "course created successfully")
	st.mu.Lock()
	st.view = ViewCourses
	st.mu.Unlock()
	c.load(ctx, st, sess, ViewCourses)
	return created, nil
}

// CreateUser validates in, creates the user and shows the user list.
func (c *Controller) CreateUser(ctx context.Context, key string, in domain.NewUser) ([]domain.User, error) {
	st, sess, err := c.authed(ctx, key)
	if err != nil {
		return nil, err
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := c.validate.StructCtx(ctx, in); err != nil {
		return nil, err
	}

	done := st.begin()
	defer done()
	st.setError("")

	created, err := c.api.CreateUser(ctx, in)
	if err != nil {
		msg := err.Error()
		if moodle.IsMissingCapability(err) {
			msg = msgMissingUserCreate
		}
		c.log.Warn("create user failed", zap.String("username", in.Username), zap.Error(err))
		st.setError(msg)
		return nil, &ActionError{Message: msg, Err: err}
	}

	c.log.Info("user created", zap.String("username", in.Username), zap.Int64("by", sess.UserID))
	c.notify(st, "user created successfully")
	st.mu.Lock()
	st.view = ViewUsers
	st.mu.Unlock()
	c.load(ctx, st, sess, ViewUsers)
	return created, nil
}
