package portal

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"moodle-portal/internal/domain"
)

// HandoffKind says how the browser gets into Moodle.
type HandoffKind string

const (
	// HandoffRedirect sends the browser to a one-time login URL.
	HandoffRedirect HandoffKind = "redirect"
	// HandoffForm posts the stored credentials to Moodle's login form.
	HandoffForm HandoffKind = "form"
	// HandoffDelayed shows the error and opens the target after Delay; the
	// user signs in by hand.
	HandoffDelayed HandoffKind = "delayed"
)

// FormField is one hidden input of a form hand-off.
type FormField struct {
	Name  string
	Value string
}

// Handoff describes the navigation that completes a single sign-on.
type Handoff struct {
	Kind    HandoffKind
	URL     string
	Fields  []FormField
	Delay   time.Duration
	Message string
}

// TargetURL is where the user lands in Moodle: the dashboard, or the course
// when courseID is set.
func (c *Controller) TargetURL(courseID int64) string {
	if courseID > 0 {
		return fmt.Sprintf("%s/course/view.php?id=%d", c.moodleURL, courseID)
	}
	return c.moodleURL + "/my/"
}

// SingleSignOn signs key's user into Moodle. It prefers a one-time login URL,
// falls back to posting the stored credentials to the login form, and as a
// last resort sends the user to the target page after a delay.
func (c *Controller) SingleSignOn(ctx context.Context, key string, courseID int64) (Handoff, error) {
	st, sess, err := c.authed(ctx, key)
	if err != nil {
		return Handoff{}, err
	}
	st.setError("")

	target := c.TargetURL(courseID)
	c.notify(st, "initiating Moodle login")

	loginURL, err := c.api.RequestLoginURL(ctx, sess.UserID, sess.Username, sess.Email)
	if err == nil {
		sep := "?"
		if strings.Contains(loginURL, "?") {
			sep = "&"
		}
		c.log.Info("sso via login url", zap.Int64("user_id", sess.UserID), zap.String("target", target))
		return Handoff{
			Kind: HandoffRedirect,
			URL:  loginURL + sep + "wantsurl=" + url.QueryEscape(target),
		}, nil
	}

	c.log.Warn("sso api failed, trying direct login", zap.Int64("user_id", sess.UserID), zap.Error(err))
	c.notify(st, fmt.Sprintf("SSO API warning: %v, attempting automatic direct login", err))

	h, formErr := c.directLogin(sess, target)
	if formErr == nil {
		return h, nil
	}

	c.log.Error("direct login unavailable", zap.Int64("user_id", sess.UserID), zap.Error(formErr))
	st.setError(ErrSSOFailed.Error())
	return Handoff{
		Kind:    HandoffDelayed,
		URL:     target,
		Delay:   c.ssoDelay,
		Message: ErrSSOFailed.Error(),
	}, nil
}

// directLogin builds the form post to Moodle's own login page.
func (c *Controller) directLogin(sess domain.Session, target string) (Handoff, error) {
	if sess.Password == "" {
		return Handoff{}, errors.New("no stored password")
	}
	action := c.moodleURL + "/login/index.php?wantsurl=" + url.QueryEscape(target)
	u, err := url.Parse(action)
	if err != nil {
		return Handoff{}, fmt.Errorf("login url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Handoff{}, fmt.Errorf("login url %q is not absolute", action)
	}
	return Handoff{
		Kind: HandoffForm,
		URL:  action,
		Fields: []FormField{
			{Name: "username", Value: sess.Username},
			{Name: "password", Value: sess.Password},
		},
	}, nil
}
