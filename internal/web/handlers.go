package web

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"moodle-portal/internal/domain"
	"moodle-portal/internal/portal"
	"moodle-portal/internal/session"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (s *Server) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.ctl.Login(ctx, sessionKey(c), req.Username, req.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.ctl.Snapshot(ctx, sessionKey(c)))
}

func (s *Server) logout(c echo.Context) error {
	err := s.ctl.Logout(c.Request().Context(), sessionKey(c))

	ck := sessionCookie("", s.opts.SecureCookie)
	ck.MaxAge = -1
	c.SetCookie(ck)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) session(c echo.Context) error {
	sess, err := s.ctl.Restore(c.Request().Context(), sessionKey(c))
	if errors.Is(err, session.ErrNoSession) {
		return errUnauthorized
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess.Public())
}

func (s *Server) state(c echo.Context) error {
	return c.JSON(http.StatusOK, s.ctl.Snapshot(c.Request().Context(), sessionKey(c)))
}

func (s *Server) switchView(c echo.Context) error {
	view, err := portal.ParseView(c.Param("view"))
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := s.ctl.SwitchView(ctx, sessionKey(c), view); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s.ctl.Snapshot(ctx, sessionKey(c)))
}

func (s *Server) createCourse(c echo.Context) error {
	var in domain.NewCourse
	if err := c.Bind(&in); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.ctl.CreateCourse(ctx, sessionKey(c), in); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s.ctl.Snapshot(ctx, sessionKey(c)))
}

func (s *Server) createUser(c echo.Context) error {
	var in domain.NewUser
	if err := c.Bind(&in); err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := s.ctl.CreateUser(ctx, sessionKey(c), in); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, s.ctl.Snapshot(ctx, sessionKey(c)))
}

type formPage struct {
	Action string
	Fields []portal.FormField
	Notice string
}

type delayedPage struct {
	URL     string
	Seconds int
	Message string
}

// sso completes the hand-off into Moodle for ?course=N, or the dashboard
// without it.
func (s *Server) sso(c echo.Context) error {
	var courseID int64
	if raw := strings.TrimSpace(c.QueryParam("course")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return errBadCourseID
		}
		courseID = id
	}

	ctx := c.Request().Context()
	h, err := s.ctl.SingleSignOn(ctx, sessionKey(c), courseID)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	switch h.Kind {
	case portal.HandoffRedirect:
		return c.Redirect(http.StatusFound, h.URL)
	case portal.HandoffForm:
		return c.Render(http.StatusOK, "sso_form.html", formPage{
			Action: h.URL,
			Fields: h.Fields,
			Notice: s.ctl.Snapshot(ctx, sessionKey(c)).Notification,
		})
	default:
		return c.Render(http.StatusOK, "sso_delayed.html", delayedPage{
			URL:     h.URL,
			Seconds: int(h.Delay.Seconds()),
			Message: h.Message,
		})
	}
}
