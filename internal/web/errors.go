package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"moodle-portal/internal/portal"
)

var (
	errUnauthorized = echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	errBadCourseID  = echo.NewHTTPError(http.StatusBadRequest, "course must be a positive integer")
)

// newHTTPErrorHandler maps controller and validation errors onto HTTP
// responses shaped {"error": ...}.
func newHTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code, message := classify(err)
		if code >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Error(err),
			)
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, echo.Map{"error": message})
		}
		if err != nil {
			log.Warn("writing error response failed", zap.Error(err))
		}
	}
}

func classify(err error) (int, any) {
	var herr *echo.HTTPError
	var verrs validator.ValidationErrors
	var actionErr *portal.ActionError

	switch {
	case errors.As(err, &herr):
		if inner, ok := herr.Internal.(*echo.HTTPError); ok {
			herr = inner
		}
		return herr.Code, herr.Message
	case errors.As(err, &verrs):
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = fieldMessage(fe)
		}
		return http.StatusBadRequest, fields
	case errors.Is(err, portal.ErrNotAuthenticated):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, portal.ErrPasswordRequired), errors.Is(err, portal.ErrUsernameRequired):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, portal.ErrUserNotFound):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, portal.ErrAccountDisabled):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, portal.ErrUnknownView):
		return http.StatusNotFound, err.Error()
	case errors.As(err, &actionErr):
		return http.StatusBadGateway, actionErr.Message
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "gte":
		return "must be at least " + fe.Param()
	default:
		return "is invalid (" + fe.Tag() + ")"
	}
}
