package portal

import "errors"

var (
	ErrPasswordRequired = errors.New("password is required")
	ErrUsernameRequired = errors.New("username is required")
	ErrUserNotFound     = errors.New("user not found in Moodle, please check your username")
	ErrAccountDisabled  = errors.New("this account is suspended or disabled in Moodle")
	ErrNotAuthenticated = errors.New("not signed in")
	ErrUnknownView      = errors.New("unknown view")
	ErrSSOFailed        = errors.New("automatic login failed completely, redirecting you to the Moodle login page")
)

const (
	msgMissingCourseCreate = "access denied: your Moodle API token is missing the 'moodle/course:create' capability, please contact your Moodle administrator to enable this permission"
	msgMissingUserCreate   = "access denied: your Moodle API token is missing the 'moodle/user:create' capability, please contact your Moodle administrator to enable this permission"
)

// ActionError is a failed user action with the message shown in the banner.
type ActionError struct {
	Message string
	Err     error
}

func (e *ActionError) Error() string { return e.Message }
func (e *ActionError) Unwrap() error { return e.Err }
