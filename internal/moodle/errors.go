package moodle

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUserNotFound is the normal negative result of a user lookup.
var ErrUserNotFound = errors.New("moodle: user not found")

// APIError is an exception Moodle reported inside a successful HTTP response.
type APIError struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
	DebugInfo string `json:"debuginfo,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.ErrorCode
	}
	return fmt.Sprintf("moodle api exception: %s (%s)", msg, e.ErrorCode)
}

// IsPermissionDenied reports whether err means the web-service token lacks a
// capability. Moodle reports this as "nopermissions", "accessexception" or an
// "Access control exception" message depending on the function.
func IsPermissionDenied(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode {
		case "nopermissions", "accessexception":
			return true
		}
	}
	msg := err.Error()
	return strings.Contains(msg, "nopermissions") || strings.Contains(msg, "access")
}

// IsMissingCapability is the narrower check used to rewrite errors into
// instructions for the Moodle administrator.
func IsMissingCapability(err error) bool {
	return err != nil && strings.Contains(err.Error(), "nopermissions")
}
