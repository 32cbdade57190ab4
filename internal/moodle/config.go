package moodle

import (
	"fmt"

	"go.uber.org/zap"

	"moodle-portal/internal/config"
	"moodle-portal/internal/httpx"
)

// NewFromConfig builds a client from the MOODLE_* settings.
func NewFromConfig(cfg config.Config, log *zap.Logger) *Client {
	c := New(cfg.MoodleURL, cfg.MoodleEndpoint, cfg.MoodleToken)
	if cfg.MoodleHTTPTimeout > 0 {
		c.HTTP.Timeout = cfg.MoodleHTTPTimeout
	}
	if cfg.MoodleHTTPAttempts > 1 {
		c.Retry = httpx.DefaultRetryConfig()
		c.Retry.MaxAttempts = cfg.MoodleHTTPAttempts
	}
	if cfg.MoodleDefaultCategory > 0 {
		c.DefaultCategoryID = cfg.MoodleDefaultCategory
	}
	if cfg.SignupCity != "" {
		c.SignupCity = cfg.SignupCity
	}
	if cfg.SignupCountry != "" {
		c.SignupCountry = cfg.SignupCountry
	}
	if log != nil {
		c.Log = log.Named("moodle")
	}
	return c
}

// CourseURL links to a course page on the site.
func (c *Client) CourseURL(id int64) string {
	return c.SiteURL(fmt.Sprintf("/course/view.php?id=%d", id))
}
