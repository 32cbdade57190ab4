package moodle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"moodle-portal/internal/httpx"
	"moodle-portal/internal/obs"
)

const (
	contentTypeForm = "application/x-www-form-urlencoded"
	restFormat      = "json"
	endpointPath    = "/webservice/rest/server.php"
)

// Client calls Moodle's REST web-service endpoint with one fixed token.
type Client struct {
	BaseURL  string // site root, e.g. https://lms.example.com
	Endpoint string // REST endpoint; derived from BaseURL when empty
	Token    string
	HTTP     *http.Client
	Retry    httpx.RetryConfig
	Log      *zap.Logger

	// DefaultCategoryID is used when a new course has no category.
	DefaultCategoryID int64
	// SignupCity and SignupCountry fill the fields auth_email_signup_user requires.
	SignupCity    string
	SignupCountry string
}

func New(baseURL, endpoint, token string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if strings.TrimSpace(endpoint) == "" {
		endpoint = baseURL + endpointPath
	}
	return &Client{
		BaseURL:  baseURL,
		Endpoint: endpoint,
		Token:    token,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
		Retry:             httpx.SingleAttempt(),
		Log:               zap.NewNop(),
		DefaultCategoryID: 1,
		SignupCity:        "Dubai",
		SignupCountry:     "AE",
	}
}

// Call invokes function with a form-encoded POST and decodes the JSON result
// into out (which may be nil).
func (c *Client) Call(ctx context.Context, function string, params Params, out any) error {
	return c.call(ctx, http.MethodPost, function, params, out)
}

// CallGet is Call with the parameters in the query string. Some deployments
// reject array parameters in a POST body.
func (c *Client) CallGet(ctx context.Context, function string, params Params, out any) error {
	return c.call(ctx, http.MethodGet, function, params, out)
}

func (c *Client) call(ctx context.Context, method, function string, params Params, out any) error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("moodle: invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("wstoken", c.Token)
	q.Set("wsfunction", function)
	q.Set("moodlewsrestformat", restFormat)

	form := params.Encode()
	if method == http.MethodGet {
		for k, vs := range form {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
	}
	u.RawQuery = q.Encode()
	target := u.String()

	var body []byte
	if method == http.MethodPost {
		body = []byte(form.Encode())
	}

	start := time.Now()
	_, raw, err := httpx.DoWithRetry(
		ctx,
		c.HTTP,
		func(ctx context.Context) (*http.Request, error) {
			var r *http.Request
			var err error
			if method == http.MethodPost {
				r, err = http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
				if err == nil {
					r.Header.Set("Content-Type", contentTypeForm)
				}
			} else {
				r, err = http.NewRequestWithContext(ctx, method, target, nil)
			}
			if err != nil {
				return nil, err
			}
			r.Header.Set("Accept", "application/json")
			return r, nil
		},
		c.Retry,
	)
	took := time.Since(start)
	if err != nil {
		obs.ObserveMoodleCall(function, obs.OutcomeError, took)
		c.logger().Warn("moodle call failed",
			zap.String("function", function),
			zap.String("method", method),
			zap.Duration("took", took),
			zap.Error(err),
		)
		return err
	}

	if err := decodeResponse(raw, out); err != nil {
		outcome := obs.OutcomeError
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			outcome = obs.OutcomeException
		}
		obs.ObserveMoodleCall(function, outcome, took)
		c.logger().Warn("moodle call rejected",
			zap.String("function", function),
			zap.String("method", method),
			zap.Error(err),
		)
		return err
	}

	obs.ObserveMoodleCall(function, obs.OutcomeOK, took)
	c.logger().Debug("moodle call",
		zap.String("function", function),
		zap.String("method", method),
		zap.Duration("took", took),
	)
	return nil
}

// decodeResponse turns an embedded exception payload into *APIError; Moodle
// answers those with HTTP 200.
func decodeResponse(raw []byte, out any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var apiErr APIError
		if err := json.Unmarshal(raw, &apiErr); err == nil && (apiErr.Exception != "" || apiErr.ErrorCode != "") {
			return &apiErr
		}
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("moodle: unexpected response: %w", err)
	}
	return nil
}

// SiteURL joins path onto the site root.
func (c *Client) SiteURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + path
}

func (c *Client) logger() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}
	return c.Log
}
