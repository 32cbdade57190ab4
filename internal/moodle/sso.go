package moodle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"moodle-portal/internal/fallback"
)

func (c *Client) loginURLStrategy(name, username string, get bool) fallback.Strategy[string] {
	return fallback.Strategy[string]{
		Name: name,
		Run: func(ctx context.Context) (string, error) {
			params := Params{"user": Params{"username": username}}
			var res loginURLResponse
			var err error
			if get {
				err = c.CallGet(ctx, fnRequestLoginURL, params, &res)
			} else {
				err = c.Call(ctx, fnRequestLoginURL, params, &res)
			}
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(res.LoginURL) == "" {
				return "", fallback.Unusable("response has no loginurl")
			}
			return res.LoginURL, nil
		},
	}
}

// LoginURLStrategies lists the ways of requesting a one-time login URL:
// lowercase username by POST, then by GET, then the username as typed when
// its case differs.
func (c *Client) LoginURLStrategies(username string) []fallback.Strategy[string] {
	raw := strings.TrimSpace(username)
	lower := strings.ToLower(raw)

	strategies := []fallback.Strategy[string]{
		c.loginURLStrategy("username(lc/POST)", lower, false),
		c.loginURLStrategy("username(lc/GET)", lower, true),
	}
	if raw != lower {
		strategies = append(strategies, c.loginURLStrategy("username(raw/POST)", raw, false))
	}
	return strategies
}

// RequestLoginURL asks the user key plugin for a one-time login URL.
// userID and email identify the user in logs only; the plugin is keyed on username.
func (c *Client) RequestLoginURL(ctx context.Context, userID int64, username, email string) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", errors.New("sso unavailable: no username")
	}

	loginURL, err := fallback.First(ctx, c.LoginURLStrategies(username), c.observe("request_login_url"))
	if err != nil {
		var ex *fallback.ExhaustedError
		if errors.As(err, &ex) {
			ex.Sep = ", "
		}
		c.logger().Warn("one-time login url unavailable",
			zap.Int64("user_id", userID),
			zap.String("email", email),
			zap.Error(err),
		)
		return "", fmt.Errorf("sso unavailable, attempts failed: %w", err)
	}
	return loginURL, nil
}
