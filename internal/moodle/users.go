package moodle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"moodle-portal/internal/domain"
	"moodle-portal/internal/fallback"
	"moodle-portal/internal/obs"
)

// UserField is a field users can be looked up by.
type UserField string

const (
	FieldUsername UserField = "username"
	FieldEmail    UserField = "email"
)

// NormalizeLookup prepares value for a lookup on field. Moodle stores
// usernames in lowercase; emails are matched as given.
func NormalizeLookup(field UserField, value string) string {
	if field == FieldUsername {
		return strings.ToLower(strings.TrimSpace(value))
	}
	return value
}

// ListUsers returns every user with an email address.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var list UserList
	err := c.Call(ctx, fnGetUsers, Params{
		"criteria": []Params{{"key": "email", "value": "%"}},
	}, &list)
	if err != nil {
		return nil, err
	}
	return usersToDomain(list.Users), nil
}

func (c *Client) userLookupStrategy(name, function string, params Params) fallback.Strategy[domain.User] {
	return fallback.Strategy[domain.User]{
		Name: name,
		Run: func(ctx context.Context) (domain.User, error) {
			var list UserList
			if err := c.Call(ctx, function, params, &list); err != nil {
				if IsPermissionDenied(err) {
					return domain.User{}, fallback.Abort(fmt.Errorf("access denied: %w", err))
				}
				return domain.User{}, err
			}
			if len(list.Users) == 0 {
				return domain.User{}, fallback.Unusable("no match")
			}
			return list.Users[0].toDomain(), nil
		},
	}
}

// UserLookupStrategies lists the ways of finding one user, criteria search first.
func (c *Client) UserLookupStrategies(field UserField, value string) []fallback.Strategy[domain.User] {
	return []fallback.Strategy[domain.User]{
		c.userLookupStrategy("get_users", fnGetUsers, Params{
			"criteria": []Params{{"key": string(field), "value": value}},
		}),
		c.userLookupStrategy("get_users_by_field", fnGetUsersByField, Params{
			"field":  string(field),
			"values": []string{value},
		}),
	}
}

// FindUserByField returns the first user matching value. A missing user is
// ErrUserNotFound; a permission problem is returned as is so callers can tell
// the two apart.
func (c *Client) FindUserByField(ctx context.Context, field UserField, value string) (domain.User, error) {
	if field != FieldUsername && field != FieldEmail {
		return domain.User{}, fmt.Errorf("moodle: unsupported lookup field %q", field)
	}
	value = NormalizeLookup(field, value)

	u, err := fallback.First(ctx, c.UserLookupStrategies(field, value), c.observe("find_user"))
	if err == nil {
		return u, nil
	}

	var ex *fallback.ExhaustedError
	if !errors.As(err, &ex) {
		return domain.User{}, err
	}
	if failures := ex.Failures(); len(failures) > 0 {
		return domain.User{}, fmt.Errorf("%w (%s)", ErrUserNotFound, ex.Error())
	}
	return domain.User{}, ErrUserNotFound
}

// CreateUser creates one user with the admin function. When the token may not
// create users it falls back, once, to public email self-signup. Signup does
// not return a record, so a pending placeholder (ID 0, suspended) is returned
// instead. If the fallback does not succeed the admin error is returned.
func (c *Client) CreateUser(ctx context.Context, in domain.NewUser) ([]domain.User, error) {
	username := NormalizeLookup(FieldUsername, in.Username)
	user := Params{
		"username":  username,
		"password":  in.Password,
		"firstname": in.FirstName,
		"lastname":  in.LastName,
		"email":     in.Email,
	}
	if in.Auth != "" {
		user["auth"] = in.Auth
	}

	var out []created
	adminErr := c.Call(ctx, fnCreateUsers, Params{"users": []Params{user}}, &out)
	if adminErr == nil {
		obs.ObserveFallback("create_user", "create_users", obs.OutcomeOK)
		users := make([]domain.User, 0, len(out))
		for _, r := range out {
			users = append(users, domain.User{
				ID:        int64(r.ID),
				Username:  firstNonEmpty(r.Username, username),
				FirstName: in.FirstName,
				LastName:  in.LastName,
				FullName:  strings.TrimSpace(in.FirstName + " " + in.LastName),
				Email:     in.Email,
				Auth:      firstNonEmpty(in.Auth, "manual"),
			})
		}
		return users, nil
	}
	obs.ObserveFallback("create_user", "create_users", obs.OutcomeError)

	if !IsPermissionDenied(adminErr) {
		return nil, adminErr
	}

	c.logger().Warn("admin user creation denied, trying email signup", zap.Error(adminErr))
	var res signupResponse
	err := c.Call(ctx, fnEmailSignupUser, Params{
		"username":  username,
		"password":  in.Password,
		"firstname": in.FirstName,
		"lastname":  in.LastName,
		"email":     in.Email,
		"city":      c.SignupCity,
		"country":   c.SignupCountry,
	}, &res)
	switch {
	case err != nil:
		obs.ObserveFallback("create_user", "email_signup", obs.OutcomeError)
		c.logger().Error("email signup fallback failed", zap.Error(err))
		return nil, adminErr
	case !bool(res.Success):
		obs.ObserveFallback("create_user", "email_signup", obs.OutcomeSkipped)
		c.logger().Error("email signup fallback refused", zap.Any("warnings", res.Warnings))
		return nil, adminErr
	}
	obs.ObserveFallback("create_user", "email_signup", obs.OutcomeOK)

	return []domain.User{{
		ID:        0,
		Username:  username,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		FullName:  strings.TrimSpace(in.FirstName + " " + in.LastName),
		Email:     in.Email,
		Auth:      "manual",
		Suspended: true,
	}}, nil
}
