package moodle

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"moodle-portal/internal/domain"
)

const janeUsers = `{"users":[{"id":7,"username":"jane.doe","firstname":"Jane","lastname":"Doe","email":"jane@example.com","auth":"manual","suspended":0,"profileimageurlsmall":"https://lms/pic.png"}],"warnings":[]}`

func TestFindUserByUsernameLowercases(t *testing.T) {
	f := newFakeMoodle(t)
	f.respond(fnGetUsers, janeUsers)

	u, err := f.client().FindUserByField(context.Background(), FieldUsername, "  Jane.Doe ")
	if err != nil {
		t.Fatalf("FindUserByField() error = %v", err)
	}
	if u.ID != 7 || u.FullName != "Jane Doe" || u.ProfileImage != "https://lms/pic.png" {
		t.Errorf("Unexpected user %+v", u)
	}

	expectParams(t, f.callsTo(fnGetUsers)[0].Body, map[string]string{
		"criteria[0][key]":   "username",
		"criteria[0][value]": "jane.doe",
	})
	f.expectFunctions(t, fnGetUsers)
}

func TestFindUserByEmailKeepsValue(t *testing.T) {
	f := newFakeMoodle(t)
	f.respond(fnGetUsers, janeUsers)

	if _, err := f.client().FindUserByField(context.Background(), FieldEmail, "Jane@Example.com"); err != nil {
		t.Fatalf("FindUserByField() error = %v", err)
	}
	expectParams(t, f.callsTo(fnGetUsers)[0].Body, map[string]string{
		"criteria[0][key]":   "email",
		"criteria[0][value]": "Jane@Example.com",
	})
}

func TestFindUserFallsBackToByField(t *testing.T) {
	f := newFakeMoodle(t)
	f.respond(fnGetUsers, `{"users":[],"warnings":[]}`)
	f.respond(fnGetUsersByField, `[{"id":8,"username":"bob","fullname":"Bob Stone","email":"bob@example.com"}]`)

	u, err := f.client().FindUserByField(context.Background(), FieldUsername, "Bob")
	if err != nil {
		t.Fatalf("FindUserByField() error = %v", err)
	}
	if u.ID != 8 || u.FullName != "Bob Stone" {
		t.Errorf("Unexpected user %+v", u)
	}
	f.expectFunctions(t, fnGetUsers, fnGetUsersByField)
	expectParams(t, f.callsTo(fnGetUsersByField)[0].Body, map[string]string{
		"field":     "username",
		"values[0]": "bob",
	})
}

func TestFindUserTransportErrorTriesNext(t *testing.T) {
	f := newFakeMoodle(t)
	f.fail(fnGetUsers, http.StatusInternalServerError)
	f.respond(fnGetUsersByField, `[{"id":8,"username":"bob"}]`)

	u, err := f.client().FindUserByField(context.Background(), FieldUsername, "bob")
	if err != nil {
		t.Fatalf("FindUserByField() error = %v", err)
	}
	if u.ID != 8 {
		t.Errorf("Expected user 8, got %d", u.ID)
	}
}

func TestFindUserPermissionDeniedStops(t *testing.T) {
	f := newFakeMoodle(t)
	f.respond(fnGetUsers, noPermissions)
	f.respond(fnGetUsersByField, `[{"id":8,"username":"bob"}]`)

	_, err := f.client().FindUserByField(context.Background(), FieldUsername, "bob")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if errors.Is(err, ErrUserNotFound) {
		t.Error("Permission error reported as not found")
	}
	expectContains(t, err.Error(), "access denied")

	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode != "nopermissions" {
		t.Errorf("Expected wrapped nopermissions APIError, got %v", err)
	}
	f.expectFunctions(t, fnGetUsers)
}

func TestFindUserNotFound(t *testing.T) {
	f := newFakeMoodle(t)
	f.respond(fnGetUsers, `{"users":[]}`)
	f.respond(fnGetUsersByField, `[]`)

	_, err := f.client().FindUserByField(context.Background(), FieldUsername, "ghost")
	if err != ErrUserNotFound {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestFindUserNotFoundAfterFailureKeepsDetails(t *testing.T) {
	f := newFakeMoodle(t)
	f.fail(fnGetUsers, http.StatusBadGateway)
	f.respond(fnGetUsersByField, `[]`)

	_, err := f.client().FindUserByField(context.Background(), FieldUsername, "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Expected ErrUserNotFound, got %v", err)
	}
	expectContains(t, err.Error(), "status=502")
}

func TestFindUserRejectsOtherFields(t *testing.T) {
	f := newFakeMoodle(t)
	_, err := f.client().FindUserByField(context.Background(), UserField("idnumber"), "x")
	if err == nil {
		t.Fatal("Expected an error")
	}
	expectContains(t, err.Error(), "unsupported lookup field")
	f.expectFunctions(t)
}

func TestListUsers(t *testing.T) {
	f := newFakeMoodle(t)
	f.respond(fnGetUsers, `{"users":[{"id":2,"username":"admin"},{"id":7,"username":"jane.doe"}]}`)

	users, err := f.client().ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users) != 2 {
		t.Errorf("Expected 2 users, got %d", len(users))
	}
	expectParams(t, f.callsTo(fnGetUsers)[0].Body, map[string]string{
		"criteria[0][key]":   "email",
		"criteria[0][value]": "%",
	})
}

func newJane() domain.NewUser {
	return domain.NewUser{
		Username:  "Jane.Doe",
		Password:  "Passw0rd!",
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@example.com",
	}
}

func TestCreateUserAdmin(t *testing.T) {
	f := newFakeMoodle(t)
	f.respond(fnCreateUsers, `[{"id":31,"username":"jane.doe"}]`)

	users, err := f.client().CreateUser(context.Background(), newJane())
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if len(users) != 1 || users[0].ID != 31 || users[0].Suspended {
		t.Errorf("Unexpected users %+v", users)
	}

	expectParams(t, f.callsTo(fnCreateUsers)[0].Body, map[string]string{
		"users[0][username]": "jane.doe",
		"users[0][password]": "Passw0rd!",
		"users[0][auth]":     "",
	})
	f.expectFunctions(t, fnCreateUsers)
}

func TestCreateUserFallsBackToSignupOnce(t *testing.T) {
	f := newFakeMoodle(t)
	f.respond(fnCreateUsers, noPermissions)
	f.respond(fnEmailSignupUser, `{"success":true,"warnings":[]}`)

	users, err := f.client().CreateUser(context.Background(), newJane())
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("Expected one placeholder user, got %d", len(users))
	}
	u := users[0]
	if u.ID != 0 || !u.Suspended || u.Auth != "manual" || u.Username != "jane.doe" {
		t.Errorf("Unexpected placeholder %+v", u)
	}

	signups := f.callsTo(fnEmailSignupUser)
	if len(signups) != 1 {
		t.Fatalf("Expected exactly one signup call, got %d", len(signups))
	}
	expectParams(t, signups[0].Body, map[string]string{
		"city":     "Dubai",
		"country":  "AE",
		"username": "jane.doe",
	})
}

func TestCreateUserSignupFailureReturnsAdminError(t *testing.T) {
	f := newFakeMoodle(t)
	f.respond(fnCreateUsers, noPermissions)
	f.respond(fnEmailSignupUser, `{"success":false,"warnings":[{"item":"user","warningcode":"1","message":"Username already exists"}]}`)

	_, err := f.client().CreateUser(context.Background(), newJane())
	if !IsMissingCapability(err) {
		t.Errorf("Expected the admin permission error, got %v", err)
	}
	if n := len(f.callsTo(fnEmailSignupUser)); n != 1 {
		t.Errorf("Expected one signup call, got %d", n)
	}
}

func TestCreateUserOtherErrorSkipsSignup(t *testing.T) {
	f := newFakeMoodle(t)
	f.respond(fnCreateUsers, `{"exception":"invalid_parameter_exception","errorcode":"invalidparameter","message":"Invalid parameter value detected"}`)

	_, err := f.client().CreateUser(context.Background(), newJane())
	if err == nil {
		t.Fatal("Expected an error")
	}
	expectContains(t, err.Error(), "invalidparameter")
	f.expectFunctions(t, fnCreateUsers)
}
