package moodle

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"testing"
)

const testToken = "test-token"

// call is one request the fake Moodle received.
type call struct {
	Function string
	Method   string
	Query    url.Values
	Body     url.Values
}

// Param returns a parameter from wherever the client put it.
func (c call) Param(key string) string {
	if v := c.Body.Get(key); v != "" {
		return v
	}
	return c.Query.Get(key)
}

type reply struct {
	status int
	body   string
}

// fakeMoodle answers web-service calls from per-function handlers.
type fakeMoodle struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	calls    []call
	handlers map[string]func(c call) reply
}

func newFakeMoodle(t *testing.T) *fakeMoodle {
	t.Helper()
	f := &fakeMoodle{t: t, handlers: map[string]func(call) reply{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeMoodle) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c := call{
		Function: r.URL.Query().Get("wsfunction"),
		Method:   r.Method,
		Query:    r.URL.Query(),
		Body:     r.PostForm,
	}

	f.mu.Lock()
	f.calls = append(f.calls, c)
	h := f.handlers[c.Function]
	f.mu.Unlock()

	if c.Query.Get("wstoken") != testToken {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"exception":"moodle_exception","errorcode":"invalidtoken","message":"Invalid token - token not found"}`))
		return
	}
	if h == nil {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"exception":"dml_missing_record_exception","errorcode":"invalidrecord","message":"Can't find data record in database table external_functions."}`))
		return
	}

	rep := h(c)
	if rep.status == 0 {
		rep.status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	_, _ = w.Write([]byte(rep.body))
}

func (f *fakeMoodle) on(function string, h func(c call) reply) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[function] = h
}

func (f *fakeMoodle) respond(function, body string) {
	f.on(function, func(call) reply { return reply{body: body} })
}

func (f *fakeMoodle) fail(function string, status int) {
	f.on(function, func(call) reply { return reply{status: status, body: "upstream error"} })
}

func (f *fakeMoodle) callsTo(function string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Function == function {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeMoodle) functions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Function)
	}
	return out
}

func (f *fakeMoodle) client() *Client {
	return New(f.srv.URL, "", testToken)
}

const noPermissions = `{"exception":"required_capability_exception","errorcode":"nopermissions","message":"Sorry, but you do not currently have permissions to do that (Create users)."}`

// expectFunctions checks the web-service functions called, in order.
func (f *fakeMoodle) expectFunctions(t *testing.T, want ...string) {
	t.Helper()
	got := f.functions()
	if len(got) == 0 && len(want) == 0 {
		return
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected calls %v, got %v", want, got)
	}
}

func expectContains(t *testing.T, s string, parts ...string) {
	t.Helper()
	for _, p := range parts {
		if !strings.Contains(s, p) {
			t.Errorf("Expected %q to contain %q", s, p)
		}
	}
}

// expectParams checks form or query values by key; an empty want means absent.
func expectParams(t *testing.T, got url.Values, want map[string]string) {
	t.Helper()
	for k, v := range want {
		if g := got.Get(k); g != v {
			t.Errorf("%s = %q; expected %q", k, g, v)
		}
	}
}
