package httpx

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

const exampleURL = "https://moodle.example.com/webservice/rest/server.php?wstoken=secret&wsfunction=core_webservice_get_site_info"

// mockRoundTripper replays canned responses in order.
type mockRoundTripper struct {
	responses []*http.Response
	errors    []error
	index     int
	requests  []*http.Request
	mux       sync.Mutex
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	m.mux.Lock()
	defer m.mux.Unlock()

	m.requests = append(m.requests, req)
	if m.index >= len(m.responses) {
		return nil, errors.New("no more responses")
	}

	resp := m.responses[m.index]
	err := m.errors[m.index]
	m.index++
	return resp, err
}

func newMockClient(responses []*http.Response, errs []error) (*http.Client, *mockRoundTripper) {
	for len(errs) < len(responses) {
		errs = append(errs, nil)
	}
	rt := &mockRoundTripper{responses: responses, errors: errs}
	return &http.Client{Transport: rt}, rt
}

func newMockResponse(statusCode int, body []byte, headers map[string]string) *http.Response {
	header := http.Header{}
	for k, v := range headers {
		header.Set(k, v)
	}
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewReader(body)),
		Header:     header,
	}
}

func getReq(ctx context.Context) (*http.Request, error) {
	return http.NewRequestWithContext(ctx, http.MethodGet, exampleURL, nil)
}

func TestSnippet(t *testing.T) {
	testCases := []struct {
		input    string
		max      int
		expected string
	}{
		{"short text", 100, "short text"},
		{"", 100, ""},
		{"  trimmed  ", 100, "trimmed"},
		{"long text that should be truncated", 10, "long text …"},
	}

	for _, tc := range testCases {
		if got := snippet([]byte(tc.input), tc.max); got != tc.expected {
			t.Errorf("snippet(%q, %d) = %q; expected %q", tc.input, tc.max, got, tc.expected)
		}
	}
}

func TestDoWithRetrySuccess(t *testing.T) {
	client, rt := newMockClient([]*http.Response{newMockResponse(200, []byte(`{"sitename":"Academy"}`), nil)}, nil)

	resp, body, err := DoWithRetry(context.Background(), client, getReq, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("DoWithRetry() error = %v", err)
	}
	if resp.StatusCode != 200 {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != `{"sitename":"Academy"}` {
		t.Errorf("Unexpected body %q", body)
	}
	if got := rt.requests[0].Header.Get("Accept-Encoding"); got != "br, gzip" {
		t.Errorf("Expected Accept-Encoding 'br, gzip', got %q", got)
	}
}

func TestDoWithRetryBuildReqError(t *testing.T) {
	client, _ := newMockClient(nil, nil)

	_, _, err := DoWithRetry(context.Background(), client, func(ctx context.Context) (*http.Request, error) {
		return nil, errors.New("request build error")
	}, DefaultRetryConfig())
	if err == nil || !strings.Contains(err.Error(), "request build error") {
		t.Fatalf("Expected build error, got %v", err)
	}
}

func TestDoWithRetryRetryableStatus(t *testing.T) {
	client, rt := newMockClient([]*http.Response{
		newMockResponse(429, []byte(`rate limited`), map[string]string{"Retry-After": "0"}),
		newMockResponse(200, []byte(`[]`), nil),
	}, nil)

	cfg := DefaultRetryConfig()
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond

	resp, body, err := DoWithRetry(context.Background(), client, getReq, cfg)
	if err != nil {
		t.Fatalf("DoWithRetry() error = %v", err)
	}
	if resp.StatusCode != 200 || string(body) != "[]" {
		t.Errorf("Expected 200 with [], got %d %q", resp.StatusCode, body)
	}
	if len(rt.requests) != 2 {
		t.Errorf("Expected 2 requests, got %d", len(rt.requests))
	}
}

func TestDoWithRetrySingleAttempt(t *testing.T) {
	client, rt := newMockClient([]*http.Response{
		newMockResponse(503, []byte(`maintenance`), nil),
		newMockResponse(200, []byte(`[]`), nil),
	}, nil)

	_, body, err := DoWithRetry(context.Background(), client, getReq, SingleAttempt())
	if err == nil {
		t.Fatal("Expected an error")
	}
	if string(body) != "maintenance" {
		t.Errorf("Expected body 'maintenance', got %q", body)
	}
	if len(rt.requests) != 1 {
		t.Errorf("Expected 1 request, got %d", len(rt.requests))
	}

	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("Expected *HTTPError, got %T", err)
	}
	if herr.StatusCode != 503 {
		t.Errorf("Expected status 503, got %d", herr.StatusCode)
	}
}

func TestHTTPErrorHidesQuery(t *testing.T) {
	client, _ := newMockClient([]*http.Response{newMockResponse(404, []byte("Not Found"), nil)}, nil)

	_, _, err := DoWithRetry(context.Background(), client, getReq, SingleAttempt())
	if err == nil {
		t.Fatal("Expected an error")
	}
	want := "http error: GET https://moodle.example.com/webservice/rest/server.php status=404 body=Not Found"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
	if strings.Contains(err.Error(), "secret") {
		t.Error("Error message leaks the token")
	}
}

func TestDoWithRetryDecodesBody(t *testing.T) {
	const payload = `{"loginurl":"https://moodle.example.com/auth/userkey/login.php?key=abc"}`

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	if _, err := bw.Write([]byte(payload)); err != nil {
		t.Fatal(err)
	}
	if err := bw.Close(); err != nil {
		t.Fatal(err)
	}

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	if _, err := gw.Write([]byte(payload)); err != nil {
		t.Fatal(err)
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		encoding string
		body     []byte
	}{
		{"br", br.Bytes()},
		{"gzip", gz.Bytes()},
		{"", []byte(payload)},
	}

	for _, tc := range testCases {
		headers := map[string]string{}
		if tc.encoding != "" {
			headers["Content-Encoding"] = tc.encoding
		}
		client, _ := newMockClient([]*http.Response{newMockResponse(200, tc.body, headers)}, nil)

		_, body, err := DoWithRetry(context.Background(), client, getReq, SingleAttempt())
		if err != nil {
			t.Fatalf("encoding %q: DoWithRetry() error = %v", tc.encoding, err)
		}
		if string(body) != payload {
			t.Errorf("encoding %q: got %q", tc.encoding, body)
		}
	}
}

func TestIsRetryableStatus(t *testing.T) {
	cfg := DefaultRetryConfig()

	for i := 500; i <= 599; i++ {
		if !isRetryableStatus(i, cfg) {
			t.Errorf("Expected status %d to be retryable", i)
		}
	}
	for _, status := range []int{400, 401, 403, 404, 422} {
		if isRetryableStatus(status, cfg) {
			t.Errorf("Expected status %d not to be retryable", status)
		}
	}

	cfg.Retry5xx = false
	if isRetryableStatus(500, cfg) {
		t.Error("Expected 500 not to be retryable without Retry5xx")
	}
	if !isRetryableStatus(429, cfg) {
		t.Error("Expected 429 to be retryable")
	}
}

func TestIsRetryableNetErr(t *testing.T) {
	testCases := []struct {
		err      error
		expected bool
	}{
		{context.Canceled, false},
		{context.DeadlineExceeded, true},
		{&timeoutError{}, true},
		{errors.New("connection reset by peer"), true},
		{errors.New("write: broken pipe"), true},
		{errors.New("unexpected EOF"), true},
		{errors.New("some other error"), false},
	}

	for _, tc := range testCases {
		if got := isRetryableNetErr(tc.err); got != tc.expected {
			t.Errorf("isRetryableNetErr(%v) = %v; expected %v", tc.err, got, tc.expected)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	testCases := []struct {
		header   string
		expected time.Duration
	}{
		{"30", 30 * time.Second},
		{time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat), 0},
		{"invalid", 0},
		{"", 0},
	}

	for _, tc := range testCases {
		resp := &http.Response{Header: http.Header{}}
		if tc.header != "" {
			resp.Header.Set("Retry-After", tc.header)
		}
		if got := ParseRetryAfter(resp); got != tc.expected {
			t.Errorf("ParseRetryAfter(%q) = %v; expected %v", tc.header, got, tc.expected)
		}
	}
}

// timeoutError implements net.Error.
type timeoutError struct{}

func (e *timeoutError) Error() string   { return "timeout error" }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }
