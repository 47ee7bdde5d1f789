package middleware

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ehr/epsviewer/internal/platform/fhir"
)

func TestRequestID_GeneratesNew(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		if requestID(c) == "" {
			t.Error("expected request_id to be generated")
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := RequestID()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "my-custom-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		if rid := requestID(c); rid != "my-custom-id" {
			t.Errorf("expected my-custom-id, got %s", rid)
		}
		return c.String(http.StatusOK, "ok")
	}

	RequestID()(handler)(c)

	if got := rec.Header().Get(RequestIDHeader); got != "my-custom-id" {
		t.Errorf("expected my-custom-id in response header, got %s", got)
	}
}

func TestRequestID_ReplacesOversized(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	RequestID()(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)

	if got := rec.Header().Get(RequestIDHeader); len(got) != 36 {
		t.Errorf("expected a generated UUID, got %q", got)
	}
}

func TestLogger_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(RequestIDKey, "rid-1")

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	if err := Logger(logger)(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{`"level":"info"`, `"path":"/test"`, `"status":200`, `"request_id":"rid-1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in log line, got %s", want, out)
		}
	}
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	tests := []struct {
		name    string
		handler echo.HandlerFunc
		level   string
	}{
		{"client error", func(c echo.Context) error { return c.NoContent(http.StatusBadRequest) }, `"level":"warn"`},
		{"server error", func(c echo.Context) error { return c.NoContent(http.StatusBadGateway) }, `"level":"error"`},
		{"returned error", func(c echo.Context) error { return errors.New("boom") }, `"level":"error"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			e := echo.New()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

			Logger(zerolog.New(&buf))(tt.handler)(c)

			if !strings.Contains(buf.String(), tt.level) {
				t.Errorf("expected %s, got %s", tt.level, buf.String())
			}
		})
	}
}

func TestLogger_ErrorStatusIsLogged(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	handler := func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "missing")
	}
	err := Logger(zerolog.New(&buf))(handler)(c)
	if err == nil {
		t.Fatal("expected the handler error to be returned")
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 to be written, got %d", rec.Code)
	}
	if !strings.Contains(buf.String(), `"status":404`) {
		t.Errorf("expected status 404 in log line, got %s", buf.String())
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		panic("test panic")
	}

	if err := Recovery(zerolog.New(&buf))(handler)(c); err != nil {
		t.Fatalf("expected panic to be turned into a response, got %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}

	var oo fhir.OperationOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &oo); err != nil {
		t.Fatalf("expected OperationOutcome body: %v", err)
	}
	if len(oo.Issue) != 1 || oo.Issue[0].Code != fhir.IssueTypeException {
		t.Errorf("unexpected outcome %s", rec.Body.String())
	}
	if !strings.Contains(buf.String(), "test panic") {
		t.Errorf("expected panic value in log, got %s", buf.String())
	}
}

func TestRecovery_CommittedResponse(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	handler := func(c echo.Context) error {
		c.Response().WriteHeader(http.StatusOK)
		panic("late panic")
	}

	err := Recovery(zerolog.Nop())(handler)(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusInternalServerError {
		t.Errorf("expected a 500 HTTPError, got %v", err)
	}
}

func TestRecovery_NoPanic(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	handler := func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}

	if err := Recovery(zerolog.Nop())(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
