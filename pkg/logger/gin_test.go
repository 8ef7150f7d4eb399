package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMiddleware_LogsAuthenticatedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/v1/meetings", func(c *gin.Context) {
		c.Set("user_id", "u1")
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/meetings", nil)
	req.Header.Set(headerRequestID, "rid-1")
	r.ServeHTTP(w, req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if line["user_id"] != "u1" {
		t.Fatalf("user_id = %v, want u1", line["user_id"])
	}
	if line["request_id"] != "rid-1" {
		t.Fatalf("request_id = %v", line["request_id"])
	}
	if w.Header().Get(headerRequestID) != "rid-1" {
		t.Fatalf("response request id = %q", w.Header().Get(headerRequestID))
	}
}

func TestMiddleware_OmitsUserWhenAnonymous(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if _, ok := line["user_id"]; ok {
		t.Fatal("anonymous request should not carry user_id")
	}
	if line["request_id"] == "" {
		t.Fatal("request_id should be generated when absent")
	}
}
