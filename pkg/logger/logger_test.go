package logger

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestMiddleware_PropagatesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))

	var sameLogger bool
	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/x", func(c *gin.Context) {
		sameLogger = From(c.Request.Context()) == FromGin(c)
		c.Status(204)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-Id", "req-42")
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
	if !sameLogger {
		t.Fatalf("expected request logger in request context")
	}
	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Fatalf("expected request_id in log line, got %s", buf.String())
	}
}

func TestFrom_FallsBackToDefault(t *testing.T) {
	if From(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger")
	}
}

func TestNew_FormatAndLevelFollowEnv(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, "production").Debug("hidden")
	newLogger(&buf, "production").Info("shown", "k", 1)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug must be off in production: %s", out)
	}
	if !strings.Contains(out, `"service":"nikahfirst-credits"`) || !strings.Contains(out, `"env":"production"`) {
		t.Fatalf("expected JSON with service and env, got %s", out)
	}

	buf.Reset()
	newLogger(&buf, "local").Debug("visible")
	if !strings.Contains(buf.String(), "msg=visible") || !strings.Contains(buf.String(), "service=nikahfirst-credits") {
		t.Fatalf("expected text debug line, got %s", buf.String())
	}
}
