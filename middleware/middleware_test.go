package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"workshophub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAttemptAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/attempt", AttemptAuthMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("attemptID"))
	})

	token, err := utils.GenerateAttemptToken("attempt-1", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := utils.GenerateAttemptToken("attempt-1", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"not bearer", token, http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"garbage", "Bearer abc.def.ghi", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/attempt", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if tt.status == http.StatusOK && w.Body.String() != "attempt-1" {
				t.Fatalf("attempt id = %q", w.Body.String())
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware(2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", ip+", 10.0.0.1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	if do("1.1.1.1") != http.StatusOK || do("1.1.1.1") != http.StatusOK {
		t.Fatal("burst should be allowed")
	}
	if code := do("1.1.1.1"); code != http.StatusTooManyRequests {
		t.Fatalf("third request = %d", code)
	}
	if code := do("2.2.2.2"); code != http.StatusOK {
		t.Fatalf("other client = %d", code)
	}
}

func TestRequestLoggerSetsID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("requestID")) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Body.String() != "req-42" || w.Header().Get(RequestIDHeader) != "req-42" {
		t.Fatalf("request id = %q / %q", w.Body.String(), w.Header().Get(RequestIDHeader))
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Body.String() == "" {
		t.Fatal("a request id should be generated")
	}
}
