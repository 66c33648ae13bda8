package router

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type memoryCounter struct {
	hits map[string]int64
	err  error
}

func (m *memoryCounter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	if m.hits == nil {
		m.hits = map[string]int64{}
	}
	m.hits[key]++
	return m.hits[key], window, nil
}

func newRateLimitedEngine(counter WindowCounter, rule RateLimitRule) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimitMiddleware(counter, rule, KeyByIP))
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestKeyByIPAndJSONField(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/promotions/1/use", strings.NewReader(`{"customer_id":42,"order_id":7}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.RemoteAddr = "1.2.3.4:5678"

	key := KeyByIPAndJSONField("customer_id")(c)
	if key != "42|1.2.3.4" {
		t.Fatalf("key want 42|1.2.3.4 got %s", key)
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		t.Fatalf("read body after key extraction failed: %v", err)
	}
	if !strings.Contains(string(body), `"order_id":7`) {
		t.Fatalf("request body should be restored after reading field")
	}
}

func TestKeyByPathParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/customers/9/redeem", nil)
	c.Request.RemoteAddr = "5.6.7.8:1000"
	c.Params = gin.Params{{Key: "id", Value: "9"}}
	if key := KeyByPathParam("id")(c); key != "id:9" {
		t.Fatalf("key want id:9 got %s", key)
	}
	c.Params = nil
	if key := KeyByPathParam("id")(c); key != "5.6.7.8" {
		t.Fatalf("missing param should fall back to ip, got %s", key)
	}
}

func TestRateLimitMiddlewareRejectsOverLimit(t *testing.T) {
	counter := &memoryCounter{}
	r := newRateLimitedEngine(counter, RateLimitRule{Prefix: "ping", WindowSeconds: 30, MaxRequests: 2, Message: "slow down"})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if !strings.Contains(w.Body.String(), `"ok":true`) {
			t.Fatalf("request %d should pass, got %s", i, w.Body.String())
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if !strings.Contains(w.Body.String(), `"status_code":429`) {
		t.Fatalf("third request should be limited, got %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "slow down, retry after 30 seconds") {
		t.Fatalf("unexpected limit message: %s", w.Body.String())
	}
	if w.Header().Get("Retry-After") != "30" {
		t.Fatalf("retry-after want 30 got %q", w.Header().Get("Retry-After"))
	}
	for key := range counter.hits {
		if !strings.HasPrefix(key, "ping:") {
			t.Fatalf("counter key should carry rule prefix, got %s", key)
		}
	}
}

func TestRateLimitMiddlewarePassesWithoutCounter(t *testing.T) {
	cases := []struct {
		name    string
		counter WindowCounter
	}{
		{name: "nil counter", counter: nil},
		{name: "counter error", counter: &memoryCounter{err: errors.New("redis down")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newRateLimitedEngine(tc.counter, RateLimitRule{WindowSeconds: 60, MaxRequests: 1})
			for i := 0; i < 3; i++ {
				w := httptest.NewRecorder()
				r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
				if !strings.Contains(w.Body.String(), `"ok":true`) {
					t.Fatalf("request %d should pass, got %s", i, w.Body.String())
				}
			}
		})
	}
}
