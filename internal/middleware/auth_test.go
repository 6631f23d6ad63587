package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/ukydev/fleet-replay/internal/auth"
	"github.com/ukydev/fleet-replay/internal/models"
	"github.com/zoobzio/clockz"
)

func TestAuthMiddleware_Authenticate(t *testing.T) {
	authService := auth.NewService("test-secret", time.Hour)
	middleware := NewAuthMiddleware(authService)

	t.Run("valid token", func(t *testing.T) {
		operator := &models.Operator{Username: "dispatch", Role: models.RoleOperator}
		token, _ := authService.GenerateToken(operator)

		req := httptest.NewRequest("GET", "/api/simulation", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
			claims, ok := GetClaimsFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, operator.Username, claims.Username)
			assert.Equal(t, operator.Role, claims.Role)
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing authorization header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/simulation", nil)
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/simulation", nil)
		req.Header.Set("Authorization", "Token abc")
		w := httptest.NewRecorder()

		middleware.Authenticate(http.NotFoundHandler()).ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/simulation", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		middleware.Authenticate(handler).ServeHTTP(w, req)
		assert.False(t, handlerCalled)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("skip auth path", func(t *testing.T) {
		for _, path := range []string{"/api/auth/login", "/health"} {
			req := httptest.NewRequest("GET", path, nil)
			w := httptest.NewRecorder()

			handlerCalled := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				handlerCalled = true
			})

			middleware.Authenticate(handler).ServeHTTP(w, req)
			assert.True(t, handlerCalled, path)
		}
	})
}

func TestAuthMiddleware_RequirePermission(t *testing.T) {
	middleware := NewAuthMiddleware(auth.NewService("test-secret", time.Hour))

	tests := []struct {
		name   string
		claims *models.Claims
		action string
		want   int
	}{
		{"operator controls playback", &models.Claims{Username: "a", Role: models.RoleOperator}, models.ActionControlPlayback, http.StatusOK},
		{"operator views metrics", &models.Claims{Username: "a", Role: models.RoleOperator}, models.ActionViewMetrics, http.StatusOK},
		{"viewer views metrics", &models.Claims{Username: "b", Role: models.RoleViewer}, models.ActionViewMetrics, http.StatusOK},
		{"viewer cannot control playback", &models.Claims{Username: "b", Role: models.RoleViewer}, models.ActionControlPlayback, http.StatusForbidden},
		{"no claims", nil, models.ActionViewMetrics, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/simulation/play", nil)
			if tt.claims != nil {
				req = req.WithContext(context.WithValue(req.Context(), ClaimsContextKey, tt.claims))
			}
			w := httptest.NewRecorder()

			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})
			middleware.RequirePermission(tt.action)(handler).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("rate limit not exceeded", func(t *testing.T) {
		middleware := NewRateLimitMiddleware()
		req := httptest.NewRequest("GET", "/api/auth/login", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()

		handlerCalled := false
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handlerCalled = true
		})

		middleware.RateLimit(5, time.Minute)(handler).ServeHTTP(w, req)
		assert.True(t, handlerCalled)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rate limit exceeded then window passes", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		middleware := NewRateLimitMiddleware().WithClock(clock)
		req := httptest.NewRequest("GET", "/api/auth/login", nil)
		req.RemoteAddr = "192.168.1.2:12345"

		calls := 0
		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		})
		limited := middleware.RateLimit(1, time.Minute)(handler)

		w := httptest.NewRecorder()
		limited.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)

		w = httptest.NewRecorder()
		limited.ServeHTTP(w, req)
		assert.Equal(t, http.StatusTooManyRequests, w.Code)

		other := httptest.NewRequest("GET", "/api/auth/login", nil)
		other.RemoteAddr = "192.168.1.3:12345"
		w = httptest.NewRecorder()
		limited.ServeHTTP(w, other)
		assert.Equal(t, http.StatusOK, w.Code, "limits are per client")

		clock.Advance(2 * time.Minute)
		w = httptest.NewRecorder()
		limited.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 3, calls)
	})
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "10.0.0.3, 10.0.0.4")
	assert.Equal(t, "10.0.0.3", getClientIP(req))
}

func TestGetClaimsFromContext(t *testing.T) {
	claims := &models.Claims{Username: "dispatch", Role: models.RoleOperator}

	ctx := context.WithValue(context.Background(), ClaimsContextKey, claims)
	retrieved, ok := GetClaimsFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, claims, retrieved)

	_, ok = GetClaimsFromContext(context.Background())
	assert.False(t, ok)
}
