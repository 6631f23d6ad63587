package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-replay/internal/auth"
	"github.com/ukydev/fleet-replay/internal/db"
	"github.com/ukydev/fleet-replay/internal/models"
)

// MockOperatorCollection is a mock implementation of db.OperatorCollection
type MockOperatorCollection struct {
	mock.Mock
}

func (m *MockOperatorCollection) InsertOperator(ctx context.Context, operator models.Operator) error {
	args := m.Called(ctx, operator)
	return args.Error(0)
}

func (m *MockOperatorCollection) FindOperatorByUsername(ctx context.Context, username string) (*models.Operator, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Operator), args.Error(1)
}

func loginBody(t *testing.T, username, password string) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(models.LoginRequest{Username: username, Password: password})
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestAuthHandler_Login(t *testing.T) {
	authService := auth.NewService("test-secret", time.Hour)
	passwordHash, err := authService.HashPassword("password123")
	require.NoError(t, err)

	t.Run("successful login", func(t *testing.T) {
		operators := new(MockOperatorCollection)
		handler := NewAuthHandler(authService, operators)

		operator := &models.Operator{Username: "dispatch", PasswordHash: passwordHash, Role: models.RoleOperator, IsActive: true}
		operators.On("FindOperatorByUsername", mock.Anything, "dispatch").Return(operator, nil)

		req := httptest.NewRequest("POST", "/api/auth/login", loginBody(t, "dispatch", "password123"))
		w := httptest.NewRecorder()
		handler.Login(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var response models.LoginResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.NotEmpty(t, response.Token)
		assert.Equal(t, "dispatch", response.Operator.Username)
		assert.NotContains(t, w.Body.String(), passwordHash, "hash never leaves the server")

		claims, err := authService.ValidateToken(response.Token)
		require.NoError(t, err)
		assert.Equal(t, models.RoleOperator, claims.Role)
		operators.AssertExpectations(t)
	})

	t.Run("unknown operator", func(t *testing.T) {
		operators := new(MockOperatorCollection)
		handler := NewAuthHandler(authService, operators)
		operators.On("FindOperatorByUsername", mock.Anything, "ghost").Return(nil, db.ErrOperatorNotFound)

		req := httptest.NewRequest("POST", "/api/auth/login", loginBody(t, "ghost", "password123"))
		w := httptest.NewRecorder()
		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		operators.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		operators := new(MockOperatorCollection)
		handler := NewAuthHandler(authService, operators)
		operator := &models.Operator{Username: "dispatch", PasswordHash: passwordHash, Role: models.RoleOperator, IsActive: true}
		operators.On("FindOperatorByUsername", mock.Anything, "dispatch").Return(operator, nil)

		req := httptest.NewRequest("POST", "/api/auth/login", loginBody(t, "dispatch", "wrong"))
		w := httptest.NewRecorder()
		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("inactive operator", func(t *testing.T) {
		operators := new(MockOperatorCollection)
		handler := NewAuthHandler(authService, operators)
		operator := &models.Operator{Username: "dispatch", PasswordHash: passwordHash, IsActive: false}
		operators.On("FindOperatorByUsername", mock.Anything, "dispatch").Return(operator, nil)

		req := httptest.NewRequest("POST", "/api/auth/login", loginBody(t, "dispatch", "password123"))
		w := httptest.NewRecorder()
		handler.Login(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "deactivated")
	})

	t.Run("bad requests", func(t *testing.T) {
		handler := NewAuthHandler(authService, new(MockOperatorCollection))

		for _, body := range []string{"{bad json", `{"username":"dispatch"}`, `{"password":"x"}`} {
			req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewBufferString(body))
			w := httptest.NewRecorder()
			handler.Login(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code, body)
		}
	})
}
