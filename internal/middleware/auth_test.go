package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kidquest_backend/internal/config"
	"kidquest_backend/internal/model"
	"kidquest_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret"

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret}}

	chain := append([]gin.HandlerFunc{AuthMiddleware(cfg)}, handlers...)
	chain = append(chain, func(c *gin.Context) {
		id := util.GetIdentity(c)
		c.JSON(http.StatusOK, gin.H{"userId": id.UserID, "role": id.Role})
	})
	r.GET("/me", chain...)
	return r
}

func token(t *testing.T, userID uint, role model.UserRole, secret string, ttl time.Duration) string {
	t.Helper()
	tok, err := util.GenerateJWT(userID, role, secret, ttl)
	require.NoError(t, err)
	return tok
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{name: "no token", want: http.StatusUnauthorized},
		{name: "bearer header", header: "Bearer " + token(t, 7, model.Child, testSecret, time.Hour), want: http.StatusOK},
		{name: "query token", query: token(t, 7, model.Child, testSecret, time.Hour), want: http.StatusOK},
		{name: "wrong secret", header: "Bearer " + token(t, 7, model.Child, "other-secret", time.Hour), want: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + token(t, 7, model.Child, testSecret, -time.Minute), want: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer not.a.jwt", want: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/me"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRoleMiddleware(t *testing.T) {
	r := newRouter(RoleMiddleware(model.Parent))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 3, model.Parent, testSecret, time.Hour))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"role":"PARENT"`)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, 4, model.Child, testSecret, time.Hour))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
