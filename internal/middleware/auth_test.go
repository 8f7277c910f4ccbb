package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authTestRouter(auth *AuthMiddleware) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", auth.RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("user_id")})
	})
	return r
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRequireAuthAcceptsIssuedToken(t *testing.T) {
	auth := NewAuthMiddleware("test-secret", quietLogger())
	token, err := auth.IssueToken("3ddf7c0d-c566-4d17-9c05-dbd0fb18c3ac", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	authTestRouter(auth).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "3ddf7c0d-c566-4d17-9c05-dbd0fb18c3ac")
}

func TestRequireAuthRejectsMissingHeader(t *testing.T) {
	auth := NewAuthMiddleware("test-secret", quietLogger())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	authTestRouter(auth).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_AUTH_HEADER")
}

func TestRequireAuthRejectsBadFormat(t *testing.T) {
	auth := NewAuthMiddleware("test-secret", quietLogger())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	authTestRouter(auth).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_AUTH_FORMAT")
}

func TestRequireAuthRejectsWrongSecret(t *testing.T) {
	issuer := NewAuthMiddleware("other-secret", quietLogger())
	token, err := issuer.IssueToken("3ddf7c0d-c566-4d17-9c05-dbd0fb18c3ac", time.Hour)
	require.NoError(t, err)

	auth := NewAuthMiddleware("test-secret", quietLogger())
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	authTestRouter(auth).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestRequireAuthRejectsExpiredToken(t *testing.T) {
	auth := NewAuthMiddleware("test-secret", quietLogger())
	token, err := auth.IssueToken("3ddf7c0d-c566-4d17-9c05-dbd0fb18c3ac", -time.Minute)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	authTestRouter(auth).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
