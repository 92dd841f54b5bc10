package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uc-package/swimctl/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestIssueAndValidateToken(t *testing.T) {
	token, err := IssueToken("secret", "ops@example.com", true, time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", claims.Subject)
	assert.True(t, claims.AllowDelete)
	assert.Equal(t, Issuer, claims.Issuer)

	_, err = ValidateToken(token, "other-secret")
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	expired, err := IssueToken("secret", "ops", false, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(expired, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	_, err = IssueToken("", "ops", false, time.Hour)
	assert.Error(t, err)
}

func TestValidateTokenRejectsForeignIssuer(t *testing.T) {
	claims := APIClaims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else", Subject: "x"}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret")
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
}

func newRouter(config *models.ServerConfig) *gin.Engine {
	r := gin.New()
	r.GET("/whoami", AuthMiddleware(config), func(c *gin.Context) {
		subject, _ := GetSubject(c)
		c.JSON(http.StatusOK, gin.H{"subject": subject, "allowDelete": CanDelete(c)})
	})
	return r
}

func call(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("no auth configured", func(t *testing.T) {
		w := call(newRouter(&models.ServerConfig{}), "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"subject":"anonymous","allowDelete":true}`, w.Body.String())
	})

	config := &models.ServerConfig{JWTSecret: "secret", APIKeys: []string{"key-1"}}
	r := newRouter(config)

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(r, "").Code)
		assert.Equal(t, http.StatusUnauthorized, call(r, "Basic abc").Code)
	})

	t.Run("api key", func(t *testing.T) {
		w := call(r, "Bearer key-1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"subject":"apikey","allowDelete":true}`, w.Body.String())
	})

	t.Run("read-only token", func(t *testing.T) {
		token, err := IssueToken("secret", "viewer", false, time.Hour)
		require.NoError(t, err)

		w := call(r, "Bearer "+token)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"subject":"viewer","allowDelete":false}`, w.Body.String())
	})

	t.Run("invalid credential", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, call(r, "Bearer nope").Code)
	})
}
