package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/socialbbs/config"
	"github.com/cppla/socialbbs/utils"
)

func TestMain(m *testing.M) {
	// no Redis host: revocation and limits stay in process
	config.Set(config.AppConfig{})
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newAuthEngine(tokens *utils.TokenManager) *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(tokens), func(ctx *gin.Context) {
		actor, ok := CurrentActor(ctx)
		if !ok {
			ctx.Status(http.StatusInternalServerError)
			return
		}
		utils.Success(ctx, gin.H{"id": actor.UserID, "role": actor.Role})
	})
	return r
}

func doGet(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	r := newAuthEngine(tokens)

	token, _, err := tokens.Issue(42, "alice", "admin")
	require.NoError(t, err)

	w := doGet(r, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":42`)
	assert.Contains(t, w.Body.String(), `"role":"admin"`)

	for name, header := range map[string]string{
		"missing":      "",
		"wrong scheme": "Basic " + token,
		"empty token":  "Bearer ",
		"garbage":      "Bearer not-a-jwt",
	} {
		t.Run(name, func(t *testing.T) {
			w := doGet(r, "/me", header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthRequired_RevokedToken(t *testing.T) {
	tokens := utils.NewTokenManager("secret", time.Hour)
	r := newAuthEngine(tokens)

	token, expiresAt, err := tokens.Issue(1, "bob", "user")
	require.NoError(t, err)
	utils.BlacklistToken(token, expiresAt)

	w := doGet(r, "/me", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "40104")
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/ping", RateLimit(2), func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, doGet(r, "/ping", "").Code)
	w := doGet(r, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "42901")
}

func TestRateLimit_SeparateInstancesDoNotShareBuckets(t *testing.T) {
	r := gin.New()
	r.GET("/a", RateLimit(2), func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })
	r.GET("/b", RateLimit(2), func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })

	assert.Equal(t, http.StatusNoContent, doGet(r, "/a", "").Code)
	assert.Equal(t, http.StatusNoContent, doGet(r, "/b", "").Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(utils.Logger))
	r.GET("/boom", func(ctx *gin.Context) { panic("boom") })

	w := doGet(r, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "50000")
}
