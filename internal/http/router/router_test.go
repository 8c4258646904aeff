package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apphttp "leadtracker_backend/internal/http"
	"leadtracker_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "router-secret"

type testConfig struct{ allowAll bool }

func (testConfig) GetHTTPAddr() string        { return ":0" }
func (c testConfig) GetCORSAllowAll() bool    { return c.allowAll }
func (testConfig) GetCORSOrigins() []string   { return []string{"http://localhost:5173"} }
func (c testConfig) GetCORSAllowCreds() bool  { return !c.allowAll }
func (testConfig) GetJWTAccessSecret() string { return testSecret }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/whoami", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ctx.Admin.GET("/secret", func(c *gin.Context) { c.Status(http.StatusNoContent) })
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(health apphttp.HealthChecker) *gin.Engine {
	return New(&apphttp.App{
		Config:  testConfig{},
		Logger:  logger.Discard(),
		Health:  health,
		Modules: []apphttp.Module{echoModule{}},
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
	})
}

func token(t *testing.T, roles ...string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   uuid.NewString(),
		"name":  "范秋菊",
		"roles": roles,
		"type":  "access",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func get(engine *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	assert.Equal(t, http.StatusOK, get(newEngine(pinger{}), "/api/health", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, get(newEngine(pinger{err: errors.New("down")}), "/api/health", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(newEngine(pinger{}), "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "# metrics")
}

func TestGroupsEnforceAuthAndRole(t *testing.T) {
	engine := newEngine(pinger{})
	rep := token(t, "representative")
	admin := token(t, "admin")

	assert.Equal(t, http.StatusUnauthorized, get(engine, "/api/v1/whoami", "").Code)
	assert.Equal(t, http.StatusNoContent, get(engine, "/api/v1/whoami", rep).Code)
	assert.Equal(t, http.StatusForbidden, get(engine, "/api/v1/admin/secret", rep).Code)
	assert.Equal(t, http.StatusNoContent, get(engine, "/api/v1/admin/secret", admin).Code)
}

func TestCORSConfig(t *testing.T) {
	c := corsConfig(testConfig{})
	assert.Equal(t, []string{"http://localhost:5173"}, c.AllowOrigins)
	assert.True(t, c.AllowCredentials)

	c = corsConfig(testConfig{allowAll: true})
	assert.True(t, c.AllowAllOrigins)
	assert.Empty(t, c.AllowOrigins)
}
