package cmd

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResumeSection-backend/internal/platform/auth"
	"ResumeSection-backend/internal/platform/config"
	"ResumeSection-backend/internal/platform/db/dbtest"
	"ResumeSection-backend/internal/reports"
)

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSPAHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.NoRoute(spaHandler(fstest.MapFS{
		"index.html":    {Data: []byte("<html>app</html>")},
		"assets/app.js": {Data: []byte("console.log(1)")},
	}))

	w := get(r, "/assets/app.js")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Cache-Control"), "immutable")

	w = get(r, "/reports/123")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "app")
	assert.Empty(t, w.Header().Get("Cache-Control"))

	w = get(r, "/api/v1/unknown")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestRequestTimeout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestTimeout(50 * time.Millisecond))
	r.GET("/", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.JSON(http.StatusOK, gin.H{"deadline": ok})
	})
	w := get(r, "/")
	assert.JSONEq(t, `{"deadline":true}`, w.Body.String())
}

func TestNewRouter(t *testing.T) {
	conn := dbtest.Open(t)
	cfg, err := config.Parse([]byte("auth:\n  jwt_secret: s\ndatabase:\n  driver: sqlite\n"))
	require.NoError(t, err)

	rs := reports.NewService(conn, reports.Options{WeekStart: time.Monday, Logger: zerolog.Nop()})
	as := auth.NewService(conn, auth.Options{Secret: []byte("s"), References: rs.Store(), Logger: zerolog.Nop()})
	r := newRouter(cfg, zerolog.Nop(), as, rs)

	assert.Equal(t, http.StatusOK, get(r, "/healthz").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/v1/reports").Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/api/v1/export").Code)
}
