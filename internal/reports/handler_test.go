package reports_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ResumeSection-backend/internal/platform/auth"
	"ResumeSection-backend/internal/platform/config"
	"ResumeSection-backend/internal/reports"
)

var testSecret = []byte("test-secret")

type apiFixture struct {
	*fixture
	router http.Handler
	tokens *auth.Service
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := newFixture(t, config.ViewerReadOnly)
	r := gin.New()
	reports.RegisterRoutes(r.Group("/api/v1"), f.svc, testSecret)
	return &apiFixture{
		fixture: f,
		router:  r,
		tokens:  auth.NewService(f.conn, auth.Options{Secret: testSecret, Logger: zerolog.Nop()}),
	}
}

func (a *apiFixture) token(t *testing.T, id auth.Identity) string {
	t.Helper()
	tok, _, err := a.tokens.IssueToken(id)
	require.NoError(t, err)
	return tok
}

func (a *apiFixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func TestHandlerSubmitAndRead(t *testing.T) {
	a := newAPIFixture(t)
	sec := a.section(t, "cocody")
	tok := a.token(t, sec)

	w := a.do(http.MethodPost, "/api/v1/reports", tok, gin.H{
		"date": "2024-01-15", "preacher": "Jean", "totalAttendees": "50", "offrande": "15 000,50",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created reports.CreateReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "/reports/"+created.ID, w.Header().Get("Location"))

	w = a.do(http.MethodGet, "/api/v1/reports/"+created.ID, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got reports.ReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "15000.50", got.Offering.String())
	assert.Equal(t, 50, got.TotalAttendees)

	w = a.do(http.MethodGet, "/api/v1/reports?start=2024-01-01&end=2024-01-31", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	w = a.do(http.MethodGet, "/api/v1/weekly-stats?date=2024-01-16", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ws reports.WeeklyStatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ws))
	assert.Equal(t, "15000.50", ws.TotalOffering.String())
	assert.Equal(t, 1, ws.TotalServices)
	assert.Contains(t, w.Body.String(), `"total_offering":15000.50`)
}

func TestHandlerValidationErrors(t *testing.T) {
	a := newAPIFixture(t)
	tok := a.token(t, a.section(t, "s"))

	w := a.do(http.MethodPost, "/api/v1/reports", tok, gin.H{"date": "15/01/2024", "total_attendees": -1})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ARGUMENT")
	assert.Contains(t, w.Body.String(), "preacher")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewBufferString("{not json"))
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = a.do(http.MethodGet, "/api/v1/reports?start=2024-02-01&end=2024-01-01", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/v1/weekly-stats?date=yesterday", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlerAuthAndScope(t *testing.T) {
	a := newAPIFixture(t)
	s1, s2 := a.section(t, "s1"), a.section(t, "s2")
	id := a.submit(t, s1, "2024-01-15", 10, "100")

	w := a.do(http.MethodGet, "/api/v1/reports", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	other := a.token(t, s2)
	w = a.do(http.MethodGet, "/api/v1/reports/"+id, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(http.MethodDelete, "/api/v1/reports/"+id, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = a.do(http.MethodGet, "/api/v1/admin/weekly-stats", other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/api/v1/reports/nope", other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	admin := a.token(t, a.admin)
	w = a.do(http.MethodGet, "/api/v1/admin/weekly-stats?date=2024-01-17", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)

	viewer := a.token(t, auth.Identity{UserID: 500, Username: "v", Role: auth.RoleViewer})
	w = a.do(http.MethodGet, "/api/v1/admin/weekly-stats?date=2024-01-17", viewer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
	w = a.do(http.MethodDelete, "/api/v1/reports/"+id, viewer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, fmt.Sprintf("/api/v1/weekly-stats?date=2024-01-17&section_id=%d", s1.UserID), admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodGet, "/api/v1/summary", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"active_sections":1`)

	w = a.do(http.MethodDelete, "/api/v1/reports/"+id, a.token(t, s1), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = a.do(http.MethodGet, "/api/v1/reports/"+id, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandlerExportDownloads(t *testing.T) {
	a := newAPIFixture(t)
	sec := a.section(t, "s1")
	id := a.submit(t, sec, "2024-01-15", 10, "100")
	tok := a.token(t, sec)

	w := a.do(http.MethodGet, "/api/v1/export?format=csv&include_notes=true", tok, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), fmt.Sprintf("section_%d.csv", sec.UserID))

	// ?token= でも落とせる
	w = a.do(http.MethodGet, "/api/v1/reports/"+id+"/export?token="+tok, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = a.do(http.MethodGet, "/api/v1/export?include_stats=maybe", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/v1/export?format=xml", tok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.do(http.MethodGet, "/api/v1/current-offering", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = a.do(http.MethodGet, "/api/v1/current-offering", tok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
