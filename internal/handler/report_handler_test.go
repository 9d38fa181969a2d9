package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stms-api/internal/dto"
	"github.com/noah-isme/stms-api/internal/middleware"
	"github.com/noah-isme/stms-api/internal/models"
	"github.com/noah-isme/stms-api/internal/reporting"
	"github.com/noah-isme/stms-api/internal/service"
	appErrors "github.com/noah-isme/stms-api/pkg/errors"
)

type fakeReportSrv struct {
	overview   *dto.OverviewReport
	student    *dto.StudentReport
	class      *dto.ClassReport
	gradebook  *reporting.Gradebook
	activity   *dto.ActivityReport
	me         *dto.StudentOverview
	err        error
	hit        bool
	refreshed  bool
	lastQuery  service.ReportQuery
	lastTarget string
	lastLimit  int
}

func (f *fakeReportSrv) Overview(_ context.Context, q service.ReportQuery) (*dto.OverviewReport, bool, error) {
	f.lastQuery = q
	return f.overview, f.hit, f.err
}

func (f *fakeReportSrv) StudentReport(_ context.Context, q service.ReportQuery, studentID string) (*dto.StudentReport, bool, error) {
	f.lastQuery, f.lastTarget = q, studentID
	return f.student, f.hit, f.err
}

func (f *fakeReportSrv) ClassReport(_ context.Context, q service.ReportQuery, classID string) (*dto.ClassReport, bool, error) {
	f.lastQuery, f.lastTarget = q, classID
	return f.class, f.hit, f.err
}

func (f *fakeReportSrv) Gradebook(_ context.Context, q service.ReportQuery) (*reporting.Gradebook, bool, error) {
	f.lastQuery = q
	return f.gradebook, f.hit, f.err
}

func (f *fakeReportSrv) Activity(_ context.Context, q service.ReportQuery, limit int) (*dto.ActivityReport, bool, error) {
	f.lastQuery, f.lastLimit = q, limit
	return f.activity, f.hit, f.err
}

func (f *fakeReportSrv) StudentOverview(_ context.Context, q service.ReportQuery) (*dto.StudentOverview, bool, error) {
	f.lastQuery = q
	return f.me, f.hit, f.err
}

func (f *fakeReportSrv) Refresh(context.Context) error {
	f.refreshed = true
	return f.err
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withClaims(c *gin.Context, id string, role models.UserRole) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: id, Role: role})
}

func TestReportHandlerOverviewRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&fakeReportSrv{})

	c, w := newGinContext(http.MethodGet, "/reports/overview", nil)
	handler.Overview(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandlerOverviewSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeReportSrv{
		overview: &dto.OverviewReport{Scope: "all", Counts: reporting.OverviewCounts{TotalStudents: 3}},
		hit:      true,
	}
	handler := NewReportHandler(srv)

	c, w := newGinContext(http.MethodGet, "/reports/overview?scope=ALL", nil)
	withClaims(c, "t1", models.RoleTeacher)
	handler.Overview(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ReportQuery{ViewerID: "t1", ViewerRole: models.RoleTeacher, AllClasses: true}, srv.lastQuery)

	var body struct {
		Data dto.OverviewReport     `json:"data"`
		Meta map[string]interface{} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Data.Counts.TotalStudents)
	assert.Equal(t, true, body.Meta["cache_hit"])
	assert.Contains(t, body.Meta, "processing_time_ms")
}

func TestReportHandlerStudentReportMapsErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeReportSrv{err: appErrors.ErrForbidden}
	handler := NewReportHandler(srv)

	c, w := newGinContext(http.MethodGet, "/reports/students/s2", nil)
	c.Params = gin.Params{{Key: "id", Value: "s2"}}
	withClaims(c, "s1", models.RoleStudent)
	handler.StudentReport(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "s2", srv.lastTarget)
}

func TestReportHandlerClassReportPassesClassID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeReportSrv{class: &dto.ClassReport{Metrics: reporting.ClassMetrics{ClassID: "c1"}}}
	handler := NewReportHandler(srv)

	c, w := newGinContext(http.MethodGet, "/reports/classes/c1", nil)
	c.Params = gin.Params{{Key: "id", Value: "c1"}}
	withClaims(c, "t1", models.RoleTeacher)
	handler.ClassReport(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", srv.lastTarget)
}

func TestReportHandlerGradebookUsesClassFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	generated := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	srv := &fakeReportSrv{gradebook: &reporting.Gradebook{
		GeneratedAt: generated,
		Columns:     []reporting.GradebookColumn{{TaskID: "k1", Title: "Essay"}},
	}}
	handler := NewReportHandler(srv)

	c, w := newGinContext(http.MethodGet, "/reports/gradebook?classId=c1", nil)
	withClaims(c, "t1", models.RoleTeacher)
	handler.Gradebook(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", srv.lastQuery.ClassID)
	assert.Contains(t, w.Body.String(), `"classId":"c1"`)
	assert.Contains(t, w.Body.String(), `"generatedAt":"2025-03-10T12:00:00Z"`)
}

func TestReportHandlerActivityLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeReportSrv{activity: &dto.ActivityReport{}}
	handler := NewReportHandler(srv)

	c, w := newGinContext(http.MethodGet, "/reports/activity?limit=5", nil)
	withClaims(c, "t1", models.RoleTeacher)
	handler.Activity(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, srv.lastLimit)

	c, w = newGinContext(http.MethodGet, "/reports/activity?limit=many", nil)
	withClaims(c, "t1", models.RoleTeacher)
	handler.Activity(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerMeAndRefresh(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeReportSrv{me: &dto.StudentOverview{StudentID: "s1", TotalTasks: 2}}
	handler := NewReportHandler(srv)

	c, w := newGinContext(http.MethodGet, "/reports/me", nil)
	withClaims(c, "s1", models.RoleStudent)
	handler.Me(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleStudent, srv.lastQuery.ViewerRole)

	router := gin.New()
	router.POST("/reports/refresh", handler.Refresh)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reports/refresh", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, srv.refreshed)
}
