package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stms-api/internal/dto"
	"github.com/noah-isme/stms-api/internal/reporting"
	"github.com/noah-isme/stms-api/internal/service"
	appErrors "github.com/noah-isme/stms-api/pkg/errors"
	"github.com/noah-isme/stms-api/pkg/response"
)

type reportService interface {
	Overview(ctx context.Context, q service.ReportQuery) (*dto.OverviewReport, bool, error)
	StudentReport(ctx context.Context, q service.ReportQuery, studentID string) (*dto.StudentReport, bool, error)
	ClassReport(ctx context.Context, q service.ReportQuery, classID string) (*dto.ClassReport, bool, error)
	Gradebook(ctx context.Context, q service.ReportQuery) (*reporting.Gradebook, bool, error)
	Activity(ctx context.Context, q service.ReportQuery, limit int) (*dto.ActivityReport, bool, error)
	StudentOverview(ctx context.Context, q service.ReportQuery) (*dto.StudentOverview, bool, error)
	Refresh(ctx context.Context) error
}

// ReportHandler exposes reporting endpoints.
type ReportHandler struct {
	reports reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(reports reportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Overview godoc
// @Summary Teacher dashboard overview
// @Tags Reports
// @Produce json
// @Param scope query string false "Set to all for the school wide view"
// @Success 200 {object} response.Envelope
// @Router /reports/overview [get]
func (h *ReportHandler) Overview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start := time.Now()
	report, cacheHit, err := h.reports.Overview(c.Request.Context(), reportQuery(c, claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, report, cacheHit)
}

// StudentReport godoc
// @Summary Student progress report
// @Tags Reports
// @Produce json
// @Param id path string true "Student ID or UID"
// @Success 200 {object} response.Envelope
// @Router /reports/students/{id} [get]
func (h *ReportHandler) StudentReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start := time.Now()
	report, cacheHit, err := h.reports.StudentReport(c.Request.Context(), reportQuery(c, claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, report, cacheHit)
}

// ClassReport godoc
// @Summary Class progress report
// @Tags Reports
// @Produce json
// @Param id path string true "Class ID"
// @Param scope query string false "Set to all for the school wide view"
// @Success 200 {object} response.Envelope
// @Router /reports/classes/{id} [get]
func (h *ReportHandler) ClassReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start := time.Now()
	report, cacheHit, err := h.reports.ClassReport(c.Request.Context(), reportQuery(c, claims), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, report, cacheHit)
}

// Gradebook godoc
// @Summary Gradebook matrix
// @Tags Reports
// @Produce json
// @Param classId query string false "Class ID"
// @Param scope query string false "Set to all for the school wide view"
// @Success 200 {object} response.Envelope
// @Router /reports/gradebook [get]
func (h *ReportHandler) Gradebook(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start := time.Now()
	q := reportQuery(c, claims)
	book, cacheHit, err := h.reports.Gradebook(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, dto.GradebookReport{GeneratedAt: book.GeneratedAt, ClassID: q.ClassID, Gradebook: *book}, cacheHit)
}

// Activity godoc
// @Summary Activity feed
// @Tags Reports
// @Produce json
// @Param limit query int false "Maximum number of events"
// @Param scope query string false "Set to all for the school wide view"
// @Success 200 {object} response.Envelope
// @Router /reports/activity [get]
func (h *ReportHandler) Activity(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a number"))
			return
		}
		limit = parsed
	}
	start := time.Now()
	report, cacheHit, err := h.reports.Activity(c.Request.Context(), reportQuery(c, claims), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, report, cacheHit)
}

// Me godoc
// @Summary Student personal overview
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/me [get]
func (h *ReportHandler) Me(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	start := time.Now()
	overview, cacheHit, err := h.reports.StudentOverview(c.Request.Context(), reportQuery(c, claims))
	if err != nil {
		response.Error(c, err)
		return
	}
	respondWithMeta(c, start, overview, cacheHit)
}

// Refresh godoc
// @Summary Drop the cached report snapshot
// @Tags Reports
// @Success 204
// @Router /reports/refresh [post]
func (h *ReportHandler) Refresh(c *gin.Context) {
	if err := h.reports.Refresh(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
