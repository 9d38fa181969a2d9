package handler

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stms-api/internal/dto"
	"github.com/noah-isme/stms-api/internal/service"
	appErrors "github.com/noah-isme/stms-api/pkg/errors"
	"github.com/noah-isme/stms-api/pkg/response"
)

type exportService interface {
	Render(ctx context.Context, req service.ExportRequest) (*service.ExportFile, error)
	Generate(ctx context.Context, req service.ExportRequest) (*dto.ExportLinkResponse, error)
	Open(token string) (*service.ExportFile, error)
}

// ExportHandler serves gradebook exports.
type ExportHandler struct {
	exports exportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports exportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Download the gradebook
// @Tags Exports
// @Produce text/csv,application/pdf
// @Param format query string false "csv (default) or pdf"
// @Param classId query string false "Class ID"
// @Param scope query string false "Set to all for the school wide view"
// @Success 200 {file} file
// @Router /exports/gradebook [get]
func (h *ExportHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	format := c.DefaultQuery("format", service.ExportFormatCSV)
	file, err := h.exports.Render(c.Request.Context(), service.ExportRequest{Query: reportQuery(c, claims), Format: format})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Generate godoc
// @Summary Store a gradebook export behind a signed URL
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export request"
// @Success 201 {object} response.Envelope
// @Router /exports/gradebook [post]
func (h *ExportHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	if req.Format == "" {
		req.Format = service.ExportFormatCSV
	}
	q := reportQuery(c, claims)
	if req.ClassID != "" {
		q.ClassID = strings.TrimSpace(req.ClassID)
	}
	if strings.EqualFold(req.Scope, "all") {
		q.AllClasses = true
	}
	link, err := h.exports.Generate(c.Request.Context(), service.ExportRequest{Query: q, Format: req.Format})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// Fetch godoc
// @Summary Download a stored export
// @Tags Exports
// @Produce text/csv,application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Failure 410 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Fetch(c *gin.Context) {
	token := strings.TrimSpace(c.Param("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "export not found"))
		return
	}
	file, err := h.exports.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
