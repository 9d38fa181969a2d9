package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/stms-api/internal/dto"
	"github.com/noah-isme/stms-api/internal/reporting"
	appErrors "github.com/noah-isme/stms-api/pkg/errors"
	"github.com/noah-isme/stms-api/pkg/export"
	"github.com/noah-isme/stms-api/pkg/storage"
)

// Supported export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

const gradebookExportTitle = "Rekap Nilai STMS"

var exportContentTypes = map[string]string{
	ExportFormatCSV: "text/csv; charset=utf-8",
	ExportFormatPDF: "application/pdf",
}

type gradebookProvider interface {
	Gradebook(ctx context.Context, q ReportQuery) (*reporting.Gradebook, bool, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
	Delete(name string) error
	CleanupOlderThan(cutoff time.Time) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
}

// ExportRequest asks for a rendered gradebook.
type ExportRequest struct {
	Query  ReportQuery
	Format string `validate:"required,oneof=csv pdf"`
}

// ExportFile is a rendered export ready to be streamed.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders gradebooks and keeps stored exports behind signed URLs.
type ExportService struct {
	reports   gradebookProvider
	storage   fileStorage
	signer    *storage.SignedURLSigner
	csv       csvRenderer
	pdf       pdfRenderer
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	cfg       ExportConfig
}

// ExportServiceParams groups constructor dependencies.
type ExportServiceParams struct {
	Reports   gradebookProvider
	Storage   fileStorage
	Signer    *storage.SignedURLSigner
	CSV       csvRenderer
	PDF       pdfRenderer
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Config    ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(params ExportServiceParams) *ExportService {
	cfg := params.Config
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		reports:   params.Reports,
		storage:   params.Storage,
		signer:    params.Signer,
		csv:       csv,
		pdf:       pdf,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// Render builds the gradebook for the caller and renders it in the requested format.
func (s *ExportService) Render(ctx context.Context, req ExportRequest) (*ExportFile, error) {
	req.Format = strings.ToLower(strings.TrimSpace(req.Format))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid export request")
	}
	book, _, err := s.reports.Gradebook(ctx, req.Query)
	if err != nil {
		return nil, err
	}

	now := s.now()
	dataset := book.Dataset()
	var body []byte
	switch req.Format {
	case ExportFormatCSV:
		body, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		body, err = s.pdf.Render(dataset, fmt.Sprintf("%s %s", gradebookExportTitle, now.UTC().Format("2006-01-02")))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.metrics.RecordExport(req.Format)
	return &ExportFile{
		Filename:    reporting.ExportFilename(now, req.Format),
		ContentType: exportContentTypes[req.Format],
		Body:        body,
	}, nil
}

// Generate renders the export, stores it and returns a signed download link.
func (s *ExportService) Generate(ctx context.Context, req ExportRequest) (*dto.ExportLinkResponse, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "export storage is not configured")
	}
	file, err := s.Render(ctx, req)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	relPath, err := s.storage.Save(path.Join("gradebook", id, file.Filename), file.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store export")
	}
	token, expiresAt, err := s.signer.Generate(id, relPath)
	if err != nil {
		_ = s.storage.Delete(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign export link")
	}
	s.logger.Info("export stored",
		zap.String("export_id", id),
		zap.String("path", relPath),
		zap.String("viewer_id", req.Query.ViewerID),
	)
	return &dto.ExportLinkResponse{
		ID:        id,
		Filename:  file.Filename,
		Format:    strings.ToLower(strings.TrimSpace(req.Format)),
		URL:       fmt.Sprintf("%s/exports/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token),
		ExpiresAt: expiresAt,
	}, nil
}

// Open resolves a signed token to the stored export.
func (s *ExportService) Open(token string) (*ExportFile, error) {
	if s.storage == nil || s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "export not found")
	}
	parsed, err := s.signer.Parse(token, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Wrap(err, appErrors.ErrExportExpired.Code, appErrors.ErrExportExpired.Status, appErrors.ErrExportExpired.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	body, err := s.storage.Read(parsed.Path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "export not found")
	}
	filename := path.Base(parsed.Path)
	contentType := exportContentTypes[strings.TrimPrefix(path.Ext(filename), ".")]
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &ExportFile{Filename: filename, ContentType: contentType, Body: body}, nil
}

// Cleanup removes stored exports whose links have expired.
func (s *ExportService) Cleanup() ([]string, error) {
	if s.storage == nil || s.signer == nil {
		return nil, nil
	}
	removed, err := s.storage.CleanupOlderThan(s.now().Add(-s.signer.TTL()))
	if err != nil {
		return removed, err
	}
	if len(removed) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}
