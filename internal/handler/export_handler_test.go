package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/stms-api/internal/dto"
	"github.com/noah-isme/stms-api/internal/models"
	"github.com/noah-isme/stms-api/internal/service"
	appErrors "github.com/noah-isme/stms-api/pkg/errors"
)

type fakeExportSrv struct {
	file    *service.ExportFile
	link    *dto.ExportLinkResponse
	err     error
	lastReq service.ExportRequest
	token   string
}

func (f *fakeExportSrv) Render(_ context.Context, req service.ExportRequest) (*service.ExportFile, error) {
	f.lastReq = req
	return f.file, f.err
}

func (f *fakeExportSrv) Generate(_ context.Context, req service.ExportRequest) (*dto.ExportLinkResponse, error) {
	f.lastReq = req
	return f.link, f.err
}

func (f *fakeExportSrv) Open(token string) (*service.ExportFile, error) {
	f.token = token
	return f.file, f.err
}

func csvFile() *service.ExportFile {
	return &service.ExportFile{
		Filename:    "rekap_nilai_stms_2025-03-10.csv",
		ContentType: "text/csv; charset=utf-8",
		Body:        []byte("Name,Class\nAhmad,XI IPA 1\n"),
	}
}

func TestExportHandlerDownloadDefaultsToCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeExportSrv{file: csvFile()}
	handler := NewExportHandler(srv)

	c, w := newGinContext(http.MethodGet, "/exports/gradebook?classId=c1", nil)
	withClaims(c, "t1", models.RoleTeacher)
	handler.Download(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", srv.lastReq.Format)
	assert.Equal(t, "c1", srv.lastReq.Query.ClassID)
	assert.Equal(t, "attachment; filename=rekap_nilai_stms_2025-03-10.csv", w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Name,Class\nAhmad,XI IPA 1\n", w.Body.String())
}

func TestExportHandlerGenerateReturnsLink(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeExportSrv{link: &dto.ExportLinkResponse{ID: "e1", Format: "pdf", URL: "/api/v1/exports/tok", ExpiresAt: time.Now().Add(time.Hour)}}
	handler := NewExportHandler(srv)

	payload, _ := json.Marshal(dto.ExportRequest{Format: "pdf", ClassID: "c2", Scope: "all"})
	c, w := newGinContext(http.MethodPost, "/exports/gradebook", payload)
	withClaims(c, "t1", models.RoleTeacher)
	handler.Generate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "pdf", srv.lastReq.Format)
	assert.Equal(t, "c2", srv.lastReq.Query.ClassID)
	assert.True(t, srv.lastReq.Query.AllClasses)
	assert.Contains(t, w.Body.String(), "/api/v1/exports/tok")
}

func TestExportHandlerGenerateAcceptsEmptyBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeExportSrv{link: &dto.ExportLinkResponse{ID: "e1"}}
	handler := NewExportHandler(srv)

	c, w := newGinContext(http.MethodPost, "/exports/gradebook", nil)
	withClaims(c, "t1", models.RoleTeacher)
	handler.Generate(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "csv", srv.lastReq.Format)
}

func TestExportHandlerFetchExpired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeExportSrv{err: appErrors.ErrExportExpired}
	handler := NewExportHandler(srv)

	c, w := newGinContext(http.MethodGet, "/exports/tok", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}
	handler.Fetch(c)

	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "tok", srv.token)
}

func TestExportHandlerFetchStreamsFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeExportSrv{file: csvFile()}
	handler := NewExportHandler(srv)

	c, w := newGinContext(http.MethodGet, "/exports/tok", nil)
	c.Params = gin.Params{{Key: "token", Value: "tok"}}
	handler.Fetch(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "rekap_nilai_stms_2025-03-10.csv")
}
