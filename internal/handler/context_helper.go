package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stms-api/internal/middleware"
	"github.com/noah-isme/stms-api/internal/models"
	"github.com/noah-isme/stms-api/internal/service"
	"github.com/noah-isme/stms-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, _ := middleware.CurrentClaims(c)
	return claims
}

// reportQuery derives the report scope from the caller's claims and the
// classId/scope query parameters.
func reportQuery(c *gin.Context, claims *models.JWTClaims) service.ReportQuery {
	return service.ReportQuery{
		ViewerID:   claims.UserID,
		ViewerRole: claims.Role,
		ClassID:    strings.TrimSpace(c.Query("classId")),
		AllClasses: strings.EqualFold(strings.TrimSpace(c.Query("scope")), "all"),
	}
}

func respondWithMeta(c *gin.Context, start time.Time, data interface{}, cacheHit bool) {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, data, meta)
}
