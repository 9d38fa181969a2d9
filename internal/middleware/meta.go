package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stms-api/pkg/middleware/requestid"
)

const (
	metaContextKey = "report_meta"

	metaCacheHit       = "cache_hit"
	metaProcessingTime = "processing_time_ms"
	metaRequestID      = "request_id"
)

// WithResponseMeta attaches a metadata map to every report request. Handlers
// fill it through SetCacheHit and it is echoed in the response envelope.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := map[string]interface{}{}
		if id := requestid.Value(c); id != "" {
			meta[metaRequestID] = id
		}
		c.Set(metaContextKey, meta)
		start := time.Now()
		c.Next()
		if _, ok := meta[metaProcessingTime]; !ok {
			meta[metaProcessingTime] = time.Since(start).Milliseconds()
		}
	}
}

// SetCacheHit marks whether the report was served from the snapshot cache.
func SetCacheHit(c *gin.Context, hit bool) {
	metaFor(c)[metaCacheHit] = hit
}

// ExtractMeta returns the request's metadata map, or nil outside WithResponseMeta.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	meta, _ := c.Value(metaContextKey).(map[string]interface{})
	return meta
}

func metaFor(c *gin.Context) map[string]interface{} {
	if meta := ExtractMeta(c); meta != nil {
		return meta
	}
	meta := map[string]interface{}{}
	if c != nil {
		c.Set(metaContextKey, meta)
	}
	return meta
}
