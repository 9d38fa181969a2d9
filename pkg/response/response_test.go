package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/stms-api/pkg/errors"
	"github.com/noah-isme/stms-api/pkg/middleware/requestid"
)

func perform(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware())
	r.GET("/", handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestid.Header, "req-7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	body := map[string]json.RawMessage{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestJSONOmitsEmptyMeta(t *testing.T) {
	w, body := perform(t, func(c *gin.Context) {
		JSON(c, http.StatusOK, gin.H{"ok": true}, map[string]interface{}{})
	})

	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, body, "data")
	assert.NotContains(t, body, "meta")
}

func TestErrorHidesInternalDetailsAndEchoesRequestID(t *testing.T) {
	w, body := perform(t, func(c *gin.Context) {
		Error(c, errors.New("pq: relation \"tasks\" does not exist"))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, string(body["error"]), "relation")
	assert.JSONEq(t, `{"request_id":"req-7"}`, string(body["meta"]))
}

func TestErrorUsesAppStatus(t *testing.T) {
	w, body := perform(t, func(c *gin.Context) {
		Error(c, appErrors.Clone(appErrors.ErrExportExpired, ""))
	})

	assert.Equal(t, http.StatusGone, w.Code)
	assert.Contains(t, string(body["error"]), "EXPORT_EXPIRED")
}
