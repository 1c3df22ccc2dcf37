package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compressionRouter(payload string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cm := NewCompressionMiddleware(DefaultCompressionConfig())

	r := gin.New()
	r.Use(cm.Handler())
	r.GET("/data", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(payload))
	})
	return r
}

func TestCompressionLargeJSONResponse(t *testing.T) {
	payload := `{"rows": "` + strings.Repeat("x", 4096) + `"}`
	r := compressionRouter(payload)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/data", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Less(t, w.Body.Len(), len(payload))

	gz, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	decoded, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Equal(t, payload, string(decoded))
}

func TestCompressionSkipsSmallResponses(t *testing.T) {
	payload := `{"ok": true}`
	r := compressionRouter(payload)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/data", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, payload, w.Body.String())
}

func TestCompressionSkipsClientsWithoutGzip(t *testing.T) {
	payload := `{"rows": "` + strings.Repeat("x", 4096) + `"}`
	r := compressionRouter(payload)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/data", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, payload, w.Body.String())
}

func TestCompressionStats(t *testing.T) {
	cm := NewCompressionMiddleware(DefaultCompressionConfig())

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(cm.Handler())
	r.GET("/data", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(`{"rows": "`+strings.Repeat("x", 4096)+`"}`))
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/data", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	r.ServeHTTP(w, req)

	stats := cm.GetStats()
	assert.Equal(t, int64(1), stats["total_requests"])
	assert.Equal(t, int64(1), stats["compressed_requests"])
	assert.True(t, stats["compression_enabled"].(bool))
}
