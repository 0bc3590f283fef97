package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	responseMetaKey = "response_meta"
	requestStartKey = "request_start"
	cacheHitKey     = "cache_hit"
	processingKey   = "processing_time_ms"
)

// WithResponseMeta stamps the request start so envelopes can report processing time.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Next()
	}
}

// SetCacheHit records whether the payload of this request was served from the setup cache.
func SetCacheHit(c *gin.Context, hit bool) {
	meta := c.GetStringMap(responseMetaKey)
	if meta == nil {
		meta = map[string]interface{}{}
		c.Set(responseMetaKey, meta)
	}
	meta[cacheHitKey] = hit
}

// ExtractMeta returns the metadata recorded for the response, or nil when nothing was recorded.
// Processing time is measured at the moment the envelope is built.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	meta := c.GetStringMap(responseMetaKey)
	if meta == nil {
		return nil
	}
	if started, ok := c.Get(requestStartKey); ok {
		if at, ok := started.(time.Time); ok {
			meta[processingKey] = time.Since(at).Milliseconds()
		}
	}
	return meta
}
