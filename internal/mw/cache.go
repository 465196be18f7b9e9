package mw

import (
	"bytes"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

var requestIDCanonical = http.CanonicalHeaderKey(RequestIDHeader)

type cachedResponse struct {
	status  int
	headers http.Header
	body    []byte
}

type bodyCacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w bodyCacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w bodyCacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache serves repeated GET requests from memory. Entries are keyed by
// key(c) and the request URI, so views scoped to a caller stay private.
// Any successful non-GET request starts a new generation and flushes the
// store. A GET that began before the write stores under the old generation,
// where no later lookup reads it.
func Cache(store *cache.Cache, duration time.Duration, key KeyFunc) gin.HandlerFunc {
	var generation atomic.Uint64
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			if s := c.Writer.Status(); s >= 200 && s < 300 {
				generation.Add(1)
				store.Flush()
			}
			return
		}

		cacheKey := strconv.FormatUint(generation.Load(), 10) + " " + key(c) + " " + c.Request.RequestURI
		if resp, found := store.Get(cacheKey); found {
			cached := resp.(cachedResponse)
			for k, v := range cached.headers {
				if k == requestIDCanonical {
					continue
				}
				c.Writer.Header()[k] = v
			}
			c.Writer.Header().Set("X-Cache", "HIT")
			c.Writer.WriteHeader(cached.status)
			_, _ = c.Writer.Write(cached.body)
			c.Abort()
			return
		}

		blw := &bodyCacheWriter{body: bytes.NewBuffer(nil), ResponseWriter: c.Writer}
		c.Writer = blw

		c.Next()

		// Only cache successful responses
		if blw.Status() >= 200 && blw.Status() < 300 {
			response := cachedResponse{
				status:  blw.Status(),
				headers: blw.Header().Clone(),
				body:    blw.body.Bytes(),
			}
			store.Set(cacheKey, response, duration)
		}
	}
}
