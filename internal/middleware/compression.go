package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// CompressionConfig holds configuration for response compression
type CompressionConfig struct {
	Level         int      // gzip level, gzip.DefaultCompression through gzip.BestCompression
	ExcludedPaths []string // path prefixes served uncompressed
}

// DefaultCompressionConfig leaves /metrics to promhttp, which negotiates its
// own encoding, and the profiler alone.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		Level:         gzip.DefaultCompression,
		ExcludedPaths: []string{"/metrics", "/debug/pprof"},
	}
}

// CompressionMiddleware gzips responses for clients that accept it
type CompressionMiddleware struct {
	config CompressionConfig
	pool   sync.Pool
}

// NewCompressionMiddleware creates a new compression middleware. An invalid
// level falls back to the default.
func NewCompressionMiddleware(config CompressionConfig) *CompressionMiddleware {
	if config.Level < gzip.HuffmanOnly || config.Level > gzip.BestCompression {
		config.Level = gzip.DefaultCompression
	}

	cm := &CompressionMiddleware{config: config}
	cm.pool.New = func() interface{} {
		gz, _ := gzip.NewWriterLevel(io.Discard, cm.config.Level)
		return gz
	}
	return cm
}

// Handler wraps the response writer for the rest of the chain. When the chain
// writes nothing, the encoding headers are withdrawn so an outer handler can
// still answer uncompressed.
func (cm *CompressionMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cm.shouldCompress(c.Request) {
			c.Next()
			return
		}

		gz := cm.pool.Get().(*gzip.Writer)
		original := c.Writer
		gz.Reset(original)

		c.Header("Content-Encoding", "gzip")
		c.Header("Vary", "Accept-Encoding")
		c.Writer = &gzipWriter{ResponseWriter: original, writer: gz}

		defer func() {
			if original.Size() < 0 {
				gz.Reset(io.Discard)
				original.Header().Del("Content-Encoding")
				original.Header().Del("Vary")
			}
			_ = gz.Close()
			cm.pool.Put(gz)
			c.Writer = original
		}()

		c.Next()
	}
}

func (cm *CompressionMiddleware) shouldCompress(r *http.Request) bool {
	if r.Method == http.MethodHead || r.Header.Get("Upgrade") != "" {
		return false
	}
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		return false
	}
	for _, prefix := range cm.config.ExcludedPaths {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return false
		}
	}
	return true
}

type gzipWriter struct {
	gin.ResponseWriter
	writer *gzip.Writer
}

func (g *gzipWriter) Write(data []byte) (int, error) {
	g.Header().Del("Content-Length")
	return g.writer.Write(data)
}

func (g *gzipWriter) WriteString(s string) (int, error) {
	return g.Write([]byte(s))
}

func (g *gzipWriter) WriteHeader(code int) {
	g.Header().Del("Content-Length")
	g.ResponseWriter.WriteHeader(code)
}

func (g *gzipWriter) Flush() {
	_ = g.writer.Flush()
	g.ResponseWriter.Flush()
}
