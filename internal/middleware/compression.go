package middleware

import (
	"bufio"
	"compress/gzip"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"sync"

	"media-filter/internal/logging"
)

// CompressionConfig controls which responses are gzipped.
type CompressionConfig struct {
	// MinSize is the smallest body in bytes worth compressing.
	MinSize int
	// Level is a compress/gzip level.
	Level int
	// CompressibleTypes lists media types eligible for compression.
	CompressibleTypes []string
}

// DefaultCompressionConfig compresses API and text responses of 1KB or more.
// Previews, exports and raw assets are already compressed formats.
func DefaultCompressionConfig() CompressionConfig {
	return CompressionConfig{
		MinSize: 1024,
		Level:   gzip.DefaultCompression,
		CompressibleTypes: []string{
			"application/json",
			"text/plain",
			"text/html",
			"text/css",
			"text/javascript",
			"application/javascript",
			"image/svg+xml",
		},
	}
}

var (
	gzipPoolsMu sync.Mutex
	gzipPools   = map[int]*sync.Pool{}
)

// gzipPool returns the shared writer pool for a compression level.
func gzipPool(level int) *sync.Pool {
	gzipPoolsMu.Lock()
	defer gzipPoolsMu.Unlock()

	if p, ok := gzipPools[level]; ok {
		return p
	}
	p := &sync.Pool{New: func() interface{} {
		w, err := gzip.NewWriterLevel(io.Discard, level)
		if err != nil {
			w = gzip.NewWriter(io.Discard)
		}
		return w
	}}
	gzipPools[level] = p
	return p
}

// gzipResponseWriter holds back the first MinSize bytes so the compression
// decision can look at both size and headers.
type gzipResponseWriter struct {
	http.ResponseWriter
	config  CompressionConfig
	pool    *sync.Pool
	gz      *gzip.Writer
	pending []byte
	status  int
	decided bool
}

func newGzipResponseWriter(w http.ResponseWriter, config CompressionConfig) *gzipResponseWriter {
	return &gzipResponseWriter{
		ResponseWriter: w,
		config:         config,
		pool:           gzipPool(config.Level),
		pending:        make([]byte, 0, config.MinSize+1),
		status:         http.StatusOK,
	}
}

func (g *gzipResponseWriter) WriteHeader(status int) {
	if !g.decided {
		g.status = status
	}
}

func (g *gzipResponseWriter) Write(data []byte) (int, error) {
	if g.decided {
		if g.gz != nil {
			return g.gz.Write(data)
		}
		return g.ResponseWriter.Write(data)
	}

	g.pending = append(g.pending, data...)
	if len(g.pending) > g.config.MinSize {
		g.decide()
	}
	return len(data), nil
}

func (g *gzipResponseWriter) compressible() bool {
	h := g.Header()
	if h.Get("Content-Encoding") != "" {
		return false
	}
	if strings.HasPrefix(h.Get("Content-Disposition"), "attachment") {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	if err != nil {
		return false
	}
	for _, t := range g.config.CompressibleTypes {
		if mediaType == t {
			return true
		}
	}
	return false
}

// decide fixes the encoding and flushes everything held back so far.
func (g *gzipResponseWriter) decide() {
	if g.decided {
		return
	}
	g.decided = true

	body := g.pending
	g.pending = nil

	if len(body) < g.config.MinSize || !g.compressible() {
		g.ResponseWriter.WriteHeader(g.status)
		if _, err := g.ResponseWriter.Write(body); err != nil {
			logging.Debug("response write failed: %v", err)
		}
		return
	}

	h := g.Header()
	h.Del("Content-Length")
	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")

	g.gz = g.pool.Get().(*gzip.Writer)
	g.gz.Reset(g.ResponseWriter)
	g.ResponseWriter.WriteHeader(g.status)
	if _, err := g.gz.Write(body); err != nil {
		logging.Debug("gzip write failed: %v", err)
	}
}

// Close flushes any held back body and returns the gzip writer to its pool.
func (g *gzipResponseWriter) Close() error {
	g.decide()
	if g.gz == nil {
		return nil
	}
	err := g.gz.Close()
	g.pool.Put(g.gz)
	g.gz = nil
	return err
}

func (g *gzipResponseWriter) Flush() {
	g.decide()
	if g.gz != nil {
		if err := g.gz.Flush(); err != nil {
			logging.Debug("gzip flush failed: %v", err)
		}
	}
	if f, ok := g.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack passes the connection through. Compression never wraps upgrade
// requests, so nothing is held back.
func (g *gzipResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	g.decided = true
	return hijack(g.ResponseWriter)
}

// Compression gzips eligible responses for clients that accept it. WebSocket
// upgrades and byte-range requests pass through untouched.
func Compression(config CompressionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") ||
				r.Header.Get("Upgrade") != "" ||
				r.Header.Get("Range") != "" {
				next.ServeHTTP(w, r)
				return
			}

			gzw := newGzipResponseWriter(w, config)
			defer func() {
				if err := gzw.Close(); err != nil {
					logging.Debug("gzip close failed: %v", err)
				}
			}()
			next.ServeHTTP(gzw, r)
		})
	}
}
