package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
)

var gzipWriters = sync.Pool{
	New: func() any {
		gz, _ := gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
		return gz
	},
}

// Compression gzips response bodies for clients that accept it
func Compression(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || !acceptsGzip(r) {
			next.ServeHTTP(w, r)
			return
		}

		gz := gzipWriters.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			gz.Close()
			gzipWriters.Put(gz)
		}()

		h := w.Header()
		h.Set("Content-Encoding", "gzip")
		h.Add("Vary", "Accept-Encoding")
		h.Del("Content-Length")

		next.ServeHTTP(&gzipWriter{ResponseWriter: w, gz: gz}, r)
	})
}

func acceptsGzip(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if name == "gzip" {
			return true
		}
	}
	return false
}

type gzipWriter struct {
	http.ResponseWriter
	gz *gzip.Writer
}

func (w *gzipWriter) Write(b []byte) (int, error) {
	return w.gz.Write(b)
}

// ETag tags successful GET responses with a body hash and answers matching
// If-None-Match requests with 304.
func ETag(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			next.ServeHTTP(w, r)
			return
		}

		buf := &bufferedResponse{header: w.Header(), statusCode: http.StatusOK, body: &bytes.Buffer{}}
		next.ServeHTTP(buf, r)

		if buf.statusCode == http.StatusOK {
			sum := sha256.Sum256(buf.body.Bytes())
			tag := `"` + hex.EncodeToString(sum[:16]) + `"`
			w.Header().Set("ETag", tag)
			if etagMatches(r.Header.Get("If-None-Match"), tag) {
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}

		w.WriteHeader(buf.statusCode)
		w.Write(buf.body.Bytes())
	})
}

func etagMatches(header, tag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == tag || candidate == "*" {
			return true
		}
	}
	return false
}

// CacheControl middleware adds cache headers based on path patterns
func CacheControl(maxAgeSeconds int) func(http.Handler) http.Handler {
	public := fmt.Sprintf("public, max-age=%d, must-revalidate", maxAgeSeconds)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path

			switch {
			case maxAgeSeconds > 0 && (path == "/api/search" || strings.HasPrefix(path, "/api/facets/")):
				w.Header().Set("Cache-Control", public)
			default:
				// Default: no cache for dynamic content
				w.Header().Set("Cache-Control", "private, no-cache, must-revalidate")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ResponseOptimization combines compression, ETag, and cache control
func ResponseOptimization(maxAgeSeconds int) func(http.Handler) http.Handler {
	cacheControl := CacheControl(maxAgeSeconds)
	return func(next http.Handler) http.Handler {
		// Chain middleware in order: CacheControl -> ETag -> Compression
		return cacheControl(ETag(Compression(next)))
	}
}
