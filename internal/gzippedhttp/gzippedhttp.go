// Package gzippedhttp provides middleware for transparent gzip handling:
// decompressing request bodies sent with Content-Encoding: gzip and
// compressing responses for clients that accept it.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

type compressedReader struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func newCompressedReader(body io.ReadCloser) (*compressedReader, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return &compressedReader{body: body, zr: zr}, nil
}

func (c *compressedReader) Read(p []byte) (int, error) {
	return c.zr.Read(p)
}

func (c *compressedReader) Close() error {
	if err := c.body.Close(); err != nil {
		return err
	}
	return c.zr.Close()
}

type compressedWriter struct {
	w           http.ResponseWriter
	zw          *gzip.Writer
	compress    bool
	wroteHeader bool
}

func newCompressedWriter(w http.ResponseWriter) *compressedWriter {
	zw := gzipWriterPool.Get().(*gzip.Writer)
	zw.Reset(w)
	return &compressedWriter{w: w, zw: zw}
}

func (c *compressedWriter) Header() http.Header {
	return c.w.Header()
}

// WriteHeader decides whether the body gets compressed: error responses
// are passed through untouched so their bodies stay readable for clients
// that ignore Content-Encoding on failures.
func (c *compressedWriter) WriteHeader(statusCode int) {
	c.wroteHeader = true
	c.compress = statusCode < 300
	if c.compress {
		c.w.Header().Set("Content-Encoding", "gzip")
	}
	c.w.WriteHeader(statusCode)
}

func (c *compressedWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.compress {
		return c.zw.Write(p)
	}
	return c.w.Write(p)
}

func (c *compressedWriter) close() error {
	var err error
	if c.compress {
		err = c.zw.Close()
	}
	gzipWriterPool.Put(c.zw)
	return err
}

// UngzipRequest decompresses gzip-encoded request bodies before passing
// the request down the chain.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		if strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			decompressedBody, err := newCompressedReader(request.Body)
			if err != nil {
				response.WriteHeader(http.StatusInternalServerError)
				return
			}
			request.Body = decompressedBody
			defer decompressedBody.Close()
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// GzipResponse compresses the response body when the client advertises
// gzip support via Accept-Encoding.
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		finalResponse := response

		if strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			compressedResponse := newCompressedWriter(response)
			finalResponse = compressedResponse
			defer compressedResponse.close()
		}

		h.ServeHTTP(finalResponse, request)
	}

	return http.HandlerFunc(middleware)
}
