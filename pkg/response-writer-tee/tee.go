package tee

import (
	"net/http"
	"time"
)

// ResponseRecorder is a wrapper around http.ResponseWriter that passes the
// response through to the client while remembering what was sent.
type ResponseRecorder struct {
	rw           http.ResponseWriter
	status       int
	bytes        int
	wroteHeaders bool
	CreatedAt    time.Time
}

// Implementation of http.ResponseWriter
func (t *ResponseRecorder) Header() http.Header {
	return t.rw.Header()
}

// Implementation of http.ResponseWriter
func (t *ResponseRecorder) WriteHeader(statusCode int) {
	if t.wroteHeaders {
		return
	}
	t.wroteHeaders = true
	t.status = statusCode
	t.rw.WriteHeader(statusCode)
}

// Implementation of http.ResponseWriter
func (t *ResponseRecorder) Write(b []byte) (int, error) {
	if !t.wroteHeaders {
		t.WriteHeader(http.StatusOK)
	}
	n, err := t.rw.Write(b)
	t.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (t *ResponseRecorder) Unwrap() http.ResponseWriter {
	return t.rw
}

// StatusCode returns the status code of the response.
// It is 200 if the handler wrote a body without an explicit status.
func (t *ResponseRecorder) StatusCode() int {
	if !t.wroteHeaders {
		return http.StatusOK
	}
	return t.status
}

// Written reports whether the response has been started.
func (t *ResponseRecorder) Written() bool {
	return t.wroteHeaders
}

// BytesWritten returns the number of body bytes written to the client.
func (t *ResponseRecorder) BytesWritten() int {
	return t.bytes
}

// Duration returns the time elapsed since the recorder was created.
func (t *ResponseRecorder) Duration() time.Duration {
	return time.Since(t.CreatedAt)
}

// NewResponseRecorder returns a new ResponseRecorder writing to w.
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{
		CreatedAt: time.Now(),
		rw:        w,
	}
}
