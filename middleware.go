package staticcache

import (
	"net/http"
	"strings"

	tee "github.com/always-cache/static-cache/pkg/response-writer-tee"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const requestIDHeader = "X-Request-Id"

// requestID tags the request logger and the response with a request id.
// An id sent by the client is reused.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("requestId", id)
		})
		next.ServeHTTP(w, r)
	})
}

// logRequests writes one access log line per request.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := tee.NewResponseRecorder(w)
		next.ServeHTTP(rec, r)
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Str("sourceIp", getRequestSourceIp(r)).
			Int("status", rec.StatusCode()).
			Str("cacheStatus", rec.Header().Get("Cache-Status")).
			Int("bytes", rec.BytesWritten()).
			Dur("duration", rec.Duration()).
			Msg("Sent response to client")
	})
}

func getRequestSourceIp(r *http.Request) string {
	// RemoteAddr is in the format:
	// 1.2.3.4:10000 for ipv4
	// [1:2:3]:10000 for ipv6
	ipAndPort := r.RemoteAddr
	portSepIdx := strings.LastIndex(ipAndPort, ":")
	// if not found, return
	if portSepIdx < 0 {
		return ipAndPort
	}
	return ipAndPort[:portSepIdx]
}
