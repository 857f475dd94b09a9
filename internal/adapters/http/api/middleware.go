package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/artemshundrik/tosho-crm-sub001/pkg/metrics"
)

// instrument records request count, latency and error class for one route.
func instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r)

		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(route, r.Method, status)
		metrics.RecordHTTPRequestDuration(route, r.Method, status, float64(time.Since(start).Milliseconds()))
		if class := errorClass(rec.status); class != "" {
			metrics.RecordErrorByComponent("http", class)
		}
	}
}

// errorClass buckets a status code for the error counter. Success is "".
func errorClass(status int) string {
	switch {
	case status < http.StatusBadRequest:
		return ""
	case status == http.StatusTooManyRequests:
		return "backpressure"
	case status == http.StatusNotFound:
		return "not_found"
	case status == http.StatusConflict:
		return "conflict"
	case status == http.StatusServiceUnavailable:
		return "unavailable"
	case status >= http.StatusInternalServerError:
		return "server_error"
	default:
		return "client_error"
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}
