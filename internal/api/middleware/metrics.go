package middleware

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics aggregates request counters for the /metrics endpoint. The
// belief-revision operations are counted separately so conflict volume
// is visible without log scraping.
type Metrics struct {
	Requests    atomic.Int64
	Errors      atomic.Int64
	Statements  atomic.Int64
	Resolutions atomic.Int64
	GateChecks  atomic.Int64

	totalMicros atomic.Int64
}

// AvgLatency returns the mean request duration observed so far.
func (m *Metrics) AvgLatency() time.Duration {
	n := m.Requests.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(m.totalMicros.Load()/n) * time.Microsecond
}

// Middleware counts requests, error responses, and the ingestion,
// resolution, and gate operations by route.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.Requests.Add(1)
		if r.Method == http.MethodPost {
			switch {
			case r.URL.Path == "/v1/statements":
				m.Statements.Add(1)
			case strings.HasSuffix(r.URL.Path, "/resolve"):
				m.Resolutions.Add(1)
			case r.URL.Path == "/v1/gate/check":
				m.GateChecks.Add(1)
			}
		}

		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)

		if rw.statusCode >= 400 {
			m.Errors.Add(1)
		}
		m.totalMicros.Add(time.Since(start).Microseconds())
	})
}
