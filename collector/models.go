package collector

import "net/http"

// TimestampLayout is how sample timestamps appear in the report.
const TimestampLayout = "2006-01-02 15:04:05"

// HTTPSample is one point of http_server_requests latency for one series.
type HTTPSample struct {
	Instance  string
	Method    string
	Status    string
	Outcome   string
	Exception string
	URI       string
	Timestamp string  // TimestampLayout in the report location
	Duration  float64 // seconds, +Inf for a zero-request window, never NaN
}

// Cells returns the row values in HTTP sheet column order.
func (s HTTPSample) Cells() []any {
	return []any{s.Instance, s.Method, s.Status, s.Outcome, s.Exception, s.URI, s.Timestamp, s.Duration}
}

func (s HTTPSample) Latency() float64 { return s.Duration }

// RepositorySample is one point of spring_data_repository_invocations latency.
type RepositorySample struct {
	Instance   string
	Repository string
	Method     string
	State      string
	Exception  string
	Timestamp  string
	Duration   float64
}

// Cells returns the row values in repository sheet column order.
func (s RepositorySample) Cells() []any {
	return []any{s.Instance, s.Repository, s.Method, s.State, s.Exception, s.Timestamp, s.Duration}
}

func (s RepositorySample) Latency() float64 { return s.Duration }

// Result is the outcome of one range query that did not fail outright.
// A non-200 answer means "no data for this sheet", not an error.
type Result struct {
	StatusCode int
	Body       []byte
}

// Absent reports whether the query produced nothing to render.
func (r Result) Absent() bool {
	return r.StatusCode != http.StatusOK
}
