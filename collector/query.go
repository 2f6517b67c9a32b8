package collector

import (
	"fmt"
	"net/url"
	"time"
)

const (
	httpLatencyQuery = `irate(http_server_requests_seconds_sum{application="%[1]s", uri!~".*actuator.*", status=~"%[2]s"}[1m])` +
		` / irate(http_server_requests_seconds_count{application="%[1]s", uri!~".*actuator.*", status=~"%[2]s"}[1m])%[3]s`
	repositoryLatencyQuery = `irate(spring_data_repository_invocations_seconds_sum{application="%[1]s", uri!~".*actuator.*"}[1m])` +
		` / irate(spring_data_repository_invocations_seconds_count{application="%[1]s", uri!~".*actuator.*"}[1m])%[2]s`

	// SuccessStatus is the only status class with a latency threshold.
	SuccessStatus = "2.."

	successThreshold    = " > 0.5"
	repositoryThreshold = " > 0.2"

	DefaultWindow = 24 * time.Hour
	DefaultStep   = time.Minute
)

// QueryBuilder turns (application, status) pairs into range-query URLs.
// The time window is fixed at construction so every query of a run
// covers the same interval.
type QueryBuilder struct {
	base  *url.URL
	start int64
	end   int64
	step  int64
}

// NewQueryBuilder captures [now-window, now] at step resolution.
// baseURL is the range-query endpoint, e.g. http://prometheus:9090/api/v1/query_range.
func NewQueryBuilder(baseURL string, now time.Time, window, step time.Duration) (*QueryBuilder, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid prometheus base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid prometheus base url %q: scheme must be http or https", baseURL)
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if step < time.Second {
		step = DefaultStep
	}
	end := now.Unix()
	return &QueryBuilder{
		base:  u,
		start: end - int64(window/time.Second),
		end:   end,
		step:  int64(step / time.Second),
	}, nil
}

// Start and End expose the window in unix seconds.
func (b *QueryBuilder) Start() int64 { return b.start }
func (b *QueryBuilder) End() int64   { return b.end }

// HTTPLatencyQuery is the mean request duration per series. Successful
// requests are only reported above half a second; error classes are
// reported at any latency.
func HTTPLatencyQuery(application, status string) string {
	threshold := ""
	if status == SuccessStatus {
		threshold = successThreshold
	}
	return fmt.Sprintf(httpLatencyQuery, application, status, threshold)
}

// RepositoryLatencyQuery is the mean repository invocation duration above 200ms.
func RepositoryLatencyQuery(application string) string {
	return fmt.Sprintf(repositoryLatencyQuery, application, repositoryThreshold)
}

func (b *QueryBuilder) HTTPLatencyURL(application, status string) string {
	return b.rangeURL(HTTPLatencyQuery(application, status))
}

func (b *QueryBuilder) RepositoryLatencyURL(application string) string {
	return b.rangeURL(RepositoryLatencyQuery(application))
}

func (b *QueryBuilder) rangeURL(query string) string {
	u := *b.base
	u.RawQuery = fmt.Sprintf("query=%s&start=%d&end=%d&step=%d",
		url.QueryEscape(query), b.start, b.end, b.step)
	return u.String()
}
