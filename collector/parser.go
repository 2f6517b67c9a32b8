package collector

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/common/model"
)

// rangeResponse is the subset of /api/v1/query_range we read.
// A missing data or result field decodes to an empty matrix.
type rangeResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string       `json:"resultType"`
		Result     model.Matrix `json:"result"`
	} `json:"data"`
}

// Parser converts range-query bodies into report rows.
type Parser struct {
	loc *time.Location
}

// NewParser renders timestamps in loc (UTC when nil).
func NewParser(loc *time.Location) *Parser {
	if loc == nil {
		loc = time.UTC
	}
	return &Parser{loc: loc}
}

// ParseHTTP emits one HTTPSample per non-NaN point, in series order then
// value order.
func (p *Parser) ParseHTTP(body []byte) ([]HTTPSample, error) {
	matrix, err := decodeMatrix(body)
	if err != nil {
		return nil, err
	}
	var rows []HTTPSample
	for _, series := range matrix {
		m := series.Metric
		for _, pair := range series.Values {
			if math.IsNaN(float64(pair.Value)) {
				continue
			}
			rows = append(rows, HTTPSample{
				Instance:  string(m["instance"]),
				Method:    string(m["method"]),
				Status:    string(m["status"]),
				Outcome:   string(m["outcome"]),
				Exception: string(m["exception"]),
				URI:       string(m["uri"]),
				Timestamp: p.format(pair.Timestamp),
				Duration:  float64(pair.Value),
			})
		}
	}
	return rows, nil
}

// ParseRepository is ParseHTTP for repository invocation series.
func (p *Parser) ParseRepository(body []byte) ([]RepositorySample, error) {
	matrix, err := decodeMatrix(body)
	if err != nil {
		return nil, err
	}
	var rows []RepositorySample
	for _, series := range matrix {
		m := series.Metric
		for _, pair := range series.Values {
			if math.IsNaN(float64(pair.Value)) {
				continue
			}
			rows = append(rows, RepositorySample{
				Instance:   string(m["instance"]),
				Repository: string(m["repository"]),
				Method:     string(m["method"]),
				State:      string(m["state"]),
				Exception:  string(m["exception"]),
				Timestamp:  p.format(pair.Timestamp),
				Duration:   float64(pair.Value),
			})
		}
	}
	return rows, nil
}

func (p *Parser) format(ts model.Time) string {
	return ts.Time().In(p.loc).Format(TimestampLayout)
}

func decodeMatrix(body []byte) (model.Matrix, error) {
	var resp rangeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode prometheus response: %w", err)
	}
	return resp.Data.Result, nil
}
