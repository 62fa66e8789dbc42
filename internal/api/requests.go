// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package api

import (
	"fmt"
	"net/http"
	"time"
)

const (
	defaultMetricsRange = 24 * time.Hour
	maxMetricsRange     = 92 * 24 * time.Hour
)

// HourlyMetricsRequest holds the query parameters of GET /api/v1/metrics/hourly.
type HourlyMetricsRequest struct {
	Start    string `json:"start" validate:"omitempty,rfc3339"`
	End      string `json:"end" validate:"omitempty,rfc3339"`
	Corridor string `json:"corridor" validate:"omitempty,max=512"`
}

func hourlyMetricsRequestFrom(r *http.Request) HourlyMetricsRequest {
	q := r.URL.Query()
	return HourlyMetricsRequest{
		Start:    q.Get("start"),
		End:      q.Get("end"),
		Corridor: q.Get("corridor"),
	}
}

// Range resolves the bounds: end defaults to now, start to end minus 24h.
// The range must be ordered and span at most 92 days.
func (req HourlyMetricsRequest) Range(now time.Time) (start, end time.Time, err error) {
	end = now.UTC()
	if req.End != "" {
		if end, err = time.Parse(time.RFC3339, req.End); err != nil {
			return start, end, fmt.Errorf("end: %w", err)
		}
	}
	start = end.Add(-defaultMetricsRange)
	if req.Start != "" {
		if start, err = time.Parse(time.RFC3339, req.Start); err != nil {
			return start, end, fmt.Errorf("start: %w", err)
		}
	}
	if start.After(end) {
		return start, end, fmt.Errorf("start %s is after end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	if end.Sub(start) > maxMetricsRange {
		return start, end, fmt.Errorf("range exceeds %d days", int(maxMetricsRange/(24*time.Hour)))
	}
	return start.UTC(), end.UTC(), nil
}
