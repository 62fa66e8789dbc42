// PayCorridor - Payment Ingestion and Corridor Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paycorridor

package validation

import (
	"strings"
	"testing"

	"github.com/tomtom215/paycorridor/internal/models"
)

type timeRange struct {
	Start string `json:"start" validate:"required,rfc3339"`
	End   string `json:"end" validate:"required,rfc3339"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     interface{}
		wantErr   bool
		wantField string
		wantMsg   string
	}{
		{
			name:  "valid aggregation config",
			input: &models.AggregationConfig{IntervalHours: 1, LookbackHours: 24, BatchSize: 100},
		},
		{
			name:      "zero interval",
			input:     &models.AggregationConfig{IntervalHours: 0, LookbackHours: 24, BatchSize: 100},
			wantErr:   true,
			wantField: "interval_hours",
			wantMsg:   "interval_hours must be greater than 0",
		},
		{
			name:      "negative batch",
			input:     &models.AggregationConfig{IntervalHours: 1, LookbackHours: 24, BatchSize: -5},
			wantErr:   true,
			wantField: "batch_size",
		},
		{
			name:      "missing password",
			input:     &models.LoginRequest{Username: "admin"},
			wantErr:   true,
			wantField: "password",
			wantMsg:   "password is required",
		},
		{
			name:  "valid range",
			input: &timeRange{Start: "2026-01-01T00:00:00Z", End: "2026-01-02T00:00:00Z"},
		},
		{
			name:      "bad timestamp",
			input:     &timeRange{Start: "yesterday", End: "2026-01-02T00:00:00Z"},
			wantErr:   true,
			wantField: "start",
			wantMsg:   "start must be an RFC3339 timestamp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			verr := ValidateStruct(tt.input)
			if !tt.wantErr {
				if verr != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("ValidateStruct() = nil, want error")
			}
			if verr.Fields[0].Field != tt.wantField {
				t.Errorf("field = %q, want %q", verr.Fields[0].Field, tt.wantField)
			}
			if tt.wantMsg != "" && verr.Fields[0].Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", verr.Fields[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestToAPIErrorMultipleFields(t *testing.T) {
	t.Parallel()

	verr := ValidateStruct(&models.AggregationConfig{})
	if verr == nil {
		t.Fatal("expected errors for zero config")
	}
	apiErr := verr.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("Code = %q", apiErr.Code)
	}
	fields, ok := apiErr.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 3 {
		t.Fatalf("Details[fields] = %#v, want 3 entries", apiErr.Details["fields"])
	}
	if !strings.Contains(apiErr.Message, "lookback_hours") {
		t.Errorf("Message %q should list lookback_hours", apiErr.Message)
	}
}
