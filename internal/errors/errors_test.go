package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConfigurationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigurationError
		expected string
	}{
		{
			name:     "with setting",
			err:      NewConfigurationError("DATABRICKS_HOST", "is not set"),
			expected: "configuration error: DATABRICKS_HOST: is not set",
		},
		{
			name:     "message only",
			err:      &ConfigurationError{Message: "masks directory unreadable"},
			expected: "configuration error: masks directory unreadable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("ConfigurationError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestHTTPError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *HTTPError
		expected string
	}{
		{
			name:     "with body",
			err:      &HTTPError{StatusCode: 404, URL: "https://x/api/2.1/jobs/get", Body: "RESOURCE_DOES_NOT_EXIST"},
			expected: "API error 404 (Not Found) for https://x/api/2.1/jobs/get: RESOURCE_DOES_NOT_EXIST",
		},
		{
			name:     "without body",
			err:      &HTTPError{StatusCode: 500, URL: "https://x/api/2.1/jobs/list"},
			expected: "API error 500 (Internal Server Error) for https://x/api/2.1/jobs/list",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("HTTPError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *ValidationError
		expected string
	}{
		{
			name: "with field and value",
			err: &ValidationError{
				Field:   "full_table_names",
				Value:   "main.sales",
				Message: "must be catalog.schema.table",
			},
			expected: "validation failed for full_table_names=\"main.sales\": must be catalog.schema.table",
		},
		{
			name: "with field only",
			err: &ValidationError{
				Field:   "job_ids",
				Message: "is required",
			},
			expected: "validation failed for job_ids: is required",
		},
		{
			name: "message only",
			err: &ValidationError{
				Message: "invalid input",
			},
			expected: "validation failed: invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("ValidationError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("amount", "0", "must be at least 1")

	if err.Field != "amount" {
		t.Errorf("Field = %q, want %q", err.Field, "amount")
	}
	if err.Value != "0" {
		t.Errorf("Value = %q, want %q", err.Value, "0")
	}
	if err.Message != "must be at least 1" {
		t.Errorf("Message = %q, want %q", err.Message, "must be at least 1")
	}
}

func TestAggregationError_Unwrap(t *testing.T) {
	cause := &HTTPError{StatusCode: http.StatusNotFound, URL: "u"}
	err := fmt.Errorf("get job details: %w", &AggregationError{Index: 2, ID: "42", Err: cause})

	if !IsAggregation(err) {
		t.Error("IsAggregation should see through wrapping")
	}
	if !IsHTTPStatus(err, http.StatusNotFound) {
		t.Error("IsHTTPStatus should reach the cause through AggregationError")
	}
	if IsHTTPStatus(err, http.StatusInternalServerError) {
		t.Error("IsHTTPStatus should compare the status code")
	}

	var agg *AggregationError
	if !errors.As(err, &agg) || agg.Index != 2 || agg.ID != "42" {
		t.Errorf("AggregationError = %+v", agg)
	}
}

func TestIsHelpers(t *testing.T) {
	errs := map[string]error{
		"configuration": NewConfigurationError("DATABRICKS_TOKEN", "is not set"),
		"rate_limited":  &RateLimitError{URL: "u", Attempts: 5},
		"aggregation":   &AggregationError{Err: errors.New("boom")},
		"namespace":     &NamespaceIntegrityError{Name: "a.b", Reason: "contains '.'"},
		"validation":    &ValidationError{Message: "test"},
		"plain":         errors.New("plain error"),
	}
	checks := map[string]func(error) bool{
		"configuration": IsConfiguration,
		"rate_limited":  IsRateLimited,
		"aggregation":   IsAggregation,
		"namespace":     IsNamespaceIntegrity,
		"validation":    IsValidation,
	}

	for checkName, check := range checks {
		for errName, err := range errs {
			want := checkName == errName
			if got := check(err); got != want {
				t.Errorf("Is%s(%s) = %v, want %v", checkName, errName, got, want)
			}
		}
		if check(nil) {
			t.Errorf("Is%s(nil) should be false", checkName)
		}
	}
}
