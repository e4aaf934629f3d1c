package batch

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestParseStringOrArray(t *testing.T) {
	tests := []struct {
		name    string
		param   interface{}
		want    []string
		wantErr string
	}{
		{
			name:  "single string",
			param: "msg1",
			want:  []string{"msg1"},
		},
		{
			name:  "array of strings",
			param: []interface{}{"msg1", "msg2", "msg3"},
			want:  []string{"msg1", "msg2", "msg3"},
		},
		{
			name:    "nil",
			param:   nil,
			wantErr: "ids is required",
		},
		{
			name:    "empty string",
			param:   "",
			wantErr: "ids cannot be empty",
		},
		{
			name:    "empty array",
			param:   []interface{}{},
			wantErr: "ids cannot be empty",
		},
		{
			name:    "array with non-string",
			param:   []interface{}{"msg1", 42},
			wantErr: "ids[1] must be a string",
		},
		{
			name:    "array with empty string",
			param:   []interface{}{"msg1", ""},
			wantErr: "ids[1] cannot be empty",
		},
		{
			name:    "wrong type",
			param:   42,
			wantErr: "ids must be a string or array of strings",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStringOrArray(tt.param, "ids")
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("ParseStringOrArray() expected error, got %v", got)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("ParseStringOrArray() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseStringOrArray() unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseStringOrArray() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProcessBatch(t *testing.T) {
	results := ProcessBatch([]string{"a", "b", "c"}, func(id string) (string, error) {
		if id == "b" {
			return "", errors.New("boom")
		}
		return "done " + id, nil
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Status != "success" || results[0].Result != "done a" {
		t.Errorf("unexpected first result: %+v", results[0])
	}
	if results[1].Status != "error" || results[1].Error != "boom" {
		t.Errorf("failed item must carry the error: %+v", results[1])
	}
	if results[2].Status != "success" {
		t.Errorf("batch must continue past failures: %+v", results[2])
	}
}

func TestFormatResults(t *testing.T) {
	formatted := FormatResults([]Result{
		{ID: "a", Status: "success", Result: "ok"},
		{ID: "b", Status: "error", Error: "boom"},
	})

	var summary Summary
	if err := json.Unmarshal([]byte(formatted), &summary); err != nil {
		t.Fatalf("FormatResults() produced invalid JSON: %v", err)
	}
	if summary.Total != 2 || summary.Successful != 1 || summary.Failed != 1 {
		t.Errorf("unexpected totals: %+v", summary)
	}
	if len(summary.Results) != 2 {
		t.Errorf("expected 2 results, got %d", len(summary.Results))
	}
}
