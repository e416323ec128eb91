package ident

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "age", false},
		{"underscore prefix", "_private", false},
		{"mixed", "user_Name2", false},
		{"max length", strings.Repeat("a", MaxLength), false},
		{"empty", "", true},
		{"too long", strings.Repeat("a", MaxLength+1), true},
		{"leading digit", "1abc", true},
		{"purely numeric", "123", true},
		{"space", "bad name", true},
		{"single quote", "a'b", true},
		{"double quote", `a"b`, true},
		{"path separator", "a.b", true},
		{"json path", "$.a", true},
		{"bracket", "a[0]", true},
		{"control char", "a\nb", true},
		{"sql comment", "a--", true},
		{"non ascii", "naïve", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Validate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate(%q) expected error, got %q", tt.input, got)
				}
				var identErr *Error
				if !errors.As(err, &identErr) {
					t.Fatalf("Validate(%q) error type = %T, want *Error", tt.input, err)
				}
				if !errors.Is(err, ErrInvalid) {
					t.Errorf("error %v does not match ErrInvalid", err)
				}
				if identErr.Field != tt.input || identErr.Reason == "" {
					t.Errorf("unexpected error detail: %+v", identErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.input {
				t.Errorf("Validate(%q) = %q", tt.input, got)
			}
		})
	}
}
