package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/kbukum/execkit/errors"
)

type sample struct {
	Binary  string        `mapstructure:"binary" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Mode    string        `mapstructure:"capture_mode" validate:"omitempty,oneof=head tail"`
	MaxSize int
}

func TestValidate_Valid(t *testing.T) {
	if err := Validate(sample{Binary: "echo", Mode: "tail"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	err := Validate(sample{Timeout: -time.Second, Mode: "middle"})
	if err == nil {
		t.Fatal("expected validation error")
	}
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}
	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok || len(fields) != 3 {
		t.Fatalf("expected 3 field errors, got %v", appErr.Details["fields"])
	}
	for _, want := range []string{"binary: is required", "timeout: must be greater than or equal to 0", "capture_mode: must be one of: head tail"} {
		if !strings.Contains(appErr.Message, want) {
			t.Errorf("expected %q in %q", want, appErr.Message)
		}
	}
}

func TestValidator_Collector(t *testing.T) {
	v := New()
	v.Custom(true, "ok", "never").
		Custom(false, "max_capture_bytes", "requires capture").
		OneOf("capture_mode", "middle", []string{"head", "tail"}).
		OneOf("empty", "", []string{"x"})
	if len(v.Errors()) != 2 {
		t.Fatalf("expected 2 errors, got %v", v.Errors())
	}
	appErr := v.Validate()
	if appErr == nil || !strings.Contains(appErr.Message, "max_capture_bytes: requires capture") {
		t.Fatalf("unexpected error %v", appErr)
	}
	if New().Validate() != nil {
		t.Fatal("expected nil for empty validator")
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Binary":          "binary",
		"MaxCaptureBytes": "max_capture_bytes",
		"PID":             "p_i_d",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
