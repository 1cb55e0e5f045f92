package errors

import (
	"strings"
	"testing"
)

func TestValidateArtifactName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"plain png", "0.png", false},
		{"nested", "batch/12.png", false},
		{"dots in name", "item.v2.png", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 300) + ".png", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "../secret.png", true},
		{"nested traversal", "a/../../b.png", true},
		{"backslash", "a\\b.png", true},
		{"null byte", "a\x00.png", true},
		{"newline", "a\n.png", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArtifactName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArtifactName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidRecord) {
				t.Errorf("ValidateArtifactName(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidRecord)
			}
		})
	}
}

func TestValidateDimensions(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		wantErr bool
	}{
		{"square", 1024, 1024, false},
		{"one pixel", 1, 1, false},
		{"zero width", 0, 10, true},
		{"negative height", 10, -1, true},
		{"huge", 1 << 16, 10, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDimensions("input", tt.w, tt.h)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDimensions(%d, %d) error = %v, wantErr %v", tt.w, tt.h, err, tt.wantErr)
			}
		})
	}
}

func TestValidateQuality(t *testing.T) {
	for _, q := range []int{0, 1, 80, 100} {
		if err := ValidateQuality(q); err != nil {
			t.Errorf("ValidateQuality(%d) unexpected error: %v", q, err)
		}
	}
	for _, q := range []int{-1, 101} {
		if err := ValidateQuality(q); err == nil {
			t.Errorf("ValidateQuality(%d) should fail", q)
		}
	}
}

func TestValidateDir(t *testing.T) {
	if err := ValidateDir("assets", "data"); err != nil {
		t.Errorf("ValidateDir() unexpected error: %v", err)
	}
	if err := ValidateDir("assets", "  "); err == nil {
		t.Error("blank directory should fail")
	}
	if err := ValidateDir("assets", "da\x00ta"); err == nil {
		t.Error("null byte should fail")
	}
}
