package errors

import (
	"strings"
	"testing"
)

func TestValidateSelector(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid tag", "nginx:latest", false},
		{"valid repo tag", "registry.local:5000/team/app:1.2", false},
		{"valid short id", "3f1c9a2b7d0e", false},
		{"valid full id", "sha256:" + strings.Repeat("a", 64), false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 600), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"newline", "foo\nbar", true},
		{"space", "foo bar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSelector(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSelector(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidSelector) {
				t.Errorf("ValidateSelector(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidSelector)
			}
		})
	}
}

func TestValidateSnapshotID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid uuid", "0b7e2c4a-9f3d-4c1e-8a6b-2d5f7e9c1a3b", false},

		{"empty", "", true},
		{"uppercase", "0B7E2C4A-9F3D-4C1E-8A6B-2D5F7E9C1A3B", true},
		{"path traversal", "../../etc/passwd", true},
		{"truncated", "0b7e2c4a-9f3d", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSnapshotID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSnapshotID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"relative", "images.json", false},
		{"absolute", "/tmp/images.tar", false},
		{"stdin", "-", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 5000), true},
		{"null byte", "foo\x00bar", true},
		{"control char", "foo\x01bar", true},
		{"leading space", " images.json", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
