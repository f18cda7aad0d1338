package internal

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodingError(t *testing.T) {
	originalErr := errors.New("unexpected end of input")

	tests := []struct {
		name string
		err  *DecodingError
		want []string
	}{
		{
			name: "with offset",
			err:  &DecodingError{Stage: "decode", Offset: 12, Err: originalErr},
			want: []string{"decoding error", "decode", "offset 12"},
		},
		{
			name: "without offset",
			err:  &DecodingError{Stage: "decompress", Offset: -1, Err: originalErr},
			want: []string{"decoding error", "decompress"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errorMsg := tt.err.Error()
			for _, s := range tt.want {
				if !strings.Contains(errorMsg, s) {
					t.Errorf("DecodingError.Error() should contain %q, got: %q", s, errorMsg)
				}
			}
			if tt.err.Offset < 0 && strings.Contains(errorMsg, "offset") {
				t.Errorf("DecodingError.Error() should not mention offset, got: %q", errorMsg)
			}
			if !errors.Is(tt.err, originalErr) {
				t.Error("DecodingError.Unwrap() should return original error")
			}
		})
	}
}

func TestDigestFault(t *testing.T) {
	originalErr := errors.New("primitive unavailable")
	err := &DigestFault{Algorithm: "sha1", Err: originalErr}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "digest fault") {
		t.Errorf("DigestFault.Error() should contain 'digest fault', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "sha1") {
		t.Errorf("DigestFault.Error() should contain algorithm, got: %q", errorMsg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("DigestFault.Unwrap() should return original error")
	}
}

func TestStorageError(t *testing.T) {
	originalErr := errors.New("permission denied")
	err := &StorageError{
		Path: "/test/path",
		Op:   "open",
		Err:  originalErr,
	}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "storage error") {
		t.Errorf("StorageError.Error() should contain 'storage error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "/test/path") {
		t.Errorf("StorageError.Error() should contain path, got: %q", errorMsg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("StorageError.Unwrap() should return original error")
	}
}

func TestExportError(t *testing.T) {
	originalErr := errors.New("write failed")
	err := &ExportError{
		Format: "jsonl",
		Path:   "/output/file.jsonl",
		Err:    originalErr,
	}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "export error") {
		t.Errorf("ExportError.Error() should contain 'export error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "jsonl") {
		t.Errorf("ExportError.Error() should contain format, got: %q", errorMsg)
	}
	if !errors.Is(err, originalErr) {
		t.Error("ExportError.Unwrap() should return original error")
	}
}

func TestConfigError(t *testing.T) {
	originalErr := errors.New("unknown hasher")
	err := &ConfigError{Key: "hasher", Err: originalErr}

	errorMsg := err.Error()
	if !strings.Contains(errorMsg, "config error") {
		t.Errorf("ConfigError.Error() should contain 'config error', got: %q", errorMsg)
	}
	if !strings.Contains(errorMsg, "hasher") {
		t.Errorf("ConfigError.Error() should contain key, got: %q", errorMsg)
	}

	var target *ConfigError
	if !errors.As(error(err), &target) {
		t.Error("errors.As should match *ConfigError")
	}
	if !errors.Is(err, originalErr) {
		t.Error("ConfigError.Unwrap() should return original error")
	}
}
