package internal

import "fmt"

// DecodingError represents an update that is not valid canonical or compressed content
type DecodingError struct {
	Stage  string // "decompress", "decode"
	Offset int    // byte offset where decoding stopped, -1 if unknown
	Err    error
}

func (e *DecodingError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("decoding error [%s] at offset %d: %v", e.Stage, e.Offset, e.Err)
	}
	return fmt.Sprintf("decoding error [%s]: %v", e.Stage, e.Err)
}

func (e *DecodingError) Unwrap() error {
	return e.Err
}

// DigestFault represents a failure of the digest primitive
type DigestFault struct {
	Algorithm string
	Err       error
}

func (e *DigestFault) Error() string {
	return fmt.Sprintf("digest fault [%s]: %v", e.Algorithm, e.Err)
}

func (e *DigestFault) Unwrap() error {
	return e.Err
}

// StorageError represents errors accessing a commit store
type StorageError struct {
	Path string
	Op   string // "open", "read", "write", "unseal"
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// ConfigError represents an invalid configuration value
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error [%s]: %v", e.Key, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
