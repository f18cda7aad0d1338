package internal

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"

	blake2b "github.com/minio/blake2b-simd"
)

// Supported digest names
const (
	HasherSHA1    = "sha1"
	HasherSHA256  = "sha256"
	HasherBlake2b = "blake2b"

	DefaultHasher = HasherSHA1
)

// Hasher computes a stable hex digest of canonical update bytes
type Hasher interface {
	Name() string
	Sum(ctx context.Context, content []byte) (string, error)
}

// HasherNames lists the names accepted by NewHasher
func HasherNames() []string {
	return []string{HasherSHA1, HasherSHA256, HasherBlake2b}
}

// NewHasher returns the hasher registered under name. An empty name selects
// the default.
func NewHasher(name string) (Hasher, error) {
	switch name {
	case "", HasherSHA1:
		return defaultHasher(), nil
	case HasherSHA256:
		return &digestHasher{name: HasherSHA256, newHash: sha256.New}, nil
	case HasherBlake2b:
		return &digestHasher{name: HasherBlake2b, newHash: blake2b.New256}, nil
	default:
		return nil, &ConfigError{Key: "hasher", Err: fmt.Errorf("unknown hasher %q (supported: %v)", name, HasherNames())}
	}
}

func defaultHasher() *digestHasher {
	return &digestHasher{name: HasherSHA1, newHash: sha1.New}
}

type digestHasher struct {
	name    string
	newHash func() hash.Hash
}

func (h *digestHasher) Name() string {
	return h.name
}

func (h *digestHasher) Sum(ctx context.Context, content []byte) (sum string, err error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	defer func() {
		if r := recover(); r != nil {
			sum, err = "", &DigestFault{Algorithm: h.name, Err: fmt.Errorf("%v", r)}
		}
	}()

	d := h.newHash()
	if _, err := d.Write(content); err != nil {
		return "", &DigestFault{Algorithm: h.name, Err: err}
	}
	return hex.EncodeToString(d.Sum(nil)), nil
}
