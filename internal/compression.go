package internal

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Compressed updates carry a four byte envelope: 0x00 'Y' 'Z' <version>.
// A canonical update starting with these bytes would declare zero struct
// groups followed by 89 delete-set clients, the first of them client 90.
var compressedMagic = []byte{0x00, 'Y', 'Z'}

const (
	envelopeSize = 4

	// EnvelopeZstd marks a zstd frame payload
	EnvelopeZstd byte = 0x01

	// maxDecompressedSize bounds the memory a single update may expand to
	maxDecompressedSize = 64 << 20
)

var (
	ErrNotCompressed   = errors.New("compression marker absent")
	ErrUnknownEnvelope = errors.New("unknown compression envelope version")
	ErrEmptyPayload    = errors.New("empty compressed payload")
)

var (
	zstdOnce    sync.Once
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
	zstdInitErr error
)

func zstdCodecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEncoder, zstdInitErr = zstd.NewWriter(nil)
		if zstdInitErr != nil {
			return
		}
		zstdDecoder, zstdInitErr = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxDecompressedSize))
	})
	return zstdEncoder, zstdDecoder, zstdInitErr
}

// IsCompressed reports whether content carries the compression envelope.
// The version byte is not checked here so that unknown versions surface
// as a decoding error rather than being read as canonical content.
func IsCompressed(content []byte) bool {
	return len(content) >= envelopeSize && bytes.HasPrefix(content, compressedMagic)
}

// Decompress returns the canonical bytes of an enveloped update
func Decompress(content []byte) ([]byte, error) {
	if !IsCompressed(content) {
		return nil, &DecodingError{Stage: "decompress", Offset: 0, Err: ErrNotCompressed}
	}

	version := content[len(compressedMagic)]
	payload := content[envelopeSize:]
	switch version {
	case EnvelopeZstd:
		if len(payload) == 0 {
			return nil, &DecodingError{Stage: "decompress", Offset: envelopeSize, Err: ErrEmptyPayload}
		}
		_, dec, err := zstdCodecs()
		if err != nil {
			return nil, &DecodingError{Stage: "decompress", Offset: -1, Err: fmt.Errorf("zstd init: %w", err)}
		}
		out, err := dec.DecodeAll(payload, nil)
		if err != nil {
			return nil, &DecodingError{Stage: "decompress", Offset: envelopeSize, Err: err}
		}
		if out == nil {
			out = []byte{}
		}
		return out, nil
	default:
		return nil, &DecodingError{
			Stage:  "decompress",
			Offset: len(compressedMagic),
			Err:    fmt.Errorf("%w 0x%02x", ErrUnknownEnvelope, version),
		}
	}
}

// Compress wraps canonical content in the current envelope version
func Compress(content []byte) ([]byte, error) {
	enc, _, err := zstdCodecs()
	if err != nil {
		return nil, fmt.Errorf("zstd init: %w", err)
	}
	out := make([]byte, 0, envelopeSize+len(content)/2)
	out = append(out, compressedMagic...)
	out = append(out, EnvelopeZstd)
	return enc.EncodeAll(content, out), nil
}
