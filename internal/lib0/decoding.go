package lib0

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

// MaxSafeInteger is the largest integer a varint may carry (2^53 - 1).
const MaxSafeInteger = 1<<53 - 1

// MaxAnyDepth is the deepest nesting of arrays and objects ReadAny follows
const MaxAnyDepth = 1000

var (
	// ErrUnexpectedEnd is returned when a read runs past the end of the buffer
	ErrUnexpectedEnd = errors.New("unexpected end of array")
	// ErrIntegerOutOfRange is returned when a varint exceeds MaxSafeInteger
	ErrIntegerOutOfRange = errors.New("integer out of range")
	// ErrUnknownAnyTag is returned for an unsupported tag in an encoded any value
	ErrUnknownAnyTag = errors.New("unknown any tag")
	// ErrMaxDepth is returned when an any value nests deeper than MaxAnyDepth
	ErrMaxDepth = errors.New("any value nested too deeply")
)

// Undefined is the decoded form of the lib0 `undefined` any value
type Undefined struct{}

// Decoder reads lib0-encoded values from a byte slice
type Decoder struct {
	buf   []byte
	pos   int
	depth int // open arrays and objects in ReadAny
}

// NewDecoder creates a Decoder positioned at the start of buf
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Pos returns the current read offset
func (d *Decoder) Pos() int {
	return d.pos
}

// Remaining returns the number of unread bytes
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// HasContent reports whether unread bytes remain
func (d *Decoder) HasContent() bool {
	return d.pos < len(d.buf)
}

// ReadUint8 reads a single byte
func (d *Decoder) ReadUint8() (uint8, error) {
	if d.pos >= len(d.buf) {
		return 0, ErrUnexpectedEnd
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadBytes reads n raw bytes. The returned slice aliases the buffer.
func (d *Decoder) ReadBytes(n int) ([]byte, error) {
	if n < 0 || n > len(d.buf)-d.pos {
		return nil, ErrUnexpectedEnd
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadVarUint reads an unsigned LEB128 varint, 7 bits per byte, low bits first
func (d *Decoder) ReadVarUint() (uint64, error) {
	var num uint64
	var shift uint
	for d.pos < len(d.buf) {
		b := d.buf[d.pos]
		d.pos++
		if uint64(b&0x7f) > MaxSafeInteger>>shift {
			return 0, ErrIntegerOutOfRange
		}
		num |= uint64(b&0x7f) << shift
		if b < 0x80 {
			return num, nil
		}
		shift += 7
		if shift > 56 {
			return 0, ErrIntegerOutOfRange
		}
	}
	return 0, ErrUnexpectedEnd
}

// ReadVarInt reads a signed varint. The first byte holds the sign in bit 6
// and six value bits; continuation bytes hold seven bits each.
func (d *Decoder) ReadVarInt() (int64, error) {
	b, err := d.ReadUint8()
	if err != nil {
		return 0, err
	}
	num := uint64(b & 0x3f)
	negative := b&0x40 != 0
	if b&0x80 == 0 {
		return signed(num, negative), nil
	}
	shift := uint(6)
	for d.pos < len(d.buf) {
		b = d.buf[d.pos]
		d.pos++
		num |= uint64(b&0x7f) << shift
		if num > MaxSafeInteger {
			return 0, ErrIntegerOutOfRange
		}
		if b < 0x80 {
			return signed(num, negative), nil
		}
		shift += 7
		if shift > 55 {
			return 0, ErrIntegerOutOfRange
		}
	}
	return 0, ErrUnexpectedEnd
}

func signed(num uint64, negative bool) int64 {
	if negative {
		return -int64(num)
	}
	return int64(num)
}

// ReadVarUint8Array reads a varuint length followed by that many bytes
func (d *Decoder) ReadVarUint8Array() ([]byte, error) {
	n, err := d.ReadVarUint()
	if err != nil {
		return nil, err
	}
	if n > uint64(d.Remaining()) {
		return nil, ErrUnexpectedEnd
	}
	return d.ReadBytes(int(n))
}

// ReadVarString reads a length-prefixed UTF-8 string
func (d *Decoder) ReadVarString() (string, error) {
	b, err := d.ReadVarUint8Array()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadFloat32 reads a big-endian IEEE 754 float32
func (d *Decoder) ReadFloat32() (float32, error) {
	b, err := d.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
}

// ReadFloat64 reads a big-endian IEEE 754 float64
func (d *Decoder) ReadFloat64() (float64, error) {
	b, err := d.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
}

// ReadBigInt64 reads a big-endian signed 64-bit integer
func (d *Decoder) ReadBigInt64() (int64, error) {
	b, err := d.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.BigEndian.Uint64(b)), nil
}

// ReadAny reads a tagged value. Tags run downward from 127:
//
//	127 undefined, 126 null, 125 varint, 124 float32, 123 float64,
//	122 bigint, 121 false, 120 true, 119 string, 118 object,
//	117 array, 116 byte array
func (d *Decoder) ReadAny() (interface{}, error) {
	start := d.pos
	tag, err := d.ReadUint8()
	if err != nil {
		return nil, err
	}

	switch tag {
	case 127:
		return Undefined{}, nil
	case 126:
		return nil, nil
	case 125:
		return d.ReadVarInt()
	case 124:
		return d.ReadFloat32()
	case 123:
		return d.ReadFloat64()
	case 122:
		return d.ReadBigInt64()
	case 121:
		return false, nil
	case 120:
		return true, nil
	case 119:
		return d.ReadVarString()
	case 118:
		if err := d.enter(start); err != nil {
			return nil, err
		}
		defer d.leave()
		n, err := d.ReadVarUint()
		if err != nil {
			return nil, err
		}
		obj := make(map[string]interface{})
		for i := uint64(0); i < n; i++ {
			key, err := d.ReadVarString()
			if err != nil {
				return nil, err
			}
			value, err := d.ReadAny()
			if err != nil {
				return nil, err
			}
			obj[key] = value
		}
		return obj, nil
	case 117:
		if err := d.enter(start); err != nil {
			return nil, err
		}
		defer d.leave()
		n, err := d.ReadVarUint()
		if err != nil {
			return nil, err
		}
		// every element takes at least one byte
		if n > uint64(d.Remaining()) {
			return nil, ErrUnexpectedEnd
		}
		arr := make([]interface{}, 0, n)
		for i := uint64(0); i < n; i++ {
			value, err := d.ReadAny()
			if err != nil {
				return nil, err
			}
			arr = append(arr, value)
		}
		return arr, nil
	case 116:
		return d.ReadVarUint8Array()
	default:
		return nil, fmt.Errorf("%w %d at offset %d", ErrUnknownAnyTag, tag, start)
	}
}

func (d *Decoder) enter(offset int) error {
	if d.depth >= MaxAnyDepth {
		return fmt.Errorf("%w: more than %d levels at offset %d", ErrMaxDepth, MaxAnyDepth, offset)
	}
	d.depth++
	return nil
}

func (d *Decoder) leave() {
	d.depth--
}

// UTF16Length returns the number of UTF-16 code units needed to encode s.
// Invalid UTF-8 sequences count as one unit each.
func UTF16Length(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 && r <= utf8.MaxRune {
			n += 2
		} else {
			n++
		}
	}
	return n
}
