package lib0

import (
	"encoding/binary"
	"math"
	"sort"
)

// Encoder writes lib0-encoded values into a growing buffer
type Encoder struct {
	buf []byte
}

// NewEncoder creates an empty Encoder
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the encoded bytes
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// Len returns the number of bytes written so far
func (e *Encoder) Len() int {
	return len(e.buf)
}

// WriteUint8 appends a single byte
func (e *Encoder) WriteUint8(b uint8) {
	e.buf = append(e.buf, b)
}

// WriteBytes appends raw bytes without a length prefix
func (e *Encoder) WriteBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// WriteVarUint appends an unsigned LEB128 varint
func (e *Encoder) WriteVarUint(n uint64) {
	for n > 0x7f {
		e.buf = append(e.buf, byte(n&0x7f)|0x80)
		n >>= 7
	}
	e.buf = append(e.buf, byte(n))
}

// WriteVarInt appends a signed varint in the sign-in-first-byte layout
func (e *Encoder) WriteVarInt(n int64) {
	negative := n < 0
	u := uint64(n)
	if negative {
		u = uint64(-n)
	}
	first := byte(u & 0x3f)
	if negative {
		first |= 0x40
	}
	u >>= 6
	if u > 0 {
		first |= 0x80
	}
	e.buf = append(e.buf, first)
	for u > 0 {
		b := byte(u & 0x7f)
		u >>= 7
		if u > 0 {
			b |= 0x80
		}
		e.buf = append(e.buf, b)
	}
}

// WriteVarUint8Array appends a varuint length followed by b
func (e *Encoder) WriteVarUint8Array(b []byte) {
	e.WriteVarUint(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// WriteVarString appends a length-prefixed UTF-8 string
func (e *Encoder) WriteVarString(s string) {
	e.WriteVarUint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteFloat32 appends a big-endian float32
func (e *Encoder) WriteFloat32(f float32) {
	e.buf = binary.BigEndian.AppendUint32(e.buf, math.Float32bits(f))
}

// WriteFloat64 appends a big-endian float64
func (e *Encoder) WriteFloat64(f float64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, math.Float64bits(f))
}

// WriteBigInt64 appends a big-endian signed 64-bit integer
func (e *Encoder) WriteBigInt64(n int64) {
	e.buf = binary.BigEndian.AppendUint64(e.buf, uint64(n))
}

// WriteAny appends a tagged value. Object keys are written in sorted order
// so the output is deterministic.
func (e *Encoder) WriteAny(v interface{}) {
	switch val := v.(type) {
	case Undefined:
		e.WriteUint8(127)
	case nil:
		e.WriteUint8(126)
	case int:
		e.WriteUint8(125)
		e.WriteVarInt(int64(val))
	case int64:
		e.WriteUint8(125)
		e.WriteVarInt(val)
	case float32:
		e.WriteUint8(124)
		e.WriteFloat32(val)
	case float64:
		e.WriteUint8(123)
		e.WriteFloat64(val)
	case bool:
		if val {
			e.WriteUint8(120)
		} else {
			e.WriteUint8(121)
		}
	case string:
		e.WriteUint8(119)
		e.WriteVarString(val)
	case map[string]interface{}:
		e.WriteUint8(118)
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		e.WriteVarUint(uint64(len(keys)))
		for _, k := range keys {
			e.WriteVarString(k)
			e.WriteAny(val[k])
		}
	case []interface{}:
		e.WriteUint8(117)
		e.WriteVarUint(uint64(len(val)))
		for _, item := range val {
			e.WriteAny(item)
		}
	case []byte:
		e.WriteUint8(116)
		e.WriteVarUint8Array(val)
	default:
		e.WriteUint8(127)
	}
}
