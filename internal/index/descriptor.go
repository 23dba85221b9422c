// Package index implements the disk-resident B+ tree core: the on-page
// codec, the recursive insert with splitting, root-to-leaf descent, and
// the leaf-chain scan iterator. Everything here operates on pages pinned
// through internal/storage/pager; it never touches a file directly.
package index

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Kind identifies how a descriptor's bytes compare to one another.
type Kind byte

const (
	KindInt32       Kind = 'i'
	KindFloat32     Kind = 'f'
	KindFixedString Kind = 'c'
)

// Descriptor describes the on-disk shape of either the key or the payload
// column of an index: its kind and its fixed byte width.
type Descriptor struct {
	Kind  Kind
	Width int32
}

// Validate checks that Width is legal for Kind: 'i' and 'f' columns are
// always 4 bytes wide, 'c' columns are 1..255.
func (d Descriptor) Validate() error {
	switch d.Kind {
	case KindInt32:
		if d.Width != 4 {
			return fmt.Errorf("%w: integer width must be 4, got %d", ErrType, d.Width)
		}
	case KindFloat32:
		if d.Width != 4 {
			return fmt.Errorf("%w: float width must be 4, got %d", ErrType, d.Width)
		}
	case KindFixedString:
		if d.Width < 1 || d.Width > 255 {
			return fmt.Errorf("%w: string width must be 1..255, got %d", ErrType, d.Width)
		}
	default:
		return fmt.Errorf("%w: unknown descriptor kind %q", ErrType, rune(d.Kind))
	}
	return nil
}

// ErrType is wrapped by every descriptor validation failure.
var ErrType = fmt.Errorf("index: invalid descriptor")

// EncodeInt32 encodes v as a little-endian 4-byte key/payload value.
func EncodeInt32(v int32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return buf
}

// DecodeInt32 decodes a 4-byte little-endian value written by EncodeInt32.
func DecodeInt32(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}

// EncodeFloat32 encodes v as a little-endian 4-byte key/payload value.
func EncodeFloat32(v float32) []byte {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
	return buf
}

// DecodeFloat32 decodes a 4-byte little-endian value written by EncodeFloat32.
func DecodeFloat32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

// EncodeFixedString zero-pads (or rejects, if too long) s to width bytes.
func EncodeFixedString(s string, width int32) ([]byte, error) {
	if int32(len(s)) > width {
		return nil, fmt.Errorf("%w: string %q exceeds width %d", ErrType, s, width)
	}
	buf := make([]byte, width)
	copy(buf, s)
	return buf, nil
}

// CompareKeys is the sole key comparator in this package: every other
// component (descent, insert, scan) routes through it rather than
// open-coding comparisons.
func CompareKeys(a, b []byte, d Descriptor) int {
	switch d.Kind {
	case KindInt32:
		av, bv := DecodeInt32(a), DecodeInt32(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case KindFloat32:
		av, bv := DecodeFloat32(a), DecodeFloat32(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default: // KindFixedString: lexicographic, zero-padded (both are fixed width)
		return bytes.Compare(a, b)
	}
}
