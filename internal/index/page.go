package index

import (
	"encoding/binary"
	"fmt"

	"github.com/tinyidx/bptree/internal/storage/pager"
)

// Tag bytes identify a node's on-page role.
const (
	TagRootLeaf     byte = 'o' // root node that is also a leaf
	TagLeaf         byte = 'l' // non-root leaf
	TagRootInternal byte = 'r' // root node that is internal
	TagInternal     byte = 'n' // non-root internal node
)

// HeaderMarker is the first byte of page 0 of every index file.
const HeaderMarker byte = 'b'

// Header page layout: marker(1) keyKind(1) keyWidth(4) payloadKind(1)
// payloadWidth(4) root(4) = 15 bytes.
const (
	headerMarkerOff   = 0
	headerKeyKindOff  = 1
	headerKeyWidthOff = 2
	headerPayKindOff  = 6
	headerPayWidthOff = 7
	headerRootOff     = 11
	HeaderPageSize    = 15
)

// WriteHeader initializes page 0 with the given descriptors and root page.
func WriteHeader(buf []byte, keyDesc, payloadDesc Descriptor, root pager.PageID) {
	buf[headerMarkerOff] = HeaderMarker
	buf[headerKeyKindOff] = byte(keyDesc.Kind)
	binary.LittleEndian.PutUint32(buf[headerKeyWidthOff:], uint32(keyDesc.Width))
	buf[headerPayKindOff] = byte(payloadDesc.Kind)
	binary.LittleEndian.PutUint32(buf[headerPayWidthOff:], uint32(payloadDesc.Width))
	binary.LittleEndian.PutUint32(buf[headerRootOff:], uint32(root))
}

// ReadHeader decodes page 0.
func ReadHeader(buf []byte) (keyDesc, payloadDesc Descriptor, root pager.PageID, err error) {
	if buf[headerMarkerOff] != HeaderMarker {
		return Descriptor{}, Descriptor{}, 0, fmt.Errorf("%w: bad header marker %q", ErrFatal, buf[headerMarkerOff])
	}
	keyDesc = Descriptor{
		Kind:  Kind(buf[headerKeyKindOff]),
		Width: int32(binary.LittleEndian.Uint32(buf[headerKeyWidthOff:])),
	}
	payloadDesc = Descriptor{
		Kind:  Kind(buf[headerPayKindOff]),
		Width: int32(binary.LittleEndian.Uint32(buf[headerPayWidthOff:])),
	}
	root = pager.PageID(int32(binary.LittleEndian.Uint32(buf[headerRootOff:])))
	return keyDesc, payloadDesc, root, nil
}

// SetHeaderRoot updates only the root pointer field of page 0.
func SetHeaderRoot(buf []byte, root pager.PageID) {
	binary.LittleEndian.PutUint32(buf[headerRootOff:], uint32(root))
}

// ErrFatal marks an internal invariant breach, e.g. an unrecognized page
// tag.
var ErrFatal = fmt.Errorf("index: fatal invariant breach")

// ───────────────────────────────────────────────────────────────────────────
// Fanout
// ───────────────────────────────────────────────────────────────────────────

const leafHeaderSize = 1 + 4 + 4 + 4 // tag, entry count, next, prev

// ComputeFanout derives M from the page size and record width, rounded
// down to an even number so splits yield d = M/2 per side.
func ComputeFanout(blockSize int, keyWidth, payloadWidth int32) int {
	recordAndSlot := int(keyWidth) + int(payloadWidth) + 4
	m := (blockSize - leafHeaderSize) / recordAndSlot
	if m%2 == 1 {
		m--
	}
	return m
}

// ───────────────────────────────────────────────────────────────────────────
// Leaf pages
// ───────────────────────────────────────────────────────────────────────────
//
// Layout: tag(1) entryCount(4) next(4) prev(4) [order array: M*int32]
// [record slots: up to M * (keyWidth+payloadWidth), written in insertion
// order]. The order array's first E entries are byte offsets into the page
// pointing at records in ascending key order; the rest are -1.

const (
	leafEntryCountOff = 1
	leafNextOff       = 5
	leafPrevOff       = 9
	leafOrderArrayOff = 13
)

func leafOrderOff(idx int) int { return leafOrderArrayOff + idx*4 }

func leafSlotsOff(m int) int { return leafOrderArrayOff + m*4 }

func leafRecordSize(keyWidth, payloadWidth int32) int { return int(keyWidth + payloadWidth) }

// InitLeaf formats buf as a fresh, empty leaf with the given tag.
func InitLeaf(buf []byte, tag byte, m int) {
	buf[0] = tag
	binary.LittleEndian.PutUint32(buf[leafEntryCountOff:], 0)
	binary.LittleEndian.PutUint32(buf[leafNextOff:], uint32(int32(pager.NoPage)))
	binary.LittleEndian.PutUint32(buf[leafPrevOff:], uint32(int32(pager.NoPage)))
	for i := 0; i < m; i++ {
		SetOrderEntry(buf, i, -1)
	}
}

func ReadTag(buf []byte) byte { return buf[0] }

func IsLeafTag(tag byte) bool     { return tag == TagRootLeaf || tag == TagLeaf }
func IsInternalTag(tag byte) bool { return tag == TagRootInternal || tag == TagInternal }

func ReadLeafEntryCount(buf []byte) int {
	return int(int32(binary.LittleEndian.Uint32(buf[leafEntryCountOff:])))
}

func SetLeafEntryCount(buf []byte, e int) {
	binary.LittleEndian.PutUint32(buf[leafEntryCountOff:], uint32(int32(e)))
}

func ReadLeafNext(buf []byte) pager.PageID {
	return pager.PageID(int32(binary.LittleEndian.Uint32(buf[leafNextOff:])))
}

func SetLeafNext(buf []byte, id pager.PageID) {
	binary.LittleEndian.PutUint32(buf[leafNextOff:], uint32(int32(id)))
}

func ReadLeafPrev(buf []byte) pager.PageID {
	return pager.PageID(int32(binary.LittleEndian.Uint32(buf[leafPrevOff:])))
}

func SetLeafPrev(buf []byte, id pager.PageID) {
	binary.LittleEndian.PutUint32(buf[leafPrevOff:], uint32(int32(id)))
}

// ReadOrderEntry returns the order array's idx-th slot: a byte offset into
// the page, or -1 if unused.
func ReadOrderEntry(buf []byte, idx int) int32 {
	return int32(binary.LittleEndian.Uint32(buf[leafOrderOff(idx):]))
}

func SetOrderEntry(buf []byte, idx int, offset int32) {
	binary.LittleEndian.PutUint32(buf[leafOrderOff(idx):], uint32(offset))
}

// slotOffset returns the byte offset of physical record slot `slot`
// (0-indexed by insertion order, not by sorted order).
func slotOffset(m, slot int, keyWidth, payloadWidth int32) int32 {
	return int32(leafSlotsOff(m) + slot*leafRecordSize(keyWidth, payloadWidth))
}

// WriteLeafRecord writes (key, payload) into physical slot `slot` and
// returns the byte offset it was written at, for use in the order array.
func WriteLeafRecord(buf []byte, m, slot int, key, payload []byte, keyWidth, payloadWidth int32) int32 {
	off := slotOffset(m, slot, keyWidth, payloadWidth)
	copy(buf[off:off+keyWidth], key)
	copy(buf[off+keyWidth:int32(off)+keyWidth+payloadWidth], payload)
	return off
}

// ReadLeafRecordAt reads the record pointed to by order-array entry
// orderIdx, returning slices into buf (valid only until buf is reused).
func ReadLeafRecordAt(buf []byte, orderIdx int, keyWidth, payloadWidth int32) (key, payload []byte) {
	off := ReadOrderEntry(buf, orderIdx)
	key = buf[off : off+keyWidth]
	payload = buf[off+keyWidth : off+keyWidth+payloadWidth]
	return key, payload
}

// ───────────────────────────────────────────────────────────────────────────
// Internal-node pages
// ───────────────────────────────────────────────────────────────────────────
//
// Layout: tag(1) entryCount(4) [C0 K0 C1 K1 ... K_{E-1} C_E], each Ci 4
// bytes and each Ki keyWidth bytes.

const (
	internalEntryCountOff = 1
	internalDataOff       = 5
)

func internalChildOff(i int, keyWidth int32) int {
	return internalDataOff + i*(4+int(keyWidth))
}

func internalKeyOff(i int, keyWidth int32) int {
	return internalChildOff(i, keyWidth) + 4
}

// InitInternal formats buf as a fresh, empty internal node with the given tag.
func InitInternal(buf []byte, tag byte) {
	buf[0] = tag
	binary.LittleEndian.PutUint32(buf[internalEntryCountOff:], 0)
}

func ReadInternalEntryCount(buf []byte) int {
	return int(int32(binary.LittleEndian.Uint32(buf[internalEntryCountOff:])))
}

func SetInternalEntryCount(buf []byte, e int) {
	binary.LittleEndian.PutUint32(buf[internalEntryCountOff:], uint32(int32(e)))
}

// ReadInternalChild returns C_i (0 <= i <= entryCount).
func ReadInternalChild(buf []byte, i int, keyWidth int32) pager.PageID {
	off := internalChildOff(i, keyWidth)
	return pager.PageID(int32(binary.LittleEndian.Uint32(buf[off:])))
}

func SetInternalChild(buf []byte, i int, keyWidth int32, id pager.PageID) {
	off := internalChildOff(i, keyWidth)
	binary.LittleEndian.PutUint32(buf[off:], uint32(int32(id)))
}

// ReadInternalKey returns K_i (0 <= i < entryCount).
func ReadInternalKey(buf []byte, i int, keyWidth int32) []byte {
	off := internalKeyOff(i, keyWidth)
	return buf[off : int32(off)+keyWidth]
}

func SetInternalKey(buf []byte, i int, keyWidth int32, key []byte) {
	off := internalKeyOff(i, keyWidth)
	copy(buf[off:int32(off)+keyWidth], key)
}

// WriteInternalEntry sets K_i = key and C_{i+1} = child, the pair that an
// insert installs together.
func WriteInternalEntry(buf []byte, i int, keyWidth int32, key []byte, child pager.PageID) {
	SetInternalKey(buf, i, keyWidth, key)
	SetInternalChild(buf, i+1, keyWidth, child)
}
