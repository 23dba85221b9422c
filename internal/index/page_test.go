package index

import (
	"bytes"
	"testing"

	"github.com/tinyidx/bptree/internal/storage/pager"
)

func TestHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, HeaderPageSize)
	keyDesc := Descriptor{KindInt32, 4}
	payloadDesc := Descriptor{KindInt32, 4}
	WriteHeader(buf, keyDesc, payloadDesc, pager.PageID(7))

	gotKey, gotPayload, gotRoot, err := ReadHeader(buf)
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if gotKey != keyDesc || gotPayload != payloadDesc {
		t.Fatalf("descriptor mismatch: got %+v/%+v", gotKey, gotPayload)
	}
	if gotRoot != 7 {
		t.Fatalf("expected root 7, got %d", gotRoot)
	}

	SetHeaderRoot(buf, pager.NoPage)
	_, _, gotRoot, err = ReadHeader(buf)
	if err != nil {
		t.Fatalf("ReadHeader after SetHeaderRoot: %v", err)
	}
	if gotRoot != pager.NoPage {
		t.Fatalf("expected NoPage root, got %d", gotRoot)
	}
}

func TestReadHeaderRejectsBadMarker(t *testing.T) {
	buf := make([]byte, HeaderPageSize)
	if _, _, _, err := ReadHeader(buf); err == nil {
		t.Fatal("expected error for zeroed (unmarked) header page")
	}
}

func TestComputeFanoutIsEven(t *testing.T) {
	m := ComputeFanout(64, 4, 4)
	if m != 4 {
		t.Fatalf("expected M=4 for a 64-byte page with 4/4 columns, got %d", m)
	}
	if m%2 != 0 {
		t.Fatalf("fanout must be even, got %d", m)
	}
}

func TestLeafInitAndRecordRoundTrip(t *testing.T) {
	m := 4
	kw, pw := int32(4), int32(4)
	buf := make([]byte, 64)
	InitLeaf(buf, TagRootLeaf, m)

	if ReadTag(buf) != TagRootLeaf {
		t.Fatalf("expected tag %q, got %q", TagRootLeaf, ReadTag(buf))
	}
	if ReadLeafEntryCount(buf) != 0 {
		t.Fatal("expected empty leaf")
	}
	if ReadLeafNext(buf) != pager.NoPage || ReadLeafPrev(buf) != pager.NoPage {
		t.Fatal("expected no siblings on a fresh leaf")
	}

	off := WriteLeafRecord(buf, m, 0, EncodeInt32(5), EncodeInt32(50), kw, pw)
	SetOrderEntry(buf, 0, off)
	SetLeafEntryCount(buf, 1)

	k, p := ReadLeafRecordAt(buf, 0, kw, pw)
	if DecodeInt32(k) != 5 || DecodeInt32(p) != 50 {
		t.Fatalf("expected (5,50), got (%d,%d)", DecodeInt32(k), DecodeInt32(p))
	}
}

func TestInternalInitAndEntryRoundTrip(t *testing.T) {
	kw := int32(4)
	buf := make([]byte, 64)
	InitInternal(buf, TagRootInternal)

	if ReadTag(buf) != TagRootInternal {
		t.Fatal("expected root-internal tag")
	}
	if ReadInternalEntryCount(buf) != 0 {
		t.Fatal("expected empty internal node")
	}

	SetInternalChild(buf, 0, kw, pager.PageID(1))
	WriteInternalEntry(buf, 0, kw, EncodeInt32(10), pager.PageID(2))
	SetInternalEntryCount(buf, 1)

	if ReadInternalChild(buf, 0, kw) != 1 {
		t.Fatal("expected left child 1")
	}
	if ReadInternalChild(buf, 1, kw) != 2 {
		t.Fatal("expected right child 2")
	}
	if !bytes.Equal(ReadInternalKey(buf, 0, kw), EncodeInt32(10)) {
		t.Fatal("expected separator key 10")
	}
}
