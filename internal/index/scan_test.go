package index

import "testing"

func TestScanOnEmptyTreeIsImmediatelyExhausted(t *testing.T) {
	tr := newTestTree(t)
	s, err := OpenScan(tr, OpGreaterOrEqual, EncodeInt32(0))
	if err != nil {
		t.Fatalf("OpenScan: %v", err)
	}
	_, _, ok, err := s.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if ok {
		t.Fatal("expected immediate end-of-stream on an empty tree")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestScanStaysExhaustedAfterEnd(t *testing.T) {
	tr := newTestTree(t)
	if err := tr.Insert(EncodeInt32(1), EncodeInt32(10)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	s, err := OpenScan(tr, OpEqual, EncodeInt32(1))
	if err != nil {
		t.Fatalf("OpenScan: %v", err)
	}
	_, _, ok, err := s.Next()
	if err != nil || !ok {
		t.Fatalf("expected one match, got ok=%v err=%v", ok, err)
	}
	for i := 0; i < 3; i++ {
		_, _, ok, err := s.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if ok {
			t.Fatal("expected scan to remain exhausted")
		}
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestScanLessOrEqualBoundary(t *testing.T) {
	tr := newTestTree(t)
	for i := int32(1); i <= 6; i++ {
		if err := tr.Insert(EncodeInt32(i), EncodeInt32(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	got := scanAll(t, tr, OpLessOrEqual, EncodeInt32(4))
	assertInt32Slice(t, got, []int32{1, 2, 3, 4})
}

func TestScanGreaterThanBoundary(t *testing.T) {
	tr := newTestTree(t)
	for i := int32(1); i <= 6; i++ {
		if err := tr.Insert(EncodeInt32(i), EncodeInt32(i)); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	got := scanAll(t, tr, OpGreaterThan, EncodeInt32(4))
	assertInt32Slice(t, got, []int32{5, 6})
}

func TestOpString(t *testing.T) {
	if OpEqual.String() != "=" || OpNotEqual.String() != "!=" {
		t.Fatal("unexpected Op.String() output")
	}
}
