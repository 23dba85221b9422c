package bptree

import (
	"errors"
	"path/filepath"
	"testing"
)

func setup(t *testing.T) string {
	t.Helper()
	if err := Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() {
		if err := Shutdown(); err != nil {
			t.Fatalf("Shutdown: %v", err)
		}
	})
	return filepath.Join(t.TempDir(), "idx.dat")
}

func codeOf(t *testing.T, err error) Code {
	t.Helper()
	var be *Error
	if !errors.As(err, &be) {
		t.Fatalf("expected *bptree.Error, got %T (%v)", err, err)
	}
	return be.Code
}

// S1: create; insert (5,50); equal-scan 5 -> [50]; equal-scan 6 -> [].
func TestScenarioS1(t *testing.T) {
	path := setup(t)
	keyDesc := Descriptor{Kind: KindInt32, Width: 4}
	payloadDesc := Descriptor{Kind: KindInt32, Width: 4}
	if err := Create(path, keyDesc, payloadDesc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	h, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := Insert(h, enc32(5), enc32(50)); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	sh, err := OpenScan(h, OpEqual, enc32(5))
	if err != nil {
		t.Fatalf("OpenScan: %v", err)
	}
	p, err := Next(sh)
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if dec32(p) != 50 {
		t.Fatalf("expected 50, got %d", dec32(p))
	}
	if _, err := Next(sh); codeOf(t, err) != CodeEndOfStream {
		t.Fatalf("expected end-of-stream, got %v", err)
	}
	if err := CloseScan(sh); err != nil {
		t.Fatalf("CloseScan: %v", err)
	}

	sh2, err := OpenScan(h, OpEqual, enc32(6))
	if err != nil {
		t.Fatalf("OpenScan: %v", err)
	}
	if _, err := Next(sh2); codeOf(t, err) != CodeEndOfStream {
		t.Fatalf("expected immediate end-of-stream for absent key, got %v", err)
	}
	if err := CloseScan(sh2); err != nil {
		t.Fatalf("CloseScan: %v", err)
	}
	if err := Close(h); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// S6: destroy fails while any handle for the path is open; closing the
// handle then destroying succeeds and the file no longer exists.
func TestScenarioS6(t *testing.T) {
	path := setup(t)
	keyDesc := Descriptor{Kind: KindInt32, Width: 4}
	payloadDesc := Descriptor{Kind: KindInt32, Width: 4}
	if err := Create(path, keyDesc, payloadDesc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	h, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := Destroy(path); codeOf(t, err) != CodeDestroyStillOpen {
		t.Fatalf("expected destroy-still-open, got %v", err)
	}
	if err := Close(h); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := Destroy(path); err != nil {
		t.Fatalf("Destroy after close: %v", err)
	}
	if _, err := Open(path); err == nil {
		t.Fatal("expected Open to fail after Destroy removed the file")
	}
}

func TestCloseRejectsWhileScanOpen(t *testing.T) {
	path := setup(t)
	keyDesc := Descriptor{Kind: KindInt32, Width: 4}
	payloadDesc := Descriptor{Kind: KindInt32, Width: 4}
	if err := Create(path, keyDesc, payloadDesc); err != nil {
		t.Fatalf("Create: %v", err)
	}
	h, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := Insert(h, enc32(1), enc32(1)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	sh, err := OpenScan(h, OpGreaterOrEqual, enc32(0))
	if err != nil {
		t.Fatalf("OpenScan: %v", err)
	}
	if err := Close(h); codeOf(t, err) != CodeScansStillOpen {
		t.Fatalf("expected scans-still-open, got %v", err)
	}
	if err := CloseScan(sh); err != nil {
		t.Fatalf("CloseScan: %v", err)
	}
	if err := Close(h); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCreateRejectsBadDescriptor(t *testing.T) {
	path := setup(t)
	bad := Descriptor{Kind: KindInt32, Width: 8}
	payloadDesc := Descriptor{Kind: KindInt32, Width: 4}
	if err := Create(path, bad, payloadDesc); codeOf(t, err) != CodeTypeError {
		t.Fatalf("expected type-error, got %v", err)
	}
}

func TestOpenRejectsUnknownFile(t *testing.T) {
	path := setup(t)
	if _, err := Open(path); err == nil {
		t.Fatal("expected Open to fail on a nonexistent file")
	}
}

func TestTooManyFiles(t *testing.T) {
	_ = setup(t)
	var handles []int
	for i := 0; i < MaxOpenFiles; i++ {
		path := filepath.Join(t.TempDir(), "idx.dat")
		if err := Create(path, Descriptor{Kind: KindInt32, Width: 4}, Descriptor{Kind: KindInt32, Width: 4}); err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		h, err := Open(path)
		if err != nil {
			t.Fatalf("Open %d: %v", i, err)
		}
		handles = append(handles, h)
	}
	extraPath := filepath.Join(t.TempDir(), "idx.dat")
	if err := Create(extraPath, Descriptor{Kind: KindInt32, Width: 4}, Descriptor{Kind: KindInt32, Width: 4}); err != nil {
		t.Fatalf("Create extra: %v", err)
	}
	if _, err := Open(extraPath); codeOf(t, err) != CodeTooManyFiles {
		t.Fatalf("expected too-many-files, got %v", err)
	}
	for _, h := range handles {
		if err := Close(h); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}
}

func enc32(v int32) []byte {
	b := make([]byte, 4)
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
	return b
}

func dec32(b []byte) int32 {
	return int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16 | int32(b[3])<<24
}
