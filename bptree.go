// Package bptree is the public facade over a disk-resident B+ tree index
// library: fixed-size pages, a buffer-managed pin/unpin layer, and a
// lifecycle API of init/create/destroy/open/close/insert/scan.
//
// Concurrency is out of scope: the package keeps process-wide state
// (two fixed-size registries and one buffer manager) and is not
// safe for concurrent use from multiple goroutines. Callers needing that
// must wrap the whole API in one coarse mutex rather than relying on any
// internal locking, since none is provided.
package bptree

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/tinyidx/bptree/internal/index"
	"github.com/tinyidx/bptree/internal/storage/pager"
)

// MaxOpenFiles and MaxOpenScans are the fixed sizes of the two
// process-wide registries.
const (
	MaxOpenFiles = 20
	MaxOpenScans = 20
)

type fileSlot struct {
	used bool
	path string
	fd   int
	tree *index.Tree
}

type scanSlot struct {
	used   bool
	handle int // owning file handle, for scans-still-open checks
	scan   *index.Scan
}

var (
	mgr         *pager.Manager
	files       [MaxOpenFiles]fileSlot
	scans       [MaxOpenScans]scanSlot
	initialized bool
)

// Descriptor re-exports the index package's column descriptor so callers
// never need to import internal/index directly.
type Descriptor = index.Descriptor

const (
	KindInt32       = index.KindInt32
	KindFloat32     = index.KindFloat32
	KindFixedString = index.KindFixedString
)

// Op re-exports the scan comparison operator codes (1..6).
type Op = index.Op

const (
	OpEqual          = index.OpEqual
	OpNotEqual       = index.OpNotEqual
	OpLessThan       = index.OpLessThan
	OpGreaterThan    = index.OpGreaterThan
	OpLessOrEqual    = index.OpLessOrEqual
	OpGreaterOrEqual = index.OpGreaterOrEqual
)

func opID() string { return uuid.NewString()[:8] }

// Init initializes the buffer layer (replacement policy fixed to LRU) and
// clears both registries. It must be called once before any other API
// call and may be called again after Shutdown.
func Init() error {
	m, err := pager.NewManager(pager.LRU, pager.DefaultPageSize, pager.DefaultMaxFrames)
	if err != nil {
		return newErr(CodeInitError, "", err)
	}
	mgr = m
	files = [MaxOpenFiles]fileSlot{}
	scans = [MaxOpenScans]scanSlot{}
	initialized = true
	lastError = nil
	log.Printf("bptree[%s]: init", opID())
	return nil
}

// Create validates the descriptors, creates the backing file, writes an
// empty header page, and closes the file. The index is empty on disk
// (root page id 0, meaning "no data pages yet") until the first Insert.
func Create(path string, keyDesc, payloadDesc Descriptor) error {
	if !initialized {
		return newErr(CodeInitError, path, fmt.Errorf("bptree: not initialized"))
	}
	op := opID()
	if err := keyDesc.Validate(); err != nil {
		return newErr(CodeTypeError, path, err)
	}
	if err := payloadDesc.Validate(); err != nil {
		return newErr(CodeTypeError, path, err)
	}

	if err := mgr.CreateFile(path); err != nil {
		return newErr(CodeCreateError, path, err)
	}
	fd, err := mgr.OpenFile(path)
	if err != nil {
		return newErr(CodeCreateError, path, err)
	}
	b, err := mgr.AllocateBlock(fd)
	if err != nil {
		_ = mgr.CloseFile(fd)
		return newErr(CodeCreateError, path, err)
	}
	index.WriteHeader(b.Data(), keyDesc, payloadDesc, pager.NoPage)
	mgr.SetDirty(b)
	if err := mgr.Unpin(b); err != nil {
		_ = mgr.CloseFile(fd)
		return newErr(CodeCreateError, path, err)
	}
	if err := mgr.CloseFile(fd); err != nil {
		return newErr(CodeCreateError, path, err)
	}
	log.Printf("bptree[%s]: create %s", op, path)
	return nil
}

// Destroy removes path from storage. It fails if any open file handle
// still references path.
func Destroy(path string) error {
	if !initialized {
		return newErr(CodeInitError, path, fmt.Errorf("bptree: not initialized"))
	}
	for i := range files {
		if files[i].used && files[i].path == path {
			return newErr(CodeDestroyStillOpen, path, nil)
		}
	}
	if err := mgr.RemoveFile(path); err != nil {
		return newErr(CodeRemoveError, path, err)
	}
	log.Printf("bptree[%s]: destroy %s", opID(), path)
	return nil
}

// Open opens path and returns a non-negative handle for use with Insert,
// OpenScan, and Close.
func Open(path string) (int, error) {
	if !initialized {
		return -1, newErr(CodeInitError, path, fmt.Errorf("bptree: not initialized"))
	}
	slotIdx := -1
	for i := range files {
		if !files[i].used {
			slotIdx = i
			break
		}
	}
	if slotIdx == -1 {
		return -1, newErr(CodeTooManyFiles, path, nil)
	}

	fd, err := mgr.OpenFile(path)
	if err != nil {
		return -1, newErr(CodeOpenError, path, err)
	}
	tree, err := index.OpenTree(mgr, fd)
	if err != nil {
		_ = mgr.CloseFile(fd)
		return -1, newErr(CodeOpenError, path, err)
	}
	files[slotIdx] = fileSlot{used: true, path: path, fd: fd, tree: tree}
	log.Printf("bptree[%s]: open %s -> handle %d", opID(), path, slotIdx)
	return slotIdx, nil
}

// Close closes handle. It fails if any scan opened against handle is
// still open.
func Close(handle int) error {
	slot, err := fileSlotFor(handle)
	if err != nil {
		return err
	}
	for i := range scans {
		if scans[i].used && scans[i].handle == handle {
			return newErr(CodeScansStillOpen, slot.path, nil)
		}
	}
	if err := mgr.CloseFile(slot.fd); err != nil {
		return newErr(CodeCloseError, slot.path, err)
	}
	log.Printf("bptree[%s]: close handle %d", opID(), handle)
	files[handle] = fileSlot{}
	return nil
}

// Insert adds (key, payload) to the index identified by handle.
func Insert(handle int, key, payload []byte) error {
	if handle < 0 || handle >= MaxOpenFiles || !files[handle].used {
		return newErr(CodeFileNotFound, "", fmt.Errorf("bptree: handle %d is not open", handle))
	}
	slot := files[handle]
	if err := slot.tree.Insert(key, payload); err != nil {
		return newErr(CodeInsertError, slot.path, err)
	}
	return nil
}

// OpenScan opens a scan against handle using comparison operator op and
// reference key ref, returning a non-negative scan handle.
func OpenScan(handle int, op Op, ref []byte) (int, error) {
	slot, err := fileSlotFor(handle)
	if err != nil {
		return -1, err
	}
	scanIdx := -1
	for i := range scans {
		if !scans[i].used {
			scanIdx = i
			break
		}
	}
	if scanIdx == -1 {
		return -1, newErr(CodeTooManyScans, slot.path, nil)
	}
	s, err := index.OpenScan(slot.tree, op, ref)
	if err != nil {
		return -1, newErr(CodeInvalidScan, slot.path, err)
	}
	scans[scanIdx] = scanSlot{used: true, handle: handle, scan: s}
	return scanIdx, nil
}

// Next returns the next matching payload from scanHandle, or
// CodeEndOfStream once exhausted.
func Next(scanHandle int) ([]byte, error) {
	slot, err := scanSlotFor(scanHandle)
	if err != nil {
		return nil, err
	}
	_, payload, ok, err := slot.scan.Next()
	if err != nil {
		return nil, newErr(CodeInvalidScan, "", err)
	}
	if !ok {
		return nil, newErr(CodeEndOfStream, "", nil)
	}
	return payload, nil
}

// CloseScan releases scanHandle.
func CloseScan(scanHandle int) error {
	slot, err := scanSlotFor(scanHandle)
	if err != nil {
		return err
	}
	if err := slot.scan.Close(); err != nil {
		return newErr(CodeInvalidScan, "", err)
	}
	scans[scanHandle] = scanSlot{}
	return nil
}

// Shutdown finalizes the buffer layer: every open file is flushed and
// closed, and both registries are cleared.
func Shutdown() error {
	if !initialized {
		return nil
	}
	// Open scans hold pinned leaf pages; release them before the buffer
	// layer tries to flush and close every file.
	for i := range scans {
		if scans[i].used {
			_ = scans[i].scan.Close()
			scans[i] = scanSlot{}
		}
	}
	if err := mgr.Shutdown(); err != nil {
		return newErr(CodeCloseError, "", err)
	}
	files = [MaxOpenFiles]fileSlot{}
	scans = [MaxOpenScans]scanSlot{}
	initialized = false
	mgr = nil
	log.Printf("bptree[%s]: shutdown", opID())
	return nil
}

func fileSlotFor(handle int) (fileSlot, error) {
	if handle < 0 || handle >= MaxOpenFiles || !files[handle].used {
		return fileSlot{}, newErr(CodeNotOpen, "", fmt.Errorf("bptree: handle %d is not open", handle))
	}
	return files[handle], nil
}

func scanSlotFor(handle int) (scanSlot, error) {
	if handle < 0 || handle >= MaxOpenScans || !scans[handle].used {
		return scanSlot{}, newErr(CodeInvalidScan, "", fmt.Errorf("bptree: scan handle %d is not open", handle))
	}
	return scans[handle], nil
}
