// Package pager implements the buffered block layer that the B+ tree core
// treats as an external collaborator: fixed-size page pin/unpin, page
// allocation, and LRU replacement across every open index file in the
// process.
//
// There is no write-ahead log, recovery, or transaction concept here: a
// dirty page is written back to its file when it is evicted from the cache
// or when its file is closed. That eviction/close writeback is the only
// durability primitive this layer provides.
package pager

import (
	"fmt"
	"os"
)

// Policy identifies a buffer replacement policy. LRU is the only one this
// layer implements, but the type mirrors the BF-style contract the Core
// was specified against.
type Policy int

const (
	LRU Policy = iota
)

// PageID identifies a page within a single open file. Page 0 is always
// that file's header page, so it is never a valid tree-node id. NoPage
// reuses 0 as the sentinel for absent sibling pointers and an empty
// tree's root pointer, matching the on-disk format's own reservation of
// block 0 for the header.
type PageID int32

const NoPage PageID = 0

// DefaultPageSize is used when a manager is created without an explicit
// size. Tests that exercise the split path pass their own much smaller
// page size (64 bytes) to keep fanout low.
const DefaultPageSize = 4096

// DefaultMaxFrames bounds the shared cache before LRU eviction kicks in.
const DefaultMaxFrames = 256

type openFile struct {
	path      string
	file      *os.File
	numBlocks int32
}

type cacheKey struct {
	fd int
	id PageID
}

type frame struct {
	key    cacheKey
	buf    []byte
	dirty  bool
	pinned int
	prev   *frame
	next   *frame
}

// Block is a pinned, mutable view onto one page. Callers must release it
// with Manager.Unpin once they are done reading or writing it.
type Block struct {
	fd int
	id PageID
	fr *frame
}

// ID returns the page identifier this block was fetched for.
func (b *Block) ID() PageID { return b.id }

// Data returns the block's mutable backing array. Writes are visible to
// every other holder of the same block and are persisted only after
// Manager.SetDirty and eventual eviction or file close.
func (b *Block) Data() []byte { return b.fr.buf }

// Manager is the process-wide buffer pool shared by every open index file.
// One Manager is created by the library's Init call and torn down by
// Shutdown; it must not be used concurrently from multiple goroutines.
type Manager struct {
	policy    Policy
	pageSize  int
	maxFrames int
	files     map[int]*openFile
	nextFD    int
	cache     map[cacheKey]*frame
	lruHead   *frame // most recently used
	lruTail   *frame // least recently used
}

// NewManager initializes the buffer layer. policy must be LRU; pageSize
// and maxFrames fall back to sane defaults when zero.
func NewManager(policy Policy, pageSize, maxFrames int) (*Manager, error) {
	if policy != LRU {
		return nil, fmt.Errorf("pager: unsupported replacement policy %d", policy)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if maxFrames <= 0 {
		maxFrames = DefaultMaxFrames
	}
	return &Manager{
		policy:    policy,
		pageSize:  pageSize,
		maxFrames: maxFrames,
		files:     make(map[int]*openFile),
		cache:     make(map[cacheKey]*frame),
	}, nil
}

// PageSize returns the fixed block size this manager was configured with.
func (m *Manager) PageSize() int { return m.pageSize }

// CreateFile creates a new, empty backing file. It must not already exist.
func (m *Manager) CreateFile(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return fmt.Errorf("pager: create file %s: %w", path, err)
	}
	return f.Close()
}

// OpenFile opens an existing backing file and returns a file descriptor
// handle for subsequent GetBlock/AllocateBlock/BlockCounter/CloseFile
// calls. The same path may be opened more than once; each open gets its
// own fd and its own view of the shared page cache.
func (m *Manager) OpenFile(path string) (int, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		return 0, fmt.Errorf("pager: open file %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("pager: stat file %s: %w", path, err)
	}
	numBlocks := int32(info.Size() / int64(m.pageSize))
	fd := m.nextFD
	m.nextFD++
	m.files[fd] = &openFile{path: path, file: f, numBlocks: numBlocks}
	return fd, nil
}

// CloseFile flushes every dirty cached page belonging to fd, evicts them
// from the shared cache, and closes the underlying OS file. Pages must not
// be pinned.
func (m *Manager) CloseFile(fd int) error {
	of, ok := m.files[fd]
	if !ok {
		return fmt.Errorf("pager: fd %d is not open", fd)
	}
	for key, fr := range m.cache {
		if key.fd != fd {
			continue
		}
		if fr.pinned > 0 {
			return fmt.Errorf("pager: page %d of fd %d is still pinned", key.id, fd)
		}
		if fr.dirty {
			if err := m.writeBlock(of, fr.key.id, fr.buf); err != nil {
				return err
			}
		}
		m.unlink(fr)
		delete(m.cache, key)
	}
	err := of.file.Close()
	delete(m.files, fd)
	if err != nil {
		return fmt.Errorf("pager: close fd %d: %w", fd, err)
	}
	return nil
}

// RemoveFile deletes the backing file from storage. The caller is
// responsible for ensuring no handle still references path; the buffer
// layer itself does not track that (the open-file registry does).
func (m *Manager) RemoveFile(path string) error {
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("pager: remove file %s: %w", path, err)
	}
	return nil
}

// BlockCounter returns the total number of blocks in fd's file, header
// page included.
func (m *Manager) BlockCounter(fd int) (int32, error) {
	of, ok := m.files[fd]
	if !ok {
		return 0, fmt.Errorf("pager: fd %d is not open", fd)
	}
	return of.numBlocks, nil
}

// AllocateBlock appends a new, zeroed page to fd's file and returns it
// pinned once.
func (m *Manager) AllocateBlock(fd int) (*Block, error) {
	of, ok := m.files[fd]
	if !ok {
		return nil, fmt.Errorf("pager: fd %d is not open", fd)
	}
	id := PageID(of.numBlocks)
	of.numBlocks++
	buf := make([]byte, m.pageSize)
	fr := &frame{key: cacheKey{fd: fd, id: id}, buf: buf, pinned: 1, dirty: true}
	m.insertFrame(fr)
	return &Block{fd: fd, id: id, fr: fr}, nil
}

// GetBlock returns the page at id, pinned. It is served from the shared
// cache when present; otherwise it is read from disk and the cache is
// populated, evicting the least-recently-used unpinned frame if the
// manager is at capacity.
func (m *Manager) GetBlock(fd int, id PageID) (*Block, error) {
	of, ok := m.files[fd]
	if !ok {
		return nil, fmt.Errorf("pager: fd %d is not open", fd)
	}
	key := cacheKey{fd: fd, id: id}
	if fr, ok := m.cache[key]; ok {
		fr.pinned++
		m.moveToFront(fr)
		return &Block{fd: fd, id: id, fr: fr}, nil
	}

	buf := make([]byte, m.pageSize)
	off := int64(id) * int64(m.pageSize)
	if _, err := of.file.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("pager: read page %d of fd %d: %w", id, fd, err)
	}
	fr := &frame{key: key, buf: buf, pinned: 1}
	m.insertFrame(fr)
	return &Block{fd: fd, id: id, fr: fr}, nil
}

// SetDirty marks b's page as modified; it will be written back on
// eviction or file close.
func (m *Manager) SetDirty(b *Block) {
	b.fr.dirty = true
}

// Unpin releases one pin on b. It is an error to unpin a page with no
// outstanding pins.
func (m *Manager) Unpin(b *Block) error {
	if b.fr.pinned <= 0 {
		return fmt.Errorf("pager: page %d of fd %d is not pinned", b.id, b.fd)
	}
	b.fr.pinned--
	return nil
}

// Shutdown finalizes the buffer layer: every dirty page across every open
// file is flushed and every file descriptor is closed.
func (m *Manager) Shutdown() error {
	for fd := range m.files {
		if err := m.CloseFile(fd); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) writeBlock(of *openFile, id PageID, buf []byte) error {
	off := int64(id) * int64(m.pageSize)
	if _, err := of.file.WriteAt(buf, off); err != nil {
		return fmt.Errorf("pager: write page %d of %s: %w", id, of.path, err)
	}
	return nil
}

// insertFrame adds a newly-pinned frame to the cache, evicting the
// least-recently-used unpinned frame first if the manager is full.
func (m *Manager) insertFrame(fr *frame) {
	for len(m.cache) >= m.maxFrames {
		if !m.evictOne() {
			break // every cached frame is pinned; let the cache grow
		}
	}
	m.cache[fr.key] = fr
	m.pushFront(fr)
}

// evictOne removes the least-recently-used unpinned frame, flushing it to
// disk first if dirty. Returns false if nothing could be evicted.
func (m *Manager) evictOne() bool {
	for fr := m.lruTail; fr != nil; fr = fr.prev {
		if fr.pinned != 0 {
			continue
		}
		if fr.dirty {
			if of, ok := m.files[fr.key.fd]; ok {
				_ = m.writeBlock(of, fr.key.id, fr.buf)
			}
		}
		m.unlink(fr)
		delete(m.cache, fr.key)
		return true
	}
	return false
}

func (m *Manager) pushFront(fr *frame) {
	fr.prev = nil
	fr.next = m.lruHead
	if m.lruHead != nil {
		m.lruHead.prev = fr
	}
	m.lruHead = fr
	if m.lruTail == nil {
		m.lruTail = fr
	}
}

func (m *Manager) unlink(fr *frame) {
	if fr.prev != nil {
		fr.prev.next = fr.next
	} else {
		m.lruHead = fr.next
	}
	if fr.next != nil {
		fr.next.prev = fr.prev
	} else {
		m.lruTail = fr.prev
	}
	fr.prev, fr.next = nil, nil
}

func (m *Manager) moveToFront(fr *frame) {
	if m.lruHead == fr {
		return
	}
	m.unlink(fr)
	m.pushFront(fr)
}
