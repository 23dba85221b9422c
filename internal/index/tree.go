package index

import (
	"fmt"

	"github.com/tinyidx/bptree/internal/storage/pager"
)

// Tree is a single open B+ tree index: the pager handle it reads and
// writes through, the file descriptor it was opened on, and the key/
// payload shape and fanout derived from the header page.
type Tree struct {
	Mgr         *pager.Manager
	FD          int
	Root        pager.PageID
	KeyDesc     Descriptor
	PayloadDesc Descriptor
	M           int
}

// OpenTree reads fd's header page and derives the fanout from the
// manager's fixed page size. A single M bounds both leaf records and
// internal separators: since a leaf record (key+payload+order slot) is
// always at least as large as an internal entry (key+child pointer),
// the leaf-derived M always leaves an
// internal page with room to spare, so one fanout value serves both page
// shapes (fanout is a single parameter, not one per page kind).
func OpenTree(mgr *pager.Manager, fd int) (*Tree, error) {
	b, err := mgr.GetBlock(fd, 0)
	if err != nil {
		return nil, err
	}
	keyDesc, payloadDesc, root, err := ReadHeader(b.Data())
	if uerr := mgr.Unpin(b); uerr != nil && err == nil {
		err = uerr
	}
	if err != nil {
		return nil, err
	}
	return &Tree{
		Mgr:         mgr,
		FD:          fd,
		Root:        root,
		KeyDesc:     keyDesc,
		PayloadDesc: payloadDesc,
		M:           ComputeFanout(mgr.PageSize(), keyDesc.Width, payloadDesc.Width),
	}, nil
}

// persistRoot writes the tree's current Root back to the header page.
func (t *Tree) persistRoot() error {
	b, err := t.Mgr.GetBlock(t.FD, 0)
	if err != nil {
		return err
	}
	SetHeaderRoot(b.Data(), t.Root)
	t.Mgr.SetDirty(b)
	return t.Mgr.Unpin(b)
}

// allocPage allocates and formats a fresh page with the given tag.
func (t *Tree) allocPage(tag byte) (*pager.Block, error) {
	b, err := t.Mgr.AllocateBlock(t.FD)
	if err != nil {
		return nil, err
	}
	if IsLeafTag(tag) {
		InitLeaf(b.Data(), tag, t.M)
	} else {
		InitInternal(b.Data(), tag)
	}
	t.Mgr.SetDirty(b)
	return b, nil
}

// Insert adds (key, payload) to the tree, growing it by one level from the
// top whenever the root itself splits. This is the only place that knows
// about root promotion; insertInto handles every other page uniformly
// regardless of depth.
func (t *Tree) Insert(key, payload []byte) error {
	if err := t.validateColumn(key, t.KeyDesc); err != nil {
		return err
	}
	if err := t.validateColumn(payload, t.PayloadDesc); err != nil {
		return err
	}

	if t.Root == pager.NoPage {
		b, err := t.allocPage(TagRootLeaf)
		if err != nil {
			return err
		}
		insertLeafRecord(b.Data(), t.M, t.KeyDesc, t.PayloadDesc, key, payload)
		t.Mgr.SetDirty(b)
		t.Root = b.ID()
		if err := t.Mgr.Unpin(b); err != nil {
			return err
		}
		return t.persistRoot()
	}

	sep, err := t.insertInto(t.Root, key, payload)
	if err != nil {
		return err
	}
	if sep == nil {
		return nil
	}

	// The root split: demote its tag from root- to non-root-flavored and
	// allocate a fresh internal root above both halves.
	oldRoot, err := t.Mgr.GetBlock(t.FD, t.Root)
	if err != nil {
		return err
	}
	switch ReadTag(oldRoot.Data()) {
	case TagRootLeaf:
		oldRoot.Data()[0] = TagLeaf
	case TagRootInternal:
		oldRoot.Data()[0] = TagInternal
	}
	t.Mgr.SetDirty(oldRoot)
	if err := t.Mgr.Unpin(oldRoot); err != nil {
		return err
	}

	newRoot, err := t.allocPage(TagRootInternal)
	if err != nil {
		return err
	}
	SetInternalChild(newRoot.Data(), 0, t.KeyDesc.Width, t.Root)
	WriteInternalEntry(newRoot.Data(), 0, t.KeyDesc.Width, sep.key, sep.child)
	SetInternalEntryCount(newRoot.Data(), 1)
	t.Mgr.SetDirty(newRoot)
	t.Root = newRoot.ID()
	if err := t.Mgr.Unpin(newRoot); err != nil {
		return err
	}
	return t.persistRoot()
}

func (t *Tree) validateColumn(b []byte, d Descriptor) error {
	if int32(len(b)) != d.Width {
		return fmt.Errorf("index: value of width %d does not match column width %d", len(b), d.Width)
	}
	return nil
}
