package index

import (
	"fmt"

	"github.com/tinyidx/bptree/internal/storage/pager"
)

// Descend walks from root to the leaf that key belongs in, following the
// standard "first child whose separator exceeds key" rule at each internal
// node. It returns that leaf pinned exactly once; the caller must Unpin it.
//
// An empty tree (root == pager.NoPage) has no leaf to descend to; callers
// must handle that case themselves (it only arises before the first
// insert allocates a root leaf).
func Descend(mgr *pager.Manager, fd int, root pager.PageID, key []byte, keyDesc Descriptor) (*pager.Block, error) {
	if root == pager.NoPage {
		return nil, fmt.Errorf("index: descend called on an empty tree")
	}
	cur := root
	for {
		b, err := mgr.GetBlock(fd, cur)
		if err != nil {
			return nil, err
		}
		tag := ReadTag(b.Data())
		if IsLeafTag(tag) {
			return b, nil
		}
		if !IsInternalTag(tag) {
			mgr.Unpin(b)
			return nil, fmt.Errorf("%w: unrecognized page tag %q at page %d", ErrFatal, tag, cur)
		}
		next := childFor(b.Data(), key, keyDesc)
		mgr.Unpin(b)
		cur = next
	}
}

// childFor picks C_i such that key < K_i for the first such i, or C_E if
// key is >= every separator, i.e. the standard B+ tree routing rule.
func childFor(buf []byte, key []byte, keyDesc Descriptor) pager.PageID {
	entries := ReadInternalEntryCount(buf)
	for i := 0; i < entries; i++ {
		k := ReadInternalKey(buf, i, keyDesc.Width)
		if CompareKeys(key, k, keyDesc) < 0 {
			return ReadInternalChild(buf, i, keyDesc.Width)
		}
	}
	return ReadInternalChild(buf, entries, keyDesc.Width)
}

// DescendLeftmost returns the leftmost leaf of the tree, pinned once: the
// starting point for a full scan or a less-than/less-or-equal scan.
func DescendLeftmost(mgr *pager.Manager, fd int, root pager.PageID) (*pager.Block, error) {
	if root == pager.NoPage {
		return nil, fmt.Errorf("index: descend called on an empty tree")
	}
	cur := root
	for {
		b, err := mgr.GetBlock(fd, cur)
		if err != nil {
			return nil, err
		}
		tag := ReadTag(b.Data())
		if IsLeafTag(tag) {
			return b, nil
		}
		if !IsInternalTag(tag) {
			mgr.Unpin(b)
			return nil, fmt.Errorf("%w: unrecognized page tag %q at page %d", ErrFatal, tag, cur)
		}
		next := ReadInternalChild(b.Data(), 0, 0 /* keyWidth unused for C0 */)
		mgr.Unpin(b)
		cur = next
	}
}
