package index

import (
	"github.com/tinyidx/bptree/internal/storage/pager"
)

// separator is what a split propagates up to its parent: the smallest key
// of the newly-created right-hand sibling, and that sibling's page id.
// nil means "no split happened, nothing to propagate". Returning it
// explicitly makes "did this call split" a property of the return value
// instead of caller-managed mutable state.
type separator struct {
	key   []byte
	child pager.PageID
}

// insertInto recursively inserts (key, payload) starting at page id,
// returning a non-nil separator exactly when id's page split and its
// parent (or Tree.Insert, for the root) must install a new entry.
func (t *Tree) insertInto(id pager.PageID, key, payload []byte) (*separator, error) {
	b, err := t.Mgr.GetBlock(t.FD, id)
	if err != nil {
		return nil, err
	}
	tag := ReadTag(b.Data())

	if IsLeafTag(tag) {
		sep, err := t.insertLeaf(b, key, payload)
		if uerr := t.Mgr.Unpin(b); uerr != nil && err == nil {
			err = uerr
		}
		return sep, err
	}
	if !IsInternalTag(tag) {
		t.Mgr.Unpin(b)
		return nil, ErrFatal
	}

	childID := childFor(b.Data(), key, t.KeyDesc)
	if err := t.Mgr.Unpin(b); err != nil {
		return nil, err
	}

	childSep, err := t.insertInto(childID, key, payload)
	if err != nil {
		return nil, err
	}
	if childSep == nil {
		return nil, nil
	}

	b, err = t.Mgr.GetBlock(t.FD, id)
	if err != nil {
		return nil, err
	}
	sep, err := t.insertInternal(b, childSep)
	if uerr := t.Mgr.Unpin(b); uerr != nil && err == nil {
		err = uerr
	}
	return sep, err
}

// insertLeaf installs (key, payload) into leaf page b, splitting it first
// if it is already at capacity.
func (t *Tree) insertLeaf(b *pager.Block, key, payload []byte) (*separator, error) {
	buf := b.Data()
	entries := ReadLeafEntryCount(buf)

	if entries < t.M {
		insertLeafRecord(buf, t.M, t.KeyDesc, t.PayloadDesc, key, payload)
		t.Mgr.SetDirty(b)
		return nil, nil
	}

	return t.splitLeaf(b, key, payload)
}

// insertLeafRecord inserts (key, payload) into a leaf with room to spare,
// keeping the order array sorted ascending by key.
func insertLeafRecord(buf []byte, m int, keyDesc, payloadDesc Descriptor, key, payload []byte) {
	entries := ReadLeafEntryCount(buf)
	off := WriteLeafRecord(buf, m, entries, key, payload, keyDesc.Width, payloadDesc.Width)

	pos := 0
	for ; pos < entries; pos++ {
		existing, _ := ReadLeafRecordAt(buf, pos, keyDesc.Width, payloadDesc.Width)
		if CompareKeys(key, existing, keyDesc) < 0 {
			break
		}
	}
	for i := entries; i > pos; i-- {
		SetOrderEntry(buf, i, ReadOrderEntry(buf, i-1))
	}
	SetOrderEntry(buf, pos, off)
	SetLeafEntryCount(buf, entries+1)
}

// splitLeaf splits a full leaf: the existing M entries
// are split evenly first (first d stay, last d move to a new right
// sibling), then the new entry is inserted into whichever side its key
// belongs in by comparing against the new sibling's smallest key.
func (t *Tree) splitLeaf(b *pager.Block, key, payload []byte) (*separator, error) {
	buf := b.Data()
	m := t.M
	d := m / 2
	kw, pw := t.KeyDesc.Width, t.PayloadDesc.Width

	// Snapshot the M sorted records and the sibling pointers before
	// reformatting the page; InitLeaf resets both.
	type rec struct{ key, payload []byte }
	recs := make([]rec, m)
	for i := 0; i < m; i++ {
		k, p := ReadLeafRecordAt(buf, i, kw, pw)
		recs[i] = rec{append([]byte(nil), k...), append([]byte(nil), p...)}
	}
	oldNext := ReadLeafNext(buf)
	oldPrev := ReadLeafPrev(buf)

	InitLeaf(buf, TagLeaf, m) // old leaf is never root after a split
	SetLeafPrev(buf, oldPrev)
	for i := 0; i < d; i++ {
		off := WriteLeafRecord(buf, m, i, recs[i].key, recs[i].payload, kw, pw)
		SetOrderEntry(buf, i, off)
	}
	SetLeafEntryCount(buf, d)

	right, err := t.allocPage(TagLeaf)
	if err != nil {
		return nil, err
	}
	rbuf := right.Data()
	for i := 0; i < d; i++ {
		src := recs[d+i]
		off := WriteLeafRecord(rbuf, m, i, src.key, src.payload, kw, pw)
		SetOrderEntry(rbuf, i, off)
	}
	SetLeafEntryCount(rbuf, d)

	// Splice the new right sibling into the leaf chain.
	SetLeafNext(rbuf, oldNext)
	SetLeafPrev(rbuf, b.ID())
	if oldNext != pager.NoPage {
		nb, err := t.Mgr.GetBlock(t.FD, oldNext)
		if err != nil {
			return nil, err
		}
		SetLeafPrev(nb.Data(), right.ID())
		t.Mgr.SetDirty(nb)
		if err := t.Mgr.Unpin(nb); err != nil {
			return nil, err
		}
	}
	SetLeafNext(buf, right.ID())

	t.Mgr.SetDirty(b)
	t.Mgr.SetDirty(right)

	rightSmallest, _ := ReadLeafRecordAt(rbuf, 0, kw, pw)
	if CompareKeys(key, rightSmallest, t.KeyDesc) < 0 {
		insertLeafRecord(buf, m, t.KeyDesc, t.PayloadDesc, key, payload)
	} else {
		insertLeafRecord(rbuf, m, t.KeyDesc, t.PayloadDesc, key, payload)
	}

	sepKey, _ := ReadLeafRecordAt(rbuf, 0, kw, pw)
	sep := &separator{key: append([]byte(nil), sepKey...), child: right.ID()}
	if err := t.Mgr.Unpin(right); err != nil {
		return nil, err
	}
	return sep, nil
}

// insertInternal installs childSep into internal page b, splitting it
// first if it is already at capacity.
func (t *Tree) insertInternal(b *pager.Block, childSep *separator) (*separator, error) {
	buf := b.Data()
	entries := ReadInternalEntryCount(buf)

	if entries < t.M {
		insertInternalEntry(buf, t.KeyDesc, childSep.key, childSep.child)
		t.Mgr.SetDirty(b)
		return nil, nil
	}

	return t.splitInternal(b, childSep)
}

// insertInternalEntry finds the position where childSep.key belongs among
// an internal node's existing separators and shifts the tail of the
// key/child arrays right to make room for it, preserving ascending order.
func insertInternalEntry(buf []byte, keyDesc Descriptor, key []byte, child pager.PageID) {
	entries := ReadInternalEntryCount(buf)
	kw := keyDesc.Width

	pos := 0
	for ; pos < entries; pos++ {
		if CompareKeys(key, ReadInternalKey(buf, pos, kw), keyDesc) < 0 {
			break
		}
	}
	for i := entries; i > pos; i-- {
		SetInternalKey(buf, i, kw, ReadInternalKey(buf, i-1, kw))
		SetInternalChild(buf, i+1, kw, ReadInternalChild(buf, i, kw))
	}
	SetInternalKey(buf, pos, kw, key)
	SetInternalChild(buf, pos+1, kw, child)
	SetInternalEntryCount(buf, entries+1)
}

// splitInternal resolves the arithmetic ambiguity in splitting an internal
// node by combining the existing M keys/M+1 children with the incoming
// separator into one M+1-key/M+2-child array, splitting at its true
// median, and promoting the median key to the parent rather than keeping
// it on either side (the standard B+ tree internal-split rule).
func (t *Tree) splitInternal(b *pager.Block, childSep *separator) (*separator, error) {
	buf := b.Data()
	m := t.M
	kw := t.KeyDesc.Width

	keys := make([][]byte, 0, m+1)
	children := make([]pager.PageID, 0, m+2)
	children = append(children, ReadInternalChild(buf, 0, kw))
	for i := 0; i < m; i++ {
		keys = append(keys, append([]byte(nil), ReadInternalKey(buf, i, kw)...))
		children = append(children, ReadInternalChild(buf, i+1, kw))
	}

	pos := 0
	for ; pos < len(keys); pos++ {
		if CompareKeys(childSep.key, keys[pos], t.KeyDesc) < 0 {
			break
		}
	}
	keys = append(keys, nil)
	copy(keys[pos+1:], keys[pos:])
	keys[pos] = childSep.key
	children = append(children, pager.NoPage)
	copy(children[pos+2:], children[pos+1:])
	children[pos+1] = childSep.child

	d := (m + 1) / 2 // true median index; promoted key, not kept on either side
	upKey := keys[d]

	InitInternal(buf, TagInternal) // old node is never root after a split
	SetInternalChild(buf, 0, kw, children[0])
	for i := 0; i < d; i++ {
		SetInternalKey(buf, i, kw, keys[i])
		SetInternalChild(buf, i+1, kw, children[i+1])
	}
	SetInternalEntryCount(buf, d)
	t.Mgr.SetDirty(b)

	right, err := t.allocPage(TagInternal)
	if err != nil {
		return nil, err
	}
	rbuf := right.Data()
	rightKeys := keys[d+1:]
	rightChildren := children[d+1:]
	SetInternalChild(rbuf, 0, kw, rightChildren[0])
	for i, k := range rightKeys {
		SetInternalKey(rbuf, i, kw, k)
		SetInternalChild(rbuf, i+1, kw, rightChildren[i+1])
	}
	SetInternalEntryCount(rbuf, len(rightKeys))
	t.Mgr.SetDirty(right)

	sep := &separator{key: upKey, child: right.ID()}
	if err := t.Mgr.Unpin(right); err != nil {
		return nil, err
	}
	return sep, nil
}
