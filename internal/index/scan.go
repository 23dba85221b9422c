package index

import (
	"fmt"

	"github.com/tinyidx/bptree/internal/storage/pager"
)

// Op is a scan comparison operator: 1=EQUAL 2=NOT_EQUAL 3=LESS_THAN
// 4=GREATER_THAN 5=LESS_OR_EQUAL 6=GREATER_OR_EQUAL.
type Op int

const (
	OpEqual Op = iota + 1
	OpNotEqual
	OpLessThan
	OpGreaterThan
	OpLessOrEqual
	OpGreaterOrEqual
)

func (op Op) String() string {
	switch op {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpLessThan:
		return "<"
	case OpGreaterThan:
		return ">"
	case OpLessOrEqual:
		return "<="
	case OpGreaterOrEqual:
		return ">="
	default:
		return fmt.Sprintf("Op(%d)", int(op))
	}
}

// Scan is an open, positioned iterator over one tree's leaf chain. Each
// operator picks its own entry point and stopping rule so that ordered
// operators (everything but NOT_EQUAL) never walk past the last matching
// key.
type Scan struct {
	tree *Tree
	op   Op
	ref  []byte // scan-owned copy; the caller's buffer is not retained
	leaf *pager.Block
	idx  int
	done bool
}

// OpenScan positions a new scan at the correct starting leaf/index for op
// and ref without reading past it:
//
//	EQUAL / GREATER_THAN / GREATER_OR_EQUAL: descend to ref's search leaf.
//	NOT_EQUAL / LESS_THAN / LESS_OR_EQUAL:   start at the leftmost leaf.
func OpenScan(t *Tree, op Op, ref []byte) (*Scan, error) {
	s := &Scan{tree: t, op: op, ref: append([]byte(nil), ref...)}
	if t.Root == pager.NoPage {
		s.done = true
		return s, nil
	}

	var leaf *pager.Block
	var err error
	switch op {
	case OpEqual, OpGreaterThan, OpGreaterOrEqual:
		leaf, err = Descend(t.Mgr, t.FD, t.Root, ref, t.KeyDesc)
	default:
		leaf, err = DescendLeftmost(t.Mgr, t.FD, t.Root)
	}
	if err != nil {
		return nil, err
	}

	s.leaf = leaf
	s.idx = startIndex(leaf.Data(), op, s.ref, t.KeyDesc, t.PayloadDesc)
	return s, nil
}

// startIndex returns the first order-array index a scan with the given
// operator should examine.
func startIndex(buf []byte, op Op, ref []byte, keyDesc, payloadDesc Descriptor) int {
	entries := ReadLeafEntryCount(buf)
	switch op {
	case OpEqual, OpGreaterOrEqual:
		// first key >= ref
		for i := 0; i < entries; i++ {
			k, _ := ReadLeafRecordAt(buf, i, keyDesc.Width, payloadDesc.Width)
			if CompareKeys(k, ref, keyDesc) >= 0 {
				return i
			}
		}
		return entries
	case OpGreaterThan:
		// first key > ref
		for i := 0; i < entries; i++ {
			k, _ := ReadLeafRecordAt(buf, i, keyDesc.Width, payloadDesc.Width)
			if CompareKeys(k, ref, keyDesc) > 0 {
				return i
			}
		}
		return entries
	default: // NOT_EQUAL, LESS_THAN, LESS_OR_EQUAL all start at the first record
		return 0
	}
}

// Next advances the scan and returns the next qualifying (key, payload)
// pair. ok is false once the scan is exhausted. Stopping rules:
//
//	EQUAL:            stop at the first key that no longer equals ref
//	LESS_THAN:        stop at the first key >= ref
//	LESS_OR_EQUAL:     stop at the first key > ref
//	GREATER_THAN / GREATER_OR_EQUAL / NOT_EQUAL: run to end of chain
func (s *Scan) Next() (key, payload []byte, ok bool, err error) {
	if s.done {
		return nil, nil, false, nil
	}
	t := s.tree
	kw, pw := t.KeyDesc.Width, t.PayloadDesc.Width

	for {
		buf := s.leaf.Data()
		entries := ReadLeafEntryCount(buf)

		if s.idx >= entries {
			next := ReadLeafNext(buf)
			if next == pager.NoPage {
				return s.finish()
			}
			nb, err := t.Mgr.GetBlock(t.FD, next)
			if err != nil {
				return nil, nil, false, err
			}
			if uerr := t.Mgr.Unpin(s.leaf); uerr != nil {
				return nil, nil, false, uerr
			}
			s.leaf = nb
			s.idx = 0
			continue
		}

		k, p := ReadLeafRecordAt(buf, s.idx, kw, pw)

		switch s.op {
		case OpEqual:
			if CompareKeys(k, s.ref, t.KeyDesc) != 0 {
				return s.finish()
			}
		case OpLessThan:
			if CompareKeys(k, s.ref, t.KeyDesc) >= 0 {
				return s.finish()
			}
		case OpLessOrEqual:
			if CompareKeys(k, s.ref, t.KeyDesc) > 0 {
				return s.finish()
			}
		case OpNotEqual:
			if CompareKeys(k, s.ref, t.KeyDesc) == 0 {
				s.idx++
				continue
			}
		case OpGreaterThan, OpGreaterOrEqual:
			// no stopping condition short of end of chain
		}

		keyOut := append([]byte(nil), k...)
		payOut := append([]byte(nil), p...)
		s.idx++
		return keyOut, payOut, true, nil
	}
}

func (s *Scan) finish() ([]byte, []byte, bool, error) {
	s.done = true
	if s.leaf != nil {
		err := s.tree.Mgr.Unpin(s.leaf)
		s.leaf = nil
		if err != nil {
			return nil, nil, false, err
		}
	}
	return nil, nil, false, nil
}

// Close releases the scan's pinned leaf, if any. It is safe to call after
// Next has already returned ok=false.
func (s *Scan) Close() error {
	if s.done || s.leaf == nil {
		return nil
	}
	err := s.tree.Mgr.Unpin(s.leaf)
	s.leaf = nil
	s.done = true
	return err
}
