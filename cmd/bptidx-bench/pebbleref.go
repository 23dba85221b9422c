// pebbleref.go wraps CockroachDB's Pebble LSM engine behind a minimal
// interface so it can serve as a reference comparison index alongside
// this repository's own B+ tree during benchmarking.
package main

import (
	"encoding/binary"
	"fmt"

	"github.com/cockroachdb/pebble"
)

type pebbleIndex struct {
	db  *pebble.DB
	dir string
}

// openPebbleRef opens (or creates) a throwaway Pebble database under dir.
func openPebbleRef(dir string) (*pebbleIndex, error) {
	opts := &pebble.Options{
		MemTableSize:                16 << 20,
		MemTableStopWritesThreshold: 4,
		L0CompactionThreshold:       4,
		L0StopWritesThreshold:       12,
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("bptidx-bench: pebble open: %w", err)
	}
	return &pebbleIndex{db: db, dir: dir}, nil
}

func (p *pebbleIndex) Close() error {
	return p.db.Close()
}

func (p *pebbleIndex) Insert(key int32, payload []byte) error {
	return p.db.Set(pebbleKey(key), payload, pebble.NoSync)
}

// ScanEqual mirrors bptree's equal scan. Pebble keeps one value per key,
// so it returns zero or one match.
func (p *pebbleIndex) ScanEqual(key int32) ([]byte, bool, error) {
	val, closer, err := p.db.Get(pebbleKey(key))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("bptidx-bench: pebble get: %w", err)
	}
	out := make([]byte, len(val))
	copy(out, val)
	closer.Close()
	return out, true, nil
}

// ScanRange iterates [lo, hi] inclusive and returns the number of hits,
// matching the shape of a bptree GREATER_OR_EQUAL/LESS_OR_EQUAL bracket.
func (p *pebbleIndex) ScanRange(lo, hi int32) (int, error) {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: pebbleKey(lo),
		UpperBound: pebbleKey(hi + 1),
	})
	if err != nil {
		return 0, fmt.Errorf("bptidx-bench: pebble range: %w", err)
	}
	defer iter.Close()
	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, nil
}

// pebbleKey encodes an int32 as a big-endian 4-byte slice with the sign
// bit flipped so pebble's lexicographic ordering matches numeric ordering.
func pebbleKey(k int32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(k)^0x80000000)
	return b
}
