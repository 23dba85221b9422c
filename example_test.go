package bptree_test

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/tinyidx/bptree"
)

// Example walks the full lifecycle: create an int32-keyed index, load a
// few records, and range-scan it back in key order.
func Example() {
	if err := bptree.Init(); err != nil {
		log.Fatal(err)
	}
	defer bptree.Shutdown()

	dir, err := os.MkdirTemp("", "bptree-example-*")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "ages.idx")

	desc := bptree.Descriptor{Kind: bptree.KindInt32, Width: 4}
	if err := bptree.Create(path, desc, desc); err != nil {
		log.Fatal(err)
	}
	h, err := bptree.Open(path)
	if err != nil {
		log.Fatal(err)
	}
	defer bptree.Close(h)

	for _, kv := range [][2]int32{{3, 30}, {1, 10}, {2, 20}} {
		if err := bptree.Insert(h, encode(kv[0]), encode(kv[1])); err != nil {
			log.Fatal(err)
		}
	}

	sh, err := bptree.OpenScan(h, bptree.OpGreaterOrEqual, encode(2))
	if err != nil {
		log.Fatal(err)
	}
	defer bptree.CloseScan(sh)
	for {
		payload, err := bptree.Next(sh)
		if err != nil {
			var be *bptree.Error
			if errors.As(err, &be) && be.Code == bptree.CodeEndOfStream {
				break
			}
			log.Fatal(err)
		}
		fmt.Println(decode(payload))
	}
	// Output:
	// 20
	// 30
}

func encode(v int32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func decode(b []byte) int32 {
	return int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16 | int32(b[3])<<24
}
