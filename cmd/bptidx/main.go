// Command bptidx is a small CLI/test harness around the bptree library:
// it creates indexes from a YAML manifest, inserts records, and runs
// scans, logging each step the way the library's own lifecycle calls do.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"

	"github.com/tinyidx/bptree"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	if err := bptree.Init(); err != nil {
		log.Fatalf("bptidx: init: %v", err)
	}
	defer bptree.Shutdown()

	var err error
	switch cmd {
	case "create":
		err = runCreate(args)
	case "insert":
		err = runInsert(args)
	case "scan":
		err = runScan(args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("bptidx: %v", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bptidx <create|insert|scan> -manifest FILE [options]")
}

func findIndex(m *Manifest, name string) (*IndexDef, error) {
	for i := range m.Indexes {
		if m.Indexes[i].Name == name {
			return &m.Indexes[i], nil
		}
	}
	return nil, fmt.Errorf("no index named %q in manifest", name)
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "path to YAML index manifest")
	fs.Parse(args)

	m, err := LoadManifest(*manifestPath)
	if err != nil {
		return err
	}
	for _, def := range m.Indexes {
		keyDesc, err := def.Key.toDescriptor()
		if err != nil {
			return err
		}
		payloadDesc, err := def.Payload.toDescriptor()
		if err != nil {
			return err
		}
		if err := bptree.Create(def.Path, keyDesc, payloadDesc); err != nil {
			return fmt.Errorf("create %s: %w", def.Name, err)
		}
		log.Printf("created index %q at %s", def.Name, def.Path)
	}
	return nil
}

func runInsert(args []string) error {
	fs := flag.NewFlagSet("insert", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "path to YAML index manifest")
	name := fs.String("name", "", "index name from the manifest")
	key := fs.String("key", "", "key value")
	payload := fs.String("payload", "", "payload value")
	fs.Parse(args)

	m, err := LoadManifest(*manifestPath)
	if err != nil {
		return err
	}
	def, err := findIndex(m, *name)
	if err != nil {
		return err
	}
	keyDesc, err := def.Key.toDescriptor()
	if err != nil {
		return err
	}
	payloadDesc, err := def.Payload.toDescriptor()
	if err != nil {
		return err
	}
	keyBytes, err := encodeColumn(keyDesc, *key)
	if err != nil {
		return err
	}
	payloadBytes, err := encodeColumn(payloadDesc, *payload)
	if err != nil {
		return err
	}

	h, err := bptree.Open(def.Path)
	if err != nil {
		return err
	}
	defer bptree.Close(h)
	if err := bptree.Insert(h, keyBytes, payloadBytes); err != nil {
		return err
	}
	log.Printf("inserted (%s, %s) into %q", *key, *payload, *name)
	return nil
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	manifestPath := fs.String("manifest", "", "path to YAML index manifest")
	name := fs.String("name", "", "index name from the manifest")
	op := fs.String("op", "eq", "eq|neq|lt|gt|le|ge")
	ref := fs.String("ref", "", "reference key value")
	fs.Parse(args)

	m, err := LoadManifest(*manifestPath)
	if err != nil {
		return err
	}
	def, err := findIndex(m, *name)
	if err != nil {
		return err
	}
	keyDesc, err := def.Key.toDescriptor()
	if err != nil {
		return err
	}
	payloadDesc, err := def.Payload.toDescriptor()
	if err != nil {
		return err
	}
	refBytes, err := encodeColumn(keyDesc, *ref)
	if err != nil {
		return err
	}
	scanOp, err := parseOp(*op)
	if err != nil {
		return err
	}

	h, err := bptree.Open(def.Path)
	if err != nil {
		return err
	}
	defer bptree.Close(h)
	sh, err := bptree.OpenScan(h, scanOp, refBytes)
	if err != nil {
		return err
	}
	defer bptree.CloseScan(sh)

	for {
		p, err := bptree.Next(sh)
		if err != nil {
			if be, ok := err.(*bptree.Error); ok && be.Code == bptree.CodeEndOfStream {
				break
			}
			return err
		}
		fmt.Println(decodeColumn(payloadDesc, p))
	}
	return nil
}

func parseOp(s string) (bptree.Op, error) {
	switch s {
	case "eq":
		return bptree.OpEqual, nil
	case "neq":
		return bptree.OpNotEqual, nil
	case "lt":
		return bptree.OpLessThan, nil
	case "gt":
		return bptree.OpGreaterThan, nil
	case "le":
		return bptree.OpLessOrEqual, nil
	case "ge":
		return bptree.OpGreaterOrEqual, nil
	default:
		return 0, fmt.Errorf("unknown operator %q", s)
	}
}

func encodeColumn(d bptree.Descriptor, s string) ([]byte, error) {
	switch d.Kind {
	case bptree.KindInt32:
		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse int column %q: %w", s, err)
		}
		b := make([]byte, 4)
		u := uint32(int32(v))
		b[0], b[1], b[2], b[3] = byte(u), byte(u>>8), byte(u>>16), byte(u>>24)
		return b, nil
	case bptree.KindFloat32:
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return nil, fmt.Errorf("parse float column %q: %w", s, err)
		}
		bits := math.Float32bits(float32(v))
		b := make([]byte, 4)
		b[0], b[1], b[2], b[3] = byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24)
		return b, nil
	case bptree.KindFixedString:
		if int32(len(s)) > d.Width {
			return nil, fmt.Errorf("string %q exceeds column width %d", s, d.Width)
		}
		b := make([]byte, d.Width)
		copy(b, s)
		return b, nil
	default:
		return nil, fmt.Errorf("unknown column kind %q", d.Kind)
	}
}

func decodeColumn(d bptree.Descriptor, b []byte) string {
	switch d.Kind {
	case bptree.KindInt32:
		u := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		return strconv.FormatInt(int64(int32(u)), 10)
	case bptree.KindFloat32:
		u := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		return strconv.FormatFloat(float64(math.Float32frombits(u)), 'g', -1, 32)
	default:
		return string(b)
	}
}
