package index

import "testing"

func TestDescriptorValidate(t *testing.T) {
	cases := []struct {
		name string
		d    Descriptor
		ok   bool
	}{
		{"int32 ok", Descriptor{KindInt32, 4}, true},
		{"int32 bad width", Descriptor{KindInt32, 8}, false},
		{"float32 ok", Descriptor{KindFloat32, 4}, true},
		{"fixed string ok", Descriptor{KindFixedString, 1}, true},
		{"fixed string max", Descriptor{KindFixedString, 255}, true},
		{"fixed string too wide", Descriptor{KindFixedString, 256}, false},
		{"fixed string zero width", Descriptor{KindFixedString, 0}, false},
		{"unknown kind", Descriptor{Kind('x'), 4}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.d.Validate()
			if c.ok && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !c.ok && err == nil {
				t.Fatalf("expected error, got nil")
			}
		})
	}
}

func TestCompareKeysInt32(t *testing.T) {
	d := Descriptor{KindInt32, 4}
	a, b := EncodeInt32(3), EncodeInt32(5)
	if CompareKeys(a, b, d) >= 0 {
		t.Fatal("expected 3 < 5")
	}
	if CompareKeys(b, a, d) <= 0 {
		t.Fatal("expected 5 > 3")
	}
	if CompareKeys(a, a, d) != 0 {
		t.Fatal("expected 3 == 3")
	}
}

func TestCompareKeysFloat32(t *testing.T) {
	d := Descriptor{KindFloat32, 4}
	a, b := EncodeFloat32(1.5), EncodeFloat32(2.5)
	if CompareKeys(a, b, d) >= 0 {
		t.Fatal("expected 1.5 < 2.5")
	}
}

func TestCompareKeysFixedString(t *testing.T) {
	d := Descriptor{KindFixedString, 8}
	a, err := EncodeFixedString("apple", 8)
	if err != nil {
		t.Fatalf("EncodeFixedString: %v", err)
	}
	b, err := EncodeFixedString("banana", 8)
	if err != nil {
		t.Fatalf("EncodeFixedString: %v", err)
	}
	if CompareKeys(a, b, d) >= 0 {
		t.Fatal("expected apple < banana")
	}
}

func TestEncodeFixedStringTooLong(t *testing.T) {
	if _, err := EncodeFixedString("too long for this column", 4); err == nil {
		t.Fatal("expected error for oversized string")
	}
}
