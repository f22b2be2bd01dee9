package per

import (
	"bytes"
	"encoding/asn1"
	"errors"
	"testing"
)

func TestConstrainedWholeNumberWidths(t *testing.T) {
	w := NewWriter()
	if err := w.WriteEnumerated(3, false, 2); err != nil {
		t.Fatalf("enumerated: %v", err)
	}
	if err := w.WriteBoundedUint(0, 255, false, 7); err != nil {
		t.Fatalf("one-octet: %v", err)
	}
	if err := w.WriteBoundedUint(0, 65535, false, 0x1234); err != nil {
		t.Fatalf("two-octet: %v", err)
	}
	want := []byte{0x80, 0x07, 0x12, 0x34}
	if got := w.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("encoding mismatch: got=%x want=%x", got, want)
	}

	r := NewReader(want)
	idx, err := r.ReadEnumerated(3, false)
	if err != nil || idx != 2 {
		t.Fatalf("read enumerated: idx=%d err=%v", idx, err)
	}
	v, err := r.ReadBoundedUint(0, 255, false)
	if err != nil || v != 7 {
		t.Fatalf("read one-octet: v=%d err=%v", v, err)
	}
	v, err = r.ReadBoundedUint(0, 65535, false)
	if err != nil || v != 0x1234 {
		t.Fatalf("read two-octet: v=%d err=%v", v, err)
	}
	if err := r.Finish(); err != nil {
		t.Fatalf("finish: %v", err)
	}
}

func TestExtensibleIntegerEscape(t *testing.T) {
	w := NewWriter()
	if err := w.WriteBoundedUint(0, 7, true, 300); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := []byte{0x80, 0x02, 0x01, 0x2C}
	if got := w.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("encoding mismatch: got=%x want=%x", got, want)
	}
	v, err := NewReader(want).ReadBoundedUint(0, 7, true)
	if err != nil || v != 300 {
		t.Fatalf("read: v=%d err=%v", v, err)
	}
}

func TestBoundedUintOutOfRange(t *testing.T) {
	w := NewWriter()
	err := w.WriteBoundedUint(1, 10, false, 11)
	var ce ConstraintError
	if !errors.As(err, &ce) || !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ConstraintError, got %v", err)
	}

	// 4 bits can carry 15, which is outside 0..9.
	r := NewReader([]byte{0xF0})
	if _, err := r.ReadBoundedUint(0, 9, false); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestOpenTypeEmptyAndLongForm(t *testing.T) {
	w := NewWriter()
	if err := w.WriteOpenType(nil); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	if got := w.Bytes(); !bytes.Equal(got, []byte{0x01, 0x00}) {
		t.Fatalf("empty open type: got=%x", got)
	}

	payload := bytes.Repeat([]byte{0xAB}, 200)
	w = NewWriter()
	_ = w.WriteBool(true)
	if err := w.WriteOpenType(payload); err != nil {
		t.Fatalf("write long: %v", err)
	}
	b := w.Bytes()
	if b[0] != 0x80 || b[1] != 0x80 || b[2] != 0xC8 {
		t.Fatalf("unexpected prefix: %x", b[:3])
	}

	r := NewReader(b)
	if flag, _ := r.ReadBool(); !flag {
		t.Fatalf("expected leading bit")
	}
	got, err := r.ReadOpenType()
	if err != nil {
		t.Fatalf("read long: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestOpenTypeTruncated(t *testing.T) {
	r := NewReader([]byte{0x05, 0x01, 0x02})
	if _, err := r.ReadOpenType(); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestHugeFixedOctetStringTruncated(t *testing.T) {
	r := NewReader([]byte{0x01})
	if _, err := r.ReadOctetString(1<<62, 1<<62, false); !errors.Is(err, ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestFragmentedLengthRejected(t *testing.T) {
	w := NewWriter()
	if err := w.WriteOpenType(make([]byte, 16384)); !errors.Is(err, ErrFragmented) {
		t.Fatalf("expected ErrFragmented on write, got %v", err)
	}
	r := NewReader([]byte{0xC1, 0x00})
	if _, err := r.ReadOpenType(); !errors.Is(err, ErrFragmented) {
		t.Fatalf("expected ErrFragmented on read, got %v", err)
	}
}

func TestFinishDetectsTrailingOctets(t *testing.T) {
	r := NewReader([]byte{0x80, 0x00})
	if _, err := r.ReadBool(); err != nil {
		t.Fatalf("read bool: %v", err)
	}
	if err := r.Finish(); !errors.Is(err, ErrTrailingData) {
		t.Fatalf("expected ErrTrailingData, got %v", err)
	}
	if err := NewReader([]byte{0x00}).Finish(); err != nil {
		t.Fatalf("empty open-type marker should finish cleanly: %v", err)
	}
}

func TestOctetStringSizes(t *testing.T) {
	cases := []struct {
		name       string
		min, max   uint64
		extensible bool
		value      []byte
	}{
		{name: "fixed-short", min: 2, max: 2, value: []byte{0x01, 0x02}},
		{name: "fixed-long", min: 4, max: 4, value: []byte{1, 2, 3, 4}},
		{name: "bounded", min: 1, max: 32, value: []byte("cell-7")},
		{name: "unbounded", min: 0, max: 1 << 20, value: []byte("payload")},
		{name: "extension", min: 1, max: 2, extensible: true, value: []byte("long value")},
	}
	for _, tc := range cases {
		w := NewWriter()
		_ = w.WriteBool(true)
		if err := w.WriteOctetString(tc.min, tc.max, tc.extensible, tc.value); err != nil {
			t.Fatalf("%s: write: %v", tc.name, err)
		}
		r := NewReader(w.Bytes())
		_, _ = r.ReadBool()
		got, err := r.ReadOctetString(tc.min, tc.max, tc.extensible)
		if err != nil {
			t.Fatalf("%s: read: %v", tc.name, err)
		}
		if !bytes.Equal(got, tc.value) {
			t.Fatalf("%s: got=%x want=%x", tc.name, got, tc.value)
		}
		if err := r.Finish(); err != nil {
			t.Fatalf("%s: finish: %v", tc.name, err)
		}
	}
}

func TestBitStringFixedAndBounded(t *testing.T) {
	w := NewWriter()
	cell := asn1.BitString{Bytes: []byte{0xAB, 0xCD, 0xE0}, BitLength: 20}
	if err := w.WriteBitString(20, 20, false, cell); err != nil {
		t.Fatalf("fixed: %v", err)
	}
	flags := asn1.BitString{Bytes: []byte{0xA0}, BitLength: 3}
	if err := w.WriteBitString(1, 8, false, flags); err != nil {
		t.Fatalf("bounded: %v", err)
	}
	r := NewReader(w.Bytes())
	got, err := r.ReadBitString(20, 20, false)
	if err != nil || got.BitLength != 20 || !bytes.Equal(got.Bytes, cell.Bytes) {
		t.Fatalf("fixed read: %+v err=%v", got, err)
	}
	got, err = r.ReadBitString(1, 8, false)
	if err != nil || got.BitLength != 3 || got.Bytes[0] != 0xA0 {
		t.Fatalf("bounded read: %+v err=%v", got, err)
	}
}

func TestChoiceIndexExtension(t *testing.T) {
	w := NewWriter()
	if err := w.WriteChoiceIndex(3, true, 1, false); err != nil {
		t.Fatalf("root: %v", err)
	}
	if err := w.WriteChoiceIndex(3, true, 4, true); err != nil {
		t.Fatalf("extended: %v", err)
	}
	r := NewReader(w.Bytes())
	idx, ext, err := r.ReadChoiceIndex(3, true)
	if err != nil || ext || idx != 1 {
		t.Fatalf("root read: idx=%d ext=%v err=%v", idx, ext, err)
	}
	idx, ext, err = r.ReadChoiceIndex(3, true)
	if err != nil || !ext || idx != 4 {
		t.Fatalf("extended read: idx=%d ext=%v err=%v", idx, ext, err)
	}
}

func TestLargeRangeInteger(t *testing.T) {
	w := NewWriter()
	if err := w.WriteBoundedUint(0, 1<<32-1, false, 70000); err != nil {
		t.Fatalf("write: %v", err)
	}
	v, err := NewReader(w.Bytes()).ReadBoundedUint(0, 1<<32-1, false)
	if err != nil || v != 70000 {
		t.Fatalf("read: v=%d err=%v", v, err)
	}
}
