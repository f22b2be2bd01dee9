package ie

import (
	"errors"
	"testing"

	"github.com/danmuck/iectl/internal/testutil/testlog"
)

func TestScratchScopes(t *testing.T) {
	testlog.Start(t)

	dc := NewDecodeContext(NewRegistry(), testPrimitives())
	outer := dc.beginContainer()
	dc.SetScratch("sib_type", 3)

	inner := dc.beginContainer()
	if _, ok := dc.Scratch("sib_type"); ok {
		t.Fatalf("inner container sees outer scratch")
	}
	dc.SetScratch("sib_type", 9)
	if err := dc.endContainer(outer); !errors.Is(err, ErrUnexpectedContainerEnd) {
		t.Fatalf("expected out-of-order close error, got %v", err)
	}
	if err := dc.endContainer(inner); err != nil {
		t.Fatalf("close inner: %v", err)
	}

	v, err := dc.Selector("sib_type")
	if err != nil || v != 3 {
		t.Fatalf("outer scratch = %d, %v", v, err)
	}
	if err := dc.endContainer(outer); err != nil {
		t.Fatalf("close outer: %v", err)
	}
	if _, err := dc.Selector("sib_type"); !errors.Is(err, ErrMissingDisambiguation) {
		t.Fatalf("expected ErrMissingDisambiguation after close, got %v", err)
	}
	if err := dc.endContainer(outer); !errors.Is(err, ErrUnexpectedContainerEnd) {
		t.Fatalf("root scope must not close, got %v", err)
	}
}

func TestRollbackRestoresPrevious(t *testing.T) {
	testlog.Start(t)

	dc := NewDecodeContext(NewRegistry(), testPrimitives())
	scope := dc.beginContainer()
	dc.SetScratch("k", 1)

	mark := len(dc.journal)
	dc.SetScratch("k", 2)
	dc.SetScratch("j", 5)
	dc.rollback(mark)

	if v, _ := dc.Scratch("k"); v != 1 {
		t.Fatalf("k = %d, want 1", v)
	}
	if _, ok := dc.Scratch("j"); ok {
		t.Fatalf("j should be removed")
	}
	if err := dc.endContainer(scope); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(dc.journal) != 0 {
		t.Fatalf("journal should reset at root, len=%d", len(dc.journal))
	}
}

func TestDecodeOpenTrailingData(t *testing.T) {
	testlog.Start(t)

	dc := NewDecodeContext(NewRegistry(), testPrimitives())
	b := integerBinding("Counter", 0, 255)
	if v, err := dc.DecodeOpen(b, []byte{0x05}); err != nil || v != Integer(5) {
		t.Fatalf("DecodeOpen = %v, %v", v, err)
	}
	if _, err := dc.DecodeOpen(b, []byte{0x05, 0x00}); !errors.Is(err, ErrMalformedValue) {
		t.Fatalf("expected ErrMalformedValue, got %v", err)
	}
}

func TestEncodeOpenOpaque(t *testing.T) {
	testlog.Start(t)

	ec := NewEncodeContext(NewRegistry(), testPrimitives())
	raw, err := ec.EncodeOpen(Binding{Name: "none"}, Opaque{0xde, 0xad})
	if err != nil || len(raw) != 2 || raw[0] != 0xde {
		t.Fatalf("EncodeOpen opaque = % x, %v", raw, err)
	}
	if _, err := ec.EncodeOpen(Binding{Name: "none"}, Integer(1)); !errors.Is(err, ErrInvalidBinding) {
		t.Fatalf("expected ErrInvalidBinding, got %v", err)
	}
}
