package ie

import (
	"errors"
	"fmt"
	"testing"

	"github.com/danmuck/iectl/internal/protocol/per"
)

const (
	idCounter  ID = 10
	idLabel    ID = 11
	idSibType  ID = 20
	idSibBody  ID = 21
	idPoisoned ID = 22
	idNested   ID = 30
	idUnknown  ID = 999
)

var errPoisoned = errors.New("poisoned value")

func testPrimitives() Primitives {
	return Primitives{
		NewReader: func(b []byte) PrimitiveReader { return per.NewReader(b) },
		NewWriter: func() PrimitiveWriter { return per.NewWriter() },
	}
}

func integerBinding(name string, min, max uint64) Binding {
	return Binding{
		Name: name,
		Decode: func(_ *DecodeContext, r PrimitiveReader) (Value, error) {
			v, err := r.ReadBoundedUint(min, max, false)
			if err != nil {
				return nil, err
			}
			return Integer(v), nil
		},
		Encode: func(_ *EncodeContext, w PrimitiveWriter, v Value) error {
			x, ok := v.(Integer)
			if !ok {
				return fmt.Errorf("%w: %s", ErrValueMismatch, name)
			}
			return w.WriteBoundedUint(min, max, false, uint64(x))
		},
	}
}

func labelBinding() Binding {
	return Binding{
		Name: "Label",
		Decode: func(_ *DecodeContext, r PrimitiveReader) (Value, error) {
			b, err := r.ReadOctetString(1, 16, false)
			if err != nil {
				return nil, err
			}
			return OctetString(b), nil
		},
		Encode: func(_ *EncodeContext, w PrimitiveWriter, v Value) error {
			x, ok := v.(OctetString)
			if !ok {
				return ErrValueMismatch
			}
			return w.WriteOctetString(1, 16, false, x)
		},
	}
}

func sibTypeBinding() Binding {
	inner := integerBinding("SibType", 0, 15)
	return Binding{
		Name: "SibType",
		Decode: func(dc *DecodeContext, r PrimitiveReader) (Value, error) {
			v, err := inner.Decode(dc, r)
			if err != nil {
				return nil, err
			}
			dc.SetScratch("sib_type", uint64(v.(Integer)))
			return v, nil
		},
		Encode: inner.Encode,
	}
}

// sibBodyBinding only understands sib_type 6.
func sibBodyBinding() Binding {
	inner := integerBinding("Sib6", 0, 65535)
	return Binding{
		Name: "SibBody",
		Decode: func(dc *DecodeContext, r PrimitiveReader) (Value, error) {
			sel, err := dc.Selector("sib_type")
			if err != nil {
				return nil, err
			}
			if sel != 6 {
				return nil, fmt.Errorf("%w: sib_type=%d", ErrUnknownSelector, sel)
			}
			v, err := inner.Decode(dc, r)
			if err != nil {
				return nil, err
			}
			return Selected{Selector: sel, Value: v}, nil
		},
		Encode: func(ec *EncodeContext, w PrimitiveWriter, v Value) error {
			s, ok := v.(Selected)
			if !ok {
				return ErrValueMismatch
			}
			return inner.Encode(ec, w, s.Value)
		},
	}
}

// poisonedBinding records a discriminator and then fails.
func poisonedBinding() Binding {
	return Binding{
		Name: "Poisoned",
		Decode: func(dc *DecodeContext, r PrimitiveReader) (Value, error) {
			if _, err := r.ReadBoundedUint(0, 255, false); err != nil {
				return nil, err
			}
			dc.SetScratch("sib_type", 6)
			return nil, errPoisoned
		},
		Encode: func(_ *EncodeContext, w PrimitiveWriter, _ Value) error {
			return w.WriteBoundedUint(0, 255, false, 0)
		},
	}
}

func nestedBinding() Binding {
	return Binding{
		Name: "Nested",
		Decode: func(dc *DecodeContext, r PrimitiveReader) (Value, error) {
			return DecodeContainer(dc, r, ProtocolIEs)
		},
		Encode: func(ec *EncodeContext, w PrimitiveWriter, v Value) error {
			c, ok := v.(*Container)
			if !ok {
				return ErrValueMismatch
			}
			return EncodeContainer(ec, w, c, ProtocolIEs)
		},
	}
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	bindings := map[ID]Binding{
		idCounter:  integerBinding("Counter", 0, 255),
		idLabel:    labelBinding(),
		idSibType:  sibTypeBinding(),
		idSibBody:  sibBodyBinding(),
		idPoisoned: poisonedBinding(),
		idNested:   nestedBinding(),
	}
	for id, b := range bindings {
		if err := reg.RegisterIE(Protocol, id, b); err != nil {
			t.Fatalf("register %d: %v", id, err)
		}
	}
	if err := reg.RegisterIE(Extension, 1, integerBinding("ExtCounter", 0, 255)); err != nil {
		t.Fatalf("register extension: %v", err)
	}
	if err := reg.RegisterIE(Private, 1, labelBinding()); err != nil {
		t.Fatalf("register private: %v", err)
	}
	return reg
}

func encodeContainer(t *testing.T, reg *Registry, c *Container, spec ContainerSpec) []byte {
	t.Helper()
	prims := testPrimitives()
	w := prims.NewWriter()
	if err := EncodeContainer(NewEncodeContext(reg, prims), w, c, spec); err != nil {
		t.Fatalf("encode container: %v", err)
	}
	return w.Bytes()
}

func decodeContainer(reg *Registry, buf []byte, spec ContainerSpec) (*Container, *DecodeContext, error) {
	prims := testPrimitives()
	dc := NewDecodeContext(reg, prims)
	r := prims.NewReader(buf)
	c, err := DecodeContainer(dc, r, spec)
	if err != nil {
		return nil, dc, err
	}
	if err := r.Finish(); err != nil {
		return nil, dc, err
	}
	return c, dc, nil
}

func field(id ID, crit Criticality, v Value) Field {
	return Field{ID: id, Criticality: crit, Value: v}
}

func container(fields ...Field) *Container {
	return &Container{Namespace: Protocol, Fields: fields}
}
