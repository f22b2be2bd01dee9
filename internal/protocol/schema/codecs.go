package schema

import (
	"encoding/asn1"
	"fmt"

	"github.com/danmuck/iectl/internal/protocol/ie"
)

// codec is one compiled grammar node.
type codec interface {
	decode(dc *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error)
	encode(ec *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error
}

func binding(name string, c codec) ie.Binding {
	return ie.Binding{Name: name, Decode: c.decode, Encode: c.encode}
}

func mismatch(want string, v ie.Value) error {
	return fmt.Errorf("%w: want %s, got %T", ie.ErrValueMismatch, want, v)
}

type integerCodec struct {
	min, max   uint64
	extensible bool
}

func (c integerCodec) decode(_ *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	v, err := r.ReadBoundedUint(c.min, c.max, c.extensible)
	if err != nil {
		return nil, err
	}
	return ie.Integer(v), nil
}

func (c integerCodec) encode(_ *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error {
	x, ok := v.(ie.Integer)
	if !ok {
		return mismatch("integer", v)
	}
	return w.WriteBoundedUint(c.min, c.max, c.extensible, uint64(x))
}

type enumeratedCodec struct {
	count      uint64
	extensible bool
}

func (c enumeratedCodec) decode(_ *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	v, err := r.ReadEnumerated(c.count, c.extensible)
	if err != nil {
		return nil, err
	}
	return ie.Enumerated(v), nil
}

func (c enumeratedCodec) encode(_ *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error {
	x, ok := v.(ie.Enumerated)
	if !ok {
		return mismatch("enumerated", v)
	}
	return w.WriteEnumerated(c.count, c.extensible, uint64(x))
}

type booleanCodec struct{}

func (booleanCodec) decode(_ *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	v, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	return ie.Boolean(v), nil
}

func (booleanCodec) encode(_ *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error {
	x, ok := v.(ie.Boolean)
	if !ok {
		return mismatch("boolean", v)
	}
	return w.WriteBool(bool(x))
}

type octetsCodec struct {
	min, max   uint64
	extensible bool
}

func (c octetsCodec) decode(_ *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	b, err := r.ReadOctetString(c.min, c.max, c.extensible)
	if err != nil {
		return nil, err
	}
	return ie.OctetString(b), nil
}

func (c octetsCodec) encode(_ *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error {
	x, ok := v.(ie.OctetString)
	if !ok {
		return mismatch("octet string", v)
	}
	return w.WriteOctetString(c.min, c.max, c.extensible, x)
}

type bitsCodec struct {
	min, max   uint64
	extensible bool
}

func (c bitsCodec) decode(_ *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	bs, err := r.ReadBitString(c.min, c.max, c.extensible)
	if err != nil {
		return nil, err
	}
	return ie.BitString(bs), nil
}

func (c bitsCodec) encode(_ *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error {
	x, ok := v.(ie.BitString)
	if !ok {
		return mismatch("bit string", v)
	}
	return w.WriteBitString(c.min, c.max, c.extensible, asn1.BitString(x))
}

// printableCodec carries PrintableString characters one per octet.
type printableCodec struct {
	min, max   uint64
	extensible bool
}

func printable(s []byte) error {
	for _, ch := range s {
		switch {
		case ch >= 'a' && ch <= 'z', ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		case ch == ' ', ch == '\'', ch == '(', ch == ')', ch == '+', ch == ',',
			ch == '-', ch == '.', ch == '/', ch == ':', ch == '=', ch == '?':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidString, ch)
		}
	}
	return nil
}

func (c printableCodec) decode(_ *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	b, err := r.ReadOctetString(c.min, c.max, c.extensible)
	if err != nil {
		return nil, err
	}
	if err := printable(b); err != nil {
		return nil, err
	}
	return ie.Printable(b), nil
}

func (c printableCodec) encode(_ *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error {
	x, ok := v.(ie.Printable)
	if !ok {
		return mismatch("printable string", v)
	}
	if err := printable([]byte(x)); err != nil {
		return err
	}
	return w.WriteOctetString(c.min, c.max, c.extensible, []byte(x))
}

type member struct {
	name     string
	optional bool
	codec    codec
}

// sequenceCodec writes the extension bit, then one presence bit per optional
// member (iE-Extensions last), then the members in order. Additions are kept
// as raw open types by bitmap position.
type sequenceCodec struct {
	members    []member
	extensible bool
	extensions bool
}

func (c *sequenceCodec) decode(dc *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	extended := false
	if c.extensible {
		bit, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		extended = bit
	}

	var present []bool
	for _, m := range c.members {
		if !m.optional {
			continue
		}
		bit, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		present = append(present, bit)
	}
	hasExt := false
	if c.extensions {
		bit, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		hasExt = bit
	}

	seq := ie.Sequence{Members: make([]ie.Member, 0, len(c.members))}
	opt := 0
	for _, m := range c.members {
		if m.optional {
			ok := present[opt]
			opt++
			if !ok {
				continue
			}
		}
		v, err := m.codec.decode(dc, r)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", m.name, err)
		}
		seq.Members = append(seq.Members, ie.Member{Name: m.name, Value: v})
	}
	if hasExt {
		ext, err := ie.DecodeContainer(dc, r, ie.ProtocolExtensions)
		if err != nil {
			return nil, err
		}
		seq.Extensions = ext
	}
	if extended {
		additions, err := decodeAdditions(r)
		if err != nil {
			return nil, err
		}
		seq.Additions = additions
	}
	return seq, nil
}

func decodeAdditions(r ie.PrimitiveReader) ([][]byte, error) {
	n, err := r.ReadNormallySmall()
	if err != nil {
		return nil, err
	}
	n++
	present := make([]bool, n)
	for i := range present {
		bit, err := r.ReadBool()
		if err != nil {
			return nil, err
		}
		present[i] = bit
	}
	out := make([][]byte, n)
	for i, ok := range present {
		if !ok {
			continue
		}
		raw, err := r.ReadOpenType()
		if err != nil {
			return nil, err
		}
		out[i] = raw
	}
	return out, nil
}

func (c *sequenceCodec) encode(ec *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error {
	seq, ok := v.(ie.Sequence)
	if !ok {
		return mismatch("sequence", v)
	}
	if len(seq.Additions) > 0 && !c.extensible {
		return fmt.Errorf("%w: additions on a closed sequence", ie.ErrValueMismatch)
	}
	if seq.Extensions != nil && !c.extensions {
		return fmt.Errorf("%w: extensions on a sequence without iE-Extensions", ie.ErrValueMismatch)
	}

	values := make([]ie.Value, len(c.members))
	found := 0
	for i, m := range c.members {
		if mv, ok := seq.Get(m.name); ok {
			values[i] = mv
			found++
		} else if !m.optional {
			return fmt.Errorf("%w: missing member %s", ie.ErrValueMismatch, m.name)
		}
	}
	if found != len(seq.Members) {
		return fmt.Errorf("%w: sequence carries undeclared members", ie.ErrValueMismatch)
	}

	if c.extensible {
		if err := w.WriteBool(len(seq.Additions) > 0); err != nil {
			return err
		}
	}
	for i, m := range c.members {
		if m.optional {
			if err := w.WriteBool(values[i] != nil); err != nil {
				return err
			}
		}
	}
	if c.extensions {
		if err := w.WriteBool(seq.Extensions != nil); err != nil {
			return err
		}
	}
	for i, m := range c.members {
		if values[i] == nil {
			continue
		}
		if err := m.codec.encode(ec, w, values[i]); err != nil {
			return fmt.Errorf("%s: %w", m.name, err)
		}
	}
	if seq.Extensions != nil {
		if err := ie.EncodeContainer(ec, w, seq.Extensions, ie.ProtocolExtensions); err != nil {
			return err
		}
	}
	if len(seq.Additions) > 0 {
		if err := w.WriteNormallySmall(uint64(len(seq.Additions) - 1)); err != nil {
			return err
		}
		for _, raw := range seq.Additions {
			if err := w.WriteBool(raw != nil); err != nil {
				return err
			}
		}
		for _, raw := range seq.Additions {
			if raw == nil {
				continue
			}
			if err := w.WriteOpenType(raw); err != nil {
				return err
			}
		}
	}
	return nil
}

type listCodec struct {
	min, max   uint64
	extensible bool
	item       codec
}

func (c *listCodec) decode(dc *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	n, err := r.ReadLength(c.min, c.max, c.extensible)
	if err != nil {
		return nil, err
	}
	out := make(ie.List, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := c.item.decode(dc, r)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *listCodec) encode(ec *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error {
	list, ok := v.(ie.List)
	if !ok {
		return mismatch("list", v)
	}
	if err := w.WriteLength(c.min, c.max, c.extensible, uint64(len(list))); err != nil {
		return err
	}
	for i, item := range list {
		if err := c.item.encode(ec, w, item); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// choiceCodec keeps unknown extension alternatives as opaque open types.
type choiceCodec struct {
	alternatives []member
	extensible   bool
}

func (c *choiceCodec) decode(dc *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	idx, extended, err := r.ReadChoiceIndex(uint64(len(c.alternatives)), c.extensible)
	if err != nil {
		return nil, err
	}
	if extended {
		raw, err := r.ReadOpenType()
		if err != nil {
			return nil, err
		}
		return ie.Choice{Index: idx, Extended: true, Value: ie.Opaque(raw)}, nil
	}
	alt := c.alternatives[idx]
	v, err := alt.codec.decode(dc, r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", alt.name, err)
	}
	return ie.Choice{Index: idx, Name: alt.name, Value: v}, nil
}

func (c *choiceCodec) encode(ec *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error {
	ch, ok := v.(ie.Choice)
	if !ok {
		return mismatch("choice", v)
	}
	if ch.Extended {
		raw, ok := ch.Value.(ie.Opaque)
		if !ok {
			return mismatch("opaque extension alternative", ch.Value)
		}
		if err := w.WriteChoiceIndex(uint64(len(c.alternatives)), c.extensible, ch.Index, true); err != nil {
			return err
		}
		return w.WriteOpenType(raw)
	}
	if ch.Index >= uint64(len(c.alternatives)) {
		return fmt.Errorf("%w: choice index %d", ie.ErrValueMismatch, ch.Index)
	}
	if err := w.WriteChoiceIndex(uint64(len(c.alternatives)), c.extensible, ch.Index, false); err != nil {
		return err
	}
	alt := c.alternatives[ch.Index]
	if err := alt.codec.encode(ec, w, ch.Value); err != nil {
		return fmt.Errorf("%s: %w", alt.name, err)
	}
	return nil
}

type containerCodec struct {
	spec ie.ContainerSpec
}

func (c containerCodec) decode(dc *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	return ie.DecodeContainer(dc, r, c.spec)
}

func (c containerCodec) encode(ec *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error {
	ct, ok := v.(*ie.Container)
	if !ok {
		return mismatch("container", v)
	}
	return ie.EncodeContainer(ec, w, ct, c.spec)
}

// discriminatorCodec is an integer that also selects the grammar of a later
// dependent field in the same container.
type discriminatorCodec struct {
	key string
	integerCodec
}

func (c discriminatorCodec) decode(dc *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	v, err := c.integerCodec.decode(dc, r)
	if err != nil {
		return nil, err
	}
	dc.SetScratch(c.key, uint64(v.(ie.Integer)))
	return v, nil
}

type dependentCase struct {
	name  string
	codec codec
}

type dependentCodec struct {
	key   string
	cases map[uint64]dependentCase
}

func (c *dependentCodec) decode(dc *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	sel, err := dc.Selector(c.key)
	if err != nil {
		return nil, err
	}
	cs, ok := c.cases[sel]
	if !ok {
		return nil, fmt.Errorf("%w: %s=%d", ie.ErrUnknownSelector, c.key, sel)
	}
	v, err := cs.codec.decode(dc, r)
	if err != nil {
		return nil, err
	}
	return ie.Selected{Selector: sel, Value: v}, nil
}

func (c *dependentCodec) encode(ec *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error {
	s, ok := v.(ie.Selected)
	if !ok {
		return mismatch("selected", v)
	}
	cs, ok := c.cases[s.Selector]
	if !ok {
		return fmt.Errorf("%w: %s=%d", ie.ErrUnknownSelector, c.key, s.Selector)
	}
	return cs.codec.encode(ec, w, s.Value)
}

// openCodec wraps an inner grammar in a length-prefixed open type. Without
// an inner grammar the octets are kept opaque.
type openCodec struct {
	name  string
	inner codec
}

func (c *openCodec) decode(dc *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	raw, err := r.ReadOpenType()
	if err != nil {
		return nil, err
	}
	if c.inner == nil {
		return ie.Opaque(raw), nil
	}
	return dc.DecodeOpen(binding(c.name, c.inner), raw)
}

func (c *openCodec) encode(ec *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error {
	if c.inner == nil {
		raw, ok := v.(ie.Opaque)
		if !ok {
			return mismatch("opaque", v)
		}
		return w.WriteOpenType(raw)
	}
	raw, err := ec.EncodeOpen(binding(c.name, c.inner), v)
	if err != nil {
		return err
	}
	return w.WriteOpenType(raw)
}

// refCodec defers to a named type so catalogs may be recursive.
type refCodec struct {
	name   string
	target *codec
}

func (c refCodec) decode(dc *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	return (*c.target).decode(dc, r)
}

func (c refCodec) encode(ec *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error {
	return (*c.target).encode(ec, w, v)
}

// messageCodec is the body of one message: a sequence whose protocolIEs
// container is checked for mandatory identifiers after decoding.
type messageCodec struct {
	body *sequenceCodec
	reqs []ie.Requirement
}

func (c messageCodec) decode(dc *ie.DecodeContext, r ie.PrimitiveReader) (ie.Value, error) {
	v, err := c.body.decode(dc, r)
	if err != nil {
		return nil, err
	}
	seq := v.(ie.Sequence)
	ies, _ := seq.Get(BodyMember)
	ct, _ := ies.(*ie.Container)
	if err := ie.CheckPresence(dc, ct, c.reqs); err != nil {
		return nil, err
	}
	return seq, nil
}

func (c messageCodec) encode(ec *ie.EncodeContext, w ie.PrimitiveWriter, v ie.Value) error {
	return c.body.encode(ec, w, v)
}
