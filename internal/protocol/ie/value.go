package ie

import (
	"encoding/asn1"
	"encoding/hex"
	"encoding/json"
)

// ValueKind tags the closed set of decoded value shapes.
type ValueKind uint8

const (
	KindInteger ValueKind = iota + 1
	KindEnumerated
	KindBoolean
	KindOctetString
	KindBitString
	KindPrintable
	KindSequence
	KindList
	KindChoice
	KindSelected
	KindContainer
	KindOpaque
)

// Value is one decoded field value. Only the types in this file implement it.
type Value interface {
	ValueKind() ValueKind
}

// Integer is a bounded unsigned integer.
type Integer uint64

// Enumerated is an enumeration index; extension values follow the root.
type Enumerated uint64

type Boolean bool

type OctetString []byte

type BitString asn1.BitString

type Printable string

// Member is one named component of a Sequence. Absent optional components
// are not listed.
type Member struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Sequence holds components in declaration order, the optional extension
// container and any extension additions the binding does not know.
// Additions are indexed by position in the addition bitmap; a nil entry is
// an absent addition.
type Sequence struct {
	Members    []Member   `json:"members"`
	Extensions *Container `json:"extensions,omitempty"`
	Additions  [][]byte   `json:"additions,omitempty"`
}

// Get returns the named component.
func (s Sequence) Get(name string) (Value, bool) {
	for _, m := range s.Members {
		if m.Name == name {
			return m.Value, true
		}
	}
	return nil, false
}

// List holds repeated items in wire order.
type List []Value

// Choice is one selected alternative. Extended alternatives that the binding
// does not know carry Opaque values.
type Choice struct {
	Index    uint64 `json:"index"`
	Extended bool   `json:"extended,omitempty"`
	Name     string `json:"name,omitempty"`
	Value    Value  `json:"value"`
}

// Selected is a payload whose grammar was chosen by a discriminator decoded
// earlier in the same container. Selector is not carried on the wire.
type Selected struct {
	Selector uint64 `json:"selector"`
	Value    Value  `json:"value"`
}

// Opaque is an undecoded open-type payload, written back verbatim.
type Opaque []byte

func (Integer) ValueKind() ValueKind     { return KindInteger }
func (Enumerated) ValueKind() ValueKind  { return KindEnumerated }
func (Boolean) ValueKind() ValueKind     { return KindBoolean }
func (OctetString) ValueKind() ValueKind { return KindOctetString }
func (BitString) ValueKind() ValueKind   { return KindBitString }
func (Printable) ValueKind() ValueKind   { return KindPrintable }
func (Sequence) ValueKind() ValueKind    { return KindSequence }
func (List) ValueKind() ValueKind        { return KindList }
func (Choice) ValueKind() ValueKind      { return KindChoice }
func (Selected) ValueKind() ValueKind    { return KindSelected }
func (*Container) ValueKind() ValueKind  { return KindContainer }
func (Opaque) ValueKind() ValueKind      { return KindOpaque }

// Uint returns the scalar carried by an Integer or Enumerated value.
func Uint(v Value) (uint64, bool) {
	switch x := v.(type) {
	case Integer:
		return uint64(x), true
	case Enumerated:
		return uint64(x), true
	default:
		return 0, false
	}
}

func (o OctetString) MarshalJSON() ([]byte, error) {
	return json.Marshal(hex.EncodeToString(o))
}

func (o Opaque) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"opaque": hex.EncodeToString(o)})
}

func (b BitString) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Bits   string `json:"bits"`
		Length int    `json:"length"`
	}{Bits: hex.EncodeToString(b.Bytes), Length: b.BitLength})
}
