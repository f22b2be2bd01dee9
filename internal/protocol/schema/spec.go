package schema

// Kind names accepted in TypeSpec.Kind.
const (
	KindInteger       = "integer"
	KindEnumerated    = "enumerated"
	KindBoolean       = "boolean"
	KindOctets        = "octets"
	KindBits          = "bits"
	KindPrintable     = "printable"
	KindSequence      = "sequence"
	KindList          = "list"
	KindChoice        = "choice"
	KindContainer     = "container"
	KindDiscriminator = "discriminator"
	KindDependent     = "dependent"
	KindOpen          = "open"
)

// TypeSpec declares the grammar of one value. Ref names an entry of
// Catalog.Types; when set every other field must be empty.
type TypeSpec struct {
	Ref  string `toml:"ref,omitempty" yaml:"ref,omitempty"`
	Kind string `toml:"kind,omitempty" yaml:"kind,omitempty"`

	// Min and Max bound integer values, octet/bit/printable sizes and list
	// counts.
	Min        uint64 `toml:"min,omitempty" yaml:"min,omitempty"`
	Max        uint64 `toml:"max,omitempty" yaml:"max,omitempty"`
	Extensible bool   `toml:"extensible,omitempty" yaml:"extensible,omitempty"`

	// Values names the root enumeration items.
	Values []string `toml:"values,omitempty" yaml:"values,omitempty"`

	// Members lists sequence components; Alternatives lists choice arms.
	Members      []MemberSpec `toml:"members,omitempty" yaml:"members,omitempty"`
	Alternatives []MemberSpec `toml:"alternatives,omitempty" yaml:"alternatives,omitempty"`
	// Extensions adds an optional iE-Extensions container to a sequence.
	Extensions bool `toml:"extensions,omitempty" yaml:"extensions,omitempty"`

	Item *TypeSpec `toml:"item,omitempty" yaml:"item,omitempty"`

	// Namespace selects the identifier space of a container.
	Namespace string `toml:"namespace,omitempty" yaml:"namespace,omitempty"`

	// Key is the scratch name written by a discriminator and read by a
	// dependent.
	Key   string     `toml:"key,omitempty" yaml:"key,omitempty"`
	Cases []CaseSpec `toml:"cases,omitempty" yaml:"cases,omitempty"`
}

// MemberSpec is a named sequence component or choice alternative.
type MemberSpec struct {
	Name     string   `toml:"name" yaml:"name"`
	Optional bool     `toml:"optional,omitempty" yaml:"optional,omitempty"`
	Type     TypeSpec `toml:"type" yaml:"type"`
}

// CaseSpec binds one discriminator value to a grammar.
type CaseSpec struct {
	Selector uint64   `toml:"selector" yaml:"selector"`
	Name     string   `toml:"name,omitempty" yaml:"name,omitempty"`
	Type     TypeSpec `toml:"type" yaml:"type"`
}

// IESpec binds an identifier to a grammar.
type IESpec struct {
	ID        uint16   `toml:"id" yaml:"id"`
	Namespace string   `toml:"namespace,omitempty" yaml:"namespace,omitempty"`
	Name      string   `toml:"name" yaml:"name"`
	Type      TypeSpec `toml:"type" yaml:"type"`
}

// RequirementSpec marks an identifier mandatory in a message body.
type RequirementSpec struct {
	ID          uint16 `toml:"id" yaml:"id"`
	Criticality string `toml:"criticality" yaml:"criticality"`
}

// MessageSpec declares one message body: an extensible sequence holding a
// single container named protocolIEs.
type MessageSpec struct {
	Kind      string            `toml:"kind" yaml:"kind"`
	Name      string            `toml:"name" yaml:"name"`
	Namespace string            `toml:"namespace,omitempty" yaml:"namespace,omitempty"`
	Mandatory []RequirementSpec `toml:"mandatory,omitempty" yaml:"mandatory,omitempty"`
}

// ProcedureSpec groups the message bodies of one procedure code.
type ProcedureSpec struct {
	Code     uint8         `toml:"code" yaml:"code"`
	Name     string        `toml:"name" yaml:"name"`
	Messages []MessageSpec `toml:"messages" yaml:"messages"`
}

// Catalog is a complete set of field and message bindings.
type Catalog struct {
	Name       string              `toml:"name" yaml:"name"`
	Version    string              `toml:"version,omitempty" yaml:"version,omitempty"`
	Types      map[string]TypeSpec `toml:"types,omitempty" yaml:"types,omitempty"`
	IEs        []IESpec            `toml:"ies" yaml:"ies"`
	Procedures []ProcedureSpec     `toml:"procedures" yaml:"procedures"`
}

// BodyMember names the container member of every compiled message body.
const BodyMember = "protocolIEs"
