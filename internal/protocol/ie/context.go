package ie

import (
	"errors"
	"fmt"
	"strings"
)

type scratchKey struct {
	scope uint64
	name  string
}

type journalEntry struct {
	key  scratchKey
	prev uint64
	had  bool
}

// DecodeContext is the mutable state of one message decode. It is created
// per message, threaded explicitly through every decoder and discarded when
// the decode returns. It must not be shared between concurrent decodes.
type DecodeContext struct {
	Kind             MessageKind
	Procedure        ProcedureCode
	CurrentIE        ID
	CurrentExtension ID

	reg       *Registry
	prims     Primitives
	scopes    []uint64
	nextScope uint64
	scratch   map[scratchKey]uint64
	journal   []journalEntry
	path      []string
	diags     []Diagnostic
}

// NewDecodeContext creates a context bound to a sealed-on-use registry.
func NewDecodeContext(reg *Registry, prims Primitives) *DecodeContext {
	return &DecodeContext{
		reg:       reg,
		prims:     prims,
		scopes:    []uint64{0},
		nextScope: 1,
		scratch:   make(map[scratchKey]uint64),
	}
}

// Registry returns the registry this decode resolves against.
func (dc *DecodeContext) Registry() *Registry {
	return dc.reg
}

func (dc *DecodeContext) scope() uint64 {
	return dc.scopes[len(dc.scopes)-1]
}

// SetScratch records a discriminator value for later fields of the innermost
// container being decoded.
func (dc *DecodeContext) SetScratch(name string, v uint64) {
	key := scratchKey{scope: dc.scope(), name: name}
	prev, had := dc.scratch[key]
	dc.journal = append(dc.journal, journalEntry{key: key, prev: prev, had: had})
	dc.scratch[key] = v
}

// rollback undoes scratch writes made after mark in scopes that are still
// open, so a dropped field leaves no discriminator behind.
func (dc *DecodeContext) rollback(mark int) {
	if mark > len(dc.journal) {
		return
	}
	for i := len(dc.journal) - 1; i >= mark; i-- {
		e := dc.journal[i]
		if !dc.scopeOpen(e.key.scope) {
			continue
		}
		if e.had {
			dc.scratch[e.key] = e.prev
		} else {
			delete(dc.scratch, e.key)
		}
	}
	dc.journal = dc.journal[:mark]
}

func (dc *DecodeContext) scopeOpen(id uint64) bool {
	for _, s := range dc.scopes {
		if s == id {
			return true
		}
	}
	return false
}

// Scratch returns a discriminator recorded in the innermost container.
func (dc *DecodeContext) Scratch(name string) (uint64, bool) {
	v, ok := dc.scratch[scratchKey{scope: dc.scope(), name: name}]
	return v, ok
}

// Selector is Scratch for dependent fields: absence is a grammar error.
func (dc *DecodeContext) Selector(name string) (uint64, error) {
	v, ok := dc.Scratch(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q not set in this container", ErrMissingDisambiguation, name)
	}
	return v, nil
}

// beginContainer opens a fresh scratch scope.
func (dc *DecodeContext) beginContainer() uint64 {
	id := dc.nextScope
	dc.nextScope++
	dc.scopes = append(dc.scopes, id)
	return id
}

// endContainer drops every scratch entry of the scope opened by
// beginContainer.
func (dc *DecodeContext) endContainer(id uint64) error {
	if len(dc.scopes) < 2 || dc.scope() != id {
		return ErrUnexpectedContainerEnd
	}
	for k := range dc.scratch {
		if k.scope == id {
			delete(dc.scratch, k)
		}
	}
	dc.scopes = dc.scopes[:len(dc.scopes)-1]
	if len(dc.scopes) == 1 {
		dc.journal = dc.journal[:0]
	}
	return nil
}

// DecodeOpen decodes raw with b and requires every octet to be consumed.
func (dc *DecodeContext) DecodeOpen(b Binding, raw []byte) (Value, error) {
	r := dc.prims.NewReader(raw)
	v, err := b.Decode(dc, r)
	if err != nil {
		return nil, err
	}
	if err := r.Finish(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedValue, b.Name, err)
	}
	return v, nil
}

// NewReader returns a primitive reader over b.
func (dc *DecodeContext) NewReader(b []byte) PrimitiveReader {
	return dc.prims.NewReader(b)
}

func (dc *DecodeContext) pushPath(seg string) {
	dc.path = append(dc.path, seg)
}

func (dc *DecodeContext) popPath() {
	if len(dc.path) > 0 {
		dc.path = dc.path[:len(dc.path)-1]
	}
}

// Path renders the current position for diagnostics.
func (dc *DecodeContext) Path() string {
	return strings.Join(dc.path, "/")
}

// Record appends a non-fatal diagnostic.
func (dc *DecodeContext) Record(d Diagnostic) {
	if d.Path == "" {
		d.Path = dc.Path()
	}
	dc.diags = append(dc.diags, d)
}

// Diagnostics returns the non-fatal diagnostics recorded so far.
func (dc *DecodeContext) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(dc.diags))
	copy(out, dc.diags)
	return out
}

// Notified reports whether any recorded diagnostic asks to be surfaced as a
// warning.
func (dc *DecodeContext) Notified() bool {
	for _, d := range dc.diags {
		if d.Action == ActionNotify {
			return true
		}
	}
	return false
}

// EncodeContext carries what encoders need to produce nested open types.
type EncodeContext struct {
	reg   *Registry
	prims Primitives
}

// NewEncodeContext creates an encode context.
func NewEncodeContext(reg *Registry, prims Primitives) *EncodeContext {
	return &EncodeContext{reg: reg, prims: prims}
}

// Registry returns the registry encoders resolve against.
func (ec *EncodeContext) Registry() *Registry {
	return ec.reg
}

// NewWriter returns an empty primitive writer.
func (ec *EncodeContext) NewWriter() PrimitiveWriter {
	return ec.prims.NewWriter()
}

// EncodeOpen encodes v with b into a standalone octet string suitable for an
// open type. Opaque values are returned verbatim.
func (ec *EncodeContext) EncodeOpen(b Binding, v Value) ([]byte, error) {
	if raw, ok := v.(Opaque); ok {
		return []byte(raw), nil
	}
	if b.Encode == nil {
		return nil, fmt.Errorf("%w: no encoder", ErrInvalidBinding)
	}
	w := ec.prims.NewWriter()
	if err := b.Encode(ec, w, v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// fatal reports whether err must abort the message rather than be handled by
// the criticality policy.
func fatal(err error) bool {
	var ae *abortError
	return errors.As(err, &ae) || errors.Is(err, ErrMissingDisambiguation)
}
