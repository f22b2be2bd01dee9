package ie

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
)

// DecodeFunc decodes one value from r. It may read and write dc's scratch map.
type DecodeFunc func(dc *DecodeContext, r PrimitiveReader) (Value, error)

// EncodeFunc is the inverse of DecodeFunc.
type EncodeFunc func(ec *EncodeContext, w PrimitiveWriter, v Value) error

// Binding is a named pair of typed codec functions.
type Binding struct {
	Name   string
	Decode DecodeFunc
	Encode EncodeFunc
}

func (b Binding) validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidBinding)
	}
	if b.Decode == nil || b.Encode == nil {
		return fmt.Errorf("%w: %s missing codec", ErrInvalidBinding, b.Name)
	}
	return nil
}

type ieKey struct {
	ns Namespace
	id ID
}

type procedureKey struct {
	code ProcedureCode
	kind MessageKind
}

// Registry binds identifiers to field codecs and (procedure, kind) pairs to
// message-body codecs. It is populated once before decoding starts; the first
// lookup seals it and later registrations fail.
type Registry struct {
	ies        map[ieKey]Binding
	procedures map[procedureKey]Binding
	names      map[ProcedureCode]string
	sealed     atomic.Bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ies:        make(map[ieKey]Binding),
		procedures: make(map[procedureKey]Binding),
		names:      make(map[ProcedureCode]string),
	}
}

// RegisterIE binds id in ns. Duplicates are a programming error.
func (r *Registry) RegisterIE(ns Namespace, id ID, b Binding) error {
	if r.sealed.Load() {
		return fmt.Errorf("%w: register %s ie=%d", ErrRegistrySealed, ns, id)
	}
	if !ns.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidNamespace, uint8(ns))
	}
	if err := b.validate(); err != nil {
		return err
	}
	key := ieKey{ns: ns, id: id}
	if prev, ok := r.ies[key]; ok {
		return fmt.Errorf("%w: %s ie=%d (%s, %s)", ErrDuplicateIE, ns, id, prev.Name, b.Name)
	}
	r.ies[key] = b
	return nil
}

// RegisterProcedure binds the body codec for one message kind of a procedure.
func (r *Registry) RegisterProcedure(code ProcedureCode, kind MessageKind, b Binding) error {
	if r.sealed.Load() {
		return fmt.Errorf("%w: register procedure=%d kind=%s", ErrRegistrySealed, code, kind)
	}
	if kind >= MessageKindCount {
		return fmt.Errorf("%w: kind %s cannot carry a body", ErrInvalidBinding, kind)
	}
	if err := b.validate(); err != nil {
		return err
	}
	key := procedureKey{code: code, kind: kind}
	if prev, ok := r.procedures[key]; ok {
		return fmt.Errorf("%w: procedure=%d kind=%s (%s, %s)", ErrDuplicateProcedure, code, kind, prev.Name, b.Name)
	}
	r.procedures[key] = b
	return nil
}

// NameProcedure records a display name for a procedure code.
func (r *Registry) NameProcedure(code ProcedureCode, name string) error {
	if r.sealed.Load() {
		return fmt.Errorf("%w: name procedure=%d", ErrRegistrySealed, code)
	}
	r.names[code] = name
	return nil
}

// Seal forbids further registration.
func (r *Registry) Seal() {
	r.sealed.Store(true)
}

// Sealed reports whether registration is closed.
func (r *Registry) Sealed() bool {
	return r.sealed.Load()
}

// LookupIE returns the binding for id in ns. Absence is a normal outcome.
func (r *Registry) LookupIE(ns Namespace, id ID) (Binding, bool) {
	r.seal()
	b, ok := r.ies[ieKey{ns: ns, id: id}]
	return b, ok
}

// LookupProcedure returns the body binding for (code, kind).
func (r *Registry) LookupProcedure(code ProcedureCode, kind MessageKind) (Binding, bool) {
	r.seal()
	b, ok := r.procedures[procedureKey{code: code, kind: kind}]
	return b, ok
}

// ProcedureName returns the display name recorded for code.
func (r *Registry) ProcedureName(code ProcedureCode) (string, bool) {
	name, ok := r.names[code]
	return name, ok
}

func (r *Registry) seal() {
	if !r.sealed.Load() {
		r.sealed.Store(true)
	}
}

// IEEntry describes one registered identifier.
type IEEntry struct {
	Namespace Namespace `json:"namespace"`
	ID        ID        `json:"id"`
	Name      string    `json:"name"`
}

// ProcedureEntry describes one registered message body.
type ProcedureEntry struct {
	Code      ProcedureCode `json:"code"`
	Procedure string        `json:"procedure,omitempty"`
	Kind      MessageKind   `json:"kind"`
	Name      string        `json:"name"`
}

// ListIEs returns registered identifiers ordered by namespace then id.
func (r *Registry) ListIEs() []IEEntry {
	list := make([]IEEntry, 0, len(r.ies))
	for k, b := range r.ies {
		list = append(list, IEEntry{Namespace: k.ns, ID: k.id, Name: b.Name})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Namespace != list[j].Namespace {
			return list[i].Namespace < list[j].Namespace
		}
		return list[i].ID < list[j].ID
	})
	return list
}

// ListProcedures returns registered bodies ordered by code then kind.
func (r *Registry) ListProcedures() []ProcedureEntry {
	list := make([]ProcedureEntry, 0, len(r.procedures))
	for k, b := range r.procedures {
		list = append(list, ProcedureEntry{Code: k.code, Procedure: r.names[k.code], Kind: k.kind, Name: b.Name})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Code != list[j].Code {
			return list[i].Code < list[j].Code
		}
		return list[i].Kind < list[j].Kind
	})
	return list
}
