package ie

import (
	"fmt"

	"github.com/rs/zerolog/log"
)

// Field is one (identifier, criticality, value) triple of a container.
type Field struct {
	ID          ID          `json:"id"`
	Criticality Criticality `json:"criticality"`
	Value       Value       `json:"value"`
}

// Container is an ordered sequence of fields within one namespace. Order is
// wire order; identifiers may repeat.
type Container struct {
	Namespace Namespace `json:"namespace"`
	Fields    []Field   `json:"fields"`
}

// Get returns the first field with id.
func (c *Container) Get(id ID) (Field, bool) {
	if c == nil {
		return Field{}, false
	}
	for _, f := range c.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return Field{}, false
}

// All returns every field with id in wire order.
func (c *Container) All(id ID) []Field {
	if c == nil {
		return nil
	}
	var out []Field
	for _, f := range c.Fields {
		if f.ID == id {
			out = append(out, f)
		}
	}
	return out
}

// Len returns the number of fields.
func (c *Container) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Fields)
}

// ContainerSpec fixes the namespace and count bounds of a container.
type ContainerSpec struct {
	Namespace Namespace
	Min       uint64
	Max       uint64
}

var (
	ProtocolIEs        = ContainerSpec{Namespace: Protocol, Min: 0, Max: MaxID}
	ProtocolExtensions = ContainerSpec{Namespace: Extension, Min: 1, Max: MaxID}
	PrivateIEs         = ContainerSpec{Namespace: Private, Min: 1, Max: MaxID}
)

// SpecFor returns the standard container bounds for ns.
func SpecFor(ns Namespace) (ContainerSpec, error) {
	switch ns {
	case Protocol:
		return ProtocolIEs, nil
	case Extension:
		return ProtocolExtensions, nil
	case Private:
		return PrivateIEs, nil
	default:
		return ContainerSpec{}, fmt.Errorf("%w: %d", ErrInvalidNamespace, uint8(ns))
	}
}

func pathSegment(ns Namespace, id ID, idx uint64) string {
	switch ns {
	case Extension:
		return fmt.Sprintf("ext[%d]=%d", idx, id)
	case Private:
		return fmt.Sprintf("priv[%d]=%d", idx, id)
	default:
		return fmt.Sprintf("ie[%d]=%d", idx, id)
	}
}

// DecodeContainer reads a count-bounded sequence of fields in wire order,
// resolving each value through the registry and applying the criticality
// policy to unknown or malformed fields. Framing errors are returned as plain
// errors wrapping ErrPrimitive so an enclosing field can treat them as
// malformed; Reject outcomes and missing disambiguation abort the message.
// The container is only returned once every field has been handled.
func DecodeContainer(dc *DecodeContext, r PrimitiveReader, spec ContainerSpec) (*Container, error) {
	n, err := r.ReadLength(spec.Min, spec.Max, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %s container count: %v", ErrPrimitive, spec.Namespace, err)
	}

	scope := dc.beginContainer()
	defer func() {
		_ = dc.endContainer(scope)
	}()
	prevIE, prevExt := dc.CurrentIE, dc.CurrentExtension
	defer func() {
		dc.CurrentIE, dc.CurrentExtension = prevIE, prevExt
	}()

	fields := make([]Field, 0, n)
	for i := uint64(0); i < n; i++ {
		rawID, err := r.ReadBoundedUint(0, MaxID, false)
		if err != nil {
			return nil, fmt.Errorf("%w: %s container item %d id: %v", ErrPrimitive, spec.Namespace, i, err)
		}
		rawCrit, err := r.ReadEnumerated(CriticalityCount, false)
		if err != nil {
			return nil, fmt.Errorf("%w: %s container item %d criticality: %v", ErrPrimitive, spec.Namespace, i, err)
		}
		raw, err := r.ReadOpenType()
		if err != nil {
			return nil, fmt.Errorf("%w: %s container item %d value: %v", ErrPrimitive, spec.Namespace, i, err)
		}

		id := ID(rawID)
		crit := Criticality(rawCrit)
		if spec.Namespace == Extension {
			dc.CurrentExtension = id
		} else {
			dc.CurrentIE = id
		}

		dc.pushPath(pathSegment(spec.Namespace, id, i))
		f, keep, err := dc.decodeField(spec.Namespace, id, crit, raw)
		dc.popPath()
		if err != nil {
			return nil, err
		}
		if keep {
			fields = append(fields, f)
		}
	}

	log.Debug().
		Str("namespace", spec.Namespace.String()).
		Uint64("count", n).
		Int("accepted", len(fields)).
		Msg("ie.DecodeContainer")
	return &Container{Namespace: spec.Namespace, Fields: fields}, nil
}

func (dc *DecodeContext) decodeField(ns Namespace, id ID, crit Criticality, raw []byte) (Field, bool, error) {
	outcome := OutcomeOK
	detail := ""
	var value Value

	mark, diagMark := len(dc.journal), len(dc.diags)
	b, ok := dc.reg.LookupIE(ns, id)
	if !ok {
		outcome = OutcomeUnknown
		detail = "no binding registered"
	} else {
		v, err := dc.DecodeOpen(b, raw)
		switch {
		case err == nil:
			value = v
		case fatal(err):
			if _, nested := AbortDiagnostic(err); nested {
				return Field{}, false, err
			}
			ident := id
			return Field{}, false, Abort(Diagnostic{
				Kind:        KindMissingDisambiguation,
				Namespace:   ns,
				ID:          &ident,
				Criticality: crit,
				Path:        dc.Path(),
				Detail:      err.Error(),
			})
		default:
			outcome = OutcomeMalformed
			detail = err.Error()
		}
	}

	action := Resolve(crit, outcome)
	if action == ActionAccept {
		return Field{ID: id, Criticality: crit, Value: value}, true, nil
	}

	dc.rollback(mark)
	dc.diags = dc.diags[:diagMark]
	ident := id
	diag := Diagnostic{
		Kind:        outcome.Kind(),
		Namespace:   ns,
		ID:          &ident,
		Criticality: crit,
		Action:      action,
		Path:        dc.Path(),
		Detail:      detail,
	}
	if action == ActionReject {
		return Field{}, false, Abort(diag)
	}
	log.Debug().
		Str("namespace", ns.String()).
		Uint16("id", uint16(id)).
		Str("criticality", crit.String()).
		Str("outcome", outcome.String()).
		Msg("ie field dropped")
	dc.Record(diag)
	return Field{}, false, nil
}

// EncodeContainer writes c as the structural inverse of DecodeContainer.
// Opaque values are written verbatim; every other field must have a binding.
func EncodeContainer(ec *EncodeContext, w PrimitiveWriter, c *Container, spec ContainerSpec) error {
	var fields []Field
	if c != nil {
		if c.Namespace != spec.Namespace {
			return fmt.Errorf("%w: container is %s, want %s", ErrInvalidNamespace, c.Namespace, spec.Namespace)
		}
		fields = c.Fields
	}
	if err := w.WriteLength(spec.Min, spec.Max, false, uint64(len(fields))); err != nil {
		return fmt.Errorf("%w: %s container count: %v", ErrPrimitive, spec.Namespace, err)
	}
	for i, f := range fields {
		raw, err := encodeFieldValue(ec, spec.Namespace, f)
		if err != nil {
			return fmt.Errorf("%s container item %d: %w", spec.Namespace, i, err)
		}
		if err := w.WriteBoundedUint(0, MaxID, false, uint64(f.ID)); err != nil {
			return err
		}
		if err := w.WriteEnumerated(CriticalityCount, false, uint64(f.Criticality)); err != nil {
			return err
		}
		if err := w.WriteOpenType(raw); err != nil {
			return err
		}
	}
	return nil
}

func encodeFieldValue(ec *EncodeContext, ns Namespace, f Field) ([]byte, error) {
	if raw, ok := f.Value.(Opaque); ok {
		return []byte(raw), nil
	}
	b, ok := ec.reg.LookupIE(ns, f.ID)
	if !ok {
		return nil, fmt.Errorf("%w: %s ie=%d", ErrUnknownIdentifier, ns, f.ID)
	}
	return ec.EncodeOpen(b, f.Value)
}
