package ie

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPrimitive              = errors.New("ie: primitive constraint violation")
	ErrUnknownIdentifier      = errors.New("ie: unknown identifier")
	ErrMalformedValue         = errors.New("ie: malformed value")
	ErrMissingDisambiguation  = errors.New("ie: missing disambiguation")
	ErrUnregisteredProcedure  = errors.New("ie: unregistered procedure")
	ErrMissingMandatory       = errors.New("ie: missing mandatory field")
	ErrDuplicateIE            = errors.New("ie: identifier already registered")
	ErrDuplicateProcedure     = errors.New("ie: procedure already registered")
	ErrRegistrySealed         = errors.New("ie: registry sealed")
	ErrInvalidBinding         = errors.New("ie: invalid binding")
	ErrInvalidNamespace       = errors.New("ie: invalid namespace")
	ErrUnknownSelector        = errors.New("ie: selector has no grammar")
	ErrValueMismatch          = errors.New("ie: value does not match binding")
	ErrUnexpectedContainerEnd = errors.New("ie: container closed out of order")
)

// ErrorKind is the machine-distinguishable class of a diagnostic.
type ErrorKind string

const (
	KindPrimitiveViolation    ErrorKind = "primitive-violation"
	KindUnknownIdentifier     ErrorKind = "unknown-identifier"
	KindMalformedValue        ErrorKind = "value-malformed"
	KindMissingDisambiguation ErrorKind = "missing-disambiguation"
	KindUnregisteredProcedure ErrorKind = "unregistered-procedure"
	KindMissingMandatory      ErrorKind = "missing-mandatory"
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindPrimitiveViolation:
		return ErrPrimitive
	case KindUnknownIdentifier:
		return ErrUnknownIdentifier
	case KindMalformedValue:
		return ErrMalformedValue
	case KindMissingDisambiguation:
		return ErrMissingDisambiguation
	case KindUnregisteredProcedure:
		return ErrUnregisteredProcedure
	case KindMissingMandatory:
		return ErrMissingMandatory
	default:
		return nil
	}
}

// Diagnostic describes one field-level or message-level problem and what was
// done about it.
type Diagnostic struct {
	Kind        ErrorKind   `json:"kind"`
	Namespace   Namespace   `json:"namespace"`
	ID          *ID         `json:"id,omitempty"`
	Criticality Criticality `json:"criticality"`
	Action      Action      `json:"action"`
	Path        string      `json:"path,omitempty"`
	Detail      string      `json:"detail,omitempty"`
}

func (d Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(string(d.Kind))
	if d.ID != nil {
		fmt.Fprintf(&b, " %s ie=%d", d.Namespace, *d.ID)
	}
	fmt.Fprintf(&b, " criticality=%s action=%s", d.Criticality, d.Action)
	if d.Path != "" {
		fmt.Fprintf(&b, " path=%s", d.Path)
	}
	if d.Detail != "" {
		fmt.Fprintf(&b, ": %s", d.Detail)
	}
	return b.String()
}

// abortError carries a fatal diagnostic up through nested decoders.
type abortError struct {
	diag Diagnostic
}

func (e *abortError) Error() string {
	return "ie: decode aborted: " + e.diag.String()
}

func (e *abortError) Unwrap() error {
	return e.diag.Kind.sentinel()
}

// Abort builds an error that fails the enclosing message regardless of
// criticality.
func Abort(d Diagnostic) error {
	d.Action = ActionReject
	return &abortError{diag: d}
}

// AbortDiagnostic extracts the fatal diagnostic carried by err.
func AbortDiagnostic(err error) (Diagnostic, bool) {
	var ae *abortError
	if errors.As(err, &ae) {
		return ae.diag, true
	}
	return Diagnostic{}, false
}

// TypeOfError is the coarse error class reported back to a peer.
type TypeOfError string

const (
	NotUnderstood TypeOfError = "not-understood"
	Missing       TypeOfError = "missing"
)

// CriticalityItem is one IE entry of a criticality-diagnostics summary.
type CriticalityItem struct {
	Criticality Criticality `json:"criticality"`
	ID          ID          `json:"id"`
	TypeOfError TypeOfError `json:"type_of_error"`
}

// Report is the structured outcome of a failed message decode, or the list
// of warnings attached to a successful one.
type Report struct {
	Procedure            ProcedureCode `json:"procedure"`
	Kind                 MessageKind   `json:"kind"`
	ProcedureCriticality Criticality   `json:"procedure_criticality"`
	Fatal                *Diagnostic   `json:"fatal,omitempty"`
	Diagnostics          []Diagnostic  `json:"diagnostics,omitempty"`
}

func (r *Report) Error() string {
	if r.Fatal == nil {
		return fmt.Sprintf("ie: procedure=%d kind=%s: %d diagnostics", r.Procedure, r.Kind, len(r.Diagnostics))
	}
	return fmt.Sprintf("ie: procedure=%d kind=%s: %s", r.Procedure, r.Kind, r.Fatal)
}

func (r *Report) Unwrap() error {
	if r.Fatal == nil {
		return nil
	}
	return r.Fatal.Kind.sentinel()
}

// Summary lists the IE-level entries a host would echo back to the sender.
// Diagnostics without an identifier are skipped.
func (r *Report) Summary() []CriticalityItem {
	all := r.Diagnostics
	if r.Fatal != nil {
		all = append(append([]Diagnostic{}, r.Diagnostics...), *r.Fatal)
	}
	out := make([]CriticalityItem, 0, len(all))
	for _, d := range all {
		if d.ID == nil {
			continue
		}
		toe := NotUnderstood
		if d.Kind == KindMissingMandatory {
			toe = Missing
		}
		out = append(out, CriticalityItem{Criticality: d.Criticality, ID: *d.ID, TypeOfError: toe})
	}
	return out
}
