// Package bindings carries the default field catalog and the helpers that
// build its well-known values.
package bindings

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/danmuck/iectl/internal/protocol"
	"github.com/danmuck/iectl/internal/protocol/ie"
	"github.com/danmuck/iectl/internal/protocol/schema"
)

//go:embed catalog.toml
var defaultCatalog []byte

// Procedure codes of the default catalog.
const (
	ProcErrorIndication   ie.ProcedureCode = 15
	ProcReset             ie.ProcedureCode = 20
	ProcSetup             ie.ProcedureCode = 21
	ProcSystemInformation ie.ProcedureCode = 23
	ProcPrivateMessage    ie.ProcedureCode = 40
)

// Protocol IE identifiers of the default catalog.
const (
	IECause                  ie.ID = 15
	IECriticalityDiagnostics ie.ID = 17
	IEGlobalNodeID           ie.ID = 21
	IENodeName               ie.ID = 27
	IEResetType              ie.ID = 32
	IEPagingPriority         ie.ID = 48
	IEServedCells            ie.ID = 64
	IETimeToWait             ie.ID = 105
	IESibType                ie.ID = 120
	IESibContent             ie.ID = 121
)

// Extension and private identifiers.
const (
	ExtCellPriority ie.ID = 1
	ExtNodeLabel    ie.ID = 2

	PrivVendorInfo ie.ID = 1
	PrivVendorName ie.ID = 2
)

var (
	compileOnce sync.Once
	compiled    *schema.Compiled
	compileErr  error
)

// Raw returns the embedded catalog source.
func Raw() []byte {
	out := make([]byte, len(defaultCatalog))
	copy(out, defaultCatalog)
	return out
}

// Default returns the compiled embedded catalog.
func Default() (*schema.Compiled, error) {
	compileOnce.Do(func() {
		cat, err := schema.Parse(defaultCatalog, schema.FormatTOML)
		if err != nil {
			compileErr = fmt.Errorf("default catalog: %w", err)
			return
		}
		compiled, compileErr = schema.Compile(cat)
	})
	return compiled, compileErr
}

// Install registers a catalog in reg. An empty path installs the embedded
// catalog.
func Install(reg *ie.Registry, path string) error {
	var (
		cp  *schema.Compiled
		err error
	)
	if path == "" {
		cp, err = Default()
	} else {
		cp, err = schema.LoadCompiled(path)
	}
	if err != nil {
		return err
	}
	return cp.Install(reg)
}

// NewRegistry returns a registry populated from path, or from the embedded
// catalog when path is empty.
func NewRegistry(path string) (*ie.Registry, error) {
	reg := ie.NewRegistry()
	if err := Install(reg, path); err != nil {
		return nil, err
	}
	return reg, nil
}

var typeOfError = map[ie.TypeOfError]ie.Enumerated{
	ie.NotUnderstood: 0,
	ie.Missing:       1,
}

// CriticalityDiagnostics builds the CriticalityDiagnostics value a receiver
// echoes back for a failed or partially decoded message.
func CriticalityDiagnostics(r *ie.Report) ie.Sequence {
	seq := ie.Sequence{Members: []ie.Member{
		{Name: "procedureCode", Value: ie.Integer(r.Procedure)},
	}}
	if r.Kind < ie.MessageKindCount {
		seq.Members = append(seq.Members, ie.Member{Name: "triggeringMessage", Value: ie.Enumerated(r.Kind)})
	}
	if r.ProcedureCriticality.Valid() {
		seq.Members = append(seq.Members, ie.Member{Name: "procedureCriticality", Value: ie.Enumerated(r.ProcedureCriticality)})
	}

	summary := r.Summary()
	if len(summary) > 256 {
		summary = summary[:256]
	}
	if len(summary) > 0 {
		items := make(ie.List, 0, len(summary))
		for _, item := range summary {
			items = append(items, ie.Sequence{Members: []ie.Member{
				{Name: "iECriticality", Value: ie.Enumerated(item.Criticality)},
				{Name: "iE-ID", Value: ie.Integer(item.ID)},
				{Name: "typeOfError", Value: typeOfError[item.TypeOfError]},
			}})
		}
		seq.Members = append(seq.Members, ie.Member{Name: "iEsCriticalityDiagnostics", Value: items})
	}
	return seq
}

// ErrorIndication builds the message a host would send back for r. The
// core never sends it; callers decide.
func ErrorIndication(r *ie.Report, cause ie.Choice) *protocol.Message {
	fields := []ie.Field{
		{ID: IECause, Criticality: ie.Ignore, Value: cause},
		{ID: IECriticalityDiagnostics, Criticality: ie.Ignore, Value: CriticalityDiagnostics(r)},
	}
	return &protocol.Message{
		Envelope: protocol.Envelope{Kind: ie.Request, Procedure: ProcErrorIndication, Criticality: ie.Ignore},
		Body: ie.Sequence{Members: []ie.Member{{
			Name:  schema.BodyMember,
			Value: &ie.Container{Namespace: ie.Protocol, Fields: fields},
		}}},
	}
}

// ProtocolCause returns a Cause value of the protocol alternative.
func ProtocolCause(idx ie.Enumerated) ie.Choice {
	return ie.Choice{Index: 2, Name: "protocol", Value: idx}
}

// CauseFor picks the protocol cause matching a report's fatal kind.
func CauseFor(r *ie.Report) ie.Choice {
	if r.Fatal == nil {
		return ProtocolCause(5)
	}
	switch r.Fatal.Kind {
	case ie.KindPrimitiveViolation:
		return ProtocolCause(0)
	case ie.KindUnknownIdentifier, ie.KindMalformedValue, ie.KindMissingMandatory:
		return ProtocolCause(1)
	case ie.KindUnregisteredProcedure:
		return ProtocolCause(3)
	case ie.KindMissingDisambiguation:
		return ProtocolCause(6)
	default:
		return ProtocolCause(5)
	}
}
