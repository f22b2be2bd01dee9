package protocol

import (
	"github.com/danmuck/iectl/internal/protocol/ie"
	"github.com/danmuck/iectl/internal/protocol/per"
)

// Envelope is the outermost framing of one message.
type Envelope struct {
	Kind        ie.MessageKind   `json:"kind"`
	Procedure   ie.ProcedureCode `json:"procedure"`
	Criticality ie.Criticality   `json:"criticality"`
	// ExtensionIndex is the choice index of an UnknownExtension message.
	ExtensionIndex uint64 `json:"extension_index,omitempty"`
	Payload        []byte `json:"payload,omitempty"`
}

// Status separates clean decodes from decodes that dropped Notify fields.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarnings Status = "warnings"
)

// Message is a decoded envelope with its body. Diagnostics lists every
// field that was dropped under Ignore or Notify criticality.
type Message struct {
	Envelope
	Name        string          `json:"name,omitempty"`
	Body        ie.Value        `json:"body,omitempty"`
	Status      Status          `json:"status"`
	Diagnostics []ie.Diagnostic `json:"diagnostics,omitempty"`
}

// AlignedPER returns the primitive codec used on the wire.
func AlignedPER() ie.Primitives {
	return ie.Primitives{
		NewReader: func(b []byte) ie.PrimitiveReader { return per.NewReader(b) },
		NewWriter: func() ie.PrimitiveWriter { return per.NewWriter() },
	}
}

// IEs returns the protocol-IE container of the body: the body itself, or
// the first container member of a sequence body.
func (m *Message) IEs() *ie.Container {
	switch body := m.Body.(type) {
	case *ie.Container:
		return body
	case ie.Sequence:
		for _, mem := range body.Members {
			if c, ok := mem.Value.(*ie.Container); ok {
				return c
			}
		}
	}
	return nil
}
