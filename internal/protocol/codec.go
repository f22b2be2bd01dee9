package protocol

import (
	"errors"
	"fmt"

	"github.com/danmuck/iectl/internal/protocol/ie"
	"github.com/rs/zerolog/log"
)

var (
	ErrNilMessage    = errors.New("protocol: nil message")
	ErrEmptyMessage  = errors.New("protocol: empty message")
	ErrNoBody        = errors.New("protocol: message has neither body nor payload")
	ErrNilRegistry   = errors.New("protocol: nil registry")
	ErrInvalidCodec  = errors.New("protocol: primitives not configured")
	ErrKindNotFramed = errors.New("protocol: message kind cannot be framed")
)

// Codec decodes and encodes messages against one registry.
type Codec struct {
	reg   *ie.Registry
	prims ie.Primitives
}

// NewCodec returns a codec using the aligned PER primitives.
func NewCodec(reg *ie.Registry) *Codec {
	return NewCodecWith(reg, AlignedPER())
}

// NewCodecWith returns a codec over caller-supplied primitives.
func NewCodecWith(reg *ie.Registry, prims ie.Primitives) *Codec {
	return &Codec{reg: reg, prims: prims}
}

// Registry returns the registry the codec resolves against.
func (c *Codec) Registry() *ie.Registry {
	return c.reg
}

func (c *Codec) check() error {
	if c.reg == nil {
		return ErrNilRegistry
	}
	if c.prims.NewReader == nil || c.prims.NewWriter == nil {
		return ErrInvalidCodec
	}
	return nil
}

// DecodeEnvelope reads the outer choice, procedure code, criticality and the
// payload open type without interpreting the payload.
func (c *Codec) DecodeEnvelope(buf []byte) (Envelope, error) {
	if err := c.check(); err != nil {
		return Envelope{}, err
	}
	if len(buf) == 0 {
		return Envelope{}, envelopeReport(Envelope{}, ErrEmptyMessage)
	}
	r := c.prims.NewReader(buf)
	idx, extended, err := r.ReadChoiceIndex(ie.MessageKindCount, true)
	if err != nil {
		return Envelope{}, envelopeReport(Envelope{}, fmt.Errorf("choice tag: %w", err))
	}
	if extended {
		env := Envelope{Kind: ie.UnknownExtension, ExtensionIndex: idx}
		payload, err := r.ReadOpenType()
		if err != nil {
			return Envelope{}, envelopeReport(env, fmt.Errorf("extension payload: %w", err))
		}
		env.Payload = payload
		if err := r.Finish(); err != nil {
			return Envelope{}, envelopeReport(env, err)
		}
		return env, nil
	}

	env := Envelope{Kind: ie.MessageKind(idx)}
	code, err := r.ReadBoundedUint(0, ie.MaxProcedureCode, false)
	if err != nil {
		return Envelope{}, envelopeReport(env, fmt.Errorf("procedure code: %w", err))
	}
	env.Procedure = ie.ProcedureCode(code)
	crit, err := r.ReadEnumerated(ie.CriticalityCount, false)
	if err != nil {
		return Envelope{}, envelopeReport(env, fmt.Errorf("criticality: %w", err))
	}
	env.Criticality = ie.Criticality(crit)
	payload, err := r.ReadOpenType()
	if err != nil {
		return Envelope{}, envelopeReport(env, fmt.Errorf("payload: %w", err))
	}
	env.Payload = payload
	if err := r.Finish(); err != nil {
		return Envelope{}, envelopeReport(env, err)
	}
	return env, nil
}

// DecodeMessage decodes one complete message. On failure the error is an
// *ie.Report whose Fatal entry names the cause; a successful result carries
// the diagnostics of every dropped field.
func (c *Codec) DecodeMessage(buf []byte) (*Message, error) {
	env, err := c.DecodeEnvelope(buf)
	if err != nil {
		return nil, err
	}
	msg := &Message{Envelope: env, Status: StatusOK}
	if env.Kind == ie.UnknownExtension {
		log.Debug().Uint64("index", env.ExtensionIndex).Msg("protocol.DecodeMessage unknown choice extension")
		return msg, nil
	}

	binding, ok := c.reg.LookupProcedure(env.Procedure, env.Kind)
	if !ok {
		return nil, &ie.Report{
			Procedure:            env.Procedure,
			Kind:                 env.Kind,
			ProcedureCriticality: env.Criticality,
			Fatal: &ie.Diagnostic{
				Kind:        ie.KindUnregisteredProcedure,
				Criticality: env.Criticality,
				Action:      ie.ActionReject,
				Detail:      fmt.Sprintf("no %s body bound for procedure %d", env.Kind, env.Procedure),
			},
		}
	}

	dc := ie.NewDecodeContext(c.reg, c.prims)
	dc.Kind = env.Kind
	dc.Procedure = env.Procedure
	body, err := dc.DecodeOpen(binding, env.Payload)
	if err != nil {
		report := &ie.Report{
			Procedure:            env.Procedure,
			Kind:                 env.Kind,
			ProcedureCriticality: env.Criticality,
			Diagnostics:          dc.Diagnostics(),
		}
		if diag, ok := ie.AbortDiagnostic(err); ok {
			report.Fatal = &diag
		} else {
			kind := ie.KindPrimitiveViolation
			if errors.Is(err, ie.ErrMalformedValue) {
				kind = ie.KindMalformedValue
			}
			report.Fatal = &ie.Diagnostic{
				Kind:        kind,
				Criticality: env.Criticality,
				Action:      ie.ActionReject,
				Path:        binding.Name,
				Detail:      err.Error(),
			}
		}
		log.Debug().
			Uint8("procedure", uint8(env.Procedure)).
			Str("kind", env.Kind.String()).
			Str("fatal", string(report.Fatal.Kind)).
			Msg("protocol.DecodeMessage rejected")
		return nil, report
	}

	msg.Name = binding.Name
	msg.Body = body
	msg.Diagnostics = dc.Diagnostics()
	if dc.Notified() {
		msg.Status = StatusWarnings
	}
	log.Debug().
		Uint8("procedure", uint8(env.Procedure)).
		Str("kind", env.Kind.String()).
		Str("name", binding.Name).
		Int("diagnostics", len(msg.Diagnostics)).
		Msg("protocol.DecodeMessage ok")
	return msg, nil
}

// EncodeMessage is the inverse of DecodeMessage. A nil Body sends Payload
// verbatim.
func (c *Codec) EncodeMessage(msg *Message) ([]byte, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	if msg == nil {
		return nil, ErrNilMessage
	}
	w := c.prims.NewWriter()
	if msg.Kind == ie.UnknownExtension {
		if err := w.WriteChoiceIndex(ie.MessageKindCount, true, msg.ExtensionIndex, true); err != nil {
			return nil, err
		}
		if err := w.WriteOpenType(msg.Payload); err != nil {
			return nil, err
		}
		return w.Bytes(), nil
	}
	if !msg.Kind.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrKindNotFramed, msg.Kind)
	}

	payload := msg.Payload
	if msg.Body != nil {
		binding, ok := c.reg.LookupProcedure(msg.Procedure, msg.Kind)
		if !ok {
			return nil, fmt.Errorf("%w: procedure=%d kind=%s", ie.ErrUnregisteredProcedure, msg.Procedure, msg.Kind)
		}
		ec := ie.NewEncodeContext(c.reg, c.prims)
		body, err := ec.EncodeOpen(binding, msg.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", binding.Name, err)
		}
		payload = body
	} else if payload == nil {
		return nil, ErrNoBody
	}

	if err := w.WriteChoiceIndex(ie.MessageKindCount, true, uint64(msg.Kind), false); err != nil {
		return nil, err
	}
	if err := w.WriteBoundedUint(0, ie.MaxProcedureCode, false, uint64(msg.Procedure)); err != nil {
		return nil, err
	}
	if err := w.WriteEnumerated(ie.CriticalityCount, false, uint64(msg.Criticality)); err != nil {
		return nil, err
	}
	if err := w.WriteOpenType(payload); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func envelopeReport(env Envelope, err error) *ie.Report {
	return &ie.Report{
		Procedure:            env.Procedure,
		Kind:                 env.Kind,
		ProcedureCriticality: env.Criticality,
		Fatal: &ie.Diagnostic{
			Kind:        ie.KindPrimitiveViolation,
			Criticality: env.Criticality,
			Action:      ie.ActionReject,
			Path:        "envelope",
			Detail:      err.Error(),
		},
	}
}
