package schema

import (
	"fmt"
	"strings"

	"github.com/danmuck/iectl/internal/protocol/ie"
	"github.com/rs/zerolog/log"
)

// CompiledIE is one identifier binding ready for registration.
type CompiledIE struct {
	Namespace ie.Namespace
	ID        ie.ID
	Binding   ie.Binding
}

// CompiledMessage is one message-body binding ready for registration.
type CompiledMessage struct {
	Procedure ie.ProcedureCode
	Kind      ie.MessageKind
	Binding   ie.Binding
}

// Compiled is the typed form of a Catalog.
type Compiled struct {
	Name       string
	IEs        []CompiledIE
	Messages   []CompiledMessage
	Procedures map[ie.ProcedureCode]string
}

type compiler struct {
	types     map[string]TypeSpec
	slots     map[string]*codec
	resolving map[string]bool
}

// Compile validates cat and turns every declaration into a typed binding.
func Compile(cat Catalog) (*Compiled, error) {
	c := &compiler{
		types:     cat.Types,
		slots:     make(map[string]*codec, len(cat.Types)),
		resolving: make(map[string]bool),
	}
	for name := range cat.Types {
		if _, err := c.named(name); err != nil {
			return nil, err
		}
	}

	out := &Compiled{Name: cat.Name, Procedures: make(map[ie.ProcedureCode]string)}
	seenIE := make(map[ie.Namespace]map[ie.ID]string)
	for i, spec := range cat.IEs {
		where := fmt.Sprintf("ies[%d]", i)
		if strings.TrimSpace(spec.Name) == "" {
			return nil, invalid(where, "missing name")
		}
		ns, err := ie.ParseNamespace(spec.Namespace)
		if err != nil {
			return nil, invalid(where, "%v", err)
		}
		if seenIE[ns] == nil {
			seenIE[ns] = make(map[ie.ID]string)
		}
		if prev, dup := seenIE[ns][ie.ID(spec.ID)]; dup {
			return nil, invalid(where, "%s ie=%d already declared by %s", ns, spec.ID, prev)
		}
		seenIE[ns][ie.ID(spec.ID)] = spec.Name
		if spec.Type.Kind == KindOpen && spec.Type.Item == nil {
			// Field values are open types already.
			return nil, invalid(where, "field type cannot be a bare open type")
		}

		cd, err := c.compile(where+"."+spec.Name, spec.Type)
		if err != nil {
			return nil, err
		}
		out.IEs = append(out.IEs, CompiledIE{Namespace: ns, ID: ie.ID(spec.ID), Binding: binding(spec.Name, cd)})
	}

	seenProc := make(map[ie.ProcedureCode]bool)
	for i, proc := range cat.Procedures {
		where := fmt.Sprintf("procedures[%d]", i)
		code := ie.ProcedureCode(proc.Code)
		if seenProc[code] {
			return nil, invalid(where, "procedure code %d declared twice", proc.Code)
		}
		seenProc[code] = true
		if proc.Name != "" {
			out.Procedures[code] = proc.Name
		}
		if len(proc.Messages) == 0 {
			return nil, invalid(where, "procedure %d has no messages", proc.Code)
		}
		for j, msg := range proc.Messages {
			cm, err := compileMessage(fmt.Sprintf("%s.messages[%d]", where, j), code, msg)
			if err != nil {
				return nil, err
			}
			out.Messages = append(out.Messages, cm)
		}
	}

	log.Debug().
		Str("catalog", cat.Name).
		Int("ies", len(out.IEs)).
		Int("messages", len(out.Messages)).
		Msg("schema.Compile ok")
	return out, nil
}

func compileMessage(where string, code ie.ProcedureCode, msg MessageSpec) (CompiledMessage, error) {
	kind, err := ie.ParseMessageKind(msg.Kind)
	if err != nil || kind >= ie.MessageKindCount {
		return CompiledMessage{}, invalid(where, "invalid message kind %q", msg.Kind)
	}
	if strings.TrimSpace(msg.Name) == "" {
		return CompiledMessage{}, invalid(where, "missing name")
	}
	ns, err := ie.ParseNamespace(msg.Namespace)
	if err != nil || ns == ie.Extension {
		return CompiledMessage{}, invalid(where, "message body namespace %q", msg.Namespace)
	}
	spec, err := ie.SpecFor(ns)
	if err != nil {
		return CompiledMessage{}, invalid(where, "%v", err)
	}

	reqs := make([]ie.Requirement, 0, len(msg.Mandatory))
	for k, req := range msg.Mandatory {
		crit, err := ie.ParseCriticality(req.Criticality)
		if err != nil {
			return CompiledMessage{}, invalid(fmt.Sprintf("%s.mandatory[%d]", where, k), "%v", err)
		}
		reqs = append(reqs, ie.Requirement{ID: ie.ID(req.ID), Criticality: crit})
	}

	body := &sequenceCodec{
		members:    []member{{name: BodyMember, codec: containerCodec{spec: spec}}},
		extensible: true,
	}
	return CompiledMessage{
		Procedure: code,
		Kind:      kind,
		Binding:   binding(msg.Name, messageCodec{body: body, reqs: reqs}),
	}, nil
}

// named returns the slot holding a named type, compiling it on first use.
func (c *compiler) named(name string) (*codec, error) {
	if slot, ok := c.slots[name]; ok {
		return slot, nil
	}
	spec, ok := c.types[name]
	if !ok {
		return nil, invalid("types", "unknown type %q", name)
	}
	if c.resolving[name] {
		return nil, fmt.Errorf("%w: %s", ErrTypeCycle, name)
	}
	c.resolving[name] = true
	defer delete(c.resolving, name)

	// A structured type gets its slot before its members compile so that
	// members may refer back to it.
	slot := new(codec)
	structured := spec.Kind == KindSequence || spec.Kind == KindChoice || spec.Kind == KindList
	if structured {
		c.slots[name] = slot
	}
	cd, err := c.compile("types."+name, spec)
	if err != nil {
		delete(c.slots, name)
		return nil, err
	}
	*slot = cd
	c.slots[name] = slot
	return slot, nil
}

func (c *compiler) compile(where string, spec TypeSpec) (codec, error) {
	if spec.Ref != "" {
		if spec.Kind != "" {
			return nil, invalid(where, "ref %q cannot also set kind", spec.Ref)
		}
		slot, err := c.named(spec.Ref)
		if err != nil {
			return nil, err
		}
		return refCodec{name: spec.Ref, target: slot}, nil
	}

	switch spec.Kind {
	case KindInteger:
		if spec.Min > spec.Max {
			return nil, invalid(where, "min %d above max %d", spec.Min, spec.Max)
		}
		return integerCodec{min: spec.Min, max: spec.Max, extensible: spec.Extensible}, nil
	case KindEnumerated:
		if len(spec.Values) == 0 {
			return nil, invalid(where, "enumerated without values")
		}
		return enumeratedCodec{count: uint64(len(spec.Values)), extensible: spec.Extensible}, nil
	case KindBoolean:
		return booleanCodec{}, nil
	case KindOctets, KindBits, KindPrintable:
		if spec.Min > spec.Max {
			return nil, invalid(where, "size min %d above max %d", spec.Min, spec.Max)
		}
		switch spec.Kind {
		case KindOctets:
			return octetsCodec{min: spec.Min, max: spec.Max, extensible: spec.Extensible}, nil
		case KindBits:
			return bitsCodec{min: spec.Min, max: spec.Max, extensible: spec.Extensible}, nil
		default:
			return printableCodec{min: spec.Min, max: spec.Max, extensible: spec.Extensible}, nil
		}
	case KindSequence:
		members, err := c.members(where, spec.Members, true)
		if err != nil {
			return nil, err
		}
		return &sequenceCodec{members: members, extensible: spec.Extensible, extensions: spec.Extensions}, nil
	case KindChoice:
		if len(spec.Alternatives) == 0 {
			return nil, invalid(where, "choice without alternatives")
		}
		alts, err := c.members(where, spec.Alternatives, false)
		if err != nil {
			return nil, err
		}
		return &choiceCodec{alternatives: alts, extensible: spec.Extensible}, nil
	case KindList:
		if spec.Item == nil {
			return nil, invalid(where, "list without item")
		}
		if spec.Min > spec.Max {
			return nil, invalid(where, "count min %d above max %d", spec.Min, spec.Max)
		}
		item, err := c.compile(where+".item", *spec.Item)
		if err != nil {
			return nil, err
		}
		return &listCodec{min: spec.Min, max: spec.Max, extensible: spec.Extensible, item: item}, nil
	case KindContainer:
		ns, err := ie.ParseNamespace(spec.Namespace)
		if err != nil {
			return nil, invalid(where, "%v", err)
		}
		cs, err := ie.SpecFor(ns)
		if err != nil {
			return nil, invalid(where, "%v", err)
		}
		return containerCodec{spec: cs}, nil
	case KindDiscriminator:
		if strings.TrimSpace(spec.Key) == "" {
			return nil, invalid(where, "discriminator without key")
		}
		if spec.Min > spec.Max {
			return nil, invalid(where, "min %d above max %d", spec.Min, spec.Max)
		}
		return discriminatorCodec{
			key:          spec.Key,
			integerCodec: integerCodec{min: spec.Min, max: spec.Max, extensible: spec.Extensible},
		}, nil
	case KindDependent:
		if strings.TrimSpace(spec.Key) == "" {
			return nil, invalid(where, "dependent without key")
		}
		if len(spec.Cases) == 0 {
			return nil, invalid(where, "dependent without cases")
		}
		dep := &dependentCodec{key: spec.Key, cases: make(map[uint64]dependentCase, len(spec.Cases))}
		for i, cs := range spec.Cases {
			if _, dup := dep.cases[cs.Selector]; dup {
				return nil, invalid(where, "selector %d declared twice", cs.Selector)
			}
			cd, err := c.compile(fmt.Sprintf("%s.cases[%d]", where, i), cs.Type)
			if err != nil {
				return nil, err
			}
			dep.cases[cs.Selector] = dependentCase{name: cs.Name, codec: cd}
		}
		return dep, nil
	case KindOpen:
		oc := &openCodec{name: where}
		if spec.Item != nil {
			inner, err := c.compile(where+".item", *spec.Item)
			if err != nil {
				return nil, err
			}
			oc.inner = inner
		}
		return oc, nil
	case "":
		return nil, invalid(where, "missing kind")
	default:
		return nil, invalid(where, "unknown kind %q", spec.Kind)
	}
}

func (c *compiler) members(where string, specs []MemberSpec, sequence bool) ([]member, error) {
	out := make([]member, 0, len(specs))
	seen := make(map[string]bool, len(specs))
	for i, m := range specs {
		at := fmt.Sprintf("%s.%d", where, i)
		if strings.TrimSpace(m.Name) == "" {
			return nil, invalid(at, "missing name")
		}
		if seen[m.Name] {
			return nil, invalid(at, "name %q declared twice", m.Name)
		}
		seen[m.Name] = true
		if m.Optional && !sequence {
			return nil, invalid(at, "choice alternatives cannot be optional")
		}
		cd, err := c.compile(at+"."+m.Name, m.Type)
		if err != nil {
			return nil, err
		}
		out = append(out, member{name: m.Name, optional: m.Optional, codec: cd})
	}
	return out, nil
}

// Install registers every compiled binding in reg.
func (cp *Compiled) Install(reg *ie.Registry) error {
	for _, b := range cp.IEs {
		if err := reg.RegisterIE(b.Namespace, b.ID, b.Binding); err != nil {
			return err
		}
	}
	for code, name := range cp.Procedures {
		if err := reg.NameProcedure(code, name); err != nil {
			return err
		}
	}
	for _, m := range cp.Messages {
		if err := reg.RegisterProcedure(m.Procedure, m.Kind, m.Binding); err != nil {
			return err
		}
	}
	log.Debug().Str("catalog", cp.Name).Msg("schema.Install ok")
	return nil
}
