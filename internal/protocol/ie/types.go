package ie

import (
	"fmt"
	"strings"
)

// ID is an information-element identifier, unique within a Namespace.
type ID uint16

// MaxID is the largest identifier carried on the wire.
const MaxID = 65535

// ProcedureCode identifies a request/response interaction.
type ProcedureCode uint8

// MaxProcedureCode is the largest procedure code carried on the wire.
const MaxProcedureCode = 255

// Namespace separates identifier spaces.
type Namespace uint8

const (
	Protocol Namespace = iota
	Extension
	Private
)

var namespaceNames = [...]string{"protocol", "extension", "private"}

func (n Namespace) Valid() bool {
	return int(n) < len(namespaceNames)
}

func (n Namespace) String() string {
	if !n.Valid() {
		return fmt.Sprintf("namespace(%d)", uint8(n))
	}
	return namespaceNames[n]
}

func (n Namespace) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *Namespace) UnmarshalText(b []byte) error {
	v, err := ParseNamespace(string(b))
	if err != nil {
		return err
	}
	*n = v
	return nil
}

// ParseNamespace maps a namespace name to its value.
func ParseNamespace(raw string) (Namespace, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return Protocol, nil
	}
	for i, name := range namespaceNames {
		if name == key {
			return Namespace(i), nil
		}
	}
	return 0, fmt.Errorf("ie: unknown namespace %q", raw)
}

// Criticality is the sender's hint for handling a field the receiver cannot
// use. It is read once and never changed.
type Criticality uint8

const (
	Reject Criticality = iota
	Ignore
	Notify
)

// CriticalityCount is the number of root criticality values on the wire.
const CriticalityCount = 3

var criticalityNames = [...]string{"reject", "ignore", "notify"}

func (c Criticality) Valid() bool {
	return int(c) < len(criticalityNames)
}

func (c Criticality) String() string {
	if !c.Valid() {
		return fmt.Sprintf("criticality(%d)", uint8(c))
	}
	return criticalityNames[c]
}

func (c Criticality) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Criticality) UnmarshalText(b []byte) error {
	v, err := ParseCriticality(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ParseCriticality maps a criticality name to its value.
func ParseCriticality(raw string) (Criticality, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	for i, name := range criticalityNames {
		if name == key {
			return Criticality(i), nil
		}
	}
	return 0, fmt.Errorf("ie: unknown criticality %q", raw)
}

// MessageKind is the outermost framing of a message.
type MessageKind uint8

const (
	Request MessageKind = iota
	Success
	Failure
	UnknownExtension
)

// MessageKindCount is the number of root message kinds on the wire.
const MessageKindCount = 3

var messageKindNames = [...]string{"request", "success", "failure", "unknown-extension"}

func (k MessageKind) Valid() bool {
	return int(k) < len(messageKindNames)
}

func (k MessageKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return messageKindNames[k]
}

func (k MessageKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseMessageKind maps a message kind name to its value.
func ParseMessageKind(raw string) (MessageKind, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	for i, name := range messageKindNames {
		if name == key {
			return MessageKind(i), nil
		}
	}
	return 0, fmt.Errorf("ie: unknown message kind %q", raw)
}
