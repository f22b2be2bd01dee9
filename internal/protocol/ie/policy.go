package ie

import "fmt"

// Outcome is the result of resolving and decoding one field.
type Outcome uint8

const (
	OutcomeOK Outcome = iota
	OutcomeUnknown
	OutcomeMalformed
	OutcomeMissing
)

var outcomeNames = [...]string{"value-ok", "identifier-unknown", "value-malformed", "missing"}

func (o Outcome) String() string {
	if int(o) >= len(outcomeNames) {
		return fmt.Sprintf("outcome(%d)", uint8(o))
	}
	return outcomeNames[o]
}

// Kind maps a failing outcome to its diagnostic kind.
func (o Outcome) Kind() ErrorKind {
	switch o {
	case OutcomeUnknown:
		return KindUnknownIdentifier
	case OutcomeMissing:
		return KindMissingMandatory
	default:
		return KindMalformedValue
	}
}

// Action is what the container decode does with a field.
type Action uint8

const (
	ActionAccept Action = iota
	ActionIgnore
	ActionNotify
	ActionReject
)

var actionNames = [...]string{"accepted", "ignored", "notified", "rejected"}

func (a Action) String() string {
	if int(a) >= len(actionNames) {
		return fmt.Sprintf("action(%d)", uint8(a))
	}
	return actionNames[a]
}

func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// Resolve applies the criticality policy. It is total: a field that decoded
// is always accepted; otherwise Reject aborts the message, Ignore drops the
// field and Notify drops it with a warning. Unknown criticality values abort.
func Resolve(c Criticality, o Outcome) Action {
	if o == OutcomeOK {
		return ActionAccept
	}
	switch c {
	case Ignore:
		return ActionIgnore
	case Notify:
		return ActionNotify
	default:
		return ActionReject
	}
}
