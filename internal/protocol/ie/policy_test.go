package ie

import (
	"testing"

	"github.com/danmuck/iectl/internal/testutil/testlog"
)

func TestResolveTotality(t *testing.T) {
	testlog.Start(t)

	cases := []struct {
		crit    Criticality
		outcome Outcome
		want    Action
	}{
		{Reject, OutcomeOK, ActionAccept},
		{Ignore, OutcomeOK, ActionAccept},
		{Notify, OutcomeOK, ActionAccept},
		{Reject, OutcomeUnknown, ActionReject},
		{Ignore, OutcomeUnknown, ActionIgnore},
		{Notify, OutcomeUnknown, ActionNotify},
		{Reject, OutcomeMalformed, ActionReject},
		{Ignore, OutcomeMalformed, ActionIgnore},
		{Notify, OutcomeMalformed, ActionNotify},
		{Reject, OutcomeMissing, ActionReject},
		{Ignore, OutcomeMissing, ActionIgnore},
		{Notify, OutcomeMissing, ActionNotify},
		{Criticality(7), OutcomeUnknown, ActionReject},
		{Criticality(7), OutcomeOK, ActionAccept},
	}
	for _, tc := range cases {
		if got := Resolve(tc.crit, tc.outcome); got != tc.want {
			t.Fatalf("Resolve(%s, %s) = %s, want %s", tc.crit, tc.outcome, got, tc.want)
		}
	}
}

func TestOutcomeKinds(t *testing.T) {
	testlog.Start(t)

	if OutcomeUnknown.Kind() != KindUnknownIdentifier {
		t.Fatalf("unknown -> %s", OutcomeUnknown.Kind())
	}
	if OutcomeMalformed.Kind() != KindMalformedValue {
		t.Fatalf("malformed -> %s", OutcomeMalformed.Kind())
	}
	if OutcomeMissing.Kind() != KindMissingMandatory {
		t.Fatalf("missing -> %s", OutcomeMissing.Kind())
	}
}

func TestActionText(t *testing.T) {
	testlog.Start(t)

	b, err := ActionNotify.MarshalText()
	if err != nil || string(b) != "notified" {
		t.Fatalf("MarshalText = %q, %v", b, err)
	}
	if Action(9).String() != "action(9)" {
		t.Fatalf("unexpected out-of-range name %q", Action(9).String())
	}
}

func TestParseCriticality(t *testing.T) {
	testlog.Start(t)

	for _, c := range []Criticality{Reject, Ignore, Notify} {
		got, err := ParseCriticality(c.String())
		if err != nil || got != c {
			t.Fatalf("ParseCriticality(%q) = %v, %v", c.String(), got, err)
		}
	}
	if _, err := ParseCriticality("panic"); err == nil {
		t.Fatalf("expected error for unknown criticality")
	}

	var ns Namespace
	if err := ns.UnmarshalText([]byte("private")); err != nil || ns != Private {
		t.Fatalf("UnmarshalText private = %v, %v", ns, err)
	}
	if err := ns.UnmarshalText([]byte("")); err != nil || ns != Protocol {
		t.Fatalf("empty namespace = %v, %v", ns, err)
	}
}
