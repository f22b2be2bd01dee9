package ie

import "fmt"

// Requirement declares a mandatory identifier and the criticality applied
// when a decoded container lacks it.
type Requirement struct {
	ID          ID
	Criticality Criticality
}

// CheckPresence applies the criticality policy to every requirement that c
// does not satisfy. Reject aborts; Ignore and Notify record diagnostics.
func CheckPresence(dc *DecodeContext, c *Container, reqs []Requirement) error {
	ns := Protocol
	if c != nil {
		ns = c.Namespace
	}
	for _, req := range reqs {
		if _, ok := c.Get(req.ID); ok {
			continue
		}
		ident := req.ID
		action := Resolve(req.Criticality, OutcomeMissing)
		diag := Diagnostic{
			Kind:        KindMissingMandatory,
			Namespace:   ns,
			ID:          &ident,
			Criticality: req.Criticality,
			Action:      action,
			Path:        dc.Path(),
			Detail:      fmt.Sprintf("mandatory %s ie=%d absent", ns, req.ID),
		}
		if action == ActionReject {
			return Abort(diag)
		}
		dc.Record(diag)
	}
	return nil
}
