package bindings

import (
	"errors"
	"time"

	"github.com/danmuck/iectl/internal/protocol"
	"github.com/danmuck/iectl/internal/protocol/ie"
	"github.com/rs/zerolog/log"
)

// Outcome is the displayable result of decoding one PDU.
type Outcome struct {
	Index   int               `json:"index"`
	Message *protocol.Message `json:"message,omitempty"`
	Report  *ie.Report        `json:"report,omitempty"`
	Error   string            `json:"error,omitempty"`
	// Indication is the encoded ErrorIndication a host could send back.
	Indication ie.OctetString `json:"error_indication,omitempty"`
	Duration   time.Duration  `json:"-"`
}

// Rejected reports whether the PDU yielded no usable message.
func (o Outcome) Rejected() bool {
	return o.Message == nil
}

// Decode decodes pdu with a fresh context. With indicate set, rejected
// messages and messages with notify diagnostics also carry an encoded
// ErrorIndication built from their report.
func Decode(c *protocol.Codec, pdu []byte, indicate bool) Outcome {
	start := time.Now()
	msg, err := c.DecodeMessage(pdu)
	out := Outcome{Message: msg, Duration: time.Since(start)}

	var report *ie.Report
	switch {
	case err == nil:
		if msg.Status == protocol.StatusWarnings {
			report = &ie.Report{
				Procedure:            msg.Procedure,
				Kind:                 msg.Kind,
				ProcedureCriticality: msg.Criticality,
				Diagnostics:          msg.Diagnostics,
			}
		}
	case errors.As(err, &report):
		out.Report = report
		out.Error = err.Error()
	default:
		out.Error = err.Error()
	}

	if indicate && report != nil {
		raw, ierr := c.EncodeMessage(ErrorIndication(report, CauseFor(report)))
		if ierr != nil {
			log.Warn().Err(ierr).Msg("bindings.Decode error indication encode failed")
		} else {
			out.Indication = raw
		}
	}
	return out
}
