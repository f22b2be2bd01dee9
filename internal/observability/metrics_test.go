package observability

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/iectl/internal/protocol"
	"github.com/danmuck/iectl/internal/protocol/ie"
	"github.com/danmuck/iectl/internal/testutil/testlog"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog/log"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRegisterMetricsAndRecordersAreSafe(t *testing.T) {
	testlog.Start(t)

	RegisterMetrics()
	RegisterMetrics()

	RecordHTTPRequest("gate-a", "GET", "/health", 200, 12*time.Millisecond)
	RecordDecode(nil, errors.New("not a report"), time.Millisecond)
	RecordDecode(nil, nil, time.Millisecond)
}

func TestRecordDecodeCountsOutcomes(t *testing.T) {
	testlog.Start(t)

	id := ie.ID(77)
	ok := &protocol.Message{
		Envelope: protocol.Envelope{Kind: ie.Request, Procedure: 201},
		Status:   protocol.StatusWarnings,
		Diagnostics: []ie.Diagnostic{{
			Kind: ie.KindUnknownIdentifier, ID: &id, Criticality: ie.Notify, Action: ie.ActionNotify,
		}},
	}
	before := counterValue(t, decodes.WithLabelValues("201", "request", "warnings"))
	droppedBefore := counterValue(t, droppedFields.WithLabelValues("protocol", "notify", "notified", "unknown-identifier"))
	RecordDecode(ok, nil, time.Microsecond)
	if got := counterValue(t, decodes.WithLabelValues("201", "request", "warnings")); got != before+1 {
		t.Fatalf("expected warnings counter %v, got %v", before+1, got)
	}
	if got := counterValue(t, droppedFields.WithLabelValues("protocol", "notify", "notified", "unknown-identifier")); got != droppedBefore+1 {
		t.Fatalf("expected dropped counter %v, got %v", droppedBefore+1, got)
	}

	report := &ie.Report{
		Procedure: 202,
		Kind:      ie.Success,
		Fatal:     &ie.Diagnostic{Kind: ie.KindMissingDisambiguation, Action: ie.ActionReject},
	}
	rejBefore := counterValue(t, decodeFatal.WithLabelValues("missing-disambiguation"))
	RecordDecode(nil, report, time.Microsecond)
	if got := counterValue(t, decodeFatal.WithLabelValues("missing-disambiguation")); got != rejBefore+1 {
		t.Fatalf("expected rejected counter %v, got %v", rejBefore+1, got)
	}
	if got := counterValue(t, decodes.WithLabelValues("202", "success", StatusRejected)); got != 1 {
		t.Fatalf("expected one rejected decode for procedure 202, got %v", got)
	}
}

func TestRecordDecodeCountsPlainErrors(t *testing.T) {
	testlog.Start(t)

	before := counterValue(t, decodes.WithLabelValues("", "", StatusRejected))
	fatalBefore := counterValue(t, decodeFatal.WithLabelValues(string(ie.KindPrimitiveViolation)))
	RecordDecode(nil, errors.New("codec: invalid"), time.Microsecond)
	if got := counterValue(t, decodes.WithLabelValues("", "", StatusRejected)); got != before+1 {
		t.Fatalf("expected rejected decode %v, got %v", before+1, got)
	}
	if got := counterValue(t, decodeFatal.WithLabelValues(string(ie.KindPrimitiveViolation))); got != fatalBefore+1 {
		t.Fatalf("expected fatal counter %v, got %v", fatalBefore+1, got)
	}
}

func TestInitLoggerWithFile(t *testing.T) {
	testlog.Start(t)

	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var console bytes.Buffer
	path := filepath.Join(t.TempDir(), "gate.log")
	logger := InitLoggerWith("iegate-test", &console, &LogFile{Path: path, MaxSizeMB: 1})
	logger.Info().Str("probe", "rotation").Msg("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"probe":"rotation"`) {
		t.Fatalf("log file missing JSON line: %s", data)
	}
	if !strings.Contains(console.String(), "hello") {
		t.Fatalf("console output missing message: %q", console.String())
	}
}
