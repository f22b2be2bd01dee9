package observability

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/danmuck/iectl/internal/protocol"
	"github.com/danmuck/iectl/internal/protocol/ie"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "iectl"

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	decodes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "messages_total",
			Help:      "Decoded messages by procedure, kind and outcome.",
		},
		[]string{"procedure", "kind", "status"},
	)
	decodeFatal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "rejected_total",
			Help:      "Rejected messages by error kind.",
		},
		[]string{"error_kind"},
	)
	droppedFields = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "dropped_fields_total",
			Help:      "Fields dropped under ignore or notify criticality.",
		},
		[]string{"namespace", "criticality", "action", "error_kind"},
	)
	decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "decode",
			Name:      "duration_seconds",
			Help:      "Message decode duration in seconds.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		},
		[]string{"status"},
	)
)

const StatusRejected = "rejected"

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, decodes, decodeFatal, droppedFields, decodeDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordDecode counts the outcome of one DecodeMessage call.
func RecordDecode(msg *protocol.Message, err error, duration time.Duration) {
	RegisterMetrics()
	if err != nil {
		var report *ie.Report
		procedure, kind, errKind := "", "", string(ie.KindPrimitiveViolation)
		if errors.As(err, &report) {
			procedure = strconv.Itoa(int(report.Procedure))
			kind = report.Kind.String()
			if report.Fatal != nil {
				errKind = string(report.Fatal.Kind)
			}
			recordDropped(report.Diagnostics)
		}
		decodes.WithLabelValues(procedure, kind, StatusRejected).Inc()
		decodeFatal.WithLabelValues(errKind).Inc()
		decodeDuration.WithLabelValues(StatusRejected).Observe(duration.Seconds())
		return
	}
	if msg == nil {
		return
	}
	status := string(msg.Status)
	decodes.WithLabelValues(strconv.Itoa(int(msg.Procedure)), msg.Kind.String(), status).Inc()
	recordDropped(msg.Diagnostics)
	decodeDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func recordDropped(diags []ie.Diagnostic) {
	for _, d := range diags {
		droppedFields.WithLabelValues(d.Namespace.String(), d.Criticality.String(), d.Action.String(), string(d.Kind)).Inc()
	}
}
