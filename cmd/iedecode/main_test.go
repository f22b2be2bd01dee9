package main

import (
	"bytes"
	"encoding/asn1"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/iectl/internal/bindings"
	"github.com/danmuck/iectl/internal/protocol"
	"github.com/danmuck/iectl/internal/protocol/frame"
	"github.com/danmuck/iectl/internal/protocol/ie"
	"github.com/danmuck/iectl/internal/protocol/schema"
	"github.com/danmuck/iectl/internal/testutil/testlog"
)

func setupPDU(t *testing.T, kind ie.MessageKind) []byte {
	t.Helper()
	reg, err := bindings.NewRegistry("")
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	node := ie.Sequence{Members: []ie.Member{
		{Name: "pLMNIdentity", Value: ie.OctetString{0x02, 0xf8, 0x39}},
		{Name: "nodeID", Value: ie.BitString(asn1.BitString{Bytes: []byte{0x12, 0x34, 0x56}, BitLength: 24})},
	}}
	pdu, err := protocol.NewCodec(reg).EncodeMessage(&protocol.Message{
		Envelope: protocol.Envelope{Kind: kind, Procedure: bindings.ProcSetup, Criticality: ie.Reject},
		Body: ie.Sequence{Members: []ie.Member{{
			Name: schema.BodyMember,
			Value: &ie.Container{Namespace: ie.Protocol, Fields: []ie.Field{
				{ID: bindings.IEGlobalNodeID, Criticality: ie.Reject, Value: node},
			}},
		}}},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return pdu
}

func outcomes(t *testing.T, out string) []map[string]any {
	t.Helper()
	var list []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad json line %q: %v", line, err)
		}
		list = append(list, m)
	}
	return list
}

func TestRunHexArgs(t *testing.T) {
	testlog.Start(t)

	var stdout, stderr bytes.Buffer
	ok := "0x" + hex.EncodeToString(setupPDU(t, ie.Success))
	code := run([]string{ok}, nil, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	list := outcomes(t, stdout.String())
	msg, _ := list[0]["message"].(map[string]any)
	if len(list) != 1 || msg["name"] != "SetupResponse" {
		t.Fatalf("unexpected output %v", list)
	}
}

func TestRunStdinLinesRejected(t *testing.T) {
	testlog.Start(t)

	input := "# captured\n" + hex.EncodeToString(setupPDU(t, ie.Success)) + "\n\n" + hex.EncodeToString(setupPDU(t, ie.Request)) + "\n"
	var stdout, stderr bytes.Buffer
	code := run([]string{"-indication"}, strings.NewReader(input), &stdout, &stderr)
	if code != exitRejected {
		t.Fatalf("expected exit 2, got %d: %s", code, stderr.String())
	}
	list := outcomes(t, stdout.String())
	if len(list) != 2 {
		t.Fatalf("expected two outcomes, got %d", len(list))
	}
	if list[1]["index"] != float64(1) || list[1]["error_indication"] == nil {
		t.Fatalf("unexpected rejected outcome %v", list[1])
	}
}

func TestRunRecordFile(t *testing.T) {
	testlog.Start(t)

	var buf bytes.Buffer
	for i := 0; i < 3; i++ {
		if err := frame.WriteRecord(&buf, setupPDU(t, ie.Success), frame.DefaultLimits()); err != nil {
			t.Fatalf("write record: %v", err)
		}
	}
	path := filepath.Join(t.TempDir(), "pdus.rec")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	var stdout, stderr bytes.Buffer
	if code := run([]string{"-records", path}, nil, &stdout, &stderr); code != exitOK {
		t.Fatalf("expected exit 0, got %d: %s", code, stderr.String())
	}
	if n := len(outcomes(t, stdout.String())); n != 3 {
		t.Fatalf("expected 3 outcomes, got %d", n)
	}

	stdout.Reset()
	if code := run([]string{"-records", "-", "-max-record", "4"}, bytes.NewReader(buf.Bytes()), &stdout, &stderr); code != exitFailure {
		t.Fatalf("expected framing failure, got %d", code)
	}
}

func TestRunBadInput(t *testing.T) {
	testlog.Start(t)

	var stdout, stderr bytes.Buffer
	if code := run([]string{"zz"}, nil, &stdout, &stderr); code != exitFailure {
		t.Fatalf("expected failure for bad hex, got %d", code)
	}
	if code := run([]string{"-catalog", "/nonexistent.toml", "00"}, nil, &stdout, &stderr); code != exitFailure {
		t.Fatalf("expected failure for missing catalog, got %d", code)
	}
	if got, err := parseHex("0x00 15:40"); err != nil || !bytes.Equal(got, []byte{0x00, 0x15, 0x40}) {
		t.Fatalf("parseHex = % x, %v", got, err)
	}
}
