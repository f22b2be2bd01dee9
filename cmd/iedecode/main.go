package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danmuck/iectl/internal/bindings"
	"github.com/danmuck/iectl/internal/logging"
	"github.com/danmuck/iectl/internal/protocol"
	"github.com/danmuck/iectl/internal/protocol/frame"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitRejected = 2
)

func main() {
	logging.ConfigureRuntime()
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type options struct {
	catalog    string
	records    string
	indication bool
	pretty     bool
	maxRecord  uint
}

// run decodes every PDU named by args and writes one JSON outcome per line.
// PDUs come from hex arguments, a record stream file, or hex lines on stdin.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("iedecode", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.catalog, "catalog", "", "field catalog (toml|yaml); empty uses the embedded catalog")
	fs.StringVar(&opts.records, "records", "", "record stream file of length-prefixed PDUs (- for stdin)")
	fs.BoolVar(&opts.indication, "indication", false, "attach an encoded ErrorIndication to rejected or notified PDUs")
	fs.BoolVar(&opts.pretty, "pretty", false, "indent JSON output")
	fs.UintVar(&opts.maxRecord, "max-record", uint(frame.DefaultLimits().MaxRecordBytes), "largest accepted record in octets")
	if err := fs.Parse(args); err != nil {
		return exitFailure
	}

	reg, err := bindings.NewRegistry(opts.catalog)
	if err != nil {
		fmt.Fprintf(stderr, "iedecode: %v\n", err)
		return exitFailure
	}
	codec := protocol.NewCodec(reg)

	enc := json.NewEncoder(stdout)
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	rejected := false
	emit := func(i int, pdu []byte) error {
		out := bindings.Decode(codec, pdu, opts.indication)
		out.Index = i
		if out.Rejected() {
			rejected = true
		}
		return enc.Encode(out)
	}

	switch {
	case opts.records != "":
		err = decodeRecords(opts, stdin, emit)
	case fs.NArg() > 0:
		err = decodeHex(fs.Args(), emit)
	default:
		err = decodeLines(stdin, emit)
	}
	if err != nil {
		fmt.Fprintf(stderr, "iedecode: %v\n", err)
		return exitFailure
	}
	if rejected {
		return exitRejected
	}
	return exitOK
}

func decodeRecords(opts options, stdin io.Reader, emit func(int, []byte) error) error {
	in := stdin
	if opts.records != "-" {
		f, err := os.Open(opts.records)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	limits := frame.DefaultLimits()
	limits.MaxRecordBytes = uint32(opts.maxRecord)
	limits.MaxRecords = 0
	n, err := frame.Each(bufio.NewReader(in), limits, emit)
	if err != nil {
		return fmt.Errorf("record %d: %w", n, err)
	}
	return nil
}

func decodeHex(args []string, emit func(int, []byte) error) error {
	for i, arg := range args {
		pdu, err := parseHex(arg)
		if err != nil {
			return fmt.Errorf("argument %d: %w", i+1, err)
		}
		if err := emit(i, pdu); err != nil {
			return err
		}
	}
	return nil
}

func decodeLines(stdin io.Reader, emit func(int, []byte) error) error {
	sc := bufio.NewScanner(stdin)
	sc.Buffer(make([]byte, 0, 64<<10), 4<<20)
	line, index := 0, 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		pdu, err := parseHex(text)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := emit(index, pdu); err != nil {
			return err
		}
		index++
	}
	return sc.Err()
}

// parseHex accepts plain hex with optional 0x prefix, spaces and colons.
func parseHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	s = strings.NewReplacer(" ", "", ":", "", "\t", "").Replace(s)
	if s == "" {
		return nil, fmt.Errorf("empty pdu")
	}
	return hex.DecodeString(s)
}
