// Package frame carries PDUs in a record stream: a big-endian u32 length
// followed by that many octets.
package frame

import (
	"encoding/binary"
	"errors"
	"io"
)

const HeaderLen = 4

var (
	ErrShortHeader     = errors.New("frame: short record header")
	ErrTruncatedRecord = errors.New("frame: record shorter than its length")
	ErrRecordTooLarge  = errors.New("frame: record too large")
	ErrEmptyRecord     = errors.New("frame: empty record")
	ErrTooManyRecords  = errors.New("frame: too many records")
)

// Limits constrains record stream memory use.
type Limits struct {
	MaxRecordBytes uint32
	MaxRecords     int
}

func DefaultLimits() Limits {
	return Limits{
		MaxRecordBytes: 1 << 20,
		MaxRecords:     10000,
	}
}

// ReadRecord reads one record. A clean end of stream before any header
// octet returns io.EOF.
func ReadRecord(r io.Reader, limits Limits) ([]byte, error) {
	var head [HeaderLen]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil {
		if errors.Is(err, io.EOF) && n == 0 {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrShortHeader
		}
		return nil, err
	}

	size := binary.BigEndian.Uint32(head[:])
	if size == 0 {
		return nil, ErrEmptyRecord
	}
	if size > limits.MaxRecordBytes {
		return nil, ErrRecordTooLarge
	}
	pdu := make([]byte, size)
	if _, err := io.ReadFull(r, pdu); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrTruncatedRecord
		}
		return nil, err
	}
	return pdu, nil
}

// WriteRecord writes pdu as one record.
func WriteRecord(w io.Writer, pdu []byte, limits Limits) error {
	if len(pdu) == 0 {
		return ErrEmptyRecord
	}
	if uint64(len(pdu)) > uint64(limits.MaxRecordBytes) {
		return ErrRecordTooLarge
	}
	var head [HeaderLen]byte
	binary.BigEndian.PutUint32(head[:], uint32(len(pdu)))
	if _, err := w.Write(head[:]); err != nil {
		return err
	}
	_, err := w.Write(pdu)
	return err
}

// Each calls fn for every record in order until the stream ends, fn fails or
// a framing error occurs. It returns the number of records read.
func Each(r io.Reader, limits Limits, fn func(index int, pdu []byte) error) (int, error) {
	count := 0
	for {
		pdu, err := ReadRecord(r, limits)
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, err
		}
		if limits.MaxRecords > 0 && count >= limits.MaxRecords {
			return count, ErrTooManyRecords
		}
		if err := fn(count, pdu); err != nil {
			return count + 1, err
		}
		count++
	}
}
