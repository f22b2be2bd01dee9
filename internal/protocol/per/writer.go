package per

import (
	"encoding/asn1"
	"math/bits"
)

const (
	maxShortLength = 127
	maxLongLength  = 16383
)

// Writer accumulates an aligned PER bit stream.
type Writer struct {
	buf  []byte
	bits uint64
}

// NewWriter returns an empty writer.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 32)}
}

// Bytes returns the encoded octets. Trailing bits of the last octet are zero.
func (w *Writer) Bytes() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}

// BitLen returns the number of bits written so far.
func (w *Writer) BitLen() uint64 {
	return w.bits
}

// Align pads with zero bits up to the next octet boundary.
func (w *Writer) Align() {
	for w.bits%8 != 0 {
		w.writeBit(false)
	}
}

func (w *Writer) writeBit(set bool) {
	idx := w.bits / 8
	if idx == uint64(len(w.buf)) {
		w.buf = append(w.buf, 0)
	}
	if set {
		w.buf[idx] |= 0x80 >> (w.bits % 8)
	}
	w.bits++
}

// WriteBits writes the low n bits of v, most significant first.
func (w *Writer) WriteBits(v uint64, n int) error {
	if n < 0 || n > 64 {
		return ErrTooManyBits
	}
	for i := n - 1; i >= 0; i-- {
		w.writeBit((v>>uint(i))&1 == 1)
	}
	return nil
}

func (w *Writer) writeOctets(b []byte) {
	if w.bits%8 == 0 {
		w.buf = append(w.buf, b...)
		w.bits += uint64(len(b)) * 8
		return
	}
	for _, octet := range b {
		_ = w.WriteBits(uint64(octet), 8)
	}
}

// WriteBool writes a single bit.
func (w *Writer) WriteBool(v bool) error {
	w.writeBit(v)
	return nil
}

// WriteBoundedUint writes v constrained to [min,max]. With extensible set, a
// leading bit marks whether v lies outside the root range, in which case v is
// written as a length-prefixed unconstrained number.
func (w *Writer) WriteBoundedUint(min, max uint64, extensible bool, v uint64) error {
	if min > max {
		return ErrInvalidBounds
	}
	inRange := v >= min && v <= max
	if extensible {
		w.writeBit(!inRange)
		if !inRange {
			return w.writeUnconstrained(v)
		}
	} else if !inRange {
		return ConstraintError{What: "integer", Value: v, Min: min, Max: max}
	}
	return w.writeConstrained(min, max, v)
}

func (w *Writer) writeConstrained(lb, ub, v uint64) error {
	rng := ub - lb + 1
	off := v - lb
	switch {
	case rng == 1:
		return nil
	case rng != 0 && rng <= 255:
		return w.WriteBits(off, bits.Len64(rng-1))
	case rng == 256:
		w.Align()
		return w.WriteBits(off, 8)
	case rng != 0 && rng <= 65536:
		w.Align()
		return w.WriteBits(off, 16)
	default:
		n := octetLen(off)
		if err := w.writeConstrained(1, uint64(octetLen(ub-lb)), uint64(n)); err != nil {
			return err
		}
		w.Align()
		return w.WriteBits(off, n*8)
	}
}

func (w *Writer) writeUnconstrained(v uint64) error {
	n := octetLen(v)
	if err := w.writeLengthDeterminant(uint64(n)); err != nil {
		return err
	}
	return w.WriteBits(v, n*8)
}

func (w *Writer) writeLengthDeterminant(n uint64) error {
	w.Align()
	switch {
	case n <= maxShortLength:
		return w.WriteBits(n, 8)
	case n <= maxLongLength:
		return w.WriteBits(0x8000|n, 16)
	default:
		return ErrFragmented
	}
}

// WriteLength writes a count constrained to [min,max]. Upper bounds of 64K
// and above fall back to an unconstrained determinant.
func (w *Writer) WriteLength(min, max uint64, extensible bool, n uint64) error {
	if min > max {
		return ErrInvalidBounds
	}
	inRange := n >= min && n <= max
	if extensible {
		w.writeBit(!inRange)
		if !inRange {
			return w.writeLengthDeterminant(n)
		}
	} else if !inRange {
		return ConstraintError{What: "length", Value: n, Min: min, Max: max}
	}
	if max >= 65536 {
		return w.writeLengthDeterminant(n)
	}
	return w.writeConstrained(min, max, n)
}

// WriteEnumerated writes an enumeration index among count root values.
func (w *Writer) WriteEnumerated(count uint64, extensible bool, idx uint64) error {
	if count == 0 {
		return ErrInvalidBounds
	}
	if extensible {
		w.writeBit(idx >= count)
		if idx >= count {
			return w.WriteNormallySmall(idx - count)
		}
	} else if idx >= count {
		return ConstraintError{What: "enumerated", Value: idx, Min: 0, Max: count - 1}
	}
	return w.writeConstrained(0, count-1, idx)
}

// WriteChoiceIndex writes a choice alternative. Extended alternatives are
// numbered from zero within the extension.
func (w *Writer) WriteChoiceIndex(count uint64, extensible bool, idx uint64, extended bool) error {
	if count == 0 {
		return ErrInvalidBounds
	}
	if extensible {
		w.writeBit(extended)
		if extended {
			return w.WriteNormallySmall(idx)
		}
	} else if extended {
		return ConstraintError{What: "choice", Value: idx, Min: 0, Max: count - 1}
	}
	if idx >= count {
		return ConstraintError{What: "choice", Value: idx, Min: 0, Max: count - 1}
	}
	return w.writeConstrained(0, count-1, idx)
}

// WriteNormallySmall writes a normally small non-negative whole number.
func (w *Writer) WriteNormallySmall(n uint64) error {
	if n <= 63 {
		w.writeBit(false)
		return w.WriteBits(n, 6)
	}
	w.writeBit(true)
	return w.writeUnconstrained(n)
}

// WriteOctetString writes b with a size constraint of [min,max] octets.
func (w *Writer) WriteOctetString(min, max uint64, extensible bool, b []byte) error {
	if min > max {
		return ErrInvalidBounds
	}
	n := uint64(len(b))
	inRange := n >= min && n <= max
	if extensible {
		w.writeBit(!inRange)
		if !inRange {
			if err := w.writeLengthDeterminant(n); err != nil {
				return err
			}
			w.writeOctets(b)
			return nil
		}
	} else if !inRange {
		return ConstraintError{What: "octet string size", Value: n, Min: min, Max: max}
	}
	if min == max {
		if n > 2 {
			w.Align()
		}
		w.writeOctets(b)
		return nil
	}
	if err := w.WriteLength(min, max, false, n); err != nil {
		return err
	}
	w.Align()
	w.writeOctets(b)
	return nil
}

// WriteBitString writes bs with a size constraint of [min,max] bits.
func (w *Writer) WriteBitString(min, max uint64, extensible bool, bs asn1.BitString) error {
	if min > max {
		return ErrInvalidBounds
	}
	n := uint64(bs.BitLength)
	if uint64(len(bs.Bytes))*8 < n {
		return ErrTruncated
	}
	inRange := n >= min && n <= max
	if extensible {
		w.writeBit(!inRange)
		if !inRange {
			if err := w.writeLengthDeterminant(n); err != nil {
				return err
			}
			w.writeBitsOf(bs)
			return nil
		}
	} else if !inRange {
		return ConstraintError{What: "bit string size", Value: n, Min: min, Max: max}
	}
	if min == max {
		if n > 16 {
			w.Align()
		}
		w.writeBitsOf(bs)
		return nil
	}
	if err := w.WriteLength(min, max, false, n); err != nil {
		return err
	}
	w.Align()
	w.writeBitsOf(bs)
	return nil
}

func (w *Writer) writeBitsOf(bs asn1.BitString) {
	for i := 0; i < bs.BitLength; i++ {
		w.writeBit(bs.At(i) == 1)
	}
}

// WriteOpenType writes b as a length-prefixed octet-aligned open type. An
// empty encoding is carried as a single zero octet.
func (w *Writer) WriteOpenType(b []byte) error {
	if len(b) == 0 {
		b = []byte{0}
	}
	if err := w.writeLengthDeterminant(uint64(len(b))); err != nil {
		return err
	}
	w.writeOctets(b)
	return nil
}

func octetLen(v uint64) int {
	if v == 0 {
		return 1
	}
	return (bits.Len64(v) + 7) / 8
}
