package per

import (
	"encoding/asn1"
	"math/bits"
)

// Reader consumes an aligned PER bit stream.
type Reader struct {
	buf []byte
	pos uint64
}

// NewReader returns a reader over b. The slice is not copied.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// BitPos returns the number of bits consumed so far.
func (r *Reader) BitPos() uint64 {
	return r.pos
}

// Remaining returns the number of unread bits.
func (r *Reader) Remaining() uint64 {
	total := uint64(len(r.buf)) * 8
	if r.pos >= total {
		return 0
	}
	return total - r.pos
}

// Align skips to the next octet boundary.
func (r *Reader) Align() {
	if rem := r.pos % 8; rem != 0 {
		r.pos += 8 - rem
	}
}

// Finish reports whether every octet of the input was consumed. Padding bits
// in the last octet are allowed, as is the single zero octet that stands for
// an empty open-type encoding.
func (r *Reader) Finish() error {
	used := (r.pos + 7) / 8
	if used == uint64(len(r.buf)) {
		return nil
	}
	if r.pos == 0 && len(r.buf) == 1 && r.buf[0] == 0 {
		return nil
	}
	return ErrTrailingData
}

func (r *Reader) readBit() (bool, error) {
	if r.pos >= uint64(len(r.buf))*8 {
		return false, ErrTruncated
	}
	b := r.buf[r.pos/8]&(0x80>>(r.pos%8)) != 0
	r.pos++
	return b, nil
}

// ReadBits reads n bits, most significant first.
func (r *Reader) ReadBits(n int) (uint64, error) {
	if n < 0 || n > 64 {
		return 0, ErrTooManyBits
	}
	if r.Remaining() < uint64(n) {
		return 0, ErrTruncated
	}
	var v uint64
	for i := 0; i < n; i++ {
		bit, err := r.readBit()
		if err != nil {
			return 0, err
		}
		v <<= 1
		if bit {
			v |= 1
		}
	}
	return v, nil
}

func (r *Reader) readOctets(n uint64) ([]byte, error) {
	if n > r.Remaining()/8 {
		return nil, ErrTruncated
	}
	out := make([]byte, n)
	if r.pos%8 == 0 {
		start := r.pos / 8
		copy(out, r.buf[start:start+n])
		r.pos += n * 8
		return out, nil
	}
	for i := range out {
		v, err := r.ReadBits(8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(v)
	}
	return out, nil
}

// ReadBool reads a single bit.
func (r *Reader) ReadBool() (bool, error) {
	return r.readBit()
}

// ReadBoundedUint reads a value constrained to [min,max]; see WriteBoundedUint.
func (r *Reader) ReadBoundedUint(min, max uint64, extensible bool) (uint64, error) {
	if min > max {
		return 0, ErrInvalidBounds
	}
	if extensible {
		out, err := r.readBit()
		if err != nil {
			return 0, err
		}
		if out {
			return r.readUnconstrained()
		}
	}
	return r.readConstrained(min, max, "integer")
}

func (r *Reader) readConstrained(lb, ub uint64, what string) (uint64, error) {
	rng := ub - lb + 1
	var off uint64
	var err error
	switch {
	case rng == 1:
		return lb, nil
	case rng != 0 && rng <= 255:
		off, err = r.ReadBits(bits.Len64(rng - 1))
	case rng == 256:
		r.Align()
		off, err = r.ReadBits(8)
	case rng != 0 && rng <= 65536:
		r.Align()
		off, err = r.ReadBits(16)
	default:
		var n uint64
		n, err = r.readConstrained(1, uint64(octetLen(ub-lb)), "integer length")
		if err != nil {
			return 0, err
		}
		r.Align()
		off, err = r.ReadBits(int(n) * 8)
	}
	if err != nil {
		return 0, err
	}
	if off > ub-lb {
		return 0, ConstraintError{What: what, Value: lb + off, Min: lb, Max: ub}
	}
	return lb + off, nil
}

func (r *Reader) readUnconstrained() (uint64, error) {
	n, err := r.readLengthDeterminant()
	if err != nil {
		return 0, err
	}
	if n == 0 || n > 8 {
		return 0, ConstraintError{What: "integer length", Value: n, Min: 1, Max: 8}
	}
	return r.ReadBits(int(n) * 8)
}

func (r *Reader) readLengthDeterminant() (uint64, error) {
	r.Align()
	first, err := r.ReadBits(8)
	if err != nil {
		return 0, err
	}
	switch {
	case first&0x80 == 0:
		return first, nil
	case first&0xC0 == 0x80:
		second, err := r.ReadBits(8)
		if err != nil {
			return 0, err
		}
		return (first&0x3F)<<8 | second, nil
	default:
		return 0, ErrFragmented
	}
}

// ReadLength reads a count constrained to [min,max]; see WriteLength.
func (r *Reader) ReadLength(min, max uint64, extensible bool) (uint64, error) {
	if min > max {
		return 0, ErrInvalidBounds
	}
	if extensible {
		out, err := r.readBit()
		if err != nil {
			return 0, err
		}
		if out {
			return r.readLengthDeterminant()
		}
	}
	if max >= 65536 {
		n, err := r.readLengthDeterminant()
		if err != nil {
			return 0, err
		}
		if n < min || n > max {
			return 0, ConstraintError{What: "length", Value: n, Min: min, Max: max}
		}
		return n, nil
	}
	return r.readConstrained(min, max, "length")
}

// ReadEnumerated reads an enumeration index; extension values are returned
// offset by count.
func (r *Reader) ReadEnumerated(count uint64, extensible bool) (uint64, error) {
	if count == 0 {
		return 0, ErrInvalidBounds
	}
	if extensible {
		ext, err := r.readBit()
		if err != nil {
			return 0, err
		}
		if ext {
			n, err := r.ReadNormallySmall()
			if err != nil {
				return 0, err
			}
			return count + n, nil
		}
	}
	return r.readConstrained(0, count-1, "enumerated")
}

// ReadChoiceIndex reads a choice alternative and whether it lies in the
// extension.
func (r *Reader) ReadChoiceIndex(count uint64, extensible bool) (uint64, bool, error) {
	if count == 0 {
		return 0, false, ErrInvalidBounds
	}
	if extensible {
		ext, err := r.readBit()
		if err != nil {
			return 0, false, err
		}
		if ext {
			n, err := r.ReadNormallySmall()
			return n, true, err
		}
	}
	idx, err := r.readConstrained(0, count-1, "choice")
	return idx, false, err
}

// ReadNormallySmall reads a normally small non-negative whole number.
func (r *Reader) ReadNormallySmall() (uint64, error) {
	large, err := r.readBit()
	if err != nil {
		return 0, err
	}
	if !large {
		return r.ReadBits(6)
	}
	return r.readUnconstrained()
}

// ReadOctetString reads an octet string constrained to [min,max] octets.
func (r *Reader) ReadOctetString(min, max uint64, extensible bool) ([]byte, error) {
	if min > max {
		return nil, ErrInvalidBounds
	}
	if extensible {
		out, err := r.readBit()
		if err != nil {
			return nil, err
		}
		if out {
			n, err := r.readLengthDeterminant()
			if err != nil {
				return nil, err
			}
			return r.readOctets(n)
		}
	}
	if min == max {
		if min > 2 {
			r.Align()
		}
		return r.readOctets(min)
	}
	n, err := r.ReadLength(min, max, false)
	if err != nil {
		return nil, err
	}
	r.Align()
	return r.readOctets(n)
}

// ReadBitString reads a bit string constrained to [min,max] bits.
func (r *Reader) ReadBitString(min, max uint64, extensible bool) (asn1.BitString, error) {
	if min > max {
		return asn1.BitString{}, ErrInvalidBounds
	}
	if extensible {
		out, err := r.readBit()
		if err != nil {
			return asn1.BitString{}, err
		}
		if out {
			n, err := r.readLengthDeterminant()
			if err != nil {
				return asn1.BitString{}, err
			}
			return r.readBitsOf(n)
		}
	}
	if min == max {
		if min > 16 {
			r.Align()
		}
		return r.readBitsOf(min)
	}
	n, err := r.ReadLength(min, max, false)
	if err != nil {
		return asn1.BitString{}, err
	}
	r.Align()
	return r.readBitsOf(n)
}

func (r *Reader) readBitsOf(n uint64) (asn1.BitString, error) {
	if r.Remaining() < n {
		return asn1.BitString{}, ErrTruncated
	}
	out := make([]byte, (n+7)/8)
	for i := uint64(0); i < n; i++ {
		bit, err := r.readBit()
		if err != nil {
			return asn1.BitString{}, err
		}
		if bit {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return asn1.BitString{Bytes: out, BitLength: int(n)}, nil
}

// ReadOpenType reads a length-prefixed open type and returns its octets
// without interpreting them.
func (r *Reader) ReadOpenType() ([]byte, error) {
	n, err := r.readLengthDeterminant()
	if err != nil {
		return nil, err
	}
	return r.readOctets(n)
}
