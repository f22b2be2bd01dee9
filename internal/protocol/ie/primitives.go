package ie

import "encoding/asn1"

// PrimitiveReader is the bit-level decoding contract the core relies on.
// Every method fails when the encoded value lies outside its constraint.
type PrimitiveReader interface {
	ReadBits(n int) (uint64, error)
	ReadBool() (bool, error)
	ReadBoundedUint(min, max uint64, extensible bool) (uint64, error)
	ReadLength(min, max uint64, extensible bool) (uint64, error)
	ReadEnumerated(count uint64, extensible bool) (uint64, error)
	ReadChoiceIndex(count uint64, extensible bool) (uint64, bool, error)
	ReadNormallySmall() (uint64, error)
	ReadOctetString(min, max uint64, extensible bool) ([]byte, error)
	ReadBitString(min, max uint64, extensible bool) (asn1.BitString, error)
	ReadOpenType() ([]byte, error)
	// Finish reports an error when unread octets remain.
	Finish() error
}

// PrimitiveWriter mirrors PrimitiveReader with identical constraint contracts.
type PrimitiveWriter interface {
	WriteBits(v uint64, n int) error
	WriteBool(v bool) error
	WriteBoundedUint(min, max uint64, extensible bool, v uint64) error
	WriteLength(min, max uint64, extensible bool, n uint64) error
	WriteEnumerated(count uint64, extensible bool, idx uint64) error
	WriteChoiceIndex(count uint64, extensible bool, idx uint64, extended bool) error
	WriteNormallySmall(n uint64) error
	WriteOctetString(min, max uint64, extensible bool, b []byte) error
	WriteBitString(min, max uint64, extensible bool, bs asn1.BitString) error
	WriteOpenType(b []byte) error
	Bytes() []byte
}

// Primitives creates readers and writers for one encoding.
type Primitives struct {
	NewReader func(b []byte) PrimitiveReader
	NewWriter func() PrimitiveWriter
}

func (p Primitives) valid() bool {
	return p.NewReader != nil && p.NewWriter != nil
}
