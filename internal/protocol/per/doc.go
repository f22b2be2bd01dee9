// Package per implements the aligned packed-encoding primitives the IE core
// consumes: constrained whole numbers, length determinants, open types,
// octet and bit strings, enumerations, choice indexes and booleans.
//
// Ownership boundary:
// - bit-level reads and writes with explicit constraints
// - no knowledge of identifiers, criticality or message structure
//
// Length determinants are limited to the single and double octet forms;
// fragmented encodings (lengths of 16K and above) are rejected.
package per
