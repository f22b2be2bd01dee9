// Package ie owns the information-element container model.
//
// Ownership boundary:
// - identifiers, namespaces and criticality
// - the registry binding identifiers to typed field codecs
// - the per-message decode context and its scratch map
// - IE, extension and private container codecs
// - the criticality policy and diagnostic reports
//
// Bit-level encoding is delegated to a PrimitiveReader/PrimitiveWriter pair.
package ie
