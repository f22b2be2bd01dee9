// Package protocol owns the outermost message envelope.
//
// Ownership boundary:
// - the request/success/failure choice, procedure code and criticality
// - resolving the body codec for (procedure, kind) through the ie registry
// - the single decode entry point hosts call per message
//
// Each DecodeMessage call builds its own ie.DecodeContext, so one Codec may
// be shared by concurrent callers once the registry is populated.
package protocol
