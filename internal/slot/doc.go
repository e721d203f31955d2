// Package slot tokenizes template bodies for the two marker families the
// composer understands.
//
// Slot markers name an insertion point and optionally the combination mode:
//
//	{{STATE_VARIABLES}}
//	{{CONSTRUCTOR_BODY:prepend}}
//
// Type-parameter markers name a substitutable type:
//
//	[[TOKEN_TYPE]]
//
// A suffix that is not one of the four modes still yields a marker, treated
// as append. Names are uppercase identifiers with underscores. Parsing never mutates the
// input and is deterministic, so the same text always yields the same result.
package slot
