// Package audit provides the asynchronous audit event dispatcher and the
// sink implementations shipped with authcore.
//
// # What this package must NOT do
//
//   - Block the caller when DropIfFull is set.
//   - Be imported outside the authcore module.
package audit
