// Package gateway executes mailbox operations against the Gmail API on
// behalf of the tool layer. It owns request pacing, session validation,
// and the translation of transport failures into a stable error taxonomy.
//
// The gateway performs no retries; callers decide whether a failure kind
// is worth retrying.
package gateway
