// Package attemptlog defines the notarization-attempt ledger contract: a
// best-effort, metadata-only audit trail. It never carries transcript
// bytes, secrets, or proof content — only enough to answer "what happened,
// to which host, and when" for operator observability.
package attemptlog

import (
	"context"
	"time"
)

// ErrorKind classifies a failed attempt by recovery policy, mirroring the
// fatal/non-fatal error taxonomy the notarization pipeline itself uses.
type ErrorKind string

const (
	ErrorKindNone              ErrorKind = ""
	ErrorKindRequestMalformed  ErrorKind = "request_malformed"
	ErrorKindNotaryUnreachable ErrorKind = "notary_unreachable"
	ErrorKindUpstreamFailure   ErrorKind = "upstream_failure"
	ErrorKindProverFailure     ErrorKind = "prover_failure"
)

// Outcome is the terminal result of one notarization attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Attempt is one row of the ledger. Detail is a short, human-readable
// string (e.g. an error message) — never a transcript fragment.
type Attempt struct {
	Host      string
	Outcome   Outcome
	ErrorKind ErrorKind
	Detail    string
	Timestamp time.Time
}

// Ledger persists attempts. Implementations must treat every method as
// best-effort: a ledger failure is logged by the caller, never surfaced
// to the HTTP response (§7 propagation policy).
type Ledger interface {
	Record(ctx context.Context, a Attempt) error
	Close() error
}
