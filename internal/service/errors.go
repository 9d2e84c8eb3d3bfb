package service

import (
	"errors"

	"github.com/summitto/tlsn-prover-gateway/internal/domain/attemptlog"
)

// Sentinel errors the ingress HTTP handler maps onto a response status
// class without needing to inspect the pipeline stage that produced them.
var (
	errNotaryUnreachable = errors.New("notary unreachable or session denied")
	errUpstreamFailure   = errors.New("upstream request failed")
	errProverFailure     = errors.New("prover protocol failure")
)

// classifyError maps a Notarize error onto the §7 error-kind taxonomy for
// the attempt ledger.
func classifyError(err error) attemptlog.ErrorKind {
	switch {
	case errors.Is(err, errNotaryUnreachable):
		return attemptlog.ErrorKindNotaryUnreachable
	case errors.Is(err, errUpstreamFailure):
		return attemptlog.ErrorKindUpstreamFailure
	case errors.Is(err, errProverFailure):
		return attemptlog.ErrorKindProverFailure
	default:
		return attemptlog.ErrorKindRequestMalformed
	}
}

// IsNotaryUnreachable reports whether err is (or wraps) a notary-stage
// failure, for the HTTP handler's status-class mapping.
func IsNotaryUnreachable(err error) bool { return errors.Is(err, errNotaryUnreachable) }

// IsUpstreamFailure reports whether err is (or wraps) an upstream-stage failure.
func IsUpstreamFailure(err error) bool { return errors.Is(err, errUpstreamFailure) }

// IsProverFailure reports whether err is (or wraps) a prover-stage failure.
func IsProverFailure(err error) bool { return errors.Is(err, errProverFailure) }
