// Package proof implements the proof builder (C5): applying per-range
// commitments to a finalized prover, revealing exactly the public
// complement of the secret ranges, and assembling the published proof
// artifact.
package proof

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/summitto/tlsn-prover-gateway/internal/domain/prover"
	"github.com/summitto/tlsn-prover-gateway/internal/domain/transcript"
)

// Commitment is an opaque handle to a specific half-open byte range in
// either transcript, produced by a CommitmentEngine and revealed (or
// withheld) when the substrings proof is assembled.
type Commitment struct {
	Side  string // "sent" or "recv"
	Range transcript.Range
	// Opaque is the commitment engine's handle, e.g. a serialized Pedersen
	// commitment.
	Opaque []byte
}

// SubstringsProof opens every revealed commitment. Only public ranges are
// committed, so it holds no commitment covering a secret range.
type SubstringsProof struct {
	Revealed []Commitment
}

// CommitmentEngine is the seam a concrete MPC-TLS prover library fills:
// committing to and revealing transcript ranges, and producing the
// notary's session attestation.
type CommitmentEngine interface {
	Commit(side string, r transcript.Range) (Commitment, error)
	Reveal(c Commitment) error
	SessionProof() []byte
}

// Proof is the assembled artifact: the notary's session attestation plus
// the substrings proof opening the revealed ranges.
type Proof struct {
	Session    []byte          `json:"session"`
	Substrings SubstringsProof `json:"substrings"`
}

// Build implements the C5 contract over an already finalized session:
// range the sent/recv transcripts against their secrets, commit to every
// public range, reveal every committed range, and assemble the proof.
//
// Exactly the complement of the secret ranges is revealed; secret ranges
// are neither committed to nor revealed, so the proof carries no handle
// for them.
func Build(session prover.FinalizedSession, engine CommitmentEngine, reqSecrets, resSecrets []string) (*Proof, error) {
	sentPublic, _ := transcript.Ranges(session.SentTranscript, toByteSlices(reqSecrets))
	recvPublic, _ := transcript.Ranges(session.RecvTranscript, toByteSlices(resSecrets))

	var commitments []Commitment
	for _, r := range sentPublic {
		c, err := engine.Commit("sent", r)
		if err != nil {
			return nil, fmt.Errorf("proof: committing sent range %v: %w", r, err)
		}
		commitments = append(commitments, c)
	}
	for _, r := range recvPublic {
		c, err := engine.Commit("recv", r)
		if err != nil {
			return nil, fmt.Errorf("proof: committing recv range %v: %w", r, err)
		}
		commitments = append(commitments, c)
	}

	for _, c := range commitments {
		if err := engine.Reveal(c); err != nil {
			return nil, fmt.Errorf("proof: revealing %s range %v: %w", c.Side, c.Range, err)
		}
	}

	return &Proof{
		Session:    engine.SessionProof(),
		Substrings: SubstringsProof{Revealed: commitments},
	}, nil
}

// DumpJSON pretty-prints p to path, overwriting any existing file. This is
// for operator debugging only, not part of the public contract — the
// notarization service logs a failure here and it never affects the HTTP
// response returned to the client.
func DumpJSON(p *Proof, path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("proof: marshaling for dump: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("proof: writing %s: %w", path, err)
	}
	return nil
}

// DumpJSONString pretty-prints p as a string, the form the publisher (C6)
// embeds verbatim in TlsProof.data.
func DumpJSONString(p *Proof) (string, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("proof: marshaling: %w", err)
	}
	return string(data), nil
}

func toByteSlices(secrets []string) [][]byte {
	out := make([][]byte, len(secrets))
	for i, s := range secrets {
		out[i] = []byte(s)
	}
	return out
}
