// Package stamp produces certified artifacts. For PDF documents it appends
// an incremental update carrying a visible watermark, machine-readable
// certification fields, and a scannable verification token; the original
// bytes are preserved verbatim as a prefix of the sealed output. Other
// formats pass through unchanged: the digest-based proof is independent of
// format, so certification is recorded at the workflow level only.
package stamp

import (
	"bytes"
	"time"

	"github.com/your-org/evidenceflow/pkg/forensic"
)

// Options parameterizes a sealing operation.
type Options struct {
	// Issuer is the identity printed on the watermark and recorded in the
	// certification fields.
	Issuer string
	// SubmitterAddress is the optional identity address of the submitter,
	// embedded when non-empty.
	SubmitterAddress string
	// Now is the certification timestamp; the zero value means the wall
	// clock.
	Now time.Time
}

// Result is the outcome of a sealing operation.
type Result struct {
	Bytes []byte
	// Stamped is false when the input format supports no in-place stamping
	// and the bytes are a verified passthrough of the original.
	Stamped bool
	// Verification is the token reference embedded in the artifact (or the
	// one that would identify it, for passthrough).
	Verification string
}

// Seal produces a new certified byte buffer from the original bytes and a
// fingerprinted record. The input buffer is never mutated; each call starts
// from the original content, so repeated sealing never compounds watermark
// layers. Failure on the structured path is fatal to the attempt and must
// be surfaced: returning unsealed bytes as sealed would be a correctness
// violation.
func Seal(original []byte, rec *forensic.Record, opts Options) (*Result, error) {
	if rec == nil || !rec.Fingerprinted() {
		return nil, forensic.NewError(forensic.KindSealing,
			"record is not fingerprinted", "complete analysis before sealing")
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}

	token := VerificationReference(rec.HashPrimary())

	if !looksLikePDF(original) {
		out := make([]byte, len(original))
		copy(out, original)
		return &Result{Bytes: out, Stamped: false, Verification: token}, nil
	}

	sealed, err := appendCertificationLayer(original, rec, opts, token)
	if err != nil {
		return nil, forensic.WrapError(forensic.KindSealing,
			"document could not be stamped",
			"verify the document opens in a PDF reader and retry", err)
	}
	return &Result{Bytes: sealed, Stamped: true, Verification: token}, nil
}

func looksLikePDF(data []byte) bool {
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, []byte("%PDF-"))
}
