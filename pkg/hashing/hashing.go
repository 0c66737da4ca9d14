// Package hashing computes the dual content fingerprints for submitted
// evidence: SHA-256 as the primary digest and SHA-512 as the secondary,
// two independently standardized hash families.
package hashing

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
)

// Digests is a pair of lowercase hex fingerprints over the same bytes.
// Primary is 64 hex characters, Secondary 128.
type Digests struct {
	Primary   string
	Secondary string
}

// Compute returns both digests of data. It is a pure function: no salt, no
// clock, identical input always yields identical output, and empty input
// yields the algorithms' defined empty-input digests. The input buffer is
// read only, never retained or mutated.
func Compute(data []byte) Digests {
	p := sha256.Sum256(data)
	s := sha512.Sum512(data)
	return Digests{
		Primary:   hex.EncodeToString(p[:]),
		Secondary: hex.EncodeToString(s[:]),
	}
}
