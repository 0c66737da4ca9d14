package stamp

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// VerificationReference derives the short lookup token for a primary
// digest. It is deterministic, so independent verifiers can recompute it
// from the digest alone.
func VerificationReference(primaryDigestHex string) string {
	sum := blake3.Sum256([]byte(primaryDigestHex))
	return hex.EncodeToString(sum[:8])
}

// verificationPayload is the string encoded into the scannable token. It
// carries the reference plus a digest prefix so a scanner can cross-check
// the document it was scanned from.
func verificationPayload(token, primaryDigestHex string) string {
	prefix := primaryDigestHex
	if len(prefix) > 16 {
		prefix = prefix[:16]
	}
	return fmt.Sprintf("evseal:%s:%s", token, prefix)
}
