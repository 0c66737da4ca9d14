package stamp

import (
	"bytes"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/evidenceflow/pkg/forensic"
	"github.com/your-org/evidenceflow/pkg/hashing"
)

func fingerprinted(t *testing.T, name string, data []byte) *forensic.Record {
	t.Helper()
	rec := &forensic.Record{
		Name:         name,
		DeclaredMIME: "application/pdf",
		SizeBytes:    int64(len(data)),
		IngestedAt:   time.Now().UTC(),
		Attributes:   forensic.NewAttributeMap(),
	}
	d := hashing.Compute(data)
	require.NoError(t, rec.SetDigests(d.Primary, d.Secondary))
	return rec
}

func testOptions() Options {
	return Options{
		Issuer: "evidenceflow-test",
		Now:    time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSealRequiresFingerprintedRecord(t *testing.T) {
	rec := &forensic.Record{Name: "x.pdf"}

	_, err := Seal([]byte("%PDF-1.4"), rec, testOptions())

	require.Error(t, err)
	assert.Equal(t, forensic.KindSealing, forensic.KindOf(err))
}

func TestSealNonStructuredPassthrough(t *testing.T) {
	data := []byte("plain text evidence, nothing to stamp")
	rec := fingerprinted(t, "note.txt", data)

	res, err := Seal(data, rec, testOptions())
	require.NoError(t, err)

	assert.False(t, res.Stamped)
	assert.Equal(t, data, res.Bytes)
	assert.NotEmpty(t, res.Verification)

	// Output is an independent buffer.
	res.Bytes[0] = 'X'
	assert.Equal(t, byte('p'), data[0])
}

func TestSealPDFContainsOriginalVerbatim(t *testing.T) {
	original := buildTestPDF(t)
	rec := fingerprinted(t, "contract.pdf", original)

	res, err := Seal(original, rec, testOptions())
	require.NoError(t, err)

	assert.True(t, res.Stamped)
	// The incremental update is purely additive: the original document is
	// a verbatim prefix of the sealed output.
	assert.True(t, bytes.HasPrefix(res.Bytes, original))
	assert.Greater(t, len(res.Bytes), len(original))
}

func TestSealPDFEmbedsCertificationPayload(t *testing.T) {
	original := buildTestPDF(t)
	rec := fingerprinted(t, "contract.pdf", original)
	opts := testOptions()
	opts.SubmitterAddress = "0xABCDEF0123456789"

	res, err := Seal(original, rec, opts)
	require.NoError(t, err)

	appended := res.Bytes[len(original):]
	assert.Contains(t, string(appended), "CERTIFIED EVIDENCE")
	assert.Contains(t, string(appended), "/CertPrimaryDigest ("+rec.HashPrimary()+")")
	assert.Contains(t, string(appended), "/CertSecondaryDigest ("+rec.HashSecondary()+")")
	assert.Contains(t, string(appended), "/CertVerification ("+res.Verification+")")
	assert.Contains(t, string(appended), "/CertSubmitter (0xABCDEF0123456789)")
	assert.Contains(t, string(appended), "/Subtype /Image")
	assert.True(t, bytes.HasSuffix(bytes.TrimSpace(res.Bytes), []byte("%%EOF")))
}

func TestSealTwiceNeverCompounds(t *testing.T) {
	original := buildTestPDF(t)
	rec := fingerprinted(t, "contract.pdf", original)

	first, err := Seal(original, rec, testOptions())
	require.NoError(t, err)
	second, err := Seal(original, rec, testOptions())
	require.NoError(t, err)

	// Both artifacts contain the original unmodified, and the second seal
	// carries exactly one certification layer, not two.
	assert.True(t, bytes.HasPrefix(first.Bytes, original))
	assert.True(t, bytes.HasPrefix(second.Bytes, original))
	assert.Equal(t, 1, bytes.Count(second.Bytes, []byte("/CertPrimaryDigest")))

	// Mutating one artifact cannot corrupt the other.
	first.Bytes[len(first.Bytes)-1] = 0
	assert.True(t, bytes.HasSuffix(bytes.TrimSpace(second.Bytes), []byte("%%EOF")))
}

func TestSealXrefEntriesAreTwentyBytes(t *testing.T) {
	original := buildTestPDF(t)
	rec := fingerprinted(t, "contract.pdf", original)

	res, err := Seal(original, rec, testOptions())
	require.NoError(t, err)

	appended := res.Bytes[len(original):]
	start := bytes.LastIndex(appended, []byte("xref\n"))
	require.GreaterOrEqual(t, start, 0)
	section := appended[start:]
	end := bytes.Index(section, []byte("trailer"))
	require.GreaterOrEqual(t, end, 0)

	// ISO 32000 fixes each cross-reference entry at 20 bytes; with a
	// two-byte CRLF there is no space before the end-of-line.
	entryRe := regexp.MustCompile(`^\d{10} \d{5} n`)
	entries := 0
	for _, line := range bytes.SplitAfter(section[:end], []byte("\n")) {
		if !entryRe.Match(line) {
			continue
		}
		entries++
		assert.Len(t, line, 20)
		assert.True(t, bytes.HasSuffix(line, []byte("n\r\n")))
	}
	assert.Greater(t, entries, 0)
}

func TestSealMalformedPDFFails(t *testing.T) {
	// Header claims PDF; body holds no structure to stamp.
	garbage := []byte("%PDF-1.7\nno objects here")
	rec := fingerprinted(t, "broken.pdf", garbage)

	_, err := Seal(garbage, rec, testOptions())

	require.Error(t, err)
	assert.Equal(t, forensic.KindSealing, forensic.KindOf(err))
}

func TestSealDeterministicTokenPerRecord(t *testing.T) {
	data := []byte("same bytes")
	rec := fingerprinted(t, "a.bin", data)

	first, err := Seal(data, rec, testOptions())
	require.NoError(t, err)
	second, err := Seal(data, rec, testOptions())
	require.NoError(t, err)

	assert.Equal(t, first.Verification, second.Verification)
	assert.Equal(t, VerificationReference(rec.HashPrimary()), first.Verification)
}

func TestVerificationReferenceDeterministic(t *testing.T) {
	a := VerificationReference("aa")
	b := VerificationReference("aa")
	c := VerificationReference("ab")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 16)
}

// buildTestPDF assembles a small but structurally valid single-page PDF.
func buildTestPDF(t *testing.T) []byte {
	t.Helper()
	content := "BT /F1 24 Tf 72 720 Td (Exhibit A) Tj ET"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var out bytes.Buffer
	out.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = out.Len()
		fmt.Fprintf(&out, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := out.Len()
	fmt.Fprintf(&out, "xref\n0 %d\n", len(objects)+1)
	out.WriteString("0000000000 65535 f\r\n")
	for _, off := range offsets {
		fmt.Fprintf(&out, "%010d %05d n\r\n", off, 0)
	}
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, xref)
	return out.Bytes()
}
