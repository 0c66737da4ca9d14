package metadata

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/evidenceflow/pkg/forensic"
)

var testModTime = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func textInfo(name, mime string, size int64) FileInfo {
	return FileInfo{Name: name, DeclaredMIME: mime, Size: size, LastModified: testModTime}
}

func TestExtractSystemAttributes(t *testing.T) {
	attrs := Extract(textInfo("note.txt", "text/plain", 10240), bytes.Repeat([]byte("a"), 10240))

	require.Equal(t, 4, attrs.Len())

	all := attrs.All()
	assert.Equal(t, "File Name", all[0].Key)
	assert.Equal(t, "File Size", all[1].Key)
	assert.Equal(t, "File Type", all[2].Key)
	assert.Equal(t, "Last Modified", all[3].Key)

	assert.Equal(t, "note.txt", all[0].Value)
	assert.Contains(t, all[1].Value, "(10240 bytes)")
	assert.Equal(t, "text/plain", all[2].Value)
	assert.Contains(t, all[3].Value, "2026-03-14 09:26:53 UTC")
	assert.Contains(t, all[3].Value, fmt.Sprintf("epoch %d", testModTime.Unix()))

	assert.Empty(t, attrs.Sensitive())
}

func TestExtractMIMEFallback(t *testing.T) {
	attrs := Extract(textInfo("blob", "", 3), []byte("abc"))

	mime, ok := attrs.Get("File Type")
	require.True(t, ok)
	assert.Equal(t, DefaultMIME, mime)
}

func TestExtractImageFamily(t *testing.T) {
	attrs := Extract(textInfo("photo.png", "image/png", 4), []byte{0x89, 'P', 'N', 'G'})

	v, ok := attrs.Get("Image Data")
	require.True(t, ok)
	assert.Contains(t, v, "image/png")
}

func TestExtractPDFDocumentFields(t *testing.T) {
	pdf := buildTestPDF(t, map[string]string{
		"Title":        "Quarterly Report",
		"Author":       "J. Doe",
		"Producer":     "TestWriter 1.0",
		"CreationDate": "D:20240115093000Z",
	})

	attrs := Extract(textInfo("report.pdf", "application/pdf", int64(len(pdf))), pdf)

	title, ok := attrs.Get("Title")
	require.True(t, ok)
	assert.Equal(t, "Quarterly Report", title)

	author, ok := attrs.Get("Author")
	require.True(t, ok)
	assert.Equal(t, "J. Doe", author)

	created, ok := attrs.Get("Created")
	require.True(t, ok)
	assert.Equal(t, "2024-01-15 09:30:00 UTC", created)

	pages, ok := attrs.Get("Page Count")
	require.True(t, ok)
	assert.Equal(t, "1", pages)

	// Absent fields are omitted entirely.
	_, ok = attrs.Get("Subject")
	assert.False(t, ok)
}

func TestExtractPDFAuthorClassifiedSensitive(t *testing.T) {
	pdf := buildTestPDF(t, map[string]string{"Author": "J. Doe", "Title": "Memo"})

	attrs := Extract(textInfo("memo.pdf", "application/pdf", int64(len(pdf))), pdf)

	sensitive := attrs.Sensitive()
	require.Len(t, sensitive, 1)
	assert.Equal(t, "Author", sensitive[0].Key)
	assert.Equal(t, "J. Doe", sensitive[0].Value)

	for _, a := range attrs.General() {
		assert.NotEqual(t, "Author", a.Key)
	}
}

func TestExtractCorruptPDFDegrades(t *testing.T) {
	garbage := []byte("this is not a pdf at all, just bytes")

	attrs := Extract(textInfo("broken.pdf", "application/pdf", int64(len(garbage))), garbage)

	// System attributes survive, plus exactly one diagnostic entry.
	require.Equal(t, 5, attrs.Len())
	diag, ok := attrs.Get("Document Inspection")
	require.True(t, ok)
	assert.Contains(t, diag, "structure unreadable")
}

func TestExtractTruncatedPDFDegrades(t *testing.T) {
	// Header present, structure absent.
	truncated := []byte("%PDF-1.7\nleftover garbage with no objects")

	attrs := Extract(textInfo("cut.pdf", "application/pdf", int64(len(truncated))), truncated)

	diag, ok := attrs.Get("Document Inspection")
	require.True(t, ok)
	assert.Contains(t, diag, "structure unreadable")
}

func TestExtractEncryptedPDFBestEffort(t *testing.T) {
	pdf := buildTestPDF(t, map[string]string{"Title": "Sealed Filing"})
	// Splice an encryption marker into the trailer region; inspection must
	// still proceed.
	pdf = bytes.Replace(pdf, []byte("trailer\n<<"), []byte("trailer\n<< /Encrypt 9 0 R"), 1)

	attrs := Extract(textInfo("enc.pdf", "application/pdf", int64(len(pdf))), pdf)

	title, ok := attrs.Get("Title")
	require.True(t, ok)
	assert.Equal(t, "Sealed Filing", title)

	enc, ok := attrs.Get("Encryption")
	require.True(t, ok)
	assert.Contains(t, enc, "encryption")
}

func TestExtractHexEncodedInfoString(t *testing.T) {
	// UTF-16BE hex string with BOM: "Ann"
	pdf := buildTestPDFRaw(t, "/Author <FEFF0041006E006E>")

	attrs := Extract(textInfo("hex.pdf", "application/pdf", int64(len(pdf))), pdf)

	author, ok := attrs.Get("Author")
	require.True(t, ok)
	assert.Equal(t, "Ann", author)
}

func TestClassifyTaxonomy(t *testing.T) {
	assert.Equal(t, forensic.ClassSensitive, Classify("Author"))
	assert.Equal(t, forensic.ClassSensitive, Classify("Creator"))
	assert.Equal(t, forensic.ClassSensitive, Classify("Producer"))
	assert.Equal(t, forensic.ClassSensitive, Classify("Last Modified By"))

	assert.Equal(t, forensic.ClassGeneral, Classify("Title"))
	assert.Equal(t, forensic.ClassGeneral, Classify("File Name"))
	// Matching is by exact key identity.
	assert.Equal(t, forensic.ClassGeneral, Classify("author"))
}

func TestFormatPDFDateOffsets(t *testing.T) {
	assert.Equal(t, "2024-01-15 08:30:00 UTC", formatPDFDate("D:20240115093000+01'00'"))
	assert.Equal(t, "2024-01-15 09:30:00 UTC", formatPDFDate("D:20240115093000"))
	assert.Equal(t, "not a date", formatPDFDate("not a date"))
}

// buildTestPDF assembles a small but structurally valid single-page PDF
// with the given Info dictionary fields.
func buildTestPDF(t *testing.T, info map[string]string) []byte {
	t.Helper()
	var entries bytes.Buffer
	for _, key := range []string{"Title", "Author", "Subject", "Creator", "Producer", "CreationDate", "ModDate"} {
		if v, ok := info[key]; ok {
			fmt.Fprintf(&entries, "/%s (%s) ", key, v)
		}
	}
	return buildTestPDFRaw(t, entries.String())
}

func buildTestPDFRaw(t *testing.T, infoEntries string) []byte {
	t.Helper()
	content := "BT /F1 24 Tf 72 720 Td (Hello, world) Tj ET"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		fmt.Sprintf("<< %s >>", infoEntries),
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
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root 1 0 R /Info %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, len(objects), xref)
	return out.Bytes()
}
