// Package metadata extracts descriptive attributes from submitted evidence
// and classifies them against a fixed sensitive-key taxonomy. Extraction is
// best-effort by contract: deep inspection of a structured container may
// degrade to a diagnostic attribute, but Extract itself never fails.
package metadata

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/your-org/evidenceflow/pkg/forensic"
)

// DefaultMIME is the fallback when the submitter declares no content type.
const DefaultMIME = "application/octet-stream"

// FileInfo carries the source-reported identity of a submitted file. None
// of it is trusted; it is recorded as declared.
type FileInfo struct {
	Name         string
	DeclaredMIME string
	Size         int64
	LastModified time.Time
}

// Extract builds the ordered attribute map for a file: system-derived
// attributes first, then format-specific attributes from deep inspection.
// It never returns an error; a failed deep inspection is recorded as a
// single diagnostic attribute and the attributes collected so far are
// returned. The data buffer is read only.
func Extract(info FileInfo, data []byte) *forensic.AttributeMap {
	attrs := forensic.NewAttributeMap()

	mime := info.DeclaredMIME
	if mime == "" {
		mime = DefaultMIME
	}

	set := func(key, value string) {
		attrs.Set(key, value, Classify(key))
	}

	set("File Name", info.Name)
	set("File Size", fmt.Sprintf("%s (%d bytes)", humanize.Bytes(uint64(info.Size)), info.Size))
	set("File Type", mime)
	set("Last Modified", fmt.Sprintf("%s (epoch %d)",
		info.LastModified.UTC().Format("2006-01-02 15:04:05 UTC"),
		info.LastModified.Unix()))

	switch {
	case isPDF(mime, info.Name):
		extractPDF(data, set)
	case strings.HasPrefix(mime, "image/"):
		set("Image Data", fmt.Sprintf("binary raster content present (%s)", mime))
	}

	return attrs
}

func isPDF(mime, name string) bool {
	return mime == "application/pdf" || strings.HasSuffix(strings.ToLower(name), ".pdf")
}

// extractPDF performs the structured-document path. Parse failures are
// local: a single diagnostic attribute is recorded and extraction stops,
// keeping everything collected so far.
func extractPDF(data []byte, set func(key, value string)) {
	doc, err := inspectPDF(data)
	if err != nil {
		set("Document Inspection", fmt.Sprintf("structure unreadable: %v", err))
		return
	}

	// Absent fields are omitted entirely, never emitted as empty strings.
	fields := []struct {
		key   string
		value string
	}{
		{"Title", doc.Title},
		{"Author", doc.Author},
		{"Subject", doc.Subject},
		{"Creator", doc.Creator},
		{"Producer", doc.Producer},
		{"Created", doc.Created},
		{"Modified", doc.Modified},
	}
	for _, f := range fields {
		if f.value != "" {
			set(f.key, f.value)
		}
	}
	if doc.PageCount > 0 {
		set("Page Count", fmt.Sprintf("%d", doc.PageCount))
	}
	if doc.Encrypted {
		set("Encryption", "document declares an encryption dictionary")
	}
}
