// Package report renders read-only projections of a forensic record into
// PDF documents. Generators are pure functions of their inputs: they can be
// invoked repeatedly, in any order, and can never mutate the record they
// project.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/your-org/evidenceflow/pkg/forensic"
)

// Kind selects one of the four report generators.
type Kind string

const (
	KindCertificate Kind = "certificate"
	KindWhitepaper  Kind = "whitepaper"
	KindCustody     Kind = "custody"
	KindAffidavit   Kind = "affidavit"
)

// View is an immutable projection of a forensic record. Building a View
// copies everything the generators read, so no generator can reach back
// into the live record.
type View struct {
	Name          string
	DeclaredMIME  string
	SizeBytes     int64
	LastModified  time.Time
	IngestedAt    time.Time
	HashPrimary   string
	HashSecondary string
	Attributes    []forensic.Attribute
	AnchorRef     string
	Verification  string
	Issuer        string
}

// NewView snapshots a record for report generation.
func NewView(rec *forensic.Record, verification, issuer string) View {
	v := View{
		Name:          rec.Name,
		DeclaredMIME:  rec.DeclaredMIME,
		SizeBytes:     rec.SizeBytes,
		LastModified:  rec.LastModified,
		IngestedAt:    rec.IngestedAt,
		HashPrimary:   rec.HashPrimary(),
		HashSecondary: rec.HashSecondary(),
		AnchorRef:     rec.AnchorRef,
		Verification:  verification,
		Issuer:        issuer,
	}
	if rec.Attributes != nil {
		v.Attributes = rec.Attributes.All()
	}
	return v
}

// CustodyEntry is one hand-off in a chain-of-custody report.
type CustodyEntry struct {
	Holder   string    `json:"holder"`
	Action   string    `json:"action"`
	Location string    `json:"location"`
	At       time.Time `json:"at"`
}

// CustodyInput is the caller-supplied structure for the custody report.
type CustodyInput struct {
	CaseNumber string         `json:"case_number"`
	Entries    []CustodyEntry `json:"entries"`
}

// AffidavitInput is the caller-supplied structure for the declaration
// report.
type AffidavitInput struct {
	Declarant    string `json:"declarant"`
	Title        string `json:"title"`
	Organization string `json:"organization"`
	Location     string `json:"location"`
	Statement    string `json:"statement"`
}

// Generate dispatches to the generator for kind. The two structured kinds
// require their input; the others ignore it.
func Generate(kind Kind, v View, custody *CustodyInput, affidavit *AffidavitInput) ([]byte, error) {
	switch kind {
	case KindCertificate:
		return Certificate(v)
	case KindWhitepaper:
		return Whitepaper(v)
	case KindCustody:
		if custody == nil {
			return nil, forensic.NewError(forensic.KindReportGeneration,
				"custody report requires custody entries", "supply case number and entries")
		}
		return Custody(v, *custody)
	case KindAffidavit:
		if affidavit == nil {
			return nil, forensic.NewError(forensic.KindReportGeneration,
				"affidavit report requires declarant details", "supply declarant and statement")
		}
		return Affidavit(v, *affidavit)
	default:
		return nil, forensic.NewError(forensic.KindReportGeneration,
			fmt.Sprintf("unknown report kind %q", kind), "use certificate, whitepaper, custody, or affidavit")
	}
}

// Filename returns the caller-facing filename convention for a report.
func Filename(kind Kind, v View) string {
	ref := v.Verification
	if ref == "" && len(v.HashPrimary) >= 12 {
		ref = v.HashPrimary[:12]
	}
	return fmt.Sprintf("%s-%s.pdf", kind, ref)
}

// Certificate renders the standard audit certificate.
func Certificate(v View) ([]byte, error) {
	doc := newDoc("Certificate of Evidence Integrity", v.Issuer)
	doc.heading("Certificate of Evidence Integrity")
	doc.para("This certificate attests that the artifact identified below was fingerprinted and sealed by " + v.Issuer + ".")
	doc.kv("File", v.Name)
	doc.kv("Declared Type", v.DeclaredMIME)
	doc.kv("Size", fmt.Sprintf("%d bytes", v.SizeBytes))
	doc.kv("Ingested (UTC)", v.IngestedAt.UTC().Format("2006-01-02 15:04:05"))
	doc.kv("SHA-256", v.HashPrimary)
	doc.kv("SHA-512", v.HashSecondary)
	if v.AnchorRef != "" {
		doc.kv("External Anchor", v.AnchorRef)
	}
	doc.footer(v)
	return doc.bytes()
}

// Whitepaper renders the technical whitepaper: the full attribute map with
// its sensitivity partition, alongside the integrity facts.
func Whitepaper(v View) ([]byte, error) {
	doc := newDoc("Technical Evidence Report", v.Issuer)
	doc.heading("Technical Evidence Report")
	doc.subheading("Integrity")
	doc.kv("SHA-256", v.HashPrimary)
	doc.kv("SHA-512", v.HashSecondary)
	if v.AnchorRef != "" {
		doc.kv("External Anchor", v.AnchorRef)
	}

	doc.subheading("General Attributes")
	for _, a := range v.Attributes {
		if a.Classification == forensic.ClassGeneral {
			doc.kv(a.Key, a.Value)
		}
	}
	doc.subheading("Sensitive Attributes")
	sensitive := 0
	for _, a := range v.Attributes {
		if a.Classification == forensic.ClassSensitive {
			doc.kv(a.Key, a.Value)
			sensitive++
		}
	}
	if sensitive == 0 {
		doc.para("No personally identifying attributes were detected.")
	}
	doc.footer(v)
	return doc.bytes()
}

// Custody renders the chain-of-custody report from caller-supplied
// hand-off entries.
func Custody(v View, in CustodyInput) ([]byte, error) {
	doc := newDoc("Chain of Custody", v.Issuer)
	doc.heading("Chain of Custody")
	doc.kv("Case Number", in.CaseNumber)
	doc.kv("File", v.Name)
	doc.kv("SHA-256", v.HashPrimary)
	doc.subheading("Custody Events")
	if len(in.Entries) == 0 {
		doc.para("No custody events recorded.")
	}
	for i, e := range in.Entries {
		doc.kv(fmt.Sprintf("%d. %s", i+1, e.At.UTC().Format("2006-01-02 15:04")),
			fmt.Sprintf("%s — %s (%s)", e.Holder, e.Action, e.Location))
	}
	doc.footer(v)
	return doc.bytes()
}

// Affidavit renders the declaration report from caller-supplied declarant
// details.
func Affidavit(v View, in AffidavitInput) ([]byte, error) {
	doc := newDoc("Declaration of Authenticity", v.Issuer)
	doc.heading("Declaration of Authenticity")
	doc.para(fmt.Sprintf("I, %s, %s of %s, declare that the file %q with SHA-256 fingerprint %s is a true and unaltered copy of the original.",
		in.Declarant, in.Title, in.Organization, v.Name, v.HashPrimary))
	if in.Statement != "" {
		doc.para(in.Statement)
	}
	doc.kv("Declared At", in.Location)
	doc.kv("Date (UTC)", time.Now().UTC().Format("2006-01-02"))
	doc.kv("Verification", v.Verification)
	doc.footer(v)
	return doc.bytes()
}

type doc struct {
	pdf *fpdf.Fpdf
}

func newDoc(title, author string) *doc {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.SetAuthor(author, false)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	return &doc{pdf: pdf}
}

func (d *doc) heading(text string) {
	d.pdf.SetFont("Helvetica", "B", 16)
	d.pdf.CellFormat(170, 12, text, "", 1, "C", false, 0, "")
	d.pdf.Ln(4)
}

func (d *doc) subheading(text string) {
	d.pdf.Ln(3)
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.CellFormat(170, 8, text, "B", 1, "L", false, 0, "")
	d.pdf.Ln(1)
}

func (d *doc) para(text string) {
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.MultiCell(170, 5, text, "", "L", false)
	d.pdf.Ln(2)
}

func (d *doc) kv(key, value string) {
	d.pdf.SetFont("Helvetica", "B", 9)
	d.pdf.CellFormat(45, 6, key, "", 0, "L", false, 0, "")
	d.pdf.SetFont("Courier", "", 8)
	d.pdf.MultiCell(125, 6, value, "", "L", false)
}

func (d *doc) footer(v View) {
	d.pdf.Ln(6)
	d.pdf.SetFont("Helvetica", "I", 7)
	d.pdf.MultiCell(170, 4,
		fmt.Sprintf("Generated %s by %s. Verification reference: %s.",
			time.Now().UTC().Format("2006-01-02 15:04:05 UTC"), v.Issuer, v.Verification),
		"", "L", false)
}

func (d *doc) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, forensic.WrapError(forensic.KindReportGeneration,
			"report rendering failed", "retry report generation", err)
	}
	return buf.Bytes(), nil
}
