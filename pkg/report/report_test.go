package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/evidenceflow/pkg/forensic"
	"github.com/your-org/evidenceflow/pkg/hashing"
)

func testView(t *testing.T) View {
	t.Helper()
	rec := &forensic.Record{
		Name:         "contract.pdf",
		DeclaredMIME: "application/pdf",
		SizeBytes:    2048,
		LastModified: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
		IngestedAt:   time.Date(2026, 2, 1, 8, 5, 0, 0, time.UTC),
		Attributes:   forensic.NewAttributeMap(),
	}
	rec.Attributes.Set("File Name", "contract.pdf", forensic.ClassGeneral)
	rec.Attributes.Set("Author", "J. Doe", forensic.ClassSensitive)
	d := hashing.Compute([]byte("contract body"))
	require.NoError(t, rec.SetDigests(d.Primary, d.Secondary))
	return NewView(rec, "deadbeefdeadbeef", "evidenceflow-test")
}

func TestCertificateRendersPDF(t *testing.T) {
	out, err := Certificate(testView(t))
	require.NoError(t, err)

	assert.Greater(t, len(out), 500)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestWhitepaperRendersPDF(t *testing.T) {
	out, err := Whitepaper(testView(t))
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestCustodyRequiresInput(t *testing.T) {
	_, err := Generate(KindCustody, testView(t), nil, nil)

	require.Error(t, err)
	assert.Equal(t, forensic.KindReportGeneration, forensic.KindOf(err))
}

func TestCustodyRendersEntries(t *testing.T) {
	in := CustodyInput{
		CaseNumber: "2026-CV-1138",
		Entries: []CustodyEntry{
			{Holder: "Desk Officer", Action: "received", Location: "Front desk", At: time.Now().UTC()},
			{Holder: "Examiner", Action: "imaged", Location: "Lab 2", At: time.Now().UTC()},
		},
	}

	out, err := Generate(KindCustody, testView(t), &in, nil)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestAffidavitRequiresInput(t *testing.T) {
	_, err := Generate(KindAffidavit, testView(t), nil, nil)

	require.Error(t, err)
	assert.Equal(t, forensic.KindReportGeneration, forensic.KindOf(err))
}

func TestAffidavitRendersPDF(t *testing.T) {
	in := AffidavitInput{
		Declarant:    "A. Clerk",
		Title:        "Records Custodian",
		Organization: "Acme Corp",
		Location:     "Springfield",
		Statement:    "The file was exported directly from the system of record.",
	}

	out, err := Generate(KindAffidavit, testView(t), nil, &in)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))
}

func TestGenerateUnknownKind(t *testing.T) {
	_, err := Generate(Kind("poster"), testView(t), nil, nil)

	require.Error(t, err)
	assert.Equal(t, forensic.KindReportGeneration, forensic.KindOf(err))
}

func TestViewIsASnapshot(t *testing.T) {
	rec := &forensic.Record{
		Name:       "a.txt",
		Attributes: forensic.NewAttributeMap(),
	}
	rec.Attributes.Set("File Name", "a.txt", forensic.ClassGeneral)
	d := hashing.Compute([]byte("a"))
	require.NoError(t, rec.SetDigests(d.Primary, d.Secondary))

	v := NewView(rec, "ref", "issuer")

	// Mutating the view must not reach the record.
	v.Attributes[0].Value = "tampered"
	got, _ := rec.Attributes.Get("File Name")
	assert.Equal(t, "a.txt", got)
}

func TestFilenameConvention(t *testing.T) {
	v := testView(t)
	assert.Equal(t, "certificate-deadbeefdeadbeef.pdf", Filename(KindCertificate, v))
}

func TestGenerateIsRepeatable(t *testing.T) {
	v := testView(t)
	for i := 0; i < 3; i++ {
		out, err := Certificate(v)
		require.NoError(t, err)
		assert.Equal(t, "%PDF", string(out[:4]))
	}
}
