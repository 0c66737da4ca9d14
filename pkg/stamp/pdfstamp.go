package stamp

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/your-org/evidenceflow/pkg/forensic"
)

// The certification layer is written as a PDF incremental update: new
// objects and a new cross-reference section appended after the original
// bytes, with the trailer chaining back via /Prev. Nothing before the
// append point is touched, which is exactly the containment guarantee the
// sealed artifact must give: the original document is a verbatim prefix.

var (
	errNoRoot      = errors.New("document catalog reference not found")
	errNoPage      = errors.New("no page object found")
	errNoStartxref = errors.New("startxref marker not found")

	objHeaderRe = regexp.MustCompile(`(?s)(\d+)\s+(\d+)\s+obj\b(.*?)endobj`)
	rootRefRe   = regexp.MustCompile(`/Root\s+(\d+)\s+(\d+)\s+R`)
	annotsArrRe = regexp.MustCompile(`/Annots\s*\[([^\]]*)\]`)
	annotsRefRe = regexp.MustCompile(`/Annots\s+(\d+)\s+(\d+)\s+R`)
	mediaBoxRe  = regexp.MustCompile(`/MediaBox\s*\[\s*([\d.+-]+)\s+([\d.+-]+)\s+([\d.+-]+)\s+([\d.+-]+)`)
)

type pdfObject struct {
	num  int
	gen  int
	body []byte
}

type pdfLayout struct {
	maxObj    int
	rootNum   int
	rootGen   int
	prevXref  int
	page      pdfObject
	mediaBox  [4]float64
	annotsObj *pdfObject // indirect /Annots array object, if the page uses one
}

func appendCertificationLayer(original []byte, rec *forensic.Record, opts Options, token string) ([]byte, error) {
	layout, err := parseLayout(original)
	if err != nil {
		return nil, err
	}

	base := layout.maxObj + 1
	wmAnnot, wmForm := base, base+1
	qrAnnot, qrForm, qrImg := base+2, base+3, base+4
	infoObj := base + 5

	qrMatrix, err := qrBitmap(verificationPayload(token, rec.HashPrimary()))
	if err != nil {
		return nil, fmt.Errorf("encode verification token: %w", err)
	}

	llx, lly := layout.mediaBox[0], layout.mediaBox[1]
	urx := layout.mediaBox[2]
	wmRect := [4]float64{llx + 24, lly + 24, llx + 228, lly + 84}
	qrRect := [4]float64{urx - 92, lly + 24, urx - 28, lly + 88}

	var objects []pdfObject

	// Attach the two annotations to the page, rewriting either the page
	// object or its indirect /Annots array, whichever the document uses.
	newRefs := fmt.Sprintf("%d 0 R %d 0 R", wmAnnot, qrAnnot)
	switch {
	case layout.annotsObj != nil:
		body := annotsAppend(layout.annotsObj.body, newRefs)
		objects = append(objects, pdfObject{layout.annotsObj.num, layout.annotsObj.gen, body})
	case annotsArrRe.Match(layout.page.body):
		body := annotsArrRe.ReplaceAll(layout.page.body, []byte("/Annots [$1 "+newRefs+"]"))
		objects = append(objects, pdfObject{layout.page.num, layout.page.gen, body})
	default:
		body, err := insertDictEntry(layout.page.body, "/Annots ["+newRefs+"]")
		if err != nil {
			return nil, err
		}
		objects = append(objects, pdfObject{layout.page.num, layout.page.gen, body})
	}

	primary := rec.HashPrimary()
	truncated := primary
	if len(truncated) > 24 {
		truncated = truncated[:24] + "..."
	}
	sealedAt := opts.Now.UTC()

	objects = append(objects,
		pdfObject{wmAnnot, 0, []byte(fmt.Sprintf(
			"<< /Type /Annot /Subtype /FreeText /Rect [%s] /F 4 /Contents (%s) /DA (/Helv 7 Tf 0 g) /AP << /N %d 0 R >> >>",
			rect(wmRect), escapePDFString("Certified evidence "+truncated), wmForm))},
		pdfObject{wmForm, 0, watermarkForm(wmRect, truncated, opts.Issuer, sealedAt.Format("2006-01-02 15:04:05 UTC"))},
		pdfObject{qrAnnot, 0, []byte(fmt.Sprintf(
			"<< /Type /Annot /Subtype /Square /Rect [%s] /F 4 /AP << /N %d 0 R >> >>",
			rect(qrRect), qrForm))},
		pdfObject{qrForm, 0, []byte(fmt.Sprintf(
			"<< /Type /XObject /Subtype /Form /BBox [0 0 1 1] /Resources << /XObject << /Im1 %d 0 R >> >> /Length 26 >>\nstream\nq 1 0 0 1 0 0 cm /Im1 Do Q\nendstream",
			qrImg))},
		pdfObject{qrImg, 0, qrImageObject(qrMatrix)},
		pdfObject{infoObj, 0, infoDict(rec, opts, token, sealedAt.Format("D:20060102150405Z"))},
	)

	return assemble(original, objects, layout, infoObj)
}

func parseLayout(data []byte) (*pdfLayout, error) {
	layout := &pdfLayout{mediaBox: [4]float64{0, 0, 612, 792}}

	headers := objHeaderRe.FindAllSubmatch(data, -1)
	if len(headers) == 0 {
		return nil, errNoPage
	}
	pageNum := -1
	objByNum := make(map[int]pdfObject, len(headers))
	for _, h := range headers {
		num, _ := strconv.Atoi(string(h[1]))
		gen, _ := strconv.Atoi(string(h[2]))
		obj := pdfObject{num, gen, bytes.TrimSpace(h[3])}
		// Incremental updates redefine objects; the last definition wins.
		objByNum[num] = obj
		if num > layout.maxObj {
			layout.maxObj = num
		}
		if pageNum < 0 && isPageObject(obj.body) {
			pageNum = num
		}
	}
	if pageNum < 0 {
		return nil, errNoPage
	}
	layout.page = objByNum[pageNum]

	if m := mediaBoxRe.FindSubmatch(layout.page.body); m != nil {
		for i := 0; i < 4; i++ {
			layout.mediaBox[i], _ = strconv.ParseFloat(string(m[i+1]), 64)
		}
	}
	if m := annotsRefRe.FindSubmatch(layout.page.body); m != nil && !annotsArrRe.Match(layout.page.body) {
		num, _ := strconv.Atoi(string(m[1]))
		if obj, ok := objByNum[num]; ok {
			layout.annotsObj = &obj
		}
	}

	roots := rootRefRe.FindAllSubmatch(data, -1)
	if len(roots) == 0 {
		return nil, errNoRoot
	}
	last := roots[len(roots)-1]
	layout.rootNum, _ = strconv.Atoi(string(last[1]))
	layout.rootGen, _ = strconv.Atoi(string(last[2]))

	idx := bytes.LastIndex(data, []byte("startxref"))
	if idx < 0 {
		return nil, errNoStartxref
	}
	rest := bytes.TrimSpace(data[idx+len("startxref"):])
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return nil, errNoStartxref
	}
	layout.prevXref, _ = strconv.Atoi(string(rest[:end]))

	return layout, nil
}

func isPageObject(body []byte) bool {
	i := bytes.Index(body, []byte("/Type"))
	if i < 0 {
		return false
	}
	rest := bytes.TrimLeft(body[i+len("/Type"):], " \t\r\n")
	return bytes.HasPrefix(rest, []byte("/Page")) && !bytes.HasPrefix(rest, []byte("/Pages"))
}

func annotsAppend(arrayBody []byte, refs string) []byte {
	i := bytes.LastIndexByte(arrayBody, ']')
	if i < 0 {
		return []byte("[" + refs + "]")
	}
	var out bytes.Buffer
	out.Write(arrayBody[:i])
	out.WriteString(" " + refs)
	out.Write(arrayBody[i:])
	return out.Bytes()
}

// insertDictEntry adds an entry before the closing delimiter of the
// outermost dictionary in an object body.
func insertDictEntry(body []byte, entry string) ([]byte, error) {
	i := bytes.LastIndex(body, []byte(">>"))
	if i < 0 {
		return nil, errors.New("page object is not a dictionary")
	}
	var out bytes.Buffer
	out.Write(body[:i])
	out.WriteString(" " + entry + " ")
	out.Write(body[i:])
	return out.Bytes(), nil
}

func rect(r [4]float64) string {
	return fmt.Sprintf("%.2f %.2f %.2f %.2f", r[0], r[1], r[2], r[3])
}

func watermarkForm(r [4]float64, truncatedDigest, issuer, sealedAt string) []byte {
	w := r[2] - r[0]
	h := r[3] - r[1]
	content := fmt.Sprintf(
		"q\n0.92 0.92 0.92 rg 0 0 %.2f %.2f re f\n0 g\n"+
			"BT /F1 8 Tf 6 %.2f Td (CERTIFIED EVIDENCE) Tj ET\n"+
			"BT /F1 6 Tf 6 %.2f Td (SHA-256 %s) Tj ET\n"+
			"BT /F1 6 Tf 6 %.2f Td (Issuer: %s) Tj ET\n"+
			"BT /F1 6 Tf 6 6 Td (Sealed: %s) Tj ET\nQ",
		w, h,
		h-14,
		h-26, escapePDFString(truncatedDigest),
		h-38, escapePDFString(issuer),
		escapePDFString(sealedAt))
	return []byte(fmt.Sprintf(
		"<< /Type /XObject /Subtype /Form /BBox [0 0 %.2f %.2f] "+
			"/Resources << /Font << /F1 << /Type /Font /Subtype /Type1 /BaseFont /Helvetica >> >> >> "+
			"/Length %d >>\nstream\n%s\nendstream",
		w, h, len(content), content))
}

func qrBitmap(payload string) ([][]bool, error) {
	code, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return code.Bitmap(), nil
}

// qrImageObject renders the QR matrix as an uncompressed 8-bit grayscale
// image XObject, one byte per module.
func qrImageObject(matrix [][]bool) []byte {
	n := len(matrix)
	pixels := make([]byte, 0, n*n)
	for _, row := range matrix {
		for _, dark := range row {
			if dark {
				pixels = append(pixels, 0x00)
			} else {
				pixels = append(pixels, 0xFF)
			}
		}
	}
	header := fmt.Sprintf(
		"<< /Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray /BitsPerComponent 8 /Length %d >>\nstream\n",
		n, n, len(pixels))
	var out bytes.Buffer
	out.WriteString(header)
	out.Write(pixels)
	out.WriteString("\nendstream")
	return out.Bytes()
}

func infoDict(rec *forensic.Record, opts Options, token, sealedAt string) []byte {
	var b strings.Builder
	b.WriteString("<< ")
	fmt.Fprintf(&b, "/Producer (%s) ", escapePDFString(opts.Issuer))
	fmt.Fprintf(&b, "/CertPrimaryDigest (%s) ", escapePDFString(rec.HashPrimary()))
	fmt.Fprintf(&b, "/CertSecondaryDigest (%s) ", escapePDFString(rec.HashSecondary()))
	fmt.Fprintf(&b, "/CertSealedAt (%s) ", escapePDFString(sealedAt))
	fmt.Fprintf(&b, "/CertVerification (%s) ", escapePDFString(token))
	if opts.SubmitterAddress != "" {
		fmt.Fprintf(&b, "/CertSubmitter (%s) ", escapePDFString(opts.SubmitterAddress))
	}
	b.WriteString(">>")
	return []byte(b.String())
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`, "\n", `\n`, "\r", `\r`)
	return r.Replace(s)
}

// assemble writes the update body, cross-reference section, and trailer
// after a verbatim copy of the original bytes.
func assemble(original []byte, objects []pdfObject, layout *pdfLayout, infoObj int) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(original) + 4096)
	out.Write(original)
	if len(original) > 0 && original[len(original)-1] != '\n' {
		out.WriteByte('\n')
	}

	offsets := make(map[int]int, len(objects))
	gens := make(map[int]int, len(objects))
	for _, obj := range objects {
		offsets[obj.num] = out.Len()
		gens[obj.num] = obj.gen
		fmt.Fprintf(&out, "%d %d obj\n", obj.num, obj.gen)
		out.Write(obj.body)
		out.WriteString("\nendobj\n")
	}

	nums := make([]int, 0, len(offsets))
	for n := range offsets {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	xrefOffset := out.Len()
	out.WriteString("xref\n")
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		fmt.Fprintf(&out, "%d %d\n", nums[i], j-i+1)
		for k := i; k <= j; k++ {
			// Each entry is exactly 20 bytes: with a two-byte CRLF there
			// is no space before the end-of-line.
			fmt.Fprintf(&out, "%010d %05d n\r\n", offsets[nums[k]], gens[nums[k]])
		}
		i = j + 1
	}

	size := nums[len(nums)-1] + 1
	fmt.Fprintf(&out, "trailer\n<< /Size %d /Root %d %d R /Info %d 0 R /Prev %d >>\nstartxref\n%d\n%%%%EOF\n",
		size, layout.rootNum, layout.rootGen, infoObj, layout.prevXref, xrefOffset)

	return out.Bytes(), nil
}
