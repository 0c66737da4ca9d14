package metadata

import (
	"bytes"
	"errors"
	"regexp"
	"strconv"
	"time"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"
)

// pdfDocument holds the descriptive fields recovered from a PDF container.
// Empty string means the field was absent or unreadable.
type pdfDocument struct {
	Title     string
	Author    string
	Subject   string
	Creator   string
	Producer  string
	Created   string
	Modified  string
	PageCount int
	Encrypted bool
}

var (
	errNoHeader  = errors.New("missing %PDF header")
	errNoObjects = errors.New("no indirect objects found")

	pdfInfoFieldRe = map[string]*regexp.Regexp{}
	pdfPageRe      = regexp.MustCompile(`/Type\s*/Page[^sA-Za-z0-9]`)
	pdfPagesCount  = regexp.MustCompile(`/Type\s*/Pages[^>]*?/Count\s+(\d+)`)
)

func init() {
	for _, name := range []string{"Title", "Author", "Subject", "Creator", "Producer", "CreationDate", "ModDate"} {
		// Literal string or hex string value, directly after the name.
		pdfInfoFieldRe[name] = regexp.MustCompile(
			`/` + name + `\s*(?:\(((?:\\.|[^\\()])*)\)|<([0-9A-Fa-f\s]*)>)`)
	}
}

// inspectPDF scans a PDF container for descriptive metadata. It is a
// tolerant scanner, not a conforming parser: it works on damaged files and
// on files that declare encryption, because the goal is descriptive
// metadata, not content access. It returns an error only when the buffer
// does not hold a recognizable PDF structure at all.
func inspectPDF(data []byte) (*pdfDocument, error) {
	// The header must appear near the start; some writers prepend junk.
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	if !bytes.Contains(head, []byte("%PDF-")) {
		return nil, errNoHeader
	}
	if !bytes.Contains(data, []byte(" obj")) && !bytes.Contains(data, []byte("\nobj")) {
		return nil, errNoObjects
	}

	doc := &pdfDocument{
		Encrypted: bytes.Contains(data, []byte("/Encrypt")),
	}

	doc.Title = lastInfoField(data, "Title")
	doc.Author = lastInfoField(data, "Author")
	doc.Subject = lastInfoField(data, "Subject")
	doc.Creator = lastInfoField(data, "Creator")
	doc.Producer = lastInfoField(data, "Producer")
	doc.Created = formatPDFDate(lastInfoField(data, "CreationDate"))
	doc.Modified = formatPDFDate(lastInfoField(data, "ModDate"))

	if m := pdfPagesCount.FindSubmatch(data); m != nil {
		if n, err := strconv.Atoi(string(m[1])); err == nil {
			doc.PageCount = n
		}
	}
	if doc.PageCount == 0 {
		doc.PageCount = len(pdfPageRe.FindAllIndex(data, -1))
	}

	return doc, nil
}

// lastInfoField returns the newest occurrence of an Info key. Incremental
// updates append, so the last match wins.
func lastInfoField(data []byte, name string) string {
	matches := pdfInfoFieldRe[name].FindAllSubmatch(data, -1)
	if len(matches) == 0 {
		return ""
	}
	m := matches[len(matches)-1]
	var decoded string
	if m[1] != nil {
		decoded = decodeLiteralString(m[1])
	} else {
		decoded = decodeHexString(m[2])
	}
	if !printable(decoded) {
		// Encrypted or binary garbage; omit rather than emit noise.
		return ""
	}
	return decoded
}

func decodeLiteralString(raw []byte) string {
	var out []byte
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		i++
		if i >= len(raw) {
			break
		}
		switch raw[i] {
		case 'n':
			out = append(out, '\n')
		case 'r':
			out = append(out, '\r')
		case 't':
			out = append(out, '\t')
		case 'b':
			out = append(out, '\b')
		case 'f':
			out = append(out, '\f')
		case '(', ')', '\\':
			out = append(out, raw[i])
		case '0', '1', '2', '3', '4', '5', '6', '7':
			oct := []byte{raw[i]}
			for len(oct) < 3 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7' {
				i++
				oct = append(oct, raw[i])
			}
			n, _ := strconv.ParseUint(string(oct), 8, 16)
			out = append(out, byte(n))
		default:
			out = append(out, raw[i])
		}
	}
	return decodeTextString(out)
}

func decodeHexString(raw []byte) string {
	var nibbles []byte
	for _, c := range raw {
		switch {
		case c >= '0' && c <= '9':
			nibbles = append(nibbles, c-'0')
		case c >= 'a' && c <= 'f':
			nibbles = append(nibbles, c-'a'+10)
		case c >= 'A' && c <= 'F':
			nibbles = append(nibbles, c-'A'+10)
		}
	}
	if len(nibbles)%2 == 1 {
		nibbles = append(nibbles, 0)
	}
	out := make([]byte, 0, len(nibbles)/2)
	for i := 0; i+1 < len(nibbles); i += 2 {
		out = append(out, nibbles[i]<<4|nibbles[i+1])
	}
	return decodeTextString(out)
}

// decodeTextString handles the two PDF text encodings: UTF-16BE with BOM,
// otherwise treated as Latin-1/PDFDocEncoding.
func decodeTextString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		u := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}
	if utf8.Valid(b) {
		return string(b)
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

func printable(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == utf8.RuneError || (unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t') {
			return false
		}
	}
	return true
}

// formatPDFDate renders a D:YYYYMMDDHHmmSS style date as a UTC string,
// passing the raw value through when it does not parse.
func formatPDFDate(raw string) string {
	if raw == "" {
		return ""
	}
	s := raw
	if len(s) >= 2 && s[:2] == "D:" {
		s = s[2:]
	}
	// Strip timezone suffix forms: Z, +HH'mm', -HH'mm'.
	base := s
	var offset *time.Location
	for i, c := range s {
		if c == 'Z' || c == '+' || c == '-' {
			base = s[:i]
			if c != 'Z' {
				offset = parsePDFOffset(s[i:])
			}
			break
		}
	}
	layouts := []string{"20060102150405", "200601021504", "2006010215", "20060102", "200601", "2006"}
	for _, layout := range layouts {
		if len(base) != len(layout) {
			continue
		}
		loc := time.UTC
		if offset != nil {
			loc = offset
		}
		if t, err := time.ParseInLocation(layout, base, loc); err == nil {
			return t.UTC().Format("2006-01-02 15:04:05 UTC")
		}
	}
	return raw
}

func parsePDFOffset(s string) *time.Location {
	// Forms: +HH'mm', +HH', +HH
	sign := 1
	if s[0] == '-' {
		sign = -1
	}
	rest := s[1:]
	digits := func(b []byte) int {
		n, _ := strconv.Atoi(string(b))
		return n
	}
	var hh, mm int
	if len(rest) >= 2 {
		hh = digits([]byte(rest[:2]))
	}
	if len(rest) >= 5 && rest[2] == '\'' {
		mm = digits([]byte(rest[3:5]))
	}
	return time.FixedZone("", sign*(hh*3600+mm*60))
}
