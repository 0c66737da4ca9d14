// Package forensic defines the core data model for evidence certification:
// the forensic record assembled during analysis, the ordered attribute map
// with sensitivity tags, and the certified artifact produced by sealing.
package forensic

import (
	"time"

	"github.com/google/uuid"
)

// Classification tags a metadata attribute for downstream display and
// redaction decisions. It never alters the attribute value.
type Classification string

const (
	ClassSensitive Classification = "sensitive"
	ClassGeneral   Classification = "general"
)

// Attribute is a single extracted metadata entry.
type Attribute struct {
	Key            string         `json:"key"`
	Value          string         `json:"value"`
	Classification Classification `json:"classification"`
}

// AttributeMap is an insertion-ordered mapping of unique attribute keys to
// values. Extraction order matters to the record model, so a plain Go map
// cannot back it.
type AttributeMap struct {
	attrs []Attribute
	index map[string]int
}

// NewAttributeMap returns an empty ordered attribute map.
func NewAttributeMap() *AttributeMap {
	return &AttributeMap{index: make(map[string]int)}
}

// Set inserts or overwrites an attribute. A key set twice keeps its original
// position.
func (m *AttributeMap) Set(key, value string, class Classification) {
	if i, ok := m.index[key]; ok {
		m.attrs[i].Value = value
		m.attrs[i].Classification = class
		return
	}
	m.index[key] = len(m.attrs)
	m.attrs = append(m.attrs, Attribute{Key: key, Value: value, Classification: class})
}

// Get returns the value for key and whether it is present.
func (m *AttributeMap) Get(key string) (string, bool) {
	i, ok := m.index[key]
	if !ok {
		return "", false
	}
	return m.attrs[i].Value, true
}

// Len reports the number of attributes.
func (m *AttributeMap) Len() int {
	return len(m.attrs)
}

// All returns the attributes in insertion order. The returned slice is a
// copy; mutating it does not affect the map.
func (m *AttributeMap) All() []Attribute {
	out := make([]Attribute, len(m.attrs))
	copy(out, m.attrs)
	return out
}

// Sensitive returns the attributes tagged sensitive, in insertion order.
func (m *AttributeMap) Sensitive() []Attribute {
	return m.filter(ClassSensitive)
}

// General returns the attributes tagged general, in insertion order.
func (m *AttributeMap) General() []Attribute {
	return m.filter(ClassGeneral)
}

func (m *AttributeMap) filter(class Classification) []Attribute {
	var out []Attribute
	for _, a := range m.attrs {
		if a.Classification == class {
			out = append(out, a)
		}
	}
	return out
}

// Record is the forensic record for a single submitted file: identity facts,
// integrity digests, extracted attributes, and the optional external anchor
// reference.
type Record struct {
	Name         string
	DeclaredMIME string
	SizeBytes    int64
	// LastModified is source-reported and not trusted; IngestedAt is the
	// system clock at acceptance, UTC.
	LastModified time.Time
	IngestedAt   time.Time

	hashPrimary   string
	hashSecondary string

	Attributes *AttributeMap

	// AnchorRef is empty until an anchoring call succeeds.
	AnchorRef string
}

// SetDigests installs both digests atomically. A record never carries one
// digest without the other; callers that hold only one have nothing valid
// to store.
func (r *Record) SetDigests(primary, secondary string) error {
	if primary == "" || secondary == "" {
		return NewError(KindIntegrityComputation, "digest pair incomplete",
			"recompute both digests from the original bytes")
	}
	r.hashPrimary = primary
	r.hashSecondary = secondary
	return nil
}

// Fingerprinted reports whether both digests are set.
func (r *Record) Fingerprinted() bool {
	return r.hashPrimary != "" && r.hashSecondary != ""
}

// HashPrimary returns the primary digest, empty until SetDigests succeeds.
func (r *Record) HashPrimary() string { return r.hashPrimary }

// HashSecondary returns the secondary digest, empty until SetDigests succeeds.
func (r *Record) HashSecondary() string { return r.hashSecondary }

// Artifact is a certified artifact derived from a record by a sealing
// operation. It references the record it certifies by primary digest and
// never shares byte storage with the original file.
type Artifact struct {
	ID uuid.UUID
	// RecordDigest is the primary digest of the record this artifact
	// certifies, not a claim about the artifact's own bytes.
	RecordDigest string
	Filename     string
	Bytes        []byte
	SealedAt     time.Time
	// Stamped is false for verified passthrough of non-structured formats,
	// where the bytes are the original, unmodified.
	Stamped bool
}
