package certify

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/evidenceflow/pkg/forensic"
	"github.com/your-org/evidenceflow/pkg/hashing"
	"github.com/your-org/evidenceflow/pkg/metadata"
	"github.com/your-org/evidenceflow/pkg/stamp"
)

// Stage is the position of a session in the certification workflow. The
// order is strict and linear; Analyzing and Processing are transitional
// stages during which no new request is legal.
type Stage int

const (
	StageIdle Stage = iota
	StageAnalyzing
	StageReview
	StageProcessing
	StageCertified
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAnalyzing:
		return "analyzing"
	case StageReview:
		return "review"
	case StageProcessing:
		return "processing"
	case StageCertified:
		return "certified"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

type hashFunc func([]byte) (hashing.Digests, error)

// Session owns one file's certification workflow: at most one forensic
// record and one certified artifact at a time, plus the current stage.
// Every operation declares the stages in which it is legal and is rejected
// without side effects anywhere else. The record/artifact/stage triple is
// mutated only under the session lock, one transition at a time.
type Session struct {
	mu       sync.Mutex
	id       uuid.UUID
	stage    Stage
	epoch    uint64
	file     []byte
	record   *forensic.Record
	artifact *forensic.Artifact
	hashFn   hashFunc
}

// NewSession returns an empty session in Idle.
func NewSession() *Session {
	return &Session{
		id: uuid.New(),
		hashFn: func(data []byte) (hashing.Digests, error) {
			return hashing.Compute(data), nil
		},
	}
}

// ID identifies the current session lifetime; Reset issues a new one.
func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Stage returns the current workflow stage.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

func illegal(op string, stage Stage) *forensic.Error {
	return forensic.NewError(forensic.KindIllegalOperation,
		fmt.Sprintf("operation %q is not legal in stage %q", op, stage),
		"follow the workflow order: submit, seal, then anchor or report")
}

// snapshotRecordLocked copies the record for readers outside the session
// lock. AttachAnchor mutates the live record under the lock while anchoring
// and summary/report reads run concurrently in Certified, so the live
// pointer never leaves the session. The attribute map is immutable after
// publication and is shared by the copy.
func (s *Session) snapshotRecordLocked() *forensic.Record {
	if s.record == nil {
		return nil
	}
	cp := *s.record
	return &cp
}

// Analyze accepts raw bytes in Idle, runs hashing and metadata extraction
// concurrently, joins both, and advances to Review with an assembled
// record. Oversized input is rejected before any processing, leaving the
// session in Idle. A hashing failure aborts back to Idle with no partial
// record retained; extraction failures are absorbed by the extractor
// itself. The digest pair is installed atomically before the record
// becomes visible.
func (s *Session) Analyze(ctx context.Context, info metadata.FileInfo, data []byte, maxSize int64) (*forensic.Record, error) {
	s.mu.Lock()
	if s.stage != StageIdle {
		defer s.mu.Unlock()
		return nil, illegal("analyze", s.stage)
	}
	if maxSize > 0 && int64(len(data)) > maxSize {
		s.mu.Unlock()
		return nil, forensic.NewError(forensic.KindCapacity,
			fmt.Sprintf("input of %d bytes exceeds the %d byte limit", len(data), maxSize),
			"submit a smaller file or raise the capacity limit")
	}
	s.stage = StageAnalyzing
	epoch := s.epoch
	s.mu.Unlock()

	type hashResult struct {
		digests hashing.Digests
		err     error
	}
	hashCh := make(chan hashResult, 1)
	go func() {
		d, err := s.hashFn(data)
		hashCh <- hashResult{d, err}
	}()

	attrs := metadata.Extract(info, data)
	hr := <-hashCh

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		// Reset raced with analysis; partial results are discarded.
		return nil, illegal("analyze", s.stage)
	}
	if hr.err != nil {
		s.stage = StageIdle
		return nil, forensic.WrapError(forensic.KindIntegrityComputation,
			"digest computation failed", "resubmit the file", hr.err)
	}

	rec := &forensic.Record{
		Name:         info.Name,
		DeclaredMIME: declaredMIME(info),
		SizeBytes:    int64(len(data)),
		LastModified: info.LastModified,
		IngestedAt:   time.Now().UTC(),
		Attributes:   attrs,
	}
	if err := rec.SetDigests(hr.digests.Primary, hr.digests.Secondary); err != nil {
		s.stage = StageIdle
		return nil, err
	}

	// The session takes its own copy: derived artifacts must never share
	// storage with caller-held buffers.
	buf := make([]byte, len(data))
	copy(buf, data)
	s.file = buf
	s.record = rec
	s.stage = StageReview
	return s.snapshotRecordLocked(), nil
}

func declaredMIME(info metadata.FileInfo) string {
	if info.DeclaredMIME == "" {
		return metadata.DefaultMIME
	}
	return info.DeclaredMIME
}

// Seal is legal in Review and in Certified, where a re-seal supersedes the
// existing artifact. The session passes through Processing while the
// stamping engine runs; success lands in Certified with a new artifact,
// failure falls back to the prior stage with the record intact. Sealing
// always starts from the original bytes, so repeated seals never compound
// watermark layers.
func (s *Session) Seal(ctx context.Context, opts stamp.Options) (*forensic.Artifact, error) {
	s.mu.Lock()
	if s.stage != StageReview && s.stage != StageCertified {
		defer s.mu.Unlock()
		return nil, illegal("seal", s.stage)
	}
	prior := s.stage
	s.stage = StageProcessing
	epoch := s.epoch
	rec := s.record
	original := s.file
	s.mu.Unlock()

	res, err := stamp.Seal(original, rec, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return nil, illegal("seal", s.stage)
	}
	if err != nil {
		s.stage = prior
		return nil, err
	}

	// A re-seal supersedes the previous artifact; it is replaced, never
	// mutated, and outstanding references to it stay readable.
	art := &forensic.Artifact{
		ID:           uuid.New(),
		RecordDigest: rec.HashPrimary(),
		Filename:     certifiedFilename(rec.Name),
		Bytes:        res.Bytes,
		SealedAt:     time.Now().UTC(),
		Stamped:      res.Stamped,
	}
	s.artifact = art
	s.stage = StageCertified
	return art, nil
}

func certifiedFilename(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if base == "" {
		base = "evidence"
	}
	return base + "-certified" + ext
}

// PrimaryDigestForAnchor returns the digest to submit to the anchor
// collaborator, legal only in Certified. The returned epoch must be handed
// back to AttachAnchor so a reset during the external call invalidates the
// result.
func (s *Session) PrimaryDigestForAnchor() (string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageCertified {
		return "", 0, illegal("anchor", s.stage)
	}
	return s.record.HashPrimary(), s.epoch, nil
}

// AttachAnchor records a successful anchor reference. The first reference
// wins; repeated anchoring of the same digest does not change
// already-anchored state.
func (s *Session) AttachAnchor(epoch uint64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch || s.stage != StageCertified {
		return illegal("anchor", s.stage)
	}
	if s.record.AnchorRef == "" {
		s.record.AnchorRef = ref
	}
	return nil
}

// CertifiedRecord returns a copy of the record for report generation,
// legal only in Certified.
func (s *Session) CertifiedRecord() (*forensic.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageCertified {
		return nil, illegal("report", s.stage)
	}
	return s.snapshotRecordLocked(), nil
}

// Artifact returns the current certified artifact, legal only in Certified.
func (s *Session) Artifact() (*forensic.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stage != StageCertified {
		return nil, illegal("artifact", s.stage)
	}
	return s.artifact, nil
}

// Snapshot returns the stage plus copies of whatever record and artifact
// exist, for presentation. Legal in any state.
func (s *Session) Snapshot() (Stage, *forensic.Record, *forensic.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage, s.snapshotRecordLocked(), s.artifact
}

// Reset clears the session from any state and returns to Idle. Previously
// issued artifact references are invalidated: results of transitions still
// in flight are discarded when they complete.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.id = uuid.New()
	s.stage = StageIdle
	s.file = nil
	s.record = nil
	s.artifact = nil
}
