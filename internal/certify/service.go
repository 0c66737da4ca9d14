package certify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/evidenceflow/pkg/anchor"
	"github.com/your-org/evidenceflow/pkg/archive"
	"github.com/your-org/evidenceflow/pkg/events"
	"github.com/your-org/evidenceflow/pkg/forensic"
	"github.com/your-org/evidenceflow/pkg/metadata"
	"github.com/your-org/evidenceflow/pkg/report"
	"github.com/your-org/evidenceflow/pkg/stamp"
)

// Service wires the certification session to its external collaborators:
// the anchor submitter, the audit event stream, and the artifact archive.
// One service instance carries one in-flight session.
type Service struct {
	session  *Session
	anchorer anchor.Submitter
	producer *events.Producer
	store    archive.Client
	logger   *zap.Logger
	maxSize  int64
	issuer   string
}

type Params struct {
	Anchorer       anchor.Submitter
	Producer       *events.Producer
	Store          archive.Client
	Logger         *zap.Logger
	MaxUploadBytes int64
	Issuer         string
}

// NewService constructs a certification Service.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		session:  NewSession(),
		anchorer: p.Anchorer,
		producer: p.Producer,
		store:    p.Store,
		logger:   logger,
		maxSize:  p.MaxUploadBytes,
		issuer:   p.Issuer,
	}
}

// UploadInput captures a submitted file with its declared identity.
type UploadInput struct {
	Name         string
	ContentType  string
	LastModified time.Time
	Data         []byte
}

// RecordSummary is the presentation view of the session after analysis.
type RecordSummary struct {
	SessionID     string               `json:"session_id"`
	Stage         string               `json:"stage"`
	FileName      string               `json:"file_name"`
	DeclaredMIME  string               `json:"declared_mime"`
	SizeBytes     int64                `json:"size_bytes"`
	IngestedAt    time.Time            `json:"ingested_at"`
	HashPrimary   string               `json:"hash_primary"`
	HashSecondary string               `json:"hash_secondary"`
	General       []forensic.Attribute `json:"general_attributes"`
	Sensitive     []forensic.Attribute `json:"sensitive_attributes"`
	AnchorRef     string               `json:"anchor_ref,omitempty"`
}

// Submit accepts raw bytes in Idle and runs the analysis stage.
func (s *Service) Submit(ctx context.Context, in UploadInput) (*RecordSummary, error) {
	info := metadata.FileInfo{
		Name:         in.Name,
		DeclaredMIME: in.ContentType,
		Size:         int64(len(in.Data)),
		LastModified: in.LastModified,
	}

	rec, err := s.session.Analyze(ctx, info, in.Data, s.maxSize)
	if err != nil {
		return nil, err
	}

	s.logger.Info("evidence analyzed",
		zap.String("file", rec.Name),
		zap.Int64("size_bytes", rec.SizeBytes),
		zap.String("hash_primary", rec.HashPrimary()))

	s.emit(ctx, AuditEvent{
		SessionID:     s.session.ID().String(),
		Type:          EventAnalyzed,
		Stage:         s.session.Stage().String(),
		FileName:      rec.Name,
		SizeBytes:     rec.SizeBytes,
		PrimaryDigest: rec.HashPrimary(),
		CreatedAt:     time.Now().UTC(),
	})

	return s.summarize(rec), nil
}

// ArtifactSummary is the presentation view of a sealing result.
type ArtifactSummary struct {
	ArtifactID string    `json:"artifact_id"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	Stamped    bool      `json:"stamped"`
	SealedAt   time.Time `json:"sealed_at"`
}

// SealEvidence runs the sealing stage. The optional submitter address is
// embedded into the certification payload when present.
func (s *Service) SealEvidence(ctx context.Context, submitterAddress string) (*ArtifactSummary, error) {
	art, err := s.session.Seal(ctx, stamp.Options{
		Issuer:           s.issuer,
		SubmitterAddress: submitterAddress,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("evidence sealed",
		zap.String("artifact_id", art.ID.String()),
		zap.Bool("stamped", art.Stamped))

	if s.store != nil {
		key := fmt.Sprintf("artifacts/%s/%s", art.RecordDigest, art.Filename)
		if err := s.store.Put(ctx, key, art.Bytes, "application/octet-stream", map[string]string{
			"primary_digest": art.RecordDigest,
			"artifact_id":    art.ID.String(),
		}); err != nil {
			// Archiving is best effort; the artifact stays available.
			s.logger.Warn("artifact archive failed", zap.Error(err))
		}
	}

	s.emit(ctx, AuditEvent{
		SessionID:     s.session.ID().String(),
		Type:          EventCertified,
		Stage:         s.session.Stage().String(),
		FileName:      art.Filename,
		SizeBytes:     int64(len(art.Bytes)),
		PrimaryDigest: art.RecordDigest,
		CreatedAt:     time.Now().UTC(),
	})

	return &ArtifactSummary{
		ArtifactID: art.ID.String(),
		Filename:   art.Filename,
		SizeBytes:  int64(len(art.Bytes)),
		Stamped:    art.Stamped,
		SealedAt:   art.SealedAt,
	}, nil
}

// Anchor submits the primary digest to the external anchor collaborator
// and, on success, attaches the returned reference to the record. Legal
// only in Certified, retryable, and idempotent from the caller's side.
func (s *Service) Anchor(ctx context.Context) (string, error) {
	digest, epoch, err := s.session.PrimaryDigestForAnchor()
	if err != nil {
		return "", err
	}
	if s.anchorer == nil {
		return "", forensic.AnchorFailure(forensic.ReasonIdentityUnavailable,
			"no anchor collaborator configured", nil)
	}

	ref, err := s.anchorer.Submit(ctx, digest)
	if err != nil {
		return "", err
	}
	if err := s.session.AttachAnchor(epoch, ref); err != nil {
		return "", err
	}

	s.logger.Info("evidence anchored", zap.String("reference", ref))

	s.emit(ctx, AuditEvent{
		SessionID:     s.session.ID().String(),
		Type:          EventAnchored,
		Stage:         s.session.Stage().String(),
		PrimaryDigest: digest,
		AnchorRef:     ref,
		CreatedAt:     time.Now().UTC(),
	})
	return ref, nil
}

// ReportInput carries the caller-supplied structures the two specialized
// report kinds require.
type ReportInput struct {
	Custody   *report.CustodyInput   `json:"custody,omitempty"`
	Affidavit *report.AffidavitInput `json:"affidavit,omitempty"`
}

// Report renders one of the four report kinds from the current record.
// Legal only in Certified; repeatable; never mutates the record.
func (s *Service) Report(ctx context.Context, kind report.Kind, in ReportInput) (string, []byte, error) {
	rec, err := s.session.CertifiedRecord()
	if err != nil {
		return "", nil, err
	}

	view := report.NewView(rec, stamp.VerificationReference(rec.HashPrimary()), s.issuer)
	data, err := report.Generate(kind, view, in.Custody, in.Affidavit)
	if err != nil {
		return "", nil, err
	}

	filename := report.Filename(kind, view)
	if s.store != nil {
		key := fmt.Sprintf("reports/%s/%s", rec.HashPrimary(), filename)
		if err := s.store.Put(ctx, key, data, "application/pdf", nil); err != nil {
			s.logger.Warn("report archive failed", zap.Error(err))
		}
	}
	return filename, data, nil
}

// Artifact returns the current certified artifact.
func (s *Service) Artifact() (*forensic.Artifact, error) {
	return s.session.Artifact()
}

// Summary reports the session for presentation, legal in any state.
func (s *Service) Summary() *RecordSummary {
	stage, rec, _ := s.session.Snapshot()
	if rec == nil {
		return &RecordSummary{
			SessionID: s.session.ID().String(),
			Stage:     stage.String(),
		}
	}
	out := s.summarize(rec)
	out.Stage = stage.String()
	return out
}

// Reset clears the session from any state.
func (s *Service) Reset() {
	s.session.Reset()
	s.logger.Info("session reset")
}

func (s *Service) summarize(rec *forensic.Record) *RecordSummary {
	return &RecordSummary{
		SessionID:     s.session.ID().String(),
		Stage:         s.session.Stage().String(),
		FileName:      rec.Name,
		DeclaredMIME:  rec.DeclaredMIME,
		SizeBytes:     rec.SizeBytes,
		IngestedAt:    rec.IngestedAt,
		HashPrimary:   rec.HashPrimary(),
		HashSecondary: rec.HashSecondary(),
		General:       rec.Attributes.General(),
		Sensitive:     rec.Attributes.Sensitive(),
		AnchorRef:     rec.AnchorRef,
	}
}

func (s *Service) emit(ctx context.Context, event AuditEvent) {
	if s.producer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal audit event", zap.Error(err))
		return
	}
	headers := map[string]string{
		"event_type": event.Type,
		"session_id": event.SessionID,
	}
	if err := s.producer.Publish(ctx, []byte(event.PrimaryDigest), payload, headers); err != nil {
		s.logger.Error("publish audit event", zap.Error(err))
	}
}

// Close releases underlying resources.
func (s *Service) Close(ctx context.Context) error {
	if s.producer != nil {
		if err := s.producer.Close(ctx); err != nil {
			return err
		}
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
