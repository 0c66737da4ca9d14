package certify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/your-org/evidenceflow/pkg/forensic"
	"github.com/your-org/evidenceflow/pkg/report"
)

// HTTPHandler exposes REST endpoints for the certification service.
type HTTPHandler struct {
	service      *Service
	logger       *zap.Logger
	maxSizeBytes int64
	formMemBytes int64
	router       chi.Router
}

// NewHTTPHandler constructs the HTTP handler and wires routes.
func NewHTTPHandler(service *Service, logger *zap.Logger, maxSizeBytes, formMemBytes int64) *HTTPHandler {
	h := &HTTPHandler{
		service:      service,
		logger:       logger,
		maxSizeBytes: maxSizeBytes,
		formMemBytes: formMemBytes,
	}
	h.buildRouter()
	return h
}

func (h *HTTPHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))

	r.Get("/healthz", h.handleHealth)
	r.Route("/api/v1/evidence", func(r chi.Router) {
		r.Post("/", h.handleSubmit)
		r.Get("/", h.handleSummary)
		r.Delete("/", h.handleReset)
		r.Post("/seal", h.handleSeal)
		r.Get("/artifact", h.handleArtifact)
		r.Post("/anchor", h.handleAnchor)
		r.Post("/reports/{kind}", h.handleReport)
	})

	h.router = r
}

// Router exposes the configured chi router.
func (h *HTTPHandler) Router() http.Handler {
	return h.router
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func (h *HTTPHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > 0 && r.ContentLength > h.maxSizeBytes+h.formMemBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	if err := r.ParseMultipartForm(h.formMemBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxSizeBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	contentType := header.Header.Get("Content-Type")
	lastModified := parseLastModified(r.FormValue("last_modified"))

	summary, err := h.service.Submit(r.Context(), UploadInput{
		Name:         header.Filename,
		ContentType:  contentType,
		LastModified: lastModified,
		Data:         data,
	})
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, summary)
}

func (h *HTTPHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Summary())
}

func (h *HTTPHandler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.service.Reset()
	writeJSON(w, http.StatusOK, h.service.Summary())
}

func (h *HTTPHandler) handleSeal(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SubmitterAddress string `json:"submitter_address"`
	}
	if r.Body != nil {
		// The body is optional; decode errors on an empty body are fine.
		_ = json.NewDecoder(r.Body).Decode(&body)
	}

	summary, err := h.service.SealEvidence(r.Context(), body.SubmitterAddress)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (h *HTTPHandler) handleArtifact(w http.ResponseWriter, r *http.Request) {
	art, err := h.service.Artifact()
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.Filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Bytes); err != nil {
		h.logger.Error("write artifact", zap.Error(err))
	}
}

func (h *HTTPHandler) handleAnchor(w http.ResponseWriter, r *http.Request) {
	ref, err := h.service.Anchor(r.Context())
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"reference_id": ref,
	})
}

func (h *HTTPHandler) handleReport(w http.ResponseWriter, r *http.Request) {
	kind := report.Kind(chi.URLParam(r, "kind"))

	var in ReportInput
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&in)
	}

	filename, data, err := h.service.Report(r.Context(), kind, in)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Error("write report", zap.Error(err))
	}
}

func parseLastModified(raw string) time.Time {
	if raw == "" {
		return time.Now().UTC()
	}
	if epoch, err := strconv.ParseInt(raw, 10, 64); err == nil {
		// Epoch milliseconds when the magnitude says so, else seconds.
		if epoch > 1e12 {
			return time.UnixMilli(epoch).UTC()
		}
		return time.Unix(epoch, 0).UTC()
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC()
	}
	return time.Now().UTC()
}

// writePipelineError maps the structured error taxonomy onto HTTP statuses
// and surfaces kind, message, and remedy to the caller.
func (h *HTTPHandler) writePipelineError(w http.ResponseWriter, err error) {
	var fe *forensic.Error
	if !errors.As(err, &fe) {
		h.logger.Error("unclassified failure", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	status := http.StatusInternalServerError
	switch fe.Kind {
	case forensic.KindCapacity:
		status = http.StatusRequestEntityTooLarge
	case forensic.KindIllegalOperation:
		status = http.StatusConflict
	case forensic.KindAnchor:
		switch fe.Reason {
		case forensic.ReasonIdentityUnavailable:
			status = http.StatusUnauthorized
		case forensic.ReasonDeclined:
			status = http.StatusForbidden
		default:
			status = http.StatusBadGateway
		}
	case forensic.KindSealing, forensic.KindIntegrityComputation, forensic.KindReportGeneration:
		status = http.StatusInternalServerError
	}

	h.logger.Warn("pipeline error",
		zap.String("kind", string(fe.Kind)),
		zap.Error(err))

	writeJSON(w, status, map[string]string{
		"error":  fe.Message,
		"kind":   string(fe.Kind),
		"remedy": fe.Remedy,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
