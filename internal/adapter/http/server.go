package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/couchcryptid/occultation-etl/internal/adapter/excel"
	"github.com/couchcryptid/occultation-etl/internal/domain"
	"github.com/couchcryptid/occultation-etl/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// defaultSource names uploads that carry no filename and no ?source=.
const defaultSource = "upload.xlsx"

// Deliverer forwards extracted records to the configured sinks.
type Deliverer interface {
	Deliver(ctx context.Context, records []domain.ObservationRecord) error
}

// Extraction configures the POST /extract route.
type Extraction struct {
	Extractor      *domain.Extractor
	Delivery       Deliverer // optional
	Metrics        *observability.Metrics
	MaxUploadBytes int64
}

// Server exposes health, readiness, metrics, and workbook extraction endpoints.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	extraction Extraction
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// /extract routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, extraction Extraction, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:     logger,
		extraction: extraction,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /extract", s.handleExtract)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type extractResponse struct {
	Status string                    `json:"status"`
	Source string                    `json:"source,omitempty"`
	Record *domain.ObservationRecord `json:"record,omitempty"`
	Reason string                    `json:"reason,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	data, filename, err := s.readUpload(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			sharedobs.WriteJSON(w, http.StatusRequestEntityTooLarge, extractResponse{
				Status: "error",
				Error:  fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		sharedobs.WriteJSON(w, http.StatusBadRequest, extractResponse{Status: "error", Error: err.Error()})
		return
	}

	source := r.URL.Query().Get("source")
	if source == "" {
		source = filename
	}
	if source == "" {
		source = defaultSource
	}

	wb, err := excel.OpenReader(bytes.NewReader(data))
	if err != nil {
		s.logger.Warn("unreadable upload", "source", source, "error", err)
		sharedobs.WriteJSON(w, http.StatusBadRequest, extractResponse{Status: "error", Source: source, Error: err.Error()})
		return
	}
	defer wb.Close() //nolint:errcheck // read-only

	out := s.extraction.Extractor.Extract(wb, source)
	s.observe(out, time.Since(start))

	switch out.Status {
	case domain.StatusSkipped:
		sharedobs.WriteJSON(w, http.StatusOK, extractResponse{Status: out.Status.String(), Source: source})
	case domain.StatusFailed:
		sharedobs.WriteJSON(w, http.StatusUnprocessableEntity, extractResponse{
			Status: out.Status.String(),
			Source: source,
			Reason: domain.Reason(out.Err),
			Error:  out.Err.Error(),
		})
	default:
		if s.extraction.Delivery != nil {
			if err := s.extraction.Delivery.Deliver(r.Context(), []domain.ObservationRecord{*out.Record}); err != nil {
				s.logger.Error("deliver record failed", "source", source, "id", out.Record.ID, "error", err)
				sharedobs.WriteJSON(w, http.StatusBadGateway, extractResponse{
					Status: "error",
					Source: source,
					Record: out.Record,
					Error:  fmt.Sprintf("deliver record: %v", err),
				})
				return
			}
		}
		sharedobs.WriteJSON(w, http.StatusOK, extractResponse{Status: out.Status.String(), Source: source, Record: out.Record})
	}
}

// readUpload returns the workbook bytes and the client filename, from either
// a multipart "file" field or the raw request body.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.extraction.MaxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", err
		}
		if len(data) == 0 {
			return nil, "", errors.New("empty request body")
		}
		return data, "", nil
	}

	if err := r.ParseMultipartForm(s.extraction.MaxUploadBytes); err != nil {
		return nil, "", fmt.Errorf("parse multipart form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("multipart field %q: %w", "file", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(header.Filename), nil
}

func (s *Server) observe(out domain.Outcome, elapsed time.Duration) {
	m := s.extraction.Metrics
	if m == nil {
		return
	}
	m.ExtractionDuration.Observe(elapsed.Seconds())
	m.Outcomes.WithLabelValues(out.Status.String()).Inc()
	if out.Status == domain.StatusFailed {
		m.ExtractionFailures.WithLabelValues(domain.Reason(out.Err)).Inc()
	}
}
