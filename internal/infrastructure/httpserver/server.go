package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"DealScreener/internal/domain"
	"DealScreener/internal/ports"
)

const maxBodyBytes = 1 << 20

// Server is the liveness/metrics/ingress surface. It runs on its own
// goroutine and is never gated by the worker loop, so liveness stays
// answerable while the loop backs off or cools down.
type Server struct {
	queue  ports.Queue
	logger *slog.Logger
	srv    *http.Server
}

// New builds the HTTP surface. The registry may be nil when metrics are
// not wanted (tests).
func New(addr string, queue ports.Queue, registry *prometheus.Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}

	s := &Server{queue: queue, logger: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/screen", s.handleScreen)
	if registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start blocks serving until Shutdown.
func (s *Server) Start() error {
	s.logger.Info("http surface listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// screenRequest accepts either a full submission or a {dealId,
// screenerId} reference pair that upstream resolves into content.
type screenRequest struct {
	domain.Submission
	DealID     string `json:"dealId"`
	ScreenerID string `json:"screenerId"`
}

// handleScreen validates the payload, assigns a message id, and forwards
// the envelope onto the work list. It does no processing itself.
func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req screenRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	sub := req.Submission
	if sub.ID == "" && req.DealID != "" {
		sub.ID = req.DealID
		if sub.UserID == "" {
			sub.UserID = req.ScreenerID
		}
	}
	if err := sub.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	msg := domain.QueueMessage{
		MessageID:  uuid.NewString(),
		Submission: sub,
	}
	if err := s.queue.Push(r.Context(), msg); err != nil {
		s.logger.Error("enqueue failed", "submission", sub.ID, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "queue unavailable"})
		return
	}

	s.logger.Info("submission enqueued", "submission", sub.ID, "message", msg.MessageID)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"jobId":        sub.ID,
		"messageId":    msg.MessageID,
		"submissionId": sub.ID,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
