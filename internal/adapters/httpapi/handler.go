package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"tube2mp3/internal/core/domain"
	"tube2mp3/internal/core/ports"
)

// Handler is the thin HTTP boundary over the conversion pipeline. It maps
// error categories to status codes and streams successful conversions.
type Handler struct {
	converter ports.Converter
	tokens    ports.TokenProvider
	gatherer  prometheus.Gatherer
	log       zerolog.Logger
}

func New(converter ports.Converter, tokens ports.TokenProvider, gatherer prometheus.Gatherer, log zerolog.Logger) *Handler {
	return &Handler{
		converter: converter,
		tokens:    tokens,
		gatherer:  gatherer,
		log:       log.With().Str("component", "http").Logger(),
	}
}

// Router builds the service's route table.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/api/convert", h.handleConvert)
	r.Get("/api/token/status", h.handleTokenStatus)
	r.Get("/healthz", h.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	return r
}

type convertRequest struct {
	URL string `json:"url"`
}

func (h *Handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, fmt.Errorf("%w: invalid request body", domain.ErrInvalidURL))
		return
	}

	result, err := h.converter.Convert(r.Context(), req.URL)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer result.Stream.Close()

	w.Header().Set("Content-Type", result.MediaType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", result.Size))

	if _, err := io.Copy(w, result.Stream); err != nil {
		// Client gone mid-stream; Close above still releases the staged
		// files.
		h.log.Debug().Err(err).Msg("response stream aborted")
	}
}

func (h *Handler) handleTokenStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.tokens.Status()); err != nil {
		h.log.Warn().Err(err).Msg("failed to write token status")
	}
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusFor(err))
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":    err.Error(),
		"category": domain.Category(err),
	})
}

// statusFor maps each pipeline error category to a distinct status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUpstreamBlocked):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrEmptyMedia):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
