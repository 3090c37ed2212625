package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"marketplace-forfait-service/internal/config"
	"marketplace-forfait-service/internal/domain"
	"marketplace-forfait-service/internal/domain/model"
	"marketplace-forfait-service/internal/usecase"
)

// Server exposes the payment and forfait lifecycle over HTTP.
type Server struct {
	srv *http.Server
	log *zerolog.Logger
}

func NewServer(cfg config.ServerConfig, auth *AuthManager, uc usecase.PaymentUseCase, logger *zerolog.Logger) *Server {
	apiLog := logger.With().Str("component", "API").Logger()
	// The initiate path holds the request open across the aggregator's collect
	// call (up to 60s), so the request timeout must sit above it.
	wrapped := Chain(newRouter(auth, uc, &apiLog),
		Recover(&apiLog),
		Trace(),
		RequestLog(&apiLog),
		MaxBody(64<<10),
		Timeout(90*time.Second),
	)
	return &Server{
		srv: &http.Server{
			Addr:              ":" + strconv.Itoa(cfg.Port),
			Handler:           wrapped,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: &apiLog,
	}
}

func newRouter(auth *AuthManager, uc usecase.PaymentUseCase, apiLog *zerolog.Logger) http.Handler {
	h := &handlers{uc: uc, log: apiLog}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/payments", func(r chi.Router) {
		// The gateway's callback carries no user token; the handler never trusts
		// its body anyway, only the reference it names.
		r.Post("/webhook", h.webhook)
		r.Get("/webhook", h.webhook)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/", h.initiate)
			r.Get("/", h.listMine)
			r.Get("/{id}/status", h.status)
		})
	})
	return r
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("Starting HTTP server")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Stopping HTTP server")
	return s.srv.Shutdown(ctx)
}

// ===== Handlers =====

type handlers struct {
	uc  usecase.PaymentUseCase
	log *zerolog.Logger
}

type initiateRequest struct {
	ProductID     string `json:"product_id"`
	ForfaitID     string `json:"forfait_id"`
	PhoneNumber   string `json:"phone_number"`
	PaymentMethod string `json:"payment_method"`
}

type paymentResponse struct {
	ID            string     `json:"id"`
	ProductID     string     `json:"product_id"`
	ForfaitID     string     `json:"forfait_id"`
	Amount        int64      `json:"amount"`
	Currency      string     `json:"currency"`
	Method        string     `json:"payment_method"`
	Status        string     `json:"status"`
	USSDCode      string     `json:"ussd_code,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		ProductID:     p.ProductID,
		ForfaitID:     p.ForfaitID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Method:        string(p.Method),
		Status:        string(p.Status),
		USSDCode:      p.USSDCode,
		FailureReason: p.FailureReason,
		PaidAt:        p.PaidAt,
		CreatedAt:     p.CreatedAt,
	}
}

func (h *handlers) initiate(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p, err := h.uc.Initiate(r.Context(), userID, req.ProductID, req.ForfaitID, req.PhoneNumber, model.PaymentMethod(req.PaymentMethod))
	if err != nil {
		// A gateway refusal still produced a FAILED payment row worth returning.
		if p != nil && (errors.Is(err, domain.ErrGatewayUnavailable) || errors.Is(err, domain.ErrGatewayRejected)) {
			writeJSON(w, http.StatusBadGateway, toPaymentResponse(p))
			return
		}
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResponse(p))
}

func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	view, err := h.uc.CheckStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if view.UserID != userID {
		// Do not leak whether someone else's payment exists.
		writeError(w, http.StatusNotFound, "payment not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            string(view.Status),
		"paid_at":           view.PaidAt,
		"forfait_activated": view.ForfaitActivated,
	})
}

func (h *handlers) listMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())
	page := intQuery(r, "page", 1)
	limit := intQuery(r, "limit", 20)
	items, total, err := h.uc.ListUserPayments(r.Context(), userID, page, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	out := make([]paymentResponse, 0, len(items))
	for _, p := range items {
		out = append(out, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payments": out,
		"total":    total,
		"page":     page,
		"limit":    limit,
	})
}

type webhookRequest struct {
	ExternalReference string `json:"external_reference"`
}

// webhook accepts the gateway callback in either form it sends: a JSON body or
// query parameters. The named payment is then re-verified against the gateway.
func (h *handlers) webhook(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("external_reference")
	if ref == "" && r.Body != nil {
		var req webhookRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			ref = req.ExternalReference
		}
	}
	if ref == "" {
		writeError(w, http.StatusBadRequest, "missing external_reference")
		return
	}
	if err := h.uc.HandleGatewayWebhook(r.Context(), ref); err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			writeError(w, http.StatusNotFound, "unknown external_reference")
			return
		}
		// Transient verification failure: non-2xx so the gateway retries, and
		// the reconciliation loop covers it regardless.
		h.log.Error().Err(err).Str("external_reference", ref).Msg("webhook verification failed")
		writeError(w, http.StatusInternalServerError, "verification failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

// ===== Helpers =====

func (h *handlers) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrForfaitNotFound), errors.Is(err, domain.ErrPaymentNotFound), errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrInvalidMethod),
		errors.Is(err, domain.ErrInvalidPhone), errors.Is(err, domain.ErrPriceTooLow):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrGatewayUnavailable), errors.Is(err, domain.ErrGatewayRejected):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		h.log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func intQuery(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
