package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/streamgate/access-server-go/internal/config"
	apperrors "github.com/streamgate/access-server-go/internal/errors"
	"github.com/streamgate/access-server-go/internal/httputil"
	"github.com/streamgate/access-server-go/internal/service"
)

// RateLimiter is the slice of the limiter the handler needs.
type RateLimiter interface {
	CheckLimit(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, resetAt time.Time)
}

// AccessCodeHandler exposes the generator and validator over HTTP.
// Everything except redemption sits behind the admin token.
type AccessCodeHandler struct {
	generator       *service.GeneratorService
	validator       *service.ValidatorService
	limiter         RateLimiter
	adminMiddleware func(http.Handler) http.Handler
}

func NewAccessCodeHandler(
	generator *service.GeneratorService,
	validator *service.ValidatorService,
	limiter RateLimiter,
	adminMiddleware func(http.Handler) http.Handler,
) *AccessCodeHandler {
	return &AccessCodeHandler{
		generator:       generator,
		validator:       validator,
		limiter:         limiter,
		adminMiddleware: adminMiddleware,
	}
}

func (h *AccessCodeHandler) Routes() chi.Router {
	r := chi.NewRouter()

	// Public redemption path, rate limited per IP.
	r.Post("/validate", h.Validate)

	r.Group(func(r chi.Router) {
		r.Use(h.adminMiddleware)
		r.Post("/", h.Generate)
		r.Get("/", h.ListActive)
		r.Get("/logs", h.ListLogs)
		r.Post("/sweep", h.Sweep)
		r.Post("/{code}/revoke", h.Revoke)
	})

	return r
}

type generateRequest struct {
	Duration   int    `json:"duration"`
	Prefix     string `json:"prefix"`
	AutoExpire *bool  `json:"autoExpire"`
	MaxUses    *int   `json:"maxUses"`
}

func (h *AccessCodeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("body", "malformed JSON"))
		return
	}

	allowed, resetAt := h.limiter.CheckLimit(
		r.Context(), "generate:"+clientIP(r),
		config.GenerateLimitPerCaller, config.GenerateLimitWindow,
	)
	if !allowed {
		httputil.WriteError(w, apperrors.RateLimitExceeded().WithDetails(map[string]any{
			"resetAt": resetAt.Format(time.RFC3339),
		}))
		return
	}

	autoExpire := true
	if req.AutoExpire != nil {
		autoExpire = *req.AutoExpire
	}

	ac, err := h.generator.Generate(r.Context(), service.GenerateParams{
		DurationMinutes: req.Duration,
		Prefix:          req.Prefix,
		AutoExpireOnUse: autoExpire,
		MaxUses:         req.MaxUses,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, formatAccessCode(*ac))
}

type validateRequest struct {
	Code string `json:"code"`
}

func (h *AccessCodeHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		httputil.WriteError(w, apperrors.MissingRequired("code"))
		return
	}

	ip := clientIP(r)
	allowed, resetAt := h.limiter.CheckLimit(
		r.Context(), "validate:"+ip,
		config.ValidateLimitPerIP, config.ValidateLimitWindow,
	)
	if !allowed {
		httputil.WriteError(w, apperrors.RateLimitExceeded().WithDetails(map[string]any{
			"resetAt": resetAt.Format(time.RFC3339),
		}))
		return
	}

	result, err := h.validator.Validate(r.Context(), req.Code, ip)
	if err != nil {
		// Store faults must not read as rejections: the caller gets a
		// 500, not {valid: false}.
		log.Error().Err(err).Msg("validation failed with store error")
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *AccessCodeHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		httputil.WriteError(w, apperrors.MissingRequired("code"))
		return
	}

	if err := h.validator.Revoke(r.Context(), code); err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AccessCodeHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	codes, err := h.validator.ListActive(r.Context(), config.MaxLogListLimit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	formatted := make([]map[string]any, 0, len(codes))
	for _, ac := range codes {
		formatted = append(formatted, formatAccessCode(ac))
	}
	writeJSON(w, http.StatusOK, map[string]any{"codes": formatted})
}

func (h *AccessCodeHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	limit := config.DefaultLogListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httputil.WriteError(w, apperrors.InvalidInput("limit", "must be a positive integer"))
			return
		}
		limit = min(parsed, config.MaxLogListLimit)
	}

	logs, err := h.validator.RecentLogs(r.Context(), limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (h *AccessCodeHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	count, err := h.validator.Sweep(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"swept": count})
}
