package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/streamgate/access-server-go/internal/audit"
	apperrors "github.com/streamgate/access-server-go/internal/errors"
	"github.com/streamgate/access-server-go/internal/model"
	"github.com/streamgate/access-server-go/internal/repository"
	"github.com/streamgate/access-server-go/internal/util"
)

// Rejection reasons returned to redeemers. Deliberately coarse:
// a code that was never issued and a malformed string both read
// "invalid code", and a revoked-but-unused code reads "expired".
const (
	ReasonInvalidCode = "invalid code"
	ReasonAlreadyUsed = "already used"
	ReasonExpired     = "expired"
)

const unknownRequester = "unknown"

// ValidationResult is the outcome of one redemption attempt. A false
// Valid with a reason is an expected rejection; store faults surface
// as errors from Validate instead.
type ValidationResult struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message"`
}

// ValidatorService applies the redemption decision procedure and owns
// the deactivation lifecycle (revocation and the expiration sweep).
type ValidatorService struct {
	codeRepo repository.AccessCodeRepository
	logRepo  repository.UsageLogRepository
	recorder audit.Recorder
	caps     repository.Capabilities
}

// NewValidatorService creates a new validator service
func NewValidatorService(
	codeRepo repository.AccessCodeRepository,
	logRepo repository.UsageLogRepository,
	recorder audit.Recorder,
	caps repository.Capabilities,
) *ValidatorService {
	return &ValidatorService{
		codeRepo: codeRepo,
		logRepo:  logRepo,
		recorder: recorder,
		caps:     caps,
	}
}

// Validate decides whether a code grants access and records the use.
//
// The checks run in a fixed order: existence, active flag, usage cap,
// legacy reuse, expiration, then acceptance with write-back. The order
// is load-bearing: an exhausted code that has also expired reports
// "already used", while an expired unused code reports "expired".
func (s *ValidatorService) Validate(ctx context.Context, code, requesterID string) (ValidationResult, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	rec, err := s.codeRepo.FindByCode(ctx, normalized)
	if err != nil {
		return ValidationResult{}, apperrors.Database(err)
	}
	if rec == nil {
		log.Warn().Str("code", util.MaskCode(normalized)).Msg("unknown access code presented")
		return reject(ReasonInvalidCode), nil
	}

	if !rec.IsActive {
		if rec.UsedAt != nil {
			return reject(ReasonAlreadyUsed), nil
		}
		// Revoked-without-use and previously-expired both read "expired".
		return reject(ReasonExpired), nil
	}

	if s.caps.SupportsUsageCap && rec.Exhausted() {
		return reject(ReasonAlreadyUsed), nil
	}

	if !s.caps.SupportsUsageCap && rec.UsedAt != nil && rec.Policy().Kind != model.PolicyReusable {
		return reject(ReasonAlreadyUsed), nil
	}

	now := time.Now()
	requesterIP := requesterPtr(requesterID)

	if rec.IsExpired(now) {
		if _, err := s.codeRepo.Deactivate(ctx, normalized); err != nil {
			log.Error().Err(err).Str("code", util.MaskCode(normalized)).Msg("failed to deactivate expired code")
		}
		s.recorder.Record(ctx, model.ActionExpired, normalized, "detected expired at validation", requesterIP)
		return reject(ReasonExpired), nil
	}

	requester := requesterID
	if requester == "" {
		requester = unknownRequester
	}

	if s.caps.SupportsUsageCap {
		updated, err := s.codeRepo.ConsumeUse(ctx, normalized, requester, now)
		if err != nil {
			return ValidationResult{}, apperrors.Database(err)
		}
		if updated == nil {
			// Another redemption won the last allowed use between our
			// read and the conditional update.
			return reject(ReasonAlreadyUsed), nil
		}

		s.recorder.Record(ctx, model.ActionUsed, normalized, useDetails(updated), requesterIP)
		log.Info().
			Str("code", util.MaskCode(normalized)).
			Int("currentUses", updated.CurrentUses).
			Bool("deactivated", !updated.IsActive).
			Msg("access code redeemed")
		return accept(), nil
	}

	// Legacy store: no usage counters, the deactivation decision comes
	// from the reuse policy alone.
	deactivate := rec.Policy().Kind != model.PolicyReusable
	if err := s.codeRepo.MarkUsed(ctx, normalized, requester, deactivate, now); err != nil {
		return ValidationResult{}, apperrors.Database(err)
	}

	details := "used, reusable"
	if deactivate {
		details = "used, deactivated (one-time)"
	}
	s.recorder.Record(ctx, model.ActionUsed, normalized, details+", legacy mode", requesterIP)
	log.Info().
		Str("code", util.MaskCode(normalized)).
		Bool("deactivated", deactivate).
		Msg("access code redeemed (legacy mode)")
	return accept(), nil
}

// Revoke unconditionally deactivates a code. Revoking an already
// inactive code is a store no-op but still appends an audit entry.
func (s *ValidatorService) Revoke(ctx context.Context, code string) error {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	existed, err := s.codeRepo.Deactivate(ctx, normalized)
	if err != nil {
		return apperrors.Database(err)
	}
	if !existed {
		return apperrors.NotFound("access code")
	}

	s.recorder.Record(ctx, model.ActionRevoked, normalized, "revoked by operator", nil)
	log.Info().Str("code", util.MaskCode(normalized)).Msg("access code revoked")
	return nil
}

// Sweep deactivates every active code whose expiry has passed and
// returns how many were swept. Safe to run concurrently with
// validation: a racing redemption observes the cleared active flag and
// rejects.
func (s *ValidatorService) Sweep(ctx context.Context) (int64, error) {
	codes, err := s.codeRepo.ExpireActive(ctx, time.Now())
	if err != nil {
		return 0, apperrors.Database(err)
	}

	for _, code := range codes {
		s.recorder.Record(ctx, model.ActionExpired, code, "expired by sweep", nil)
	}
	if len(codes) > 0 {
		log.Info().Int("count", len(codes)).Msg("expired access codes swept")
	}
	return int64(len(codes)), nil
}

// ListActive returns active codes for the admin view.
func (s *ValidatorService) ListActive(ctx context.Context, limit int) ([]model.AccessCode, error) {
	codes, err := s.codeRepo.FindActive(ctx, limit)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return codes, nil
}

// RecentLogs returns the newest audit entries for the admin view.
func (s *ValidatorService) RecentLogs(ctx context.Context, limit int) ([]model.UsageLog, error) {
	logs, err := s.logRepo.FindRecent(ctx, limit)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return logs, nil
}

func useDetails(ac *model.AccessCode) string {
	if ac.MaxUses != nil {
		if !ac.IsActive {
			return fmt.Sprintf("use %d of %d, cap reached", ac.CurrentUses, *ac.MaxUses)
		}
		return fmt.Sprintf("use %d of %d", ac.CurrentUses, *ac.MaxUses)
	}
	if !ac.IsActive {
		return "used, deactivated (one-time)"
	}
	return "used, reusable"
}

func requesterPtr(requesterID string) *string {
	if requesterID == "" {
		return nil
	}
	return &requesterID
}

func reject(reason string) ValidationResult {
	return ValidationResult{Valid: false, Message: reason}
}

func accept() ValidationResult {
	return ValidationResult{Valid: true, Message: "code accepted"}
}
