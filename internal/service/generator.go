package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/streamgate/access-server-go/internal/audit"
	"github.com/streamgate/access-server-go/internal/config"
	apperrors "github.com/streamgate/access-server-go/internal/errors"
	"github.com/streamgate/access-server-go/internal/model"
	"github.com/streamgate/access-server-go/internal/repository"
	"github.com/streamgate/access-server-go/internal/util"
)

// codeChars is the 36-symbol uppercase alphanumeric alphabet.
const codeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const maxCollisionAttempts = 10

// GenerateParams are the operator-supplied knobs for a new code.
type GenerateParams struct {
	DurationMinutes int
	Prefix          string
	AutoExpireOnUse bool
	MaxUses         *int
}

// GeneratorService issues new access codes.
type GeneratorService struct {
	codeRepo repository.AccessCodeRepository
	recorder audit.Recorder
	caps     repository.Capabilities
}

// NewGeneratorService creates a new generator service
func NewGeneratorService(
	codeRepo repository.AccessCodeRepository,
	recorder audit.Recorder,
	caps repository.Capabilities,
) *GeneratorService {
	return &GeneratorService{
		codeRepo: codeRepo,
		recorder: recorder,
		caps:     caps,
	}
}

// Generate issues a new unique code. The prefix, if given, is
// sanitized and used verbatim as the leading characters; the rest is
// drawn from a cryptographically secure source. The code is only
// considered issued once the store confirms the insert.
func (s *GeneratorService) Generate(ctx context.Context, params GenerateParams) (*model.AccessCode, error) {
	if params.DurationMinutes <= 0 {
		return nil, apperrors.InvalidInput("duration", "must be greater than zero minutes")
	}
	if params.MaxUses != nil && *params.MaxUses < 1 {
		return nil, apperrors.InvalidInput("maxUses", "must be at least 1")
	}
	if params.MaxUses != nil && !s.caps.SupportsUsageCap {
		return nil, apperrors.ValidationError("usage caps are not supported by this store (legacy mode)")
	}

	prefix := SanitizePrefix(params.Prefix)
	if params.Prefix != "" && prefix == "" {
		return nil, apperrors.InvalidInput("prefix", "must contain at least one alphanumeric character")
	}

	var code string
	for attempts := 0; attempts < maxCollisionAttempts; attempts++ {
		random, err := randomCode(config.CodeLength - len(prefix))
		if err != nil {
			return nil, apperrors.Internal("failed to generate code").WithCause(err)
		}
		code = prefix + random
		existing, err := s.codeRepo.FindByCode(ctx, code)
		if err != nil {
			return nil, apperrors.Database(err)
		}
		if existing == nil {
			break
		}
	}

	var prefixPtr *string
	if prefix != "" {
		prefixPtr = &prefix
	}

	ac, err := s.codeRepo.Create(ctx, model.CreateAccessCodeParams{
		Code:            code,
		ExpiresAt:       time.Now().Add(time.Duration(params.DurationMinutes) * time.Minute),
		Prefix:          prefixPtr,
		AutoExpireOnUse: params.AutoExpireOnUse,
		MaxUses:         params.MaxUses,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	s.recorder.Record(ctx, model.ActionGenerated, ac.Code, s.policyDetails(params, prefix), nil)

	log.Info().
		Str("code", util.MaskCode(ac.Code)).
		Str("prefix", prefix).
		Time("expiresAt", ac.ExpiresAt).
		Msg("access code created")

	return ac, nil
}

// policyDetails builds the operator-visible description of the policy
// a code was issued with.
func (s *GeneratorService) policyDetails(params GenerateParams, prefix string) string {
	var parts []string
	switch {
	case params.MaxUses != nil:
		parts = append(parts, fmt.Sprintf("max uses %d", *params.MaxUses))
	case params.AutoExpireOnUse:
		parts = append(parts, "one-time")
	default:
		parts = append(parts, "reusable")
	}
	if prefix != "" {
		parts = append(parts, "prefix "+prefix)
	}
	parts = append(parts, fmt.Sprintf("valid %d minutes", params.DurationMinutes))
	if !s.caps.SupportsUsageCap {
		parts = append(parts, "legacy mode")
	}
	return strings.Join(parts, ", ")
}

// SanitizePrefix uppercases the prefix, strips anything outside the
// code alphabet and truncates it to the maximum prefix length.
func SanitizePrefix(prefix string) string {
	upper := strings.ToUpper(strings.TrimSpace(prefix))
	var b strings.Builder
	for _, ch := range upper {
		if (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') {
			b.WriteRune(ch)
		}
		if b.Len() == config.MaxPrefixLength {
			break
		}
	}
	return b.String()
}

// randomCode draws n characters independently from the code alphabet
// using crypto/rand.
func randomCode(n int) (string, error) {
	chars := []byte(codeChars)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", err
		}
		out[i] = chars[idx.Int64()]
	}
	return string(out), nil
}
