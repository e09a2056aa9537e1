package audit

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/streamgate/access-server-go/internal/model"
	"github.com/streamgate/access-server-go/internal/repository"
	"github.com/streamgate/access-server-go/internal/util"
)

// Recorder writes the append-only usage trail. Writes are best-effort:
// a failed audit write must never block or reverse the decision it
// describes, so failures are logged for operators and swallowed.
type Recorder interface {
	Record(ctx context.Context, action model.UsageAction, code, details string, ip *string)
}

type recorder struct {
	logRepo repository.UsageLogRepository
}

// NewRecorder creates a recorder backed by the usage log store.
func NewRecorder(logRepo repository.UsageLogRepository) Recorder {
	return &recorder{logRepo: logRepo}
}

func (r *recorder) Record(ctx context.Context, action model.UsageAction, code, details string, ip *string) {
	event := log.Info().
		Str("audit", "usage").
		Str("action", string(action)).
		Str("code", util.MaskCode(code)).
		Str("details", details)
	if ip != nil {
		event = event.Str("ip", *ip)
	}
	event.Msg("usage audit event")

	err := r.logRepo.Append(ctx, model.AppendUsageLogParams{
		Code:    code,
		Action:  action,
		Details: details,
		IP:      ip,
	})
	if err != nil {
		log.Error().Err(err).
			Str("action", string(action)).
			Str("code", util.MaskCode(code)).
			Msg("failed to append usage log entry")
	}
}
