package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// Capabilities describes which optional schema features the connected
// store provides. Resolved once at startup and injected into the
// services, instead of sniffing error strings on every call.
type Capabilities struct {
	SupportsUsageCap bool
}

// DetectCapabilities probes the schema for the optional usage-cap
// columns on access_codes.
func DetectCapabilities(ctx context.Context, db *sqlx.DB) (Capabilities, error) {
	var count int
	err := db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM information_schema.columns
		WHERE table_name = 'access_codes'
		  AND column_name IN ('max_uses', 'current_uses')
	`)
	if err != nil {
		return Capabilities{}, err
	}

	caps := Capabilities{SupportsUsageCap: count == 2}
	if !caps.SupportsUsageCap {
		log.Warn().Msg("store does not expose usage-cap columns: running in legacy mode, codes default to one-time use")
	}
	return caps, nil
}
