package handler

import (
	"net"
	"net/http"
	"time"

	"github.com/streamgate/access-server-go/internal/httputil"
	"github.com/streamgate/access-server-go/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func formatAccessCode(ac model.AccessCode) map[string]any {
	return map[string]any{
		"code":        ac.Code,
		"createdAt":   ac.CreatedAt.Format(time.RFC3339),
		"expiresAt":   ac.ExpiresAt.Format(time.RFC3339),
		"isActive":    ac.IsActive,
		"usedAt":      formatTime(ac.UsedAt),
		"usedBy":      ac.UsedBy,
		"currentUses": ac.CurrentUses,
		"maxUses":     ac.MaxUses,
		"policy":      ac.Policy(),
	}
}

// clientIP relies on the RealIP middleware having rewritten RemoteAddr
// from the forwarding headers; the port is stripped when present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
