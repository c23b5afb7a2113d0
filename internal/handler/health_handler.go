package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/fitlog/internal/repository"
)

// healthCheckTimeout はヘルスチェック時のストレージ疎通確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

// HealthCheck は/healthで疎通を確認する依存先。
type HealthCheck struct {
	Name   string
	Pinger repository.Pinger
}

// NewHealthHandler は全依存先への疎通を順に確認するヘルスチェックハンドラーを返す。
// GET /health
// 1つでも失敗した場合は503と失敗した依存先の名前を返す。
func NewHealthHandler(checks ...HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		for _, c := range checks {
			if c.Pinger == nil {
				continue
			}
			if err := c.Pinger.Ping(ctx); err != nil {
				slog.Error("health check failed",
					slog.String("component", c.Name),
					slog.String("error", err.Error()),
				)
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status":    "unavailable",
					"component": c.Name,
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
