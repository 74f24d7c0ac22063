package server

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Amund-Fremming/tero.platform/internal/db/models"
)

const healthCheckTimeout = 5 * time.Second

type healthReport struct {
	Platform bool `json:"platform"`
	Database bool `json:"database"`
	Session  bool `json:"session"`
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, "OK")
}

// healthDetailed probes the database and the game-session service in parallel.
func (h *handlers) healthDetailed(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	report := healthReport{Platform: true}
	var g errgroup.Group
	g.Go(func() error {
		if h.DBHealth != nil {
			report.Database = h.DBHealth(ctx)
		}
		return nil
	})
	g.Go(func() error {
		if h.Sessions != nil {
			report.Session = h.Sessions.Health(ctx)
		}
		return nil
	})
	_ = g.Wait()

	if !report.Session {
		h.Audit.Entry().
			Action(models.ActionRead).
			Severity(models.SeverityCritical).
			Function("health_check").
			Description("game session service failed its health check").
			Dispatch()
	}
	writeJSON(w, http.StatusOK, report)
}
