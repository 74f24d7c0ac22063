package server

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Amund-Fremming/tero.platform/internal/db/models"
	"github.com/Amund-Fremming/tero.platform/internal/services/syslog"
)

// PurgeInterval is how often inactive games are removed.
const PurgeInterval = 24 * time.Hour

// GamePurger is the slice of the game repository the purge job needs.
type GamePurger interface {
	PurgeInactive(ctx context.Context, before time.Time) (int, error)
}

// PurgeJob deletes games nobody has played within the retention window.
type PurgeJob struct {
	games     GamePurger
	retention time.Duration
	audit     *syslog.Logger
	log       logrus.FieldLogger
	now       func() time.Time
}

// NewPurgeJob creates a purge job keeping games played in the last
// retentionDays days.
func NewPurgeJob(games GamePurger, retentionDays int, audit *syslog.Logger, log logrus.FieldLogger) *PurgeJob {
	return &PurgeJob{
		games:     games,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		audit:     audit,
		log:       log.WithField("component", "purge_job"),
		now:       time.Now,
	}
}

// RunOnce purges once. Failures are audited and returned.
func (j *PurgeJob) RunOnce(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.retention)
	n, err := j.games.PurgeInactive(ctx, cutoff)
	if err != nil {
		j.audit.Entry().
			Action(models.ActionDelete).
			Severity(models.SeverityWarning).
			Function("purge_inactive_games").
			Description("failed to purge inactive games").
			Metadata(map[string]any{"error": err.Error(), "cutoff": cutoff.UTC().Format(time.RFC3339)}).
			Dispatch()
		return 0, fmt.Errorf("purge inactive games: %w", err)
	}
	j.log.WithField("deleted", n).WithField("cutoff", cutoff.UTC()).Info("inactive games purged")
	return n, nil
}

// Run purges on every tick until ctx is done.
func (j *PurgeJob) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := j.RunOnce(ctx); err != nil {
				j.log.WithError(err).Error("background purge failed")
			}
		case <-ctx.Done():
			j.log.Info("stopping purge job")
			return
		}
	}
}
