package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/sprintsight/sprintsight/internal/config"
	"github.com/sprintsight/sprintsight/internal/domain"
	"github.com/sprintsight/sprintsight/internal/services"
)

type refresher interface {
	Refresh(ctx context.Context) (services.IngestSummary, error)
}

// Cron periodically re-fetches the tracker dataset. Runs before anyone
// has connected are a no-op.
type Cron struct {
	cfg config.Config
	log zerolog.Logger
	svc refresher
	c   *cron.Cron
}

func NewCron(cfg config.Config, log zerolog.Logger, svc refresher) *Cron {
	loc, _ := time.LoadLocation(cfg.TZ)
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	cr := &Cron{cfg: cfg, log: log, svc: svc, c: c}
	if cfg.RefreshCron != "" {
		_, _ = c.AddFunc(cfg.RefreshCron, cr.refresh)
	}
	return cr
}

func (cr *Cron) Start() { cr.c.Start() }
func (cr *Cron) Stop()  { cr.c.Stop() }

func (cr *Cron) refresh() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	sum, err := cr.svc.Refresh(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotConnected) {
			cr.log.Debug().Msg("cron: no tracker connection yet; skipping refresh")
			return
		}
		cr.log.Error().Err(err).Msg("cron: refresh failed")
		return
	}
	cr.log.Info().Int("issues", sum.TotalIssues).Int("sprints", sum.TotalSprints).Msg("cron: dataset refreshed")
}
