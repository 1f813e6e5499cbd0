package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

// CronRunner fires Job.Run on Config.CronSpec, scoring every route against
// the current date each time it wakes up.
type CronRunner struct {
	job    *Job
	cron   *cron.Cron
	filter riskmodel.RouteFilter
	logger zerolog.Logger
}

// NewCronRunner builds a CronRunner on a standard 5-field cron schedule
// (minute hour day month weekday, no seconds field), matching the
// convention the spec's fixed nightly trigger and robfig/cron/v3's default
// parser both use.
func NewCronRunner(job *Job, spec string, filter riskmodel.RouteFilter, logger zerolog.Logger) (*CronRunner, error) {
	c := cron.New()
	r := &CronRunner{job: job, cron: c, filter: filter, logger: logger}

	if _, err := c.AddFunc(spec, r.runNow); err != nil {
		return nil, err
	}
	return r, nil
}

// Start begins the cron scheduler in the background. It returns
// immediately; call Stop to halt it.
func (r *CronRunner) Start() {
	r.logger.Info().Msg("scheduler: cron runner started")
	r.cron.Start()
}

// Stop halts the cron scheduler, waiting for any in-flight run to finish.
func (r *CronRunner) Stop(ctx context.Context) {
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
}

func (r *CronRunner) runNow() {
	r.job.Run(context.Background(), time.Now(), r.filter)
}
