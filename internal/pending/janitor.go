package pending

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Janitor periodically removes staged replies that were never confirmed or
// cancelled, so abandoned drafts do not accumulate across operator shifts.
type Janitor struct {
	service *Service
	maxAge  time.Duration
	cron    *cron.Cron
	logger  *slog.Logger
}

// NewJanitor creates a Janitor sweeping replies older than maxAge. A zero or
// negative maxAge disables the sweep.
func NewJanitor(log *slog.Logger, service *Service, maxAge time.Duration) *Janitor {
	if log == nil {
		log = slog.Default()
	}
	return &Janitor{
		service: service,
		maxAge:  maxAge,
		cron:    cron.New(),
		logger:  log.With(slog.String("service", "pending_janitor")),
	}
}

// Start schedules the hourly sweep. No-op when the sweep is disabled.
func (j *Janitor) Start() error {
	if j.maxAge <= 0 {
		j.logger.Info("pending reply sweep disabled")
		return nil
	}
	_, err := j.cron.AddFunc("@hourly", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := j.service.SweepOlderThan(ctx, j.maxAge); err != nil {
			j.logger.Warn("sweep failed", slog.Any("error", err))
		}
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop halts the sweep schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}
