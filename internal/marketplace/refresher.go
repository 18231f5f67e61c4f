package marketplace

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher reloads listings and balance on a cron schedule.
type Refresher struct {
	app    *Marketplace
	logger *zap.Logger
	cron   *cron.Cron
}

// NewRefresher schedules background refreshes. Runs are skipped while no
// wallet is connected and never touch the notification channel.
func NewRefresher(app *Marketplace, spec string, logger *zap.Logger) (*Refresher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Refresher{
		app:    app,
		logger: logger,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
	if _, err := r.cron.AddFunc(spec, func() { r.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("refresh schedule %q: %w", spec, err)
	}
	return r, nil
}

func (r *Refresher) Start() {
	r.logger.Info("refresher started")
	r.cron.Start()
}

// Stop waits for a running refresh to finish or ctx to expire.
func (r *Refresher) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	r.logger.Info("refresher stopped")
}

// RunOnce performs one refresh and reports whether it ran.
func (r *Refresher) RunOnce(ctx context.Context) bool {
	if !r.app.Connected() {
		return false
	}
	if err := r.app.RefreshListings(ctx); err != nil {
		r.logger.Warn("scheduled listing refresh failed", zap.Error(err))
		return true
	}
	if err := r.app.RefreshBalance(ctx); err != nil {
		r.logger.Warn("scheduled balance refresh failed", zap.Error(err))
	}
	return true
}
