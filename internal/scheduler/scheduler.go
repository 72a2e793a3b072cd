package scheduler

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"caseflow/internal/config"
	"caseflow/internal/models"
)

// Scheduler runs the periodic warrant expiry sweep. An active warrant whose
// expiry has passed flips to expired; the suspect itself stays wanted and a
// new warrant has to be issued before the next arrest.
type Scheduler struct {
	db       *sqlx.DB
	cfg      config.SchedulerConfig
	logger   *zap.Logger
	shutdown chan struct{}
	done     chan struct{}
}

// New creates the scheduler.
func New(db *sqlx.DB, cfg config.SchedulerConfig, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		db:       db,
		cfg:      cfg,
		logger:   logger.Named("scheduler"),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		close(s.done)
		return
	}
	s.logger.Info("Starting scheduler",
		zap.Duration("warrant_sweep_interval", s.cfg.WarrantSweepInterval))

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.cfg.WarrantSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.shutdown:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.SweepExpiredWarrants(ctx); err != nil {
					s.logger.Error("warrant sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// Stop halts the sweep loop and waits for it to exit.
func (s *Scheduler) Stop() {
	close(s.shutdown)
	<-s.done
	s.logger.Info("Scheduler stopped")
}

// SweepExpiredWarrants expires every active warrant whose expiry time has
// passed. The sweep is idempotent; a warrant is only ever expired once.
func (s *Scheduler) SweepExpiredWarrants(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE warrants
		SET status = $1
		WHERE status = $2 AND expires_at IS NOT NULL AND expires_at < now()`,
		models.WarrantExpired, models.WarrantActive)
	if err != nil {
		return errors.Wrap(err, "failed to expire warrants")
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		s.logger.Info("expired warrants", zap.Int64("count", n))
	}
	return nil
}
