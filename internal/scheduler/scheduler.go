package scheduler

import (
	"context"
	"errors"
	"time"

	boostdomain "github.com/smallbiznis/entitle/internal/boost/domain"
	"github.com/smallbiznis/entitle/internal/clock"
	"github.com/smallbiznis/entitle/internal/config"
	obsmetrics "github.com/smallbiznis/entitle/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Config    config.Config
	Clock     clock.Clock
	BoostRepo boostdomain.Repository
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

// Scheduler runs the boost expiry sweep on a fixed interval. The sweep is
// advisory hygiene: readers already exclude expired boosts at query time, so
// a delayed or skipped run never changes entitlement outcomes.
type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	interval  time.Duration
	batchSize int
	clock     clock.Clock
	boostRepo boostdomain.Repository
	metrics   *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.BoostRepo == nil {
		return nil, ErrInvalidConfig
	}
	interval := p.Config.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	batchSize := p.Config.SweepBatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		interval:  interval,
		batchSize: batchSize,
		clock:     p.Clock,
		boostRepo: p.BoostRepo,
		metrics:   p.Metrics,
	}, nil
}

// RunOnce sweeps one pass of expired boosts. Repeats until a batch comes back
// short so a backlog larger than the batch size still drains in a single run.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.clock.Now()
	var total int64
	for {
		cancelled, err := s.boostRepo.CancelExpired(ctx, s.db, now, s.batchSize)
		if err != nil {
			return err
		}
		total += cancelled
		if cancelled < int64(s.batchSize) {
			break
		}
	}
	if total > 0 {
		s.metrics.AddSweepCancelled(float64(total))
		s.log.Info("expired boosts cancelled", zap.Int64("count", total))
	}
	return nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			s.log.Warn("boost sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
