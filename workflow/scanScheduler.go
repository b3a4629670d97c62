package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/vendaops/salesops_backend/config"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// GhostScanScheduler runs the detection scan on a fixed interval. The Redis
// lock is a best-effort optimization so replicas don't all do the same work;
// correctness never depends on it — the persister's dedup key already makes
// concurrent scans safe.
type GhostScanScheduler struct {
	DB       *gorm.DB
	Logger   *logrus.Logger
	Interval time.Duration
	LockTTL  time.Duration
}

func NewGhostScanScheduler(db *gorm.DB, logger *logrus.Logger) *GhostScanScheduler {
	return &GhostScanScheduler{
		DB:       db,
		Logger:   logger,
		Interval: config.GhostScanInterval(),
		LockTTL:  15 * time.Minute,
	}
}

func (s *GhostScanScheduler) Run(ctx context.Context) {
	if s == nil || s.DB == nil || s.Interval <= 0 {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		s.scanOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.Interval):
		}
	}
}

func (s *GhostScanScheduler) scanOnce(ctx context.Context) {
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "ghost-scan-scheduled", s.LockTTL, nil)
		if err != nil {
			if errors.Is(err, redislock.ErrNotObtained) {
				// Another replica is already scanning.
				return
			}
			config.LogError(s.Logger, "workflow/scanScheduler.go", "scanOnce", "obtain lock", nil, err)
		} else {
			defer func() { _ = lock.Release(ctx) }()
		}
	}

	scanner := NewGhostScanner(s.DB, s.Logger)
	if _, err := scanner.Run(ctx, GhostScanOptions{CreateAlerts: true}); err != nil {
		config.LogError(s.Logger, "workflow/scanScheduler.go", "scanOnce", "run scan", nil, err)
	}
}
