package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper deletes expired refresh records on a fixed interval. Lookups never
// depend on it: FindLive already ignores expired records.
type Sweeper struct {
	log      *zap.Logger
	creds    *Credentials
	interval time.Duration
}

func NewSweeper(log *zap.Logger, creds *Credentials, interval time.Duration) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{log: log.With(zap.String("component", "session.sweeper")), creds: creds, interval: interval}
}

func (s *Sweeper) Run(ctx context.Context) {
	s.log.Info("sweeper started", zap.Duration("interval", s.interval))
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return
		case <-t.C:
			s.SweepOnce(ctx)
		}
	}
}

func (s *Sweeper) SweepOnce(ctx context.Context) int64 {
	n, err := s.creds.DeleteExpired(ctx)
	if err != nil {
		s.log.Error("sweep expired refresh tokens", zap.Error(err))
		return 0
	}
	if n > 0 {
		mSweptTokens.Add(float64(n))
		s.log.Debug("expired refresh tokens removed", zap.Int64("count", n))
	}
	return n
}
