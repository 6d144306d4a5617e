package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	config "github.com/ujjwal-capsitech/GritsaFlow/internal/config/api"
	domainauth "github.com/ujjwal-capsitech/GritsaFlow/internal/domain/auth"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/user"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/obs"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/repository/cache"
	mg "github.com/ujjwal-capsitech/GritsaFlow/internal/repository/mongo"
	pg "github.com/ujjwal-capsitech/GritsaFlow/internal/repository/postgres"
)

type store struct {
	users  user.Repo
	tokens domainauth.RefreshTokenRepo
	ready  obs.HealthFunc
	// sweep is set for backends without native expiry.
	sweep bool
	close func()
}

func initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*store, error) {
	var st *store
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := pg.New(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		st = &store{
			users:  pg.NewUserRepo(db),
			tokens: pg.NewRefreshTokenRepo(db),
			ready:  db.Ping,
			sweep:  true,
			close:  db.Close,
		}
	case config.DriverMongo:
		db, err := mg.New(ctx, cfg.Mongo)
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		st = &store{
			users:  mg.NewUserRepo(db),
			tokens: mg.NewRefreshTokenRepo(db),
			ready:  db.Ping,
			close: func() {
				cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = db.Close(cctx)
			},
		}
	default:
		return nil, config.ErrConfig("unknown store.driver " + cfg.Store.Driver)
	}
	logger.Info("store connected", zap.String("driver", cfg.Store.Driver))

	if cfg.Cache.Enable {
		cached, err := cache.NewUserRepo(st.users, cfg.Cache.AsCacheConfig())
		if err != nil {
			st.close()
			return nil, fmt.Errorf("user cache: %w", err)
		}
		closeStore := st.close
		st.users = cached
		st.close = func() { cached.Close(); closeStore() }
	}
	return st, nil
}
