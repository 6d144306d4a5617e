package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/domain/user"
)

var _ user.Repo = (*UserRepo)(nil)

type Config struct {
	TTL         time.Duration `mapstructure:"ttl"`
	NumCounters int64         `mapstructure:"num_counters"`
	MaxCost     int64         `mapstructure:"max_cost"`
}

// UserRepo fronts a directory with a short-lived GetByID cache. Username
// lookups (login) always hit the backing store.
type UserRepo struct {
	next user.Repo
	byID *ristretto.Cache[string, user.User]
	ttl  time.Duration
}

func NewUserRepo(next user.Repo, cfg Config) (*UserRepo, error) {
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = 10_000
	}
	if cfg.MaxCost <= 0 {
		cfg.MaxCost = 1_000
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, user.User]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("init user cache: %w", err)
	}
	return &UserRepo{next: next, byID: c, ttl: cfg.TTL}, nil
}

func (r *UserRepo) Create(ctx context.Context, u *user.User) error {
	if err := r.next.Create(ctx, u); err != nil {
		return err
	}
	r.byID.Del(u.ID)
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*user.User, error) {
	if u, ok := r.byID.Get(id); ok {
		return &u, nil
	}
	u, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.ttl > 0 {
		r.byID.SetWithTTL(id, *u, 1, r.ttl)
		r.byID.Wait()
	}
	return u, nil
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	return r.next.GetByUsername(ctx, username)
}

func (r *UserRepo) Close() { r.byID.Close() }
