package main

import (
	"context"

	config "github.com/ujjwal-capsitech/GritsaFlow/internal/config/api"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/obs"
)

func initOTel(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	o, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig(cfg.App.Version))
	if err != nil {
		return nil, err
	}
	return o.Shutdown, nil
}
