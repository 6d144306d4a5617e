package main

import (
	"go.uber.org/zap"

	config "github.com/ujjwal-capsitech/GritsaFlow/internal/config/api"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/obs"
)

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	return obs.NewLogger(cfg.Log.AsLoggerConfig(cfg.App))
}
