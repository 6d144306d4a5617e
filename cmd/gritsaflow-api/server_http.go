package main

import (
	"net/http"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	config "github.com/ujjwal-capsitech/GritsaFlow/internal/config/api"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/obs"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/services/session"
)

func buildHTTPServer(cfg *config.Config, logger *zap.Logger, srv *session.Server, ready obs.HealthFunc) (*http.Server, error) {
	api := runtime.NewServeMux()
	if err := srv.Register(api, cfg.Server.APIPrefix); err != nil {
		return nil, err
	}

	root := http.NewServeMux()
	root.Handle("/", api)
	if cfg.Server.MetricsAddr == "" {
		obs.RegisterHealth(root, ready)
	}

	handler := session.Chain(root,
		session.Recoverer(logger),
		session.RequestLog(logger),
		session.CORS(cfg.CORS.AllowedOrigins),
		session.MaxBodyBytes(cfg.Server.MaxBodyBytes),
	)

	return &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           obs.TraceHTTP(handler, "http"),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}, nil
}

func serveHTTP(srv *http.Server, logger *zap.Logger) error {
	logger.Info("http listening", zap.String("addr", srv.Addr))
	return srv.ListenAndServe()
}
