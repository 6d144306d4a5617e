package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ujjwal-capsitech/GritsaFlow/internal/auth"
	config "github.com/ujjwal-capsitech/GritsaFlow/internal/config/api"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/obs"
	"github.com/ujjwal-capsitech/GritsaFlow/internal/services/session"
)

func main() {
	configPath := flag.String("config", "config/api.yaml", "path to the yaml config")
	flag.Parse()

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting gritsaflow api", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	st, err := initStore(rootCtx, cfg, logger)
	if err != nil {
		logger.Fatal("store init", zap.Error(err))
	}
	defer st.close()

	issuer, err := auth.NewIssuer(auth.Config{
		Secret:     []byte(cfg.Auth.JWTSecret),
		Issuer:     cfg.Auth.Issuer,
		Audience:   cfg.Auth.Audience,
		AccessTTL:  cfg.Auth.AccessTTL,
		RefreshTTL: cfg.Auth.RefreshTTL,
	})
	if err != nil {
		logger.Fatal("token issuer", zap.Error(err))
	}

	publisher, dispatcher, closeEvents := initEvents(cfg, logger)
	defer closeEvents()

	bg, cancelBG := context.WithCancel(context.Background())
	var workers sync.WaitGroup
	runBG := func(run func(context.Context)) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			run(bg)
		}()
	}

	if dispatcher != nil {
		runBG(dispatcher.Run)
	}

	creds := session.NewCredentials(st.tokens, st.users, issuer.Now)
	uc := session.NewUseCase(session.Deps{
		Logger:      logger,
		Users:       st.users,
		Credentials: creds,
		Issuer:      issuer,
		Events:      publisher,
		BcryptCost:  cfg.Auth.BcryptCost,
	})

	if err := uc.SeedAdmin(rootCtx, session.SeedConfig{
		AdminUserName: cfg.Seed.AdminUserName,
		AdminPassword: cfg.Seed.AdminPassword,
		AdminName:     cfg.Seed.AdminName,
		AdminEmail:    cfg.Seed.AdminEmail,
	}); err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}

	if st.sweep {
		runBG(session.NewSweeper(logger, creds, cfg.Store.SweepInterval).Run)
	}

	proxies, err := session.ParseTrustedProxies(cfg.RateLimit.TrustedProxies)
	if err != nil {
		logger.Fatal("ratelimit trusted proxies", zap.Error(err))
	}
	limiter := session.NewIPLimiter(session.RateLimitConfig{
		Enable:         cfg.RateLimit.Enable,
		PerSecond:      cfg.RateLimit.PerSecond,
		Burst:          cfg.RateLimit.Burst,
		IdleTTL:        cfg.RateLimit.IdleTTL,
		TrustedProxies: proxies,
	})
	runBG(limiter.Run)

	srv := session.NewServer(uc, issuer, session.Opts{
		Logger: logger,
		Cookies: session.CookieConfig{
			Domain: cfg.Auth.CookieDomain,
			Path:   cfg.Auth.CookiePath,
			Secure: cfg.Auth.CookieSecure,
		},
		Limiter: limiter,
	})

	var metricsSrv *http.Server
	if cfg.Server.MetricsAddr != "" {
		metricsSrv = obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, st.ready, logger)
	}

	grpcServer, grpcHealth, grpcLn, err := buildGRPCServer(cfg, uc, srv.Verifier())
	if err != nil {
		logger.Fatal("build grpc", zap.Error(err))
	}
	grpcHealth.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	grpcErrCh := make(chan error, 1)
	go func() { grpcErrCh <- serveGRPC(grpcServer, grpcLn, logger) }()

	httpSrv, err := buildHTTPServer(cfg, logger, srv, st.ready)
	if err != nil {
		logger.Fatal("build http", zap.Error(err))
	}

	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, logger) }()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal", zap.String("reason", "context canceled"))
	case err := <-grpcErrCh:
		if err != nil {
			logger.Error("grpc serve", zap.Error(err))
		}
	case err := <-httpErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	grpcHealth.Shutdown()
	_ = httpSrv.Shutdown(shCtx)
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shCtx)
	}
	grpcServer.GracefulStop()

	// Background workers stop after the listeners so in-flight requests can
	// still publish events.
	cancelBG()
	stopped := make(chan struct{})
	go func() { workers.Wait(); close(stopped) }()
	select {
	case <-stopped:
	case <-shCtx.Done():
		logger.Warn("background workers did not stop in time")
	}
	logger.Info("bye")
}
