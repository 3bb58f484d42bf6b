package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/atinyakov/shorturl/internal/app/server"
	grpcserver "github.com/atinyakov/shorturl/internal/app/server/grpc"
	"github.com/atinyakov/shorturl/internal/app/service"
	"github.com/atinyakov/shorturl/internal/cache"
	"github.com/atinyakov/shorturl/internal/config"
	"github.com/atinyakov/shorturl/internal/logger"
	"github.com/atinyakov/shorturl/internal/metrics"
	"github.com/atinyakov/shorturl/internal/middleware"
	"github.com/atinyakov/shorturl/internal/repository"
	"github.com/atinyakov/shorturl/internal/storage"
	"github.com/atinyakov/shorturl/internal/worker"

	_ "net/http/pprof"
)

var buildVersion string
var buildDate string
var buildCommit string

const shutdownTimeout = 10 * time.Second

func main() {
	fmt.Printf("Build version: %s\n", orNA(buildVersion))
	fmt.Printf("Build date: %s\n", orNA(buildDate))
	fmt.Printf("Build commit: %s\n", orNA(buildCommit))

	if err := run(); err != nil {
		log.Fatalf("shortener stopped: %v", err)
	}
}

func orNA(v string) string {
	if v == "" {
		return "N/A"
	}
	return v
}

func run() error {
	options, err := config.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	appLogger := logger.New()
	appLogger.FilePath = options.LogFile
	if err := appLogger.Init(options.LogLevel); err != nil {
		return err
	}
	zapLogger := appLogger.Log
	defer func() {
		_ = zapLogger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	trusted, err := middleware.ParseSubnet(options.TrustedSubnet)
	if err != nil {
		return err
	}

	s, err := openStorage(ctx, options, zapLogger)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			zapLogger.Error("storage close failed", zap.Error(err))
		}
	}()

	var c service.Cache
	if options.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.Config{
			Addr:     options.RedisAddr,
			Password: options.RedisPassword,
			DB:       options.RedisDB,
			TTL:      options.CacheTTL,
		})
		if err != nil {
			return err
		}
		defer func() {
			_ = rc.Close()
		}()
		c = rc
		zapLogger.Info("using redis cache", zap.String("addr", options.RedisAddr))
	}

	m := metrics.New()
	handler := buildHandler(s, c, nil, m, options, trusted, zapLogger)

	reporters := []worker.StatusReporter{m}

	var grpcSrv *grpcserver.Server
	if options.GRPCPort != 0 {
		grpcSrv = grpcserver.New(zapLogger, options.GRPCPort, trusted)
		reporters = append(reporters, grpcSrv)
		go func() {
			if err := grpcSrv.Start(); err != nil {
				zapLogger.Error("gRPC server error", zap.Error(err))
			}
		}()
	}

	probeCtx, stopProbe := context.WithCancel(ctx)
	probeDone := worker.NewHealthProbe(zapLogger, s, 0, reporters...).Start(probeCtx)
	// runs before the storage close above
	defer func() {
		stopProbe()
		<-probeDone
	}()

	if options.EnablePprof {
		go func() {
			zapLogger.Info("Starting pprof server", zap.String("addr", "localhost:6060"))
			if err := http.ListenAndServe("localhost:6060", nil); err != nil {
				zapLogger.Error("pprof server error", zap.Error(err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              options.ServerAddress,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(srv, options, zapLogger)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		zapLogger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func openStorage(ctx context.Context, options *config.Options, zapLogger *zap.Logger) (storage.Storage, error) {
	if options.DatabaseDSN == "" {
		zapLogger.Info("using in memory storage")
		return storage.CreateMemoryStorage(), nil
	}

	zapLogger.Info("using db")
	db, err := repository.InitDB(ctx, options.DatabaseDSN, zapLogger)
	if err != nil {
		return nil, err
	}
	return repository.CreateURLRepository(db, zapLogger), nil
}

// buildHandler assembles the service graph over s. A nil resolver uses the system DNS.
func buildHandler(
	s storage.Storage,
	c service.Cache,
	resolver service.HostResolver,
	m *metrics.Metrics,
	options *config.Options,
	trusted *net.IPNet,
	zapLogger *zap.Logger,
) http.Handler {
	validator := service.NewURLResolver(resolver, options.DNSTimeout, m)
	registry := service.NewRegistry(s, c, zapLogger, m)
	svc := service.NewURL(s, validator, registry, zapLogger)

	return server.Init(zapLogger, svc, server.Options{
		RequestTimeout: options.RequestTimeout,
		TrustedSubnet:  trusted,
		Metrics:        m.Handler(),
	})
}

func serve(srv *http.Server, options *config.Options, zapLogger *zap.Logger) error {
	if !options.EnableHTTPS {
		zapLogger.Info("Server is running", zap.String("address", srv.Addr))
		return srv.ListenAndServe()
	}

	manager := &autocert.Manager{
		// certificates survive restarts here
		Cache:      autocert.DirCache("cache-dir"),
		Prompt:     autocert.AcceptTOS,
		HostPolicy: autocert.HostWhitelist(options.Hosts()...),
	}
	srv.Addr = ":443"
	srv.TLSConfig = manager.TLSConfig()

	zapLogger.Info("Server is running with TLS", zap.Strings("hosts", options.Hosts()))
	return srv.ListenAndServeTLS("", "")
}
