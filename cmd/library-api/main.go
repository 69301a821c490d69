// Command library-api serves the Library API behind bearer-token
// authorization.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	libraryapi "github.com/fabiensh/library-api"
	ginguard "github.com/fabiensh/library-api/framework/gin"
	"github.com/fabiensh/library-api/internal/config"
	"github.com/fabiensh/library-api/internal/library"
	"github.com/fabiensh/library-api/internal/oidc"
	"github.com/fabiensh/library-api/internal/server"
	"github.com/fabiensh/library-api/jwks"
	"github.com/fabiensh/library-api/metrics"
	"github.com/fabiensh/library-api/validator"
)

const metricsNamespace = "library_api"

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	envFile := flag.String("env-file", ".env", "path to a .env file")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.Log.NewLogger()
	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("library-api stopped")
	}
}

func run(cfg config.Config, logger *logrus.Logger) error {
	log := libraryapi.NewLogrusLogger(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewPrometheus(metricsNamespace, reg)

	jwksURL, issuer := cfg.Auth.JWKSURL(), cfg.Auth.Issuer
	if cfg.Auth.Discovery {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Auth.JWKSTimeout)
		md, err := oidc.Discover(ctx, nil, cfg.Auth.TenantBaseURL)
		cancel()
		if err != nil {
			return fmt.Errorf("discovering provider endpoints: %w", err)
		}
		jwksURL = md.JWKSURI
		if issuer == "" {
			issuer = md.Issuer
		}
	}

	cache, err := jwks.New(
		jwks.WithJWKSURL(jwksURL),
		jwks.WithTTL(cfg.Auth.JWKSTTL),
		jwks.WithTimeout(cfg.Auth.JWKSTimeout),
		jwks.WithMinRefreshInterval(cfg.Auth.JWKSMinRefresh),
		jwks.WithLogger(log),
		jwks.WithMetrics(recorder),
	)
	if err != nil {
		return fmt.Errorf("creating key cache: %w", err)
	}

	algorithm, err := validator.ParseAlgorithm(cfg.Auth.Algorithm)
	if err != nil {
		return err
	}

	validatorOpts := []validator.Option{
		validator.WithKeySource(cache),
		validator.WithAudience(cfg.Auth.Audience),
		validator.WithAlgorithm(algorithm),
		validator.WithLeeway(cfg.Auth.Leeway),
		validator.WithLogger(log),
	}
	if issuer != "" {
		validatorOpts = append(validatorOpts, validator.WithIssuer(issuer))
	}

	v, err := validator.New(validatorOpts...)
	if err != nil {
		return fmt.Errorf("creating validator: %w", err)
	}

	guard, err := libraryapi.New(
		libraryapi.WithValidator(v),
		libraryapi.WithLogger(log),
		libraryapi.WithTracer(otel.Tracer("github.com/fabiensh/library-api")),
		libraryapi.WithMetrics(recorder),
	)
	if err != nil {
		return fmt.Errorf("creating guard: %w", err)
	}

	if logger.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	books := library.NewBookRepository(library.SeedBooks()...)
	router, err := server.NewRouter(server.Dependencies{
		Guard:    ginguard.New(guard),
		Books:    books,
		Loans:    library.NewLoanRepository(books),
		Auth:     cfg.Auth,
		Gatherer: reg,
		Metrics:  recorder,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating router: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"addr":     cfg.Server.ListenAddr,
			"jwks_url": jwksURL,
			"audience": cfg.Auth.Audience,
		}).Info("library-api listening")
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
