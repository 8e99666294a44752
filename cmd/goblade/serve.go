package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shortontech/goblade/internal/detection"
	"github.com/shortontech/goblade/internal/event"
	"github.com/shortontech/goblade/internal/event/signals"
	"github.com/shortontech/goblade/internal/fingerprint"
	httpx "github.com/shortontech/goblade/internal/http"
	"github.com/shortontech/goblade/internal/metrics"
	"github.com/shortontech/goblade/internal/reputation"
	"github.com/shortontech/goblade/internal/risk"
	"github.com/shortontech/goblade/internal/session"
	"github.com/shortontech/goblade/internal/sink"
	"github.com/shortontech/goblade/pkg/config"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the detection HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.ServerAddr = addr
			}
			return serve(cmd.Context(), a.cfg, a.logger)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default SERVER_ADDR or :19890)")
	return cmd
}

func buildSinks(cfg config.Config, logger *zap.Logger) []sink.Sink {
	var sinks []sink.Sink
	for _, o := range cfg.Outputs {
		switch o {
		case "log":
			sinks = append(sinks, sink.NewLogSink())
		case "kafka":
			sinks = append(sinks, sink.NewKafkaSinkFromEnv(logger))
		case "postgres":
			sinks = append(sinks, sink.NewPGSinkFromEnv(logger).FallbackDSN(cfg.PGDSN))
		}
	}
	return sinks
}

func openSessions(ctx context.Context, cfg config.Config) (session.Store, func(context.Context) error, error) {
	if cfg.SessionStore != "postgres" {
		return session.NewMemoryStore(), nil, nil
	}
	pg, err := session.OpenPGStore(ctx, cfg.PGDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("session store: %w", err)
	}
	return pg, pg.Ping, nil
}

// newAssembler leaves reputation out entirely when no API key is set.
func newAssembler(cfg config.Config, det *detection.Detector, logger *zap.Logger) *fingerprint.Assembler {
	var rep fingerprint.Reputation
	if cfg.IPQSAPIKey != "" {
		rep = reputation.NewClient(reputation.Config{
			APIKey:    cfg.IPQSAPIKey,
			Timeout:   cfg.IPQSTimeout,
			RateLimit: float64(cfg.IPQSRate),
		}, logger)
	}
	return fingerprint.NewAssembler(rep, det, logger)
}

func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	m := metrics.Default()
	msrv, err := metrics.NewServer(metrics.LoadConfig(), m, logger)
	if err != nil {
		return err
	}
	if err := msrv.Start(ctx); err != nil {
		return err
	}

	fan := sink.NewFanout(m, logger, buildSinks(cfg, logger)...)
	if err := fan.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := fan.Close(); err != nil {
			logger.Warn("sink close", zap.Error(err))
		}
	}()

	store, ready, err := openSessions(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var hmacAuth *httpx.HMACAuth
	if cfg.HMACSecret != "" || cfg.HMACRequire {
		hmacAuth = httpx.NewHMACAuth(cfg.HMACSecret, cfg.HMACRequire, cfg.TrustProxy, logger)
	}

	det := detection.NewDetector(logger)
	env := httpx.Env{
		Cfg:       cfg,
		Emit:      fan.Enqueue,
		HMACAuth:  hmacAuth,
		Logger:    logger,
		Metrics:   m,
		Detector:  det,
		Assembler: newAssembler(cfg, det, logger),
		Gate:      risk.NewGate(),
		Sessions:  store,
		Enricher:  event.NewEnricher(cfg, signals.NewTracker(10*time.Minute)),
		Ready:     ready,
	}

	srv := httpx.NewServer(cfg.ServerAddr, httpx.NewMux(env))
	errc := make(chan error, 1)
	go func() {
		logger.Info("goblade listening",
			zap.String("addr", cfg.ServerAddr),
			zap.Strings("outputs", cfg.Outputs),
			zap.String("sessions", cfg.SessionStore),
			zap.Bool("hmac", hmacAuth.Enabled()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := msrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown", zap.Error(err))
	}
	return srv.Shutdown(shutdownCtx)
}
