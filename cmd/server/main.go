package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/alphaforge/replay/internal/config"
	"github.com/alphaforge/replay/internal/events"
	"github.com/alphaforge/replay/internal/httpapi"
	"github.com/alphaforge/replay/internal/metrics"
	"github.com/alphaforge/replay/internal/replay"
	"github.com/alphaforge/replay/internal/service"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "replay-server",
	Short: "Experience replay service",
	Long: `Replay server that stores environment transitions and serves
prioritized (or uniform) training batches over HTTP.

Collectors push experiences, trainers pull batches and push back fresh
TD errors to re-prioritize them.`,
	RunE: runServer,
}

func init() {
	cfg = config.Default()

	// Server settings
	rootCmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	rootCmd.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "Graceful shutdown timeout")

	// Buffer settings
	rootCmd.Flags().StringVar(&cfg.BufferKind, "buffer-kind", cfg.BufferKind, "Buffer kind (prioritized or uniform)")
	rootCmd.Flags().IntVar(&cfg.Capacity, "capacity", cfg.Capacity, "Maximum number of experiences to store")
	rootCmd.Flags().Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "Priority sharpening exponent")
	rootCmd.Flags().Float64Var(&cfg.Beta, "beta", cfg.Beta, "Initial importance-sampling exponent")
	rootCmd.Flags().Float64Var(&cfg.BetaIncrement, "beta-increment", cfg.BetaIncrement, "Beta annealing step per sample call")
	rootCmd.Flags().Float64Var(&cfg.MinPriority, "min-priority", cfg.MinPriority, "Priority floor")
	rootCmd.Flags().BoolVar(&cfg.NormalizeTDErrors, "normalize-td-errors", cfg.NormalizeTDErrors, "Normalize TD errors with an EMA before prioritizing")
	rootCmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Sampling RNG seed (0 seeds from the clock)")

	// Events
	rootCmd.Flags().StringVar(&cfg.NATSURL, "nats-url", cfg.NATSURL, "NATS URL for telemetry events (empty disables)")
	rootCmd.Flags().StringVar(&cfg.NATSSubject, "nats-subject", cfg.NATSSubject, "NATS subject for telemetry events")

	// Logging
	rootCmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")

	// Bind flags to viper for environment variable support
	viper.BindPFlags(rootCmd.Flags())
	viper.SetEnvPrefix("REPLAY")
	viper.AutomaticEnv()
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	var buffer replay.Buffer
	switch cfg.BufferKind {
	case "uniform":
		buffer, err = replay.NewUniformBuffer(cfg.Capacity, cfg.Seed)
	default:
		buffer, err = replay.NewPrioritizedBuffer(cfg.BufferConfig())
	}
	if err != nil {
		return err
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			return fmt.Errorf("connecting to NATS: %w", err)
		}
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	collector := metrics.NewCollector(logger)
	svc := service.NewReplayService(buffer, collector, publisher, &logger)
	h := httpapi.NewServer(svc, &logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	done := make(chan struct{})
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("buffer_kind", cfg.BufferKind).
			Int("capacity", cfg.Capacity).
			Msg("replay HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
		close(done)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Info().Msg("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	<-done
	logger.Info().Msg("replay server stopped")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
