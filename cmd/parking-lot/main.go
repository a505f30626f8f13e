package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/base-14/examples/go/parking-levels/internal/config"
	"github.com/base-14/examples/go/parking-levels/internal/logging"
	"github.com/base-14/examples/go/parking-levels/internal/parking"
	"github.com/base-14/examples/go/parking-levels/internal/server"
)

var (
	cfgPath     string
	mode        string
	port        string
	noTelemetry bool
)

var rootCmd = &cobra.Command{
	Use:           "parking-lot",
	Short:         "Multi-level parking lot with typed slots and hourly billing",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	rootCmd.Flags().StringVar(&mode, "mode", "", "mode to run: cli, server, or both")
	rootCmd.Flags().StringVar(&port, "port", "", "port for HTTP server")
	rootCmd.Flags().BoolVar(&noTelemetry, "no-telemetry", false, "disable OTLP export")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("mode") {
		cfg.Mode = mode
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = port
	}
	if noTelemetry {
		cfg.Telemetry.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	telemetry, err := newTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer shutdownTelemetry(telemetry)

	logging.Init(cfg.Telemetry.ServiceName, cfg.Environment)

	levels, err := cfg.LevelConfigs()
	if err != nil {
		return err
	}
	lotOptions, err := cfg.LotOptions()
	if err != nil {
		return err
	}

	parkingLot, err := parking.NewInstrumentedParkingLot(levels, telemetry, lotOptions...)
	if err != nil {
		return fmt.Errorf("build parking lot: %w", err)
	}

	logging.Info(ctx, "parking lot ready",
		"mode", cfg.Mode,
		"levels", len(levels),
		"capacity", parkingLot.Capacity(),
		"telemetry", cfg.Telemetry.Enabled,
	)

	switch cfg.Mode {
	case "cli":
		return runCLI(ctx, parkingLot, telemetry)
	case "server":
		return runServer(ctx, cfg, parkingLot, telemetry, lotOptions)
	default:
		return runBoth(ctx, cfg, parkingLot, telemetry, lotOptions)
	}
}

func newTelemetry(ctx context.Context, cfg *config.Config) (*parking.TelemetryProvider, error) {
	if !cfg.Telemetry.Enabled {
		return parking.NewTelemetryProviderFrom(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider()), nil
	}
	return parking.NewTelemetryProvider(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
}

func runCLI(ctx context.Context, parkingLot *parking.InstrumentedParkingLot, telemetry *parking.TelemetryProvider) error {
	shell := parking.NewShell(parkingLot, telemetry, os.Stdin, os.Stdout)

	done := make(chan struct{})
	go func() {
		shell.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logging.Info(context.Background(), "received shutdown signal")
	}
	return nil
}

func runServer(ctx context.Context, cfg *config.Config, parkingLot *parking.InstrumentedParkingLot, telemetry *parking.TelemetryProvider, lotOptions []parking.Option) error {
	srv, err := newServer(cfg, parkingLot, telemetry, lotOptions)
	if err != nil {
		return err
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	select {
	case err := <-serverDone:
		return serveError(err)
	case <-ctx.Done():
		logging.Info(context.Background(), "received shutdown signal")
	}
	return shutdownServer(srv)
}

// runBoth serves HTTP while the shell reads stdin. The shell keeps the lot it
// started with even if the layout is replaced over HTTP.
func runBoth(ctx context.Context, cfg *config.Config, parkingLot *parking.InstrumentedParkingLot, telemetry *parking.TelemetryProvider, lotOptions []parking.Option) error {
	srv, err := newServer(cfg, parkingLot, telemetry, lotOptions)
	if err != nil {
		return err
	}

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	cliDone := make(chan struct{})
	go func() {
		parking.NewShell(parkingLot, telemetry, os.Stdin, os.Stdout).Run(ctx)
		close(cliDone)
	}()

	select {
	case err := <-serverDone:
		return serveError(err)
	case <-cliDone:
		logging.Info(context.Background(), "CLI exited")
	case <-ctx.Done():
		logging.Info(context.Background(), "received shutdown signal")
	}
	return shutdownServer(srv)
}

func newServer(cfg *config.Config, parkingLot *parking.InstrumentedParkingLot, telemetry *parking.TelemetryProvider, lotOptions []parking.Option) (*server.Server, error) {
	handler := server.NewHandler(parkingLot, telemetry, cfg.Telemetry.ServiceName, lotOptions...)
	srv, err := server.NewServer(cfg.Port, handler)
	if err != nil {
		return nil, fmt.Errorf("build server: %w", err)
	}
	return srv, nil
}

func serveError(err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("server: %w", err)
}

func shutdownServer(srv *server.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func shutdownTelemetry(telemetry *parking.TelemetryProvider) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logging.Error(shutdownCtx, "telemetry shutdown failed", "error", err)
	}
}
