// Command r503ctl is an operator console for a GROW R503 fingerprint module.
//
// Usage:
//
//	r503ctl [-config configs/r503.yaml] [-simulate]
//
// With -simulate the console drives an in-memory module whose finger touches
// and lifts on alternate polls.
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

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/moffa90/go-r503/internal/config"
	"github.com/moffa90/go-r503/internal/logging"
	"github.com/moffa90/go-r503/internal/menu"
	"github.com/moffa90/go-r503/internal/metrics"
	"github.com/moffa90/go-r503/sensor"
	"github.com/moffa90/go-r503/simulator"
	"github.com/moffa90/go-r503/transport"
)

func main() {
	configPath := flag.String("config", "", "configuration file (default: $R503_CONFIG or configs/r503.yaml)")
	simulate := flag.Bool("simulate", false, "use a simulated sensor instead of the serial port")
	flag.Parse()

	if err := run(*configPath, *simulate); err != nil {
		fmt.Fprintln(os.Stderr, "r503ctl:", err)
		os.Exit(1)
	}
}

func run(configPath string, simulate bool) error {
	// 1) configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	// 2) logging
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.With(zap.String("session", uuid.NewString()))
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3) metrics
	opts := []sensor.Option{
		sensor.WithLogger(logger.Named("sensor")),
		sensor.WithAddress(cfg.Sensor.Address),
		sensor.WithPassword(cfg.Sensor.Password),
		sensor.WithReadTimeout(cfg.Serial.ReadTimeout),
		sensor.WithSamples(cfg.Enroll.Samples),
		sensor.WithPollInterval(cfg.Enroll.PollInterval),
		sensor.WithMaxPolls(cfg.Enroll.MaxPolls),
	}
	if cfg.Metrics.Enable {
		reg := metrics.NewRegistry()
		opts = append(opts, sensor.WithObserver(metrics.NewSensorMetrics(reg)))

		srv := serveMetrics(cfg.Metrics, reg, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// 4) link
	var port sensor.Transport
	if simulate {
		port = simulator.New(
			simulator.WithAddress(cfg.Sensor.Address),
			simulator.WithPassword(cfg.Sensor.Password),
			simulator.WithAutoTouch(1),
			simulator.WithLogger(logger.Named("simulator")),
		)
		logger.Info("using simulated sensor")
	} else {
		serialPort, err := transport.OpenSerial(cfg.Serial.Port, cfg.Serial.Baud, logger)
		if err != nil {
			return err
		}
		defer serialPort.Close()
		port = serialPort

		if cfg.Presence.Enable {
			pin, err := transport.OpenWakeupPin(cfg.Presence.Pin)
			if err != nil {
				return err
			}
			defer pin.Close()
			opts = append(opts, sensor.WithPresence(pin))
		}
	}

	// 5) sensor
	s := sensor.New(port, opts...)
	if cfg.Sensor.VerifyPassword {
		if err := s.Open(ctx); err != nil {
			return fmt.Errorf("sensor not initialised: %w", err)
		}
	} else if _, err := s.ReadSysParam(ctx); err != nil {
		return fmt.Errorf("sensor not initialised: %w", err)
	}

	// 6) operator console
	err = menu.New(s, os.Stdin, os.Stdout, menu.WithLogger(logger)).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func serveMetrics(cfg config.MetricsConfig, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, metrics.Handler(reg))

	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", cfg.Addr), zap.String("path", cfg.Path))
	return srv
}
