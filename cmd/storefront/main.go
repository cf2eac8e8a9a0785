package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/DeRuina/timberjack"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/app"
	"github.com/vladislavdragonenkov/storefront/internal/version"
)

const (
	logFileMaxSizeMB  = 100
	logFileMaxBackups = 5
	logFileMaxAgeDays = 14
)

// setupLogger настраивает формат и уровень логирования; при заданном файле логи
// дублируются в него с ротацией.
func setupLogger(level, file string, stderr io.Writer) (func(), error) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	parsed, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(parsed)

	if file == "" {
		log.SetOutput(stderr)
		return func() {}, nil
	}

	rotated := &timberjack.Logger{
		Filename:   file,
		MaxSize:    logFileMaxSizeMB,
		MaxBackups: logFileMaxBackups,
		MaxAge:     logFileMaxAgeDays,
		LocalTime:  false,
		Compress:   false,
	}
	log.SetOutput(io.MultiWriter(stderr, rotated))
	return func() { _ = rotated.Close() }, nil
}

func run(args []string) error {
	cfg, err := app.LoadConfig(args)
	if err != nil {
		return err
	}

	closeLog, err := setupLogger(cfg.LogLevel, cfg.LogFile, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(version.Fields()).WithFields(log.Fields{
		"grpc_addr":      cfg.GRPCAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"events_broker":  cfg.EventsBroker,
	}).Info("starting storefront")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("storefront stopped")
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.WithError(err).Fatal("storefront exited with error")
	}
}
