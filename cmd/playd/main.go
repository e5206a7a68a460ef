// Package main provides the playback daemon entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/playd/playd/internal/api/ipc"
	"github.com/playd/playd/internal/app/adapter"
	"github.com/playd/playd/internal/app/session"
	"github.com/playd/playd/internal/infra/config"
	"github.com/playd/playd/internal/infra/logger"
)

var (
	app        = kingpin.New("playd", "Local music playback daemon")
	configPath = app.Flag("config", "Path to config file").Default("config/playd.yaml").String()
	socketFlag = app.Flag("socket", "Control socket path (overrides config)").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *socketFlag != "" {
		cfg.Server.Socket = *socketFlag
	}

	loggerConfig := logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Daemon error: %v", err)
		os.Exit(1)
	}
}

// run executes the daemon lifecycle. Using a separate function
// ensures defer statements run even when returning with an error.
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The backend is constructed once; failure here is fatal before
	// any client is served.
	backend, err := adapter.NewFromConfig(ctx, cfg.Adapter)
	if err != nil {
		return fmt.Errorf("failed to create playback adapter: %w", err)
	}

	sess := session.New(backend)

	srv := ipc.NewServer(ipc.Config{
		SocketPath:      cfg.Server.Socket,
		Token:           cfg.Server.Token,
		TokenPerMessage: cfg.Server.TokenPerMessage,
		MaxLineBytes:    cfg.Server.MaxLineBytes,
		IdleTimeout:     cfg.Server.IdleTimeout(),
	}, sess)

	if err := srv.Start(ctx); err != nil {
		// Binding the control socket is the one fatal startup error;
		// release the backend before giving up.
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		_ = sess.Close(closeCtx)
		return err
	}

	if cfg.Server.Token != "" {
		zlog.Info().Msg("client authentication enabled")
	}
	zlog.Info().Msgf("playd running: adapter=%s socket=%s", cfg.Adapter.Type, cfg.Server.Socket)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	zlog.Info().Msg("Received shutdown signal...")

	// Stop accepting and drain connections first, then release the
	// backend: no command is left half-applied.
	cancel()
	srv.Close()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := sess.Close(closeCtx); err != nil {
		zlog.Warn().Msgf("Failed to close session cleanly: %v", err)
	}

	zlog.Info().Msg("Daemon stopped")
	return nil
}
