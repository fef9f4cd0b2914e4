package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"duet/internal/app"
	"duet/internal/config"
	_ "duet/internal/modules/devserver"
	_ "duet/internal/modules/history"
	_ "duet/internal/modules/host"
	_ "duet/internal/modules/settings"
	"duet/internal/transports/cli"
	"duet/pkg/logger"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	lg := logger.New(os.Stderr)
	slog.SetDefault(lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(ctx, config.DefaultPath())
	if err != nil {
		lg.Error("startup failed", "err", err)
		os.Exit(1)
	}
	if _, ok := os.LookupEnv("LOG_LEVEL"); !ok {
		lg = logger.NewWithLevel(os.Stderr, a.Config.Settings().LogLevel)
		slog.SetDefault(lg)
	}
	lg.Debug("starting", "version", buildVersion())

	err = cli.New(a).ExecuteContext(ctx)
	if cerr := a.Close(); cerr != nil {
		lg.Warn("close failed", "err", cerr)
	}
	if err != nil {
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			stop()
			os.Exit(exit.Code)
		}
		lg.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func buildVersion() string {
	v := version
	if commit != "" {
		v += " (" + commit + ")"
	}
	if date != "" {
		v += " " + date
	}
	return v
}
