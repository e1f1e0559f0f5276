// Command clacksd runs a clacks server: it loads a YAML configuration
// file (or the reference default), wires the configured listeners and
// stock adapters, and serves until interrupted.
//
// CLI parsing follows ruaan-deysel-unraid-management-agent's main.go:
// a single kong.Parse(&cli) over a flat struct of flags, plus a
// lumberjack-backed log file when one is configured.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/wgnet/clacks/internal/config"
	"github.com/wgnet/clacks/internal/logging"
	"github.com/wgnet/clacks/server"
)

var cli struct {
	Config   string `default:"" help:"path to a YAML configuration file; if omitted, the reference default is used"`
	Listen   string `default:"127.0.0.1:8765" help:"address to listen on when no config file is given"`
	LogLevel string `default:"info" help:"log level: debug, info, warn, error"`
	LogFile  string `default:"" help:"log file path; rotated with lumberjack. Logs to stderr only when omitted"`
}

func main() {
	kong.Parse(&cli)

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "clacksd: %v\n", err)
		os.Exit(1)
	}

	level := logging.ParseLevel(cli.LogLevel)
	var logger *logging.Logger
	if cli.LogFile != "" {
		logger = logging.NewRotatingFile(cli.LogFile, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups, cfg.Log.MaxAgeDays, level)
	} else {
		logger = logging.New(os.Stderr, level)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "clacksd: build server: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Infof("clacksd starting, interfaces: %v", srv.InterfaceNames())
	if err := srv.Run(ctx); err != nil {
		logger.Errorf("server exited: %v", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if cli.Config == "" {
		return config.Default(cli.Listen), nil
	}
	return config.Load(cli.Config)
}
