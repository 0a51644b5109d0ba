// Command tomed runs the document processing daemon in the foreground.
// It is the standalone alternative to the detached `tome daemon` launch
// used by the CLI; systemd units and containers run this binary directly.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"tome/internal/config"
	"tome/internal/daemonrun"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	diagnostic := flag.Bool("diagnostic", false, "enable verbose diagnostic logging")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	if err := daemonrun.Run(ctx, cfg, daemonrun.Options{
		LogLevel:   cfg.Logging.Level,
		Diagnostic: *diagnostic,
	}); err != nil {
		log.Fatalf("tomed: %v", err)
	}
}
