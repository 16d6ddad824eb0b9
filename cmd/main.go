// Package main is the entry point for the Halcyon playback daemon.
//
// Build:
//
//	go build -o build/halcyon ./cmd
//
// Run:
//
//	./build/halcyon -config config.toml
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/halcyon-player/halcyon/internal/app"
	"github.com/halcyon-player/halcyon/internal/config"
	"github.com/halcyon-player/halcyon/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(app.GetVersionInfo().FullString())
		return
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	slogger := logger.NewLogger(logger.DefaultConfig())
	slogger.Info(app.GetVersionInfo().FullString())

	application, err := app.New(slogger, cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	if err := application.Resume(); err != nil {
		slogger.Warn("could not resume previous session", "error", err)
	}

	// Run until interrupted.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	if err := application.Shutdown(); err != nil {
		slogger.Error("shutdown failed", "error", err)
		os.Exit(1)
	}
}
