package main

import (
	"log/slog"
	"os"
	"strings"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// setupLogging installs the stderr handler. LOGLEVEL picks the level;
// --verbose and --quiet override it.
func setupLogging(verbose, quiet bool) {
	level := slog.LevelWarn
	switch strings.ToLower(os.Getenv("LOGLEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	if quiet {
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
