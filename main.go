package main

import (
	"fmt"
	"log/slog"
	"os"

	log "github.com/sirupsen/logrus"
)

var (
	// Version information - will be set at build time
	Version   = "dev"
	GitCommit = "unknown"
)

// setupLogging configures both the library logger and the CLI logger.
// Only warnings and above are shown unless debug is on.
func setupLogging(debug bool) {
	level := slog.LevelWarn
	logrusLevel := log.WarnLevel
	if debug {
		level = slog.LevelDebug
		logrusLevel = log.DebugLevel
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})
	log.SetLevel(logrusLevel)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
