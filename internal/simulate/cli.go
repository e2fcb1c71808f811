package simulate

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/vouch/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "simulate_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	if err := logger.Init(logger.WithOutput(multiWriter)); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the simulation tool.
func ShowHelp() {
	os.Stdout.WriteString(`Vouch Endorsement Simulator
===========================

A concurrent tool for driving the vouch endorsement ledger: it claims
skills, funds endorsers, submits staked endorsements, slashes a few of
them, and audits the ledger invariants afterwards.

Usage:
  go run cmd/simulate/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -secret string
        Auth secret the server signs bearer tokens with (default "vouch-dev-secret")
  -authority string
        Account allowed to slash (default "authority")
  -skill string
        Skill under test (default "go")
  -subjects int
        Number of accounts claiming the skill (default 50)
  -endorsers int
        Number of endorsing accounts (default 20)
  -endorsements int
        Number of endorsements to submit (default 1000)
  -slashes int
        Number of endorsements to slash afterwards (default 10)
  -min-stake int
        Smallest stake the server accepts (default 100)
  -top int
        Number of top entries to fetch from the leaderboard (default 25)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -log string
        Log file for simulation output (default: simulate_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Simulate with default settings
  go run cmd/simulate/main.go

  # Heavier run against another instance
  go run cmd/simulate/main.go -endorsements 50000 -workers 16 -url http://localhost:8080

  # No slash phase
  go run cmd/simulate/main.go -slashes 0

Note:
  The server's default credibility gate blocks fresh accounts from
  endorsing. Run the server with VOUCH_MIN_CREDIBILITY_TO_ENDORSE=1
  before simulating.
`)
}
