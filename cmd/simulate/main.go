package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/vouch/internal/simulate"
)

// Default configuration constants.
const (
	defaultSubjects     = 50
	defaultEndorsers    = 20
	defaultEndorsements = 1000
	defaultSlashes      = 10
	defaultMinStake     = 100
	defaultTopN         = 25
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the service")
		authSecret   = flag.String("secret", "vouch-dev-secret", "Auth secret the server signs bearer tokens with")
		authority    = flag.String("authority", "authority", "Account allowed to slash")
		skill        = flag.String("skill", "go", "Skill under test")
		subjects     = flag.Int("subjects", defaultSubjects, "Number of accounts claiming the skill")
		endorsers    = flag.Int("endorsers", defaultEndorsers, "Number of endorsing accounts")
		endorsements = flag.Int("endorsements", defaultEndorsements, "Number of endorsements to submit")
		slashes      = flag.Int("slashes", defaultSlashes, "Number of endorsements to slash afterwards")
		minStake     = flag.Uint64("min-stake", defaultMinStake, "Smallest stake the server accepts")
		topN         = flag.Int("top", defaultTopN, "Number of top entries to fetch from the leaderboard")
		workers      = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout      = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile      = flag.String("log", "", "Log file for simulation output (default: simulate_log_TIMESTAMP.log)")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
		help         = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp()
		return
	}

	// Setup logging
	if err := simulate.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	// Create simulation configuration
	config := &simulate.Config{
		BaseURL:      *baseURL,
		AuthSecret:   *authSecret,
		Authority:    *authority,
		Skill:        *skill,
		Subjects:     *subjects,
		Endorsers:    *endorsers,
		Endorsements: *endorsements,
		Slashes:      *slashes,
		MinStake:     *minStake,
		TopN:         *topN,
		Workers:      *workers,
		Timeout:      *timeout,
		LogFile:      *logFile,
		Verbose:      *verbose,
	}

	// Run the simulation
	if err := simulate.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Simulation failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
