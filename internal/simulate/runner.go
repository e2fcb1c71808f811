package simulate

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/vouch/pkg/logger"
)

// Run executes the complete endorsement simulation.
func Run(ctx context.Context, config *Config) error {
	if config.Workers < 1 {
		config.Workers = 1
	}

	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting vouch endorsement simulation",
		logger.String("baseURL", config.BaseURL),
		logger.String("skill", config.Skill),
		logger.Int("subjects", config.Subjects),
		logger.Int("endorsers", config.Endorsers),
		logger.Int("endorsements", config.Endorsements),
		logger.Int("slashes", config.Slashes),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.Any("verbose", config.Verbose))

	tokens := newTokenSource(config.AuthSecret)
	client := newHTTPClient(config.Timeout, tokens)

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, client, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate participants and the endorsement plan
	subjects, endorsers := generateParticipants(ctx, config, stats)
	plan, err := generatePlan(ctx, config, subjects, endorsers, stats)
	if err != nil {
		return fmt.Errorf("plan generation failed: %w", err)
	}

	// Step 3: Everyone claims the skill. Endorsers claim too, since
	// only accounts with a profile in the skill may endorse it.
	participants := make([]string, 0, len(subjects)+len(endorsers))
	participants = append(participants, subjects...)
	participants = append(participants, endorsers...)
	if err := submitClaims(ctx, client, config, participants, stats); err != nil {
		return fmt.Errorf("claim phase failed: %w", err)
	}

	// Step 4: Fund the endorsers
	if err := submitFunding(ctx, client, config, plan, stats); err != nil {
		return fmt.Errorf("funding phase failed: %w", err)
	}

	// Step 5: Submit endorsements concurrently
	receipts, err := submitEndorsements(ctx, client, config, plan, stats)
	if err != nil {
		return fmt.Errorf("endorsement phase failed: %w", err)
	}

	// Step 6: Let the standings board catch up
	logger.Get().Info(ctx, "waiting for the standings board to settle")
	time.Sleep(BoardSettleDelay)

	// Step 7: Audit the ledger invariants
	aggregates, err := auditLedger(ctx, client, config, subjects, stats)
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}
	if err := verifyEscrow(ctx, client, config, aggregates, stats); err != nil {
		return fmt.Errorf("escrow verification failed: %w", err)
	}
	if err := verifyLeaderboard(ctx, client, config, stats); err != nil {
		return fmt.Errorf("leaderboard verification failed: %w", err)
	}

	// Step 8: Slash a few endorsements and audit again
	if config.Slashes > 0 {
		if err := submitSlashes(ctx, client, config, receipts, stats); err != nil {
			return fmt.Errorf("slash phase failed: %w", err)
		}

		logger.Get().Info(ctx, "waiting for the standings board to settle after slashes")
		time.Sleep(BoardSettleDelay)

		aggregates, err = auditLedger(ctx, client, config, subjects, stats)
		if err != nil {
			return fmt.Errorf("post-slash audit failed: %w", err)
		}
		if err := verifyEscrow(ctx, client, config, aggregates, stats); err != nil {
			return fmt.Errorf("post-slash escrow verification failed: %w", err)
		}
		if err := verifyLeaderboard(ctx, client, config, stats); err != nil {
			return fmt.Errorf("post-slash leaderboard verification failed: %w", err)
		}
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "simulation completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// displayFinalStats prints the final simulation statistics.
func displayFinalStats(stats *Stats) {
	var successRate, endorsementsPerSecond float64

	if stats.EndorsementsSubmitted > 0 {
		successRate = float64(stats.EndorsementsSuccessful) / float64(stats.EndorsementsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		endorsementsPerSecond = float64(stats.EndorsementsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("participantsGenerated", stats.ParticipantsGenerated),
		logger.Int("claimsSuccessful", stats.ClaimsSuccessful),
		logger.Int("grantsIssued", stats.GrantsIssued),
		logger.Uint64("stakeGranted", stats.StakeGranted),
		logger.Int("endorsementsPlanned", stats.EndorsementsPlanned),
		logger.Int("endorsementsSubmitted", stats.EndorsementsSubmitted),
		logger.Int("endorsementsSuccessful", stats.EndorsementsSuccessful),
		logger.Int("endorsementsDuplicate", stats.EndorsementsDuplicate),
		logger.Int("endorsementsFailed", stats.EndorsementsFailed),
		logger.Int("slashesSuccessful", stats.SlashesSuccessful),
		logger.Int("profilesAudited", stats.ProfilesAudited),
		logger.Int("auditMismatches", stats.AuditMismatches),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("endorsementsPerSecond", endorsementsPerSecond))
}
