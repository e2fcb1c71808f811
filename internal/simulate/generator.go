package simulate

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/okian/vouch/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	stakeBucketDivisor = 8
)

// Constants for stake generation, as multiples of the minimum stake.
const (
	smallStakeMin    = 1.0
	smallStakeRange  = 2.0
	mediumStakeMin   = 3.0
	mediumStakeRange = 3.0
	largeStakeMin    = 6.0
	largeStakeRange  = 3.0
	whaleStakeMin    = 10.0
	whaleStakeRange  = 10.0
)

// Constants for stake bucket cases. Buckets below caseMediumStake all
// fall through to the small-stake default.
const (
	caseMediumStake = 5
	caseLargeStake  = 6
	caseWhaleStake  = 7
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomIndex returns a random index below n using crypto/rand.
func getRandomIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// generateParticipants creates unique subject and endorser account names.
func generateParticipants(ctx context.Context, config *Config, stats *Stats) (subjects, endorsers []string) {
	logger.Get().Info(ctx, "generating participants",
		logger.Int("subjects", config.Subjects),
		logger.Int("endorsers", config.Endorsers))

	subjects = make([]string, config.Subjects)
	for i := range subjects {
		subjects[i] = "subject-" + uuid.New().String()[:8] + fmt.Sprintf("-%d", i)
	}

	endorsers = make([]string, config.Endorsers)
	for i := range endorsers {
		endorsers[i] = "endorser-" + uuid.New().String()[:8] + fmt.Sprintf("-%d", i)
	}

	stats.ParticipantsGenerated = len(subjects) + len(endorsers)
	return subjects, endorsers
}

// generatePlan creates the endorsement submissions, pairing random
// endorsers with random subjects. Endorsers never endorse themselves
// because the two populations are disjoint.
func generatePlan(ctx context.Context, config *Config, subjects, endorsers []string, stats *Stats) ([]Endorsement, error) {
	if len(subjects) == 0 || len(endorsers) == 0 {
		return nil, fmt.Errorf("plan needs at least one subject and one endorser")
	}

	logger.Get().Info(ctx, "generating endorsement plan", logger.Int("endorsements", config.Endorsements))

	plan := make([]Endorsement, config.Endorsements)

	// Generate plan entries concurrently
	type planResult struct {
		index int
		entry Endorsement
		err   error
	}

	resultChan := make(chan planResult, config.Endorsements)

	// Use worker pool for plan generation
	workerCount := minInt(config.Workers, config.Endorsements)
	if workerCount == 0 {
		return plan, nil
	}
	perWorker := config.Endorsements / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * perWorker
		end := start + perWorker
		if worker == workerCount-1 {
			end = config.Endorsements // Last worker gets the remainder
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- planResult{index: i, err: ctx.Err()}
					return
				default:
					entry := generateSingleEndorsement(config, subjects, endorsers)
					resultChan <- planResult{index: i, entry: entry}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.Endorsements; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during plan generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate endorsement %d: %w", result.index, result.err)
			}
			plan[result.index] = result.entry
		}
	}

	stats.EndorsementsPlanned = len(plan)
	logger.Get().Info(ctx, "generated endorsement plan", logger.Int("count", len(plan)))

	return plan, nil
}

// generateSingleEndorsement creates one planned endorsement with a
// unique request ID and a varied stake.
func generateSingleEndorsement(config *Config, subjects, endorsers []string) Endorsement {
	return Endorsement{
		RequestID: uuid.New().String(),
		Endorser:  endorsers[getRandomIndex(len(endorsers))],
		Subject:   subjects[getRandomIndex(len(subjects))],
		Skill:     config.Skill,
		Stake:     generateVariedStake(config.MinStake),
	}
}

// generateVariedStake creates a stake with a varied distribution. Most
// endorsements carry small stakes; a few are whales.
func generateVariedStake(minStake uint64) uint64 {
	multiple := smallStakeMin + getRandomFloat()*smallStakeRange
	randNum, _ := rand.Int(rand.Reader, big.NewInt(stakeBucketDivisor))
	switch randNum.Int64() {
	case caseMediumStake:
		// Medium stakes (3x - 6x minimum)
		multiple = mediumStakeMin + getRandomFloat()*mediumStakeRange
	case caseLargeStake:
		// Large stakes (6x - 9x minimum)
		multiple = largeStakeMin + getRandomFloat()*largeStakeRange
	case caseWhaleStake:
		// Whale stakes (10x - 20x minimum) - rare
		multiple = whaleStakeMin + getRandomFloat()*whaleStakeRange
	default:
		// Small stakes (1x - 3x minimum) - most common
	}

	stake := uint64(float64(minStake) * multiple)
	if stake < minStake {
		stake = minStake
	}
	return stake
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
