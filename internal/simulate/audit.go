package simulate

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
)

// auditLedger verifies the per-subject invariants concurrently: the
// aggregate stake a profile reports must equal the sum of its active
// endorsement stakes, and the active count must match the records. It
// returns the per-subject aggregates for the escrow cross-check.
func auditLedger(ctx context.Context, client *HTTPClient, config *Config, subjects []string, stats *Stats) (map[string]uint64, error) {
	log.Printf("🔍 Auditing %d profiles with %d workers...", len(subjects), config.Workers)

	var (
		audited    int64
		mismatches int64
	)

	aggregates := make(map[string]uint64)
	var aggregateMu sync.Mutex

	subjectChan := make(chan string, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for subject := range subjectChan {
				select {
				case <-ctx.Done():
					return
				default:
					aggregate, err := auditSingleSubject(ctx, client, config, subject)
					if err != nil {
						atomic.AddInt64(&mismatches, 1)
						log.Printf("⚠️  Audit mismatch for %s: %v", subject, err)
						continue
					}
					atomic.AddInt64(&audited, 1)
					aggregateMu.Lock()
					aggregates[subject] = aggregate
					aggregateMu.Unlock()
				}
			}
		}()
	}

	go func() {
		defer close(subjectChan)
		for _, subject := range subjects {
			select {
			case <-ctx.Done():
				return
			case subjectChan <- subject:
			}
		}
	}()

	wg.Wait()

	stats.ProfilesAudited = int(atomic.LoadInt64(&audited))
	stats.AuditMismatches += int(atomic.LoadInt64(&mismatches))

	if stats.AuditMismatches > 0 {
		return aggregates, fmt.Errorf("%d of %d profiles failed their invariant audit", stats.AuditMismatches, len(subjects))
	}

	log.Printf("✅ Audited %d profiles, all aggregates consistent", stats.ProfilesAudited)
	return aggregates, nil
}

// auditSingleSubject walks one profile's endorsement records and checks
// them against the profile's counters.
func auditSingleSubject(ctx context.Context, client *HTTPClient, config *Config, subject string) (uint64, error) {
	profile, err := fetchProfile(ctx, client, config, subject)
	if err != nil {
		return 0, err
	}

	var (
		activeStake uint64
		activeCount uint64
	)
	for i := uint64(0); i < profile.TotalEndorsements; i++ {
		url := fmt.Sprintf("%s/profiles/%s/%s/endorsements/%d", config.BaseURL, subject, config.Skill, i)
		resp, err := client.Get(ctx, url)
		if err != nil {
			return 0, fmt.Errorf("endorsement %d: %w", i, err)
		}

		body, err := readResponseBody(resp)
		if err != nil {
			return 0, fmt.Errorf("endorsement %d: %w", i, err)
		}
		if resp.StatusCode != StatusOK {
			return 0, fmt.Errorf("endorsement %d: HTTP %d: %s", i, resp.StatusCode, decodeError(body))
		}

		var record endorsementInfo
		if err := unmarshalJSON(body, &record); err != nil {
			return 0, fmt.Errorf("endorsement %d: %w", i, err)
		}

		if record.Active {
			activeStake += record.Stake
			activeCount++
		}
	}

	if activeStake != profile.AggregateStake {
		return 0, fmt.Errorf("aggregate stake %d does not match the %d of active records", profile.AggregateStake, activeStake)
	}
	if activeCount != profile.ActiveEndorsements {
		return 0, fmt.Errorf("active count %d does not match the %d active records", profile.ActiveEndorsements, activeCount)
	}

	return profile.AggregateStake, nil
}

// fetchProfile reads one subject's profile for the skill under test.
func fetchProfile(ctx context.Context, client *HTTPClient, config *Config, subject string) (*profileInfo, error) {
	url := fmt.Sprintf("%s/profiles/%s/%s", config.BaseURL, subject, config.Skill)
	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("profile: HTTP %d: %s", resp.StatusCode, decodeError(body))
	}

	var profile profileInfo
	if err := unmarshalJSON(body, &profile); err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return &profile, nil
}

// verifyEscrow cross-checks the escrow balance against the audited
// aggregates. Escrow covering more than the audited subjects means the
// server carries state from earlier runs, which is fine; covering less
// would mean stake went missing.
func verifyEscrow(ctx context.Context, client *HTTPClient, config *Config, aggregates map[string]uint64, stats *Stats) error {
	var sum uint64
	for _, aggregate := range aggregates {
		sum += aggregate
	}

	url := config.BaseURL + "/escrow"
	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("escrow: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("escrow: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("escrow: HTTP %d: %s", resp.StatusCode, decodeError(body))
	}

	var info escrowInfo
	if err := unmarshalJSON(body, &info); err != nil {
		return fmt.Errorf("escrow: %w", err)
	}

	switch {
	case info.EscrowBalance == sum:
		log.Printf("✅ Escrow balance %d matches the audited aggregates", info.EscrowBalance)
	case info.EscrowBalance > sum:
		log.Printf("⚠️  Escrow balance %d exceeds the audited aggregates %d; the server holds stake from earlier runs", info.EscrowBalance, sum)
	default:
		stats.AuditMismatches++
		return fmt.Errorf("escrow balance %d is below the audited aggregates %d", info.EscrowBalance, sum)
	}
	return nil
}

// verifyLeaderboard checks the leaderboard ordering and cross-checks
// each entry against the rank and profile reads.
func verifyLeaderboard(ctx context.Context, client *HTTPClient, config *Config, stats *Stats) error {
	log.Printf("🥇 Getting top %d leaderboard entries...", config.TopN)

	url := fmt.Sprintf("%s/skills/%s/leaderboard?limit=%d", config.BaseURL, config.Skill, config.TopN)
	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("leaderboard: HTTP %d: %s", resp.StatusCode, decodeError(body))
	}

	var leaderboard []Entry
	if err := unmarshalJSON(body, &leaderboard); err != nil {
		return fmt.Errorf("leaderboard: %w", err)
	}

	stats.LeaderboardEntries = len(leaderboard)
	log.Printf("✅ Retrieved %d leaderboard entries", len(leaderboard))

	if len(leaderboard) == 0 {
		return nil
	}

	// Ordering check
	for i := 1; i < len(leaderboard); i++ {
		if leaderboard[i].Credibility > leaderboard[i-1].Credibility {
			stats.AuditMismatches++
			return fmt.Errorf("leaderboard not sorted: entry %d outranks entry %d", i, i-1)
		}
	}

	// Cross-check each entry against the rank and profile endpoints.
	// The standings board converges asynchronously, so disagreements
	// are reported as warnings rather than failures.
	for _, entry := range leaderboard {
		rankURL := fmt.Sprintf("%s/skills/%s/rank/%s", config.BaseURL, config.Skill, entry.Subject)
		rankResp, err := client.Get(ctx, rankURL)
		if err != nil {
			return fmt.Errorf("rank of %s: %w", entry.Subject, err)
		}
		rankBody, err := readResponseBody(rankResp)
		if err != nil {
			return fmt.Errorf("rank of %s: %w", entry.Subject, err)
		}
		if rankResp.StatusCode != StatusOK {
			log.Printf("⚠️  Rank read for %s returned HTTP %d", entry.Subject, rankResp.StatusCode)
			continue
		}

		var position Entry
		if err := unmarshalJSON(rankBody, &position); err != nil {
			return fmt.Errorf("rank of %s: %w", entry.Subject, err)
		}
		if position.Rank != entry.Rank {
			log.Printf("⚠️  Rank mismatch for %s: leaderboard says %d, rank read says %d", entry.Subject, entry.Rank, position.Rank)
		}

		profile, err := fetchProfile(ctx, client, config, entry.Subject)
		if err != nil {
			log.Printf("⚠️  Profile read for boarded subject %s failed: %v", entry.Subject, err)
			continue
		}
		if profile.Credibility != entry.Credibility {
			log.Printf("⚠️  Credibility lag for %s: board says %d, ledger says %d", entry.Subject, entry.Credibility, profile.Credibility)
		}
	}

	displayTopPerformers(leaderboard, config.Verbose)
	return nil
}

// displayTopPerformers shows the best-ranked subjects.
func displayTopPerformers(leaderboard []Entry, verbose bool) {
	topN := 10
	if len(leaderboard) < topN {
		topN = len(leaderboard)
	}

	log.Printf("🏆 Top %d subjects by credibility:", topN)
	for i := 0; i < topN; i++ {
		entry := leaderboard[i]
		log.Printf("   %d. %s - Credibility: %d", entry.Rank, entry.Subject, entry.Credibility)
	}

	if verbose && len(leaderboard) > 0 {
		credibilities := make([]uint64, len(leaderboard))
		var sum uint64
		for i, entry := range leaderboard {
			credibilities[i] = entry.Credibility
			sum += entry.Credibility
		}
		sort.Slice(credibilities, func(i, j int) bool { return credibilities[i] > credibilities[j] })

		log.Printf(`📊 Credibility statistics:
   Average: %.2f
   Maximum: %d
   Minimum: %d
`, float64(sum)/float64(len(leaderboard)), credibilities[0], credibilities[len(credibilities)-1])
	}
}
