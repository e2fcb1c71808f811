package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with a timeout and bearer-token auth
type HTTPClient struct {
	client *http.Client
	tokens *tokenSource
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration, tokens *tokenSource) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		tokens: tokens,
	}
}

// Get performs an unauthenticated GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body, acting as identity
func (c *HTTPClient) Post(ctx context.Context, url, identity string, body interface{}) (*http.Response, error) {
	jsonData, err := marshalJSON(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.tokens.Token(identity)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	return c.client.Do(req)
}

// marshalJSON marshals a struct to JSON
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// unmarshalJSON unmarshals JSON to a struct
func unmarshalJSON(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

// readResponseBody reads and closes the response body
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// decodeError extracts the service error code from a response body.
func decodeError(body []byte) string {
	var apiErr apiError
	if err := unmarshalJSON(body, &apiErr); err != nil || apiErr.Code == "" {
		return "unknown"
	}
	return apiErr.Code
}

// progressReporter rate-limits progress lines across workers.
type progressReporter struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
}

func newProgressReporter(interval time.Duration) *progressReporter {
	return &progressReporter{interval: interval}
}

// Due reports whether enough time has passed for another progress line.
func (p *progressReporter) Due() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if time.Since(p.last) < p.interval {
		return false
	}
	p.last = time.Now()
	return true
}

// submitClaims has every participant claim the skill under test.
func submitClaims(ctx context.Context, client *HTTPClient, config *Config, accounts []string, stats *Stats) error {
	log.Printf("📝 Claiming %q for %d participants with %d workers...", config.Skill, len(accounts), config.Workers)

	url := config.BaseURL + "/claims"

	var (
		successful int64
		failed     int64
	)

	accountChan := make(chan string, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for account := range accountChan {
				select {
				case <-ctx.Done():
					return
				default:
					if err := submitSingleClaim(ctx, client, url, account, config.Skill); err != nil {
						atomic.AddInt64(&failed, 1)
						if config.Verbose {
							log.Printf("⚠️  Claim failed for %s: %v", account, err)
						}
					} else {
						atomic.AddInt64(&successful, 1)
					}
				}
			}
		}()
	}

	go func() {
		defer close(accountChan)
		for _, account := range accounts {
			select {
			case <-ctx.Done():
				return
			case accountChan <- account:
			}
		}
	}()

	wg.Wait()

	stats.ClaimsSubmitted = len(accounts)
	stats.ClaimsSuccessful = int(atomic.LoadInt64(&successful))
	stats.ClaimsFailed = int(atomic.LoadInt64(&failed))

	if stats.ClaimsFailed > 0 {
		return fmt.Errorf("%d of %d claims failed", stats.ClaimsFailed, stats.ClaimsSubmitted)
	}

	log.Printf("✅ Claimed %q for %d participants", config.Skill, stats.ClaimsSuccessful)
	return nil
}

// submitSingleClaim claims the skill for one account. A conflict means
// the account already claimed it on an earlier run, which is fine.
func submitSingleClaim(ctx context.Context, client *HTTPClient, url, account, skill string) error {
	resp, err := client.Post(ctx, url, account, map[string]string{"skill": skill})
	if err != nil {
		return err
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case StatusCreated, http.StatusConflict:
		return nil
	default:
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, decodeError(body))
	}
}

// submitFunding grants each endorser enough balance to cover every
// stake the plan assigns to it.
func submitFunding(ctx context.Context, client *HTTPClient, config *Config, plan []Endorsement, stats *Stats) error {
	// Per-endorser stake totals
	needs := make(map[string]uint64)
	for _, e := range plan {
		needs[e.Endorser] += e.Stake
	}

	log.Printf("💰 Funding %d endorsers...", len(needs))

	url := config.BaseURL + "/faucet"

	var (
		granted int64
		total   uint64
		mu      sync.Mutex
	)

	type grant struct {
		account string
		amount  uint64
	}
	grantChan := make(chan grant, config.Workers*WorkerChannelMultiplier)
	errChan := make(chan error, len(needs))
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for g := range grantChan {
				select {
				case <-ctx.Done():
					return
				default:
					amount, err := submitSingleGrant(ctx, client, url, g.account, g.amount)
					if err != nil {
						errChan <- fmt.Errorf("funding %s: %w", g.account, err)
						continue
					}
					atomic.AddInt64(&granted, 1)
					mu.Lock()
					total += amount
					mu.Unlock()
				}
			}
		}()
	}

	go func() {
		defer close(grantChan)
		for account, amount := range needs {
			select {
			case <-ctx.Done():
				return
			case grantChan <- grant{account: account, amount: amount}:
			}
		}
	}()

	wg.Wait()
	close(errChan)

	stats.GrantsIssued = int(atomic.LoadInt64(&granted))
	stats.StakeGranted = total

	if err := <-errChan; err != nil {
		return err
	}

	log.Printf("✅ Granted %d units across %d endorsers", total, stats.GrantsIssued)
	return nil
}

// submitSingleGrant requests one faucet grant.
func submitSingleGrant(ctx context.Context, client *HTTPClient, url, account string, amount uint64) (uint64, error) {
	resp, err := client.Post(ctx, url, account, map[string]uint64{"amount": amount})
	if err != nil {
		return 0, err
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != StatusOK {
		code := decodeError(body)
		switch code {
		case "faucet_disabled":
			return 0, fmt.Errorf("faucet is disabled; restart the server with VOUCH_FAUCET_ENABLED=true")
		case "faucet_limit":
			return 0, fmt.Errorf("grant of %d exceeds the faucet ceiling; raise VOUCH_FAUCET_MAX_AMOUNT or lower -endorsements", amount)
		default:
			return 0, fmt.Errorf("HTTP %d: %s", resp.StatusCode, code)
		}
	}

	var info faucetInfo
	if err := unmarshalJSON(body, &info); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}
	return info.Granted, nil
}

// submitEndorsements submits the plan concurrently using worker pools
// and collects receipts for the slash phase.
func submitEndorsements(ctx context.Context, client *HTTPClient, config *Config, plan []Endorsement, stats *Stats) ([]Receipt, error) {
	if len(plan) == 0 {
		return nil, nil
	}

	log.Printf("📤 Submitting %d endorsements with %d workers...", len(plan), config.Workers)

	url := config.BaseURL + "/endorsements"

	// The first endorsement goes alone: a rejection here usually means
	// the server's credibility gate blocks fresh accounts, and the rest
	// of the plan would fail the same way.
	result, probeReceipt, code := submitSingleEndorsement(ctx, client, url, plan[0])
	if result == "failed" && code == "insufficient_credibility" {
		return nil, fmt.Errorf("the server's credibility gate blocks fresh accounts from endorsing; restart it with VOUCH_MIN_CREDIBILITY_TO_ENDORSE=1")
	}

	// Counters for statistics
	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	var (
		receiptMu sync.Mutex
		receipts  []Receipt
	)

	record := func(result string, receipt Receipt) {
		atomic.AddInt64(&submitted, 1)
		switch result {
		case "success":
			atomic.AddInt64(&successful, 1)
			receiptMu.Lock()
			receipts = append(receipts, receipt)
			receiptMu.Unlock()
		case "duplicate":
			atomic.AddInt64(&duplicate, 1)
		case "failed":
			atomic.AddInt64(&failed, 1)
		}
	}

	record(result, probeReceipt)

	// Progress reporting
	progress := newProgressReporter(1 * time.Second)

	// Create worker pool
	planChan := make(chan Endorsement, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	// Start workers
	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for entry := range planChan {
				select {
				case <-ctx.Done():
					return
				default:
					result, receipt, errCode := submitSingleEndorsement(ctx, client, url, entry)
					record(result, receipt)

					if result == "failed" && config.Verbose {
						log.Printf("⚠️  Endorsement %s -> %s rejected: %s", entry.Endorser, entry.Subject, errCode)
					}

					if progress.Due() {
						total := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						dup := atomic.LoadInt64(&duplicate)
						fail := atomic.LoadInt64(&failed)
						log.Printf("📊 Progress: %d/%d submitted (success: %d, duplicate: %d, failed: %d)",
							total, len(plan), succ, dup, fail)
					}
				}
			}
		}()
	}

	// Send remaining plan entries to workers
	go func() {
		defer close(planChan)
		for _, entry := range plan[1:] {
			select {
			case <-ctx.Done():
				return
			case planChan <- entry:
			}
		}
	}()

	// Wait for all workers to complete
	wg.Wait()

	// Update stats
	stats.EndorsementsSubmitted = int(atomic.LoadInt64(&submitted))
	stats.EndorsementsSuccessful = int(atomic.LoadInt64(&successful))
	stats.EndorsementsDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.EndorsementsFailed = int(atomic.LoadInt64(&failed))

	log.Printf(`✅ Endorsement submission completed:
   Successful: %d
   Duplicate: %d
   Failed: %d
`, stats.EndorsementsSuccessful, stats.EndorsementsDuplicate, stats.EndorsementsFailed)

	return receipts, nil
}

// submitSingleEndorsement submits one endorsement. It returns the
// outcome, the receipt when accepted, and the error code when rejected.
func submitSingleEndorsement(ctx context.Context, client *HTTPClient, url string, entry Endorsement) (string, Receipt, string) {
	resp, err := client.Post(ctx, url, entry.Endorser, entry)
	if err != nil {
		return "failed", Receipt{}, "unreachable"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed", Receipt{}, "unreadable"
	}

	switch resp.StatusCode {
	case StatusCreated:
		// Created - new endorsement
		var ack EndorseAck
		receipt := Receipt{Subject: entry.Subject, Endorser: entry.Endorser, Stake: entry.Stake}
		if err := unmarshalJSON(body, &ack); err == nil {
			receipt.Index = ack.Index
		}
		return "success", receipt, ""
	case StatusOK:
		// OK - replayed request ID
		return "duplicate", Receipt{}, ""
	default:
		return "failed", Receipt{}, decodeError(body)
	}
}

// submitSlashes has the authority slash the first accepted endorsement
// of distinct subjects until the requested count is reached.
func submitSlashes(ctx context.Context, client *HTTPClient, config *Config, receipts []Receipt, stats *Stats) error {
	if config.Slashes == 0 || len(receipts) == 0 {
		return nil
	}

	// First accepted endorsement per subject, so no slash hits an
	// already-slashed index.
	targets := make([]Receipt, 0, config.Slashes)
	seen := make(map[string]bool)
	for _, r := range receipts {
		if seen[r.Subject] {
			continue
		}
		seen[r.Subject] = true
		targets = append(targets, r)
		if len(targets) == config.Slashes {
			break
		}
	}

	log.Printf("⚔️  Slashing %d endorsements as %q...", len(targets), config.Authority)

	url := config.BaseURL + "/slashes"

	for _, target := range targets {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		stats.SlashesSubmitted++
		resp, err := client.Post(ctx, url, config.Authority, map[string]interface{}{
			"subject": target.Subject,
			"skill":   config.Skill,
			"index":   target.Index,
		})
		if err != nil {
			stats.SlashesFailed++
			log.Printf("⚠️  Slash of %s[%d] failed: %v", target.Subject, target.Index, err)
			continue
		}

		body, err := readResponseBody(resp)
		if err != nil {
			stats.SlashesFailed++
			continue
		}

		if resp.StatusCode != StatusOK {
			stats.SlashesFailed++
			log.Printf("⚠️  Slash of %s[%d] rejected: %s", target.Subject, target.Index, decodeError(body))
			continue
		}

		var info slashInfo
		if err := unmarshalJSON(body, &info); err == nil && config.Verbose {
			log.Printf("⚔️  Slashed %s[%d]: %s forfeited %d", target.Subject, target.Index, info.Endorser, info.Forfeited)
		}
		stats.SlashesSuccessful++
	}

	log.Printf("✅ Slash phase completed: %d slashed, %d failed", stats.SlashesSuccessful, stats.SlashesFailed)
	return nil
}
