package simulate

import "time"

// Config holds configuration for the endorsement simulation
type Config struct {
	BaseURL      string        // Base URL of the service
	AuthSecret   string        // Secret that signs caller bearer tokens
	Authority    string        // Account allowed to slash
	Skill        string        // Skill under test
	Subjects     int           // Number of accounts claiming the skill
	Endorsers    int           // Number of endorsing accounts
	Endorsements int           // Number of endorsements to submit
	Slashes      int           // Number of endorsements to slash afterwards
	MinStake     uint64        // Smallest stake the server accepts
	TopN         int           // Number of leaderboard entries to fetch
	Workers      int           // Number of concurrent workers
	Timeout      time.Duration // HTTP request timeout
	LogFile      string        // Log file for simulation output
	Verbose      bool          // Enable verbose logging
}

// Endorsement represents one planned endorsement submission
type Endorsement struct {
	RequestID string `json:"request_id"`
	Endorser  string `json:"endorser"`
	Subject   string `json:"subject"`
	Skill     string `json:"skill"`
	Stake     uint64 `json:"stake"`
}

// Receipt records one accepted endorsement for the slash phase
type Receipt struct {
	Subject  string
	Endorser string
	Index    uint64
	Stake    uint64
}

// Entry represents a leaderboard entry
type Entry struct {
	Rank        int    `json:"rank"`
	Subject     string `json:"subject"`
	Credibility uint64 `json:"credibility"`
}

// EndorseAck represents the response from endorsement submission
type EndorseAck struct {
	Status      string `json:"status"`
	Duplicate   bool   `json:"duplicate"`
	Index       uint64 `json:"index"`
	Gain        uint64 `json:"gain"`
	Credibility uint64 `json:"credibility"`
}

// apiError represents the error payload returned by the service
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// profileInfo is the profile read shape used by the audit phase
type profileInfo struct {
	Subject            string `json:"subject"`
	Skill              string `json:"skill"`
	Credibility        uint64 `json:"credibility"`
	ActiveEndorsements uint64 `json:"active_endorsements"`
	TotalEndorsements  uint64 `json:"total_endorsements"`
	AggregateStake     uint64 `json:"aggregate_stake"`
}

// endorsementInfo is one endorsement record read by the audit phase
type endorsementInfo struct {
	Endorser string `json:"endorser"`
	Stake    uint64 `json:"stake"`
	Active   bool   `json:"active"`
}

// escrowInfo is the escrow read shape
type escrowInfo struct {
	EscrowBalance uint64 `json:"escrow_balance"`
}

// faucetInfo is the faucet grant response shape
type faucetInfo struct {
	Account string `json:"account"`
	Granted uint64 `json:"granted"`
	Balance uint64 `json:"balance"`
}

// slashInfo is the slash response shape
type slashInfo struct {
	Status    string `json:"status"`
	Endorser  string `json:"endorser"`
	Forfeited uint64 `json:"forfeited"`
}

// Stats holds simulation statistics
type Stats struct {
	ParticipantsGenerated  int
	ClaimsSubmitted        int
	ClaimsSuccessful       int
	ClaimsFailed           int
	GrantsIssued           int
	StakeGranted           uint64
	EndorsementsPlanned    int
	EndorsementsSubmitted  int
	EndorsementsSuccessful int
	EndorsementsDuplicate  int
	EndorsementsFailed     int
	SlashesSubmitted       int
	SlashesSuccessful      int
	SlashesFailed          int
	ProfilesAudited        int
	AuditMismatches        int
	LeaderboardEntries     int
	StartTime              time.Time
	EndTime                time.Time
	Duration               time.Duration
}
