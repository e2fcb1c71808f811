// Package types contains common types used across the application
package types

// Entry represents a skill standings entry
type Entry struct {
	Rank        int    `json:"rank"`
	Subject     string `json:"subject"`
	Credibility uint64 `json:"credibility"`
}
