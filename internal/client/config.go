package client

import (
	"time"

	"github.com/a3fpro-lab/vireon-testnet4-proofbench-miner/internal/scanner"
)

// Config is everything the live client needs for one mining session,
// matching the CLI options table.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Timeout  time.Duration

	BatchNonces  uint32
	StaleSeconds time.Duration

	// SuggestDifficulty is sent once after authorize if non-nil;
	// nil means do not send it.
	SuggestDifficulty *float64

	// NonceMode selects the baseline configured start nonce or the
	// Vireon deterministic per-job start nonce.
	NonceMode     scanner.Mode
	NonceStart    uint32
	MaxShares     int           // 0 means unbounded
	RunDuration   time.Duration // 0 means unbounded
	LogEvery      time.Duration
}
