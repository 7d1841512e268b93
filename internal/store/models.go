package store

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

// ErrMalformedRecord is returned when a record fails validation before any I/O.
var ErrMalformedRecord = errors.New("malformed history record")

// Record is one executed command instance.
// ID and Rank are assigned by the store; callers fill in the rest.
type Record struct {
	ID         int64
	Cmd        string
	Cwd        string
	ExitCode   int
	DurationMs int64
	Session    string
	Host       string
	TS         int64 // seconds since epoch
	Rank       float64
}

// Validate checks the fields the write path requires.
// It rejects bad input synchronously, before any I/O.
func (r *Record) Validate() error {
	if r.Cmd == "" {
		return fmt.Errorf("%w: empty command", ErrMalformedRecord)
	}
	if r.Cwd == "" {
		return fmt.Errorf("%w: empty working directory", ErrMalformedRecord)
	}
	return nil
}

// CommandStat is the per-distinct-command frequency/recency aggregate.
type CommandStat struct {
	CmdHash  string
	Cmd      string
	Count    int64
	LastUsed int64 // seconds since epoch
}

// CommandHash returns the stable hash used to key command_stats.
// Truncated SHA-256, hex encoded.
func CommandHash(cmd string) string {
	h := sha256.Sum256([]byte(cmd))
	return fmt.Sprintf("%x", h[:16])
}
