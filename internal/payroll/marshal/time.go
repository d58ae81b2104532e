package marshal

import (
	"math/big"
	"strconv"
	"strings"
	"time"
)

// maxSafeEpochSeconds bounds epoch values the ledger can plausibly emit.
// Matches the 2^53-1 safe-integer limit the upstream subscription enforces.
const maxSafeEpochSeconds = 1<<53 - 1

// noEndSentinel is the max-uint64 end date the contract stores for
// employees without a termination timestamp.
var noEndSentinel = new(big.Int).SetUint64(^uint64(0))

// ParseEpochSeconds converts an epoch-seconds wire value into a UTC time.
// It returns nil when the raw value is empty, zero, or not representable as
// a safe integer; sentinel and garbage values mean "absent", never an error.
func ParseEpochSeconds(raw string) *time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "0" {
		return nil
	}
	seconds, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || seconds < 0 || seconds > maxSafeEpochSeconds {
		return nil
	}
	t := time.UnixMilli(seconds * 1000).UTC()
	return &t
}

// ParseEndDate converts a raw end-date value into an optional termination
// time. The contract's "no end" sentinel normalizes to absent rather than
// to a date.
func ParseEndDate(raw string) *time.Time {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	if value, ok := new(big.Int).SetString(trimmed, 10); ok && value.Cmp(noEndSentinel) == 0 {
		return nil
	}
	return ParseEpochSeconds(trimmed)
}

// ParseDurationSeconds converts an epoch-style seconds count into a
// duration, for scalar contract values such as the rate expiry window.
// Unparseable input yields zero.
func ParseDurationSeconds(raw string) time.Duration {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	seconds, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// ParseUint parses small unsigned wire values such as token decimals and
// allocation basis points. Unparseable input yields zero, mirroring the
// upstream subscription's lenient integer handling.
func ParseUint(raw string) uint {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0
	}
	value, err := strconv.ParseUint(trimmed, 10, 32)
	if err != nil {
		return 0
	}
	return uint(value)
}
