// Package ttl converts the user-supplied TTL expression ("30s", "5m", "2h",
// "7d") into a number of seconds. It is a pure function with no side effects.
package ttl

import (
	"errors"
	"regexp"
	"strconv"
)

// MaxSeconds is the cap applied to any TTL that overflows a signed 32-bit
// integer (2^31 - 1), matching the reference implementation.
const MaxSeconds = 1<<31 - 1

var grammar = regexp.MustCompile(`^([0-9]+)([smhd])$`)

var unitSeconds = map[string]int64{
	"s": 1,
	"m": 60,
	"h": 3600,
	"d": 86400,
}

// Parse converts a TTL expression into seconds. Empty or non-matching input
// returns defaultSeconds, matching the reference behavior of silently
// defaulting rather than rejecting (spec §4.1). Overflow is capped at
// MaxSeconds rather than wrapping.
func Parse(raw string, defaultSeconds int) int {
	m := grammar.FindStringSubmatch(raw)
	if m == nil {
		return defaultSeconds
	}

	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return MaxSeconds
		}
		return defaultSeconds
	}

	unit := unitSeconds[m[2]]
	if n > MaxSeconds/unit {
		return MaxSeconds
	}
	seconds := n * unit
	if seconds == 0 {
		return defaultSeconds
	}
	return int(seconds)
}

// IsExplicitZero reports whether raw is syntactically valid but resolves to
// zero seconds (e.g. "0s"). The cache engine uses this to reject ttl=0 outright
// (a BadRequest) rather than silently substituting the default, per the
// boundary behavior in spec §8.
func IsExplicitZero(raw string) bool {
	m := grammar.FindStringSubmatch(raw)
	if m == nil {
		return false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return false
	}
	return n == 0
}
