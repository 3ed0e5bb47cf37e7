package ttl_test

import (
	"testing"

	"github.com/camrail/dejafoo/internal/ttl"
)

func TestParse(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"30s", 30},
		{"5m", 300},
		{"2h", 7200},
		{"7d", 604800},
		{"", 3600},
		{"garbage", 3600},
		{"-5s", 3600},
		{"5x", 3600},
	}
	for _, c := range cases {
		if got := ttl.Parse(c.raw, 3600); got != c.want {
			t.Errorf("Parse(%q) = %d, want %d", c.raw, got, c.want)
		}
	}
}

func TestParse_Overflow(t *testing.T) {
	if got := ttl.Parse("99999d", 3600); got != ttl.MaxSeconds {
		t.Errorf("Parse(99999d) = %d, want cap %d", got, ttl.MaxSeconds)
	}
}

func TestParse_ZeroDefaults(t *testing.T) {
	// parse_ttl("0s") silently defaults per spec §4.1; the cache engine is
	// responsible for rejecting an explicit zero as BadRequest.
	if got := ttl.Parse("0s", 3600); got != 3600 {
		t.Errorf("Parse(0s) = %d, want default 3600", got)
	}
}

func TestIsExplicitZero(t *testing.T) {
	if !ttl.IsExplicitZero("0s") {
		t.Error("expected 0s to be explicit zero")
	}
	if ttl.IsExplicitZero("") {
		t.Error("empty input is not an explicit zero")
	}
	if ttl.IsExplicitZero("30s") {
		t.Error("30s is not zero")
	}
	if ttl.IsExplicitZero("garbage") {
		t.Error("garbage is not a valid zero expression")
	}
}
