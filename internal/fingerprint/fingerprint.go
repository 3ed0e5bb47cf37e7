// Package fingerprint computes the deterministic 256-bit cache key
// (spec §4.2). The fingerprint is independent of every request header and of
// any inbound query parameter other than tenant, method, target URL, body,
// and the raw TTL string.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// reservedQuerySlot is a historical artifact: the reference implementation
// concatenates a literal "{}" where query parameters would logically appear
// but never populates it. This byte must stay in the canonical input or
// every fingerprint computed by a deployed cache is silently orphaned
// (spec §9).
const reservedQuerySlot = "{}"

// Compute returns the 64-character lowercase hex fingerprint for a request.
// target_url must already have been URL-decoded exactly once from the outer
// url= query parameter; body is the raw request body interpreted as UTF-8
// text (empty string if absent).
func Compute(tenant, method, targetURL, body, ttlRaw string) string {
	var b strings.Builder
	b.WriteString(tenant)
	b.WriteByte(':')
	b.WriteString(strings.ToUpper(method))
	b.WriteByte(':')
	b.WriteString(targetURL)
	b.WriteByte(':')
	b.WriteString(reservedQuerySlot)
	b.WriteByte(':')
	b.WriteString(body)
	b.WriteByte(':')
	b.WriteString(ttlRaw)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
