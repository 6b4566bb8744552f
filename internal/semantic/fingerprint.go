package semantic

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Fingerprint hashes the canonical serialization of a raw record. Go's JSON
// encoder writes map keys in sorted order, so two logically identical records
// produce the same digest regardless of the key order they arrived with.
func Fingerprint(raw any) (string, error) {
	canonical, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("fingerprint: canonicalize record: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// FingerprintBytes parses raw JSON bytes and fingerprints the decoded value,
// so formatting and key order in the source bytes do not matter.
func FingerprintBytes(raw []byte) (string, error) {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("fingerprint: parse record: %w", err)
	}
	return Fingerprint(decoded)
}

// RecordID derives the canonical record identity from semantic text:
// "LOG-" + first 16 hex chars of SHA-256, uppercased. Identical errors
// converge on the same id, which is what makes merge idempotent.
func RecordID(semanticText string) string {
	sum := sha256.Sum256([]byte(semanticText))
	return "LOG-" + strings.ToUpper(hex.EncodeToString(sum[:])[:16])
}

// TicketID derives a ticket identifier from a record fingerprint.
func TicketID(logHash string) string {
	short := logHash
	if len(short) > 8 {
		short = short[:8]
	}
	return "OLL-" + strings.ToUpper(short)
}

// TicketURL is the browse URL attached to generated tickets.
func TicketURL(ticketID string) string {
	return "https://promptlyai.atlassian.net/browse/" + ticketID
}

// ShortTicketID reduces a ticket URL or id to its trailing segment.
func ShortTicketID(id string) string {
	if idx := strings.LastIndex(id, "/"); idx >= 0 {
		return id[idx+1:]
	}
	return id
}
