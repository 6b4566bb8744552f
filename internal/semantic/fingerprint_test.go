package semantic

import (
	"strings"
	"testing"
)

func TestFingerprintKeyOrderInvariant(t *testing.T) {
	a := []byte(`[{"flowCode":"F1","errorCode":"E1","userId":"u-1"}]`)
	b := []byte(`[{"userId":"u-1","flowCode":"F1","errorCode":"E1"}]`)

	fpA, err := FingerprintBytes(a)
	if err != nil {
		t.Fatalf("FingerprintBytes(a): %v", err)
	}
	fpB, err := FingerprintBytes(b)
	if err != nil {
		t.Fatalf("FingerprintBytes(b): %v", err)
	}
	if fpA != fpB {
		t.Fatalf("fingerprint depends on key order: %s vs %s", fpA, fpB)
	}
	if len(fpA) != 64 {
		t.Fatalf("fingerprint length: want=64 got=%d", len(fpA))
	}
}

func TestFingerprintDistinguishesValues(t *testing.T) {
	fpA, err := Fingerprint(map[string]any{"errorCode": "E1"})
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	fpB, err := Fingerprint(map[string]any{"errorCode": "E2"})
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if fpA == fpB {
		t.Fatalf("distinct records hashed identically")
	}
}

func TestFingerprintBytesRejectsInvalidJSON(t *testing.T) {
	if _, err := FingerprintBytes([]byte("{not json")); err == nil {
		t.Fatalf("expected parse error for invalid JSON")
	}
}

func TestRecordIDDeterministicAndShaped(t *testing.T) {
	id1 := RecordID("flow: F1\nerror: boom")
	id2 := RecordID("flow: F1\nerror: boom")
	if id1 != id2 {
		t.Fatalf("record id not deterministic: %s vs %s", id1, id2)
	}
	if !strings.HasPrefix(id1, "LOG-") {
		t.Fatalf("record id prefix: got=%s", id1)
	}
	if len(id1) != len("LOG-")+16 {
		t.Fatalf("record id length: got=%d (%s)", len(id1), id1)
	}
	if id1 != strings.ToUpper(id1) {
		t.Fatalf("record id not uppercased: %s", id1)
	}
	if id1 == RecordID("flow: F2\nerror: boom") {
		t.Fatalf("different semantic text produced the same record id")
	}
}

func TestTicketIDFromHash(t *testing.T) {
	got := TicketID("4ff0674aabcdef0123456789")
	if got != "OLL-4FF0674A" {
		t.Fatalf("ticket id: want=OLL-4FF0674A got=%s", got)
	}
}

func TestShortTicketID(t *testing.T) {
	if got := ShortTicketID("https://promptlyai.atlassian.net/browse/OLL-AB12CD34"); got != "OLL-AB12CD34" {
		t.Fatalf("short ticket id from url: got=%s", got)
	}
	if got := ShortTicketID("OLL-AB12CD34"); got != "OLL-AB12CD34" {
		t.Fatalf("short ticket id passthrough: got=%s", got)
	}
}
