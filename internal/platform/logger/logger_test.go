package logger

import (
	"strings"
	"testing"
)

func TestSanitizeKVs(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"draft_id", "d-1",
		"SENDGRID_API_KEY", "SG.secret",
		"to_email", "Dean@Example.edu",
		"body_html", "<p>hi</p>",
		"metadata", map[string]interface{}{"recipient": "dean@example.edu", "signal": "open"},
		"dangling",
	})
	got := map[string]interface{}{}
	for i := 0; i+1 < len(out); i += 2 {
		got[out[i].(string)] = out[i+1]
	}
	if got["draft_id"] != "d-1" {
		t.Fatalf("plain value changed: %v", got["draft_id"])
	}
	if got["SENDGRID_API_KEY"] != "[REDACTED]" || got["body_html"] != "[REDACTED]" {
		t.Fatalf("secrets not redacted: %v", got)
	}
	email, _ := got["to_email"].(string)
	if !strings.HasPrefix(email, "hash:") {
		t.Fatalf("email not hashed: %v", got["to_email"])
	}
	meta := got["metadata"].(map[string]interface{})
	if meta["recipient"] != email {
		t.Fatalf("hash should ignore case: %v vs %v", meta["recipient"], email)
	}
	if meta["signal"] != "open" {
		t.Fatalf("nested plain value changed")
	}
	if out[len(out)-1] != "dangling" {
		t.Fatalf("odd trailing key dropped")
	}
}

func TestNopLogger(t *testing.T) {
	l := Nop().With("service", "test")
	l.Info("discarded", "k", "v")
	l.Sync()
}
