package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, fn func()) map[string]string {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	fn()
	if buf.Len() == 0 {
		return nil
	}
	var entry map[string]string
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("log output not valid JSON: %v (%s)", err, buf.String())
	}
	return entry
}

func TestRedactEmail(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"john.doe@example.com", "jo***@example.com"},
		{"ab@example.com", "***@example.com"},
		{"a@example.com", "***@example.com"},
		{"not-an-email", "***@***"},
		{"two@at@signs", "***@***"},
	}
	for _, tc := range cases {
		if got := RedactEmail(tc.in); got != tc.want {
			t.Errorf("RedactEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestLogRedactsEmailFields(t *testing.T) {
	entry := capture(t, func() {
		Info("send recorded", "recipient_email", "john.doe@example.com")
	})
	if got := entry["recipient_email"]; got != "jo***@example.com" {
		t.Errorf("recipient_email = %q", got)
	}
}

func TestLogRedactsEmbeddedAddresses(t *testing.T) {
	entry := capture(t, func() {
		Warn("bounce", "detail", "hard bounce for jane.roe@example.com")
	})
	if strings.Contains(entry["detail"], "jane.roe@") {
		t.Errorf("address leaked: %q", entry["detail"])
	}
	if !strings.Contains(entry["detail"], "ja***@example.com") {
		t.Errorf("masked form missing: %q", entry["detail"])
	}
}

func TestLogLevelFilter(t *testing.T) {
	SetLevel(WARN)
	defer SetLevel(INFO)

	entry := capture(t, func() {
		Info("too quiet", "k", "v")
	})
	if entry != nil {
		t.Errorf("INFO emitted below the WARN threshold: %v", entry)
	}
}

func TestLogEntryShape(t *testing.T) {
	entry := capture(t, func() {
		Info("dispatch complete", "campaign_id", "cmp-1", "sent", "70")
	})
	if entry["level"] != "INFO" || entry["msg"] != "dispatch complete" {
		t.Errorf("entry = %v", entry)
	}
	if entry["campaign_id"] != "cmp-1" || entry["sent"] != "70" {
		t.Errorf("fields = %v", entry)
	}
}
