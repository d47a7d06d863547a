package dispatch

import (
	"testing"

	"github.com/ignite/campaign-dispatch/internal/domain"
)

func TestValidateRecipientsPartition(t *testing.T) {
	in := []domain.Recipient{
		{ID: "c-1", Email: "good@example.com"},
		{ID: "c-2", Email: "not-an-address"},
		{ID: "c-3", Email: ""},
		{ID: "c-4", Email: "also.good@example.com"},
		{ID: "c-5", Email: "missing@domain"},
	}

	valid, invalid := ValidateRecipients(in)

	if len(valid) != 2 {
		t.Fatalf("expected 2 valid, got %d", len(valid))
	}
	if valid[0].ID != "c-1" || valid[1].ID != "c-4" {
		t.Errorf("valid order broken: %s, %s", valid[0].ID, valid[1].ID)
	}

	if len(invalid) != 3 {
		t.Fatalf("expected 3 invalid, got %d", len(invalid))
	}
	if invalid[0].Recipient.ID != "c-2" || invalid[0].Reason != reasonMalformed {
		t.Errorf("c-2: got reason %q", invalid[0].Reason)
	}
	if invalid[1].Recipient.ID != "c-3" || invalid[1].Reason != reasonEmptyEmail {
		t.Errorf("c-3: got reason %q", invalid[1].Reason)
	}
}

func TestValidateRecipientsTrimsWhitespace(t *testing.T) {
	valid, invalid := ValidateRecipients([]domain.Recipient{
		{ID: "c-1", Email: "  padded@example.com  "},
	})
	if len(invalid) != 0 {
		t.Fatalf("whitespace-padded address rejected: %v", invalid)
	}
	if valid[0].Email != "padded@example.com" {
		t.Errorf("email not trimmed: %q", valid[0].Email)
	}
}

func TestValidateRecipientsRejectsDisplayNameForm(t *testing.T) {
	_, invalid := ValidateRecipients([]domain.Recipient{
		{ID: "c-1", Email: "Alice <alice@example.com>"},
	})
	if len(invalid) != 1 {
		t.Fatal("display-name form should not pass as a bare address")
	}
}

func TestValidateRecipientsEmptyInput(t *testing.T) {
	valid, invalid := ValidateRecipients(nil)
	if len(valid) != 0 || len(invalid) != 0 {
		t.Fatalf("expected empty partitions, got %d/%d", len(valid), len(invalid))
	}
}
