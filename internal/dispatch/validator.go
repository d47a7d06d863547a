package dispatch

import (
	"net/mail"
	"strings"

	"github.com/ignite/campaign-dispatch/internal/domain"
)

// InvalidRecipient is a recipient rejected before any send attempt, with the
// reason it was partitioned out.
type InvalidRecipient struct {
	Recipient domain.Recipient `json:"recipient"`
	Reason    string           `json:"reason"`
}

const (
	reasonMalformed  = "malformed address"
	reasonEmptyEmail = "empty address"
)

// ValidateRecipients partitions a recipient list into deliverable and
// rejected entries. Pure function, no I/O. Order is preserved within each
// partition.
func ValidateRecipients(in []domain.Recipient) (valid []domain.Recipient, invalid []InvalidRecipient) {
	for _, r := range in {
		email := strings.TrimSpace(r.Email)
		if email == "" {
			invalid = append(invalid, InvalidRecipient{Recipient: r, Reason: reasonEmptyEmail})
			continue
		}
		addr, err := mail.ParseAddress(email)
		// ParseAddress accepts display-name forms like "A <a@b.c>"; a bare
		// address must round-trip to itself to count as deliverable input.
		if err != nil || addr.Address != email {
			invalid = append(invalid, InvalidRecipient{Recipient: r, Reason: reasonMalformed})
			continue
		}
		r.Email = email
		valid = append(valid, r)
	}
	return valid, invalid
}
