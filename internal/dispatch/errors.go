package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatch pipeline.
var (
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrNoValidRecipients = errors.New("no valid recipients")
	ErrDispatchInFlight  = errors.New("campaign dispatch already in flight")
	ErrAlreadyDispatched = errors.New("campaign already dispatched; use resend")
	ErrNotResendable     = errors.New("campaign is not in a terminal state")
)

// PersistenceError marks a bookkeeping failure that happened after the
// provider already accepted mail. It is the highest-severity failure mode:
// the provider believes email was sent while our state disagrees, so it is
// logged loudly and surfaced as a warning, never as a failed dispatch.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
