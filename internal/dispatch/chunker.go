package dispatch

import "github.com/ignite/campaign-dispatch/internal/domain"

// SES caps bulk calls at 50 destinations.
const (
	SESBatchSize    = 50
	defaultMaxBatch = SESBatchSize
)

// PlanChunks splits a validated recipient list into ordered, non-overlapping,
// non-empty chunks of at most maxBatch recipients. The concatenation of the
// chunks is exactly the input. Stateless; an empty input yields no chunks.
func PlanChunks(recipients []domain.Recipient, maxBatch int) [][]domain.Recipient {
	if maxBatch <= 0 {
		maxBatch = defaultMaxBatch
	}

	var chunks [][]domain.Recipient
	for i := 0; i < len(recipients); i += maxBatch {
		end := i + maxBatch
		if end > len(recipients) {
			end = len(recipients)
		}
		chunks = append(chunks, recipients[i:end])
	}
	return chunks
}
