package dispatch

import (
	"fmt"
	"testing"

	"github.com/ignite/campaign-dispatch/internal/domain"
)

func makeRecipients(n int) []domain.Recipient {
	out := make([]domain.Recipient, n)
	for i := range out {
		out[i] = domain.Recipient{
			ID:    fmt.Sprintf("c-%d", i),
			Email: fmt.Sprintf("user%d@example.com", i),
		}
	}
	return out
}

func TestPlanChunksCounts(t *testing.T) {
	cases := []struct {
		n, batch, want int
	}{
		{0, 50, 0},
		{1, 50, 1},
		{50, 50, 1},
		{51, 50, 2},
		{120, 50, 3},
		{100, 50, 2},
		{7, 3, 3},
	}
	for _, tc := range cases {
		chunks := PlanChunks(makeRecipients(tc.n), tc.batch)
		if len(chunks) != tc.want {
			t.Errorf("n=%d batch=%d: expected %d chunks, got %d", tc.n, tc.batch, tc.want, len(chunks))
		}
	}
}

func TestPlanChunksPreservesOrder(t *testing.T) {
	in := makeRecipients(120)
	chunks := PlanChunks(in, 50)

	var flat []domain.Recipient
	for _, ch := range chunks {
		if len(ch) == 0 {
			t.Fatal("empty chunk produced")
		}
		if len(ch) > 50 {
			t.Fatalf("chunk of %d exceeds max 50", len(ch))
		}
		flat = append(flat, ch...)
	}

	if len(flat) != len(in) {
		t.Fatalf("concatenation has %d recipients, want %d", len(flat), len(in))
	}
	for i := range in {
		if flat[i].ID != in[i].ID {
			t.Fatalf("order broken at %d: got %s want %s", i, flat[i].ID, in[i].ID)
		}
	}
}

func TestPlanChunksSizes(t *testing.T) {
	chunks := PlanChunks(makeRecipients(120), 50)
	sizes := []int{50, 50, 20}
	for i, want := range sizes {
		if len(chunks[i]) != want {
			t.Errorf("chunk %d: size %d, want %d", i, len(chunks[i]), want)
		}
	}
}

func TestPlanChunksDefaultBatch(t *testing.T) {
	chunks := PlanChunks(makeRecipients(51), 0)
	if len(chunks) != 2 {
		t.Fatalf("expected fallback to batch size %d, got %d chunks", defaultMaxBatch, len(chunks))
	}
}
