package app

import (
	"context"
	"testing"
)

func TestCandidateBufferDrainOrder(t *testing.T) {
	ctx := context.Background()
	b := NewCandidateBuffer()
	ep := &fakeEndpoint{}

	for i := 1; i <= 5; i++ {
		b.Enqueue("s1", cand(i))
	}
	b.Enqueue("s2", cand(99))

	b.DrainInto(ctx, "s1", ep)

	if len(ep.added) != 5 {
		t.Fatalf("drained %d candidates, want 5", len(ep.added))
	}
	for i, c := range ep.added {
		if want := cand(i + 1).Candidate; c.Candidate != want {
			t.Errorf("drained[%d] = %q, want %q", i, c.Candidate, want)
		}
	}
	if n := b.Pending("s1"); n != 0 {
		t.Errorf("pending after drain = %d", n)
	}
	if n := b.Pending("s2"); n != 1 {
		t.Errorf("other session's queue disturbed: %d", n)
	}
}

func TestCandidateBufferDrainEmpty(t *testing.T) {
	b := NewCandidateBuffer()
	ep := &fakeEndpoint{}
	b.DrainInto(context.Background(), "nobody", ep)
	if len(ep.added) != 0 {
		t.Errorf("drained %d candidates from empty queue", len(ep.added))
	}
}

func TestCandidateBufferDrainToleratesFailures(t *testing.T) {
	b := NewCandidateBuffer()
	ep := &fakeEndpoint{failAdd: errBoom}
	b.Enqueue("s1", cand(1))

	// No panic, no retry, queue consumed.
	b.DrainInto(context.Background(), "s1", ep)
	if n := b.Pending("s1"); n != 0 {
		t.Errorf("queue kept after failed drain: %d", n)
	}
}

func TestCandidateBufferClear(t *testing.T) {
	b := NewCandidateBuffer()
	b.Enqueue("s1", cand(1))
	b.Enqueue("s1", cand(2))
	b.Clear("s1")
	if n := b.Pending("s1"); n != 0 {
		t.Errorf("pending after clear = %d", n)
	}
	b.Clear("s1")
}
