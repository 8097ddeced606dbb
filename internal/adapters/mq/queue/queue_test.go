package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/okian/goalsensor/internal/domain/event"
)

func goalEvent(team string) Event {
	return Event{Kind: event.KindGoal, Team: team, Score: 1, HasScore: true}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, goalEvent("foo")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	e := <-q.Dequeue(ctx)
	if e.Team != "foo" || e.Kind != event.KindGoal {
		t.Errorf("unexpected event %+v", e)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if q.Capacity() != 2 {
		t.Fatalf("expected capacity 2, got %d", q.Capacity())
	}
	if !q.Enqueue(ctx, goalEvent("a")) || !q.Enqueue(ctx, goalEvent("b")) {
		t.Fatal("expected enqueue to succeed")
	}

	// Full: the third event is dropped without blocking.
	if q.Enqueue(ctx, goalEvent("c")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	q.Enqueue(ctx, goalEvent("a"))
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := q.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if q.Enqueue(ctx, goalEvent("b")) {
		t.Error("expected enqueue to fail after close")
	}

	// Buffered events drain, then the channel closes.
	var got []string
	for e := range q.Dequeue(ctx) {
		got = append(got, e.Team)
	}
	if len(got) != 1 || got[0] != "a" {
		t.Errorf("expected [a], got %v", got)
	}
}

func TestInMemoryQueue_CancelledContext(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if q.Enqueue(ctx, goalEvent("a")) {
		t.Error("expected enqueue to fail with a cancelled context")
	}

	select {
	case _, ok := <-q.Dequeue(ctx):
		if ok {
			t.Error("expected no event from a cancelled dequeue")
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not stop on cancellation")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	const producers, perProducer = 8, 16
	q := NewInMemoryQueue(WithCapacity(producers * perProducer))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				if !q.Enqueue(ctx, goalEvent("foo")) {
					t.Error("expected enqueue to succeed")
				}
			}
		}()
	}
	wg.Wait()

	if l := q.Len(ctx); l != producers*perProducer {
		t.Errorf("expected length %d, got %d", producers*perProducer, l)
	}
}
