package queue

import (
	"testing"

	"github.com/acktun/acktun/internal/packet"
)

func mustEnqueue(t *testing.T, q *Queue, data []byte) {
	t.Helper()
	if err := q.Enqueue(packet.New(data)); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
}

func TestQueueEmptyAndCapacity(t *testing.T) {
	q := New(5, "tap")
	if !q.IsEmpty() {
		t.Errorf("new queue should be empty")
	}
	if q.Capacity() != 5 {
		t.Errorf("Capacity() = %d, want 5", q.Capacity())
	}
}

func TestQueueFIFOOrder(t *testing.T) {
	q := New(10, "tap")
	for i := 0; i < 5; i++ {
		mustEnqueue(t, q, []byte{byte(i)})
	}
	for i := 0; i < 5; i++ {
		p, ok := q.Dequeue()
		if !ok {
			t.Fatalf("Dequeue: queue empty at i=%d", i)
		}
		if p.Data[0] != byte(i) {
			t.Errorf("Dequeue order broken: got %d, want %d", p.Data[0], i)
		}
	}
	if !q.IsEmpty() {
		t.Errorf("queue should be empty after draining")
	}
}

func TestQueueOverflow(t *testing.T) {
	q := New(3, "tap")
	for i := 0; i < 3; i++ {
		mustEnqueue(t, q, []byte{byte(i)})
	}
	if err := q.Enqueue(packet.New([]byte{9})); err != ErrFull {
		t.Errorf("Enqueue on full queue = %v, want ErrFull", err)
	}
	if q.Fullness() != 3 {
		t.Errorf("Fullness() = %d, want 3", q.Fullness())
	}
	if q.Fullness() >= q.Capacity()+1 {
		t.Errorf("Fullness() reached capacity+1")
	}
}

func TestQueueByteFullness(t *testing.T) {
	q := New(10, "tap")
	mustEnqueue(t, q, make([]byte, 40))
	mustEnqueue(t, q, make([]byte, 60))
	if q.ByteFullness() != 100 {
		t.Errorf("ByteFullness() = %d, want 100", q.ByteFullness())
	}
	q.Dequeue()
	if q.ByteFullness() != 60 {
		t.Errorf("ByteFullness() after dequeue = %d, want 60", q.ByteFullness())
	}
}

func TestQueuePeekMatchesDequeue(t *testing.T) {
	q := New(10, "tap")
	mustEnqueue(t, q, []byte{1})
	mustEnqueue(t, q, []byte{2})

	peeked, ok := q.Peek()
	if !ok {
		t.Fatalf("Peek: empty")
	}
	dequeued, ok := q.Dequeue()
	if !ok {
		t.Fatalf("Dequeue: empty")
	}
	if peeked != dequeued {
		t.Errorf("Peek() returned a different packet than the following Dequeue()")
	}
}

func TestQueueSmoothedFullnessDecaysToZero(t *testing.T) {
	q := New(100, "tap")
	for i := 0; i < 30; i++ {
		mustEnqueue(t, q, []byte{0})
	}
	if q.SmoothedFullness() <= 0 {
		t.Fatalf("SmoothedFullness() should be positive after enqueues, got %v", q.SmoothedFullness())
	}
	for i := 0; i < 30; i++ {
		q.Dequeue()
	}
	for i := 0; i < 40; i++ {
		// queue is empty; dequeue is a no-op but sfullness should already
		// have decayed from the enqueue/dequeue pairs above.
		if !q.IsEmpty() {
			t.Fatalf("queue should be empty")
		}
	}
	if q.SmoothedFullness() >= 1 {
		t.Errorf("SmoothedFullness() = %v, want < 1 after draining", q.SmoothedFullness())
	}
}

func TestQueueInvariants(t *testing.T) {
	q := New(8, "tap")
	for i := 0; i < 20; i++ {
		q.Enqueue(packet.New([]byte{byte(i), byte(i)}))
		if q.Fullness() < 0 || q.Fullness() >= q.Capacity()+1 {
			t.Fatalf("fullness invariant violated: %d", q.Fullness())
		}
		if q.SmoothedFullness() < 0 || q.SmoothedFullness() >= float64(q.Capacity())+1 {
			t.Fatalf("sfullness invariant violated: %v", q.SmoothedFullness())
		}
	}
}
