package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"framesched/internal/history"
	"framesched/internal/timing"
	logx "framesched/pkg/logx"
)

type memStore struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (m *memStore) Append(_ context.Context, e history.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memStore) Recent(_ context.Context, limit int) ([]history.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit > len(m.entries) {
		limit = len(m.entries)
	}
	out := make([]history.Entry, limit)
	copy(out, m.entries[len(m.entries)-limit:])
	return out, nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) kinds() []history.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]history.Kind, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.Kind
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestCallTimersForwardsOrderedBatch(t *testing.T) {
	t.Parallel()
	d := New(Config{}, nil, nil, logx.Nop())

	d.CallTimers([]timing.TimerID{"a", "b", "c"})

	select {
	case b := <-d.Events():
		if b.Immediate {
			t.Fatal("tick batch must not be flagged immediate")
		}
		want := []timing.TimerID{"a", "b", "c"}
		if len(b.IDs) != len(want) {
			t.Fatalf("batch = %v, want %v", b.IDs, want)
		}
		for i := range want {
			if b.IDs[i] != want[i] {
				t.Fatalf("batch = %v, want %v", b.IDs, want)
			}
		}
		if b.At.IsZero() {
			t.Fatal("batch timestamp missing")
		}
	default:
		t.Fatal("no batch delivered")
	}
}

func TestFireImmediatelySetsFlag(t *testing.T) {
	t.Parallel()
	d := New(Config{}, nil, nil, logx.Nop())

	d.FireImmediately("zero")

	select {
	case b := <-d.Events():
		if !b.Immediate {
			t.Fatal("immediate fire must be flagged")
		}
		if len(b.IDs) != 1 || b.IDs[0] != "zero" {
			t.Fatalf("batch = %v, want [zero]", b.IDs)
		}
	default:
		t.Fatal("no delivery")
	}
}

func TestOverflowDropsWithoutBlocking(t *testing.T) {
	t.Parallel()
	d := New(Config{Buffer: 1}, nil, nil, logx.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		d.CallTimers([]timing.TimerID{"a"})
		d.CallTimers([]timing.TimerID{"b"})
		d.CallTimers([]timing.TimerID{"c"})
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("CallTimers blocked on a full consumer buffer")
	}

	if got := d.Dropped(); got != 2 {
		t.Fatalf("Dropped() = %d, want 2", got)
	}
	b := <-d.Events()
	if b.IDs[0] != "a" {
		t.Fatalf("surviving batch = %v, want [a]", b.IDs)
	}
}

func TestHistoryWorkerPersistsEvents(t *testing.T) {
	t.Parallel()
	store := &memStore{}
	d := New(Config{}, nil, store, logx.Nop())
	d.Start(context.Background())
	t.Cleanup(d.Stop)

	d.Record(history.KindCreated, "a")
	d.CallTimers([]timing.TimerID{"a", "b"})
	d.FireImmediately("z")
	d.Record(history.KindSuspend, "")

	waitFor(t, func() bool { return len(store.kinds()) == 4 })
	want := []history.Kind{history.KindCreated, history.KindBatch, history.KindImmediate, history.KindSuspend}
	got := store.kinds()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("history kinds = %v, want %v", got, want)
		}
	}

	recent, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	batch := recent[1]
	if batch.BatchSize != 2 || batch.IDs != "a,b" {
		t.Fatalf("batch entry = %+v, want size 2 ids a,b", batch)
	}
	if recent[2].TimerID != "z" {
		t.Fatalf("immediate entry = %+v, want timer z", recent[2])
	}
}

func TestRecordWithoutStoreIsNoop(t *testing.T) {
	t.Parallel()
	d := New(Config{}, nil, nil, logx.Nop())
	d.Start(context.Background()) // no store: worker never launches
	d.Record(history.KindCreated, "a")
	d.Stop()
	d.Stop() // idempotent
}
