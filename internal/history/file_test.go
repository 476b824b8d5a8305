package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "framesched/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " None "} {
		store, err := Open(Config{Driver: driver}, logx.Nop())
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if store != nil {
			t.Fatalf("driver %q: expected nil store", driver)
		}
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "postgres"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver must error")
	}
}

func TestFileStoreRoundtrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "data", "history.jsonl")
	store, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{
		{At: base, Kind: KindCreated, TimerID: "a"},
		{At: base.Add(time.Second), Kind: KindBatch, BatchSize: 2, IDs: "a,b"},
		{At: base.Add(2 * time.Second), Kind: KindDeleted, TimerID: "a"},
	}
	for _, e := range entries {
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != len(entries) {
		t.Fatalf("Recent returned %d entries, want %d", len(got), len(entries))
	}
	for i, want := range entries {
		if got[i].Kind != want.Kind || got[i].TimerID != want.TimerID ||
			got[i].BatchSize != want.BatchSize || got[i].IDs != want.IDs ||
			!got[i].At.Equal(want.At) {
			t.Fatalf("entry %d = %+v, want %+v", i, got[i], want)
		}
	}
}

func TestFileStoreRecentLimitTakesTail(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	store, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		e := Entry{At: time.Now(), Kind: KindCreated, TimerID: string(rune('a' + i))}
		if err := store.Append(ctx, e); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := store.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent returned %d entries, want 3", len(got))
	}
	want := []string{"h", "i", "j"}
	for i := range want {
		if got[i].TimerID != want[i] {
			t.Fatalf("tail ids = %v, want %v", got, want)
		}
	}
}

func TestFileStoreSkipsCorruptLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	store, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Append(ctx, Entry{At: time.Now(), Kind: KindCreated, TimerID: "good"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	// Recent flushes before scanning, so the good line is durable; now wedge a
	// torn write in behind it.
	if _, err := store.Recent(ctx, 1); err != nil {
		t.Fatalf("Recent: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("{\"kind\":\"batch\",\"trunca\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	f.Close()

	got, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 1 || got[0].TimerID != "good" {
		t.Fatalf("Recent = %+v, want the single good entry", got)
	}
}

func TestFileStoreAppendAfterClose(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "history.jsonl")
	store, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := store.Append(context.Background(), Entry{Kind: KindCreated}); err != ErrDisabled {
		t.Fatalf("Append after Close = %v, want ErrDisabled", err)
	}
}

func TestFileStoreRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Fatal("file driver without path must error")
	}
}
