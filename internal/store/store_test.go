package store

import (
	"context"
	"testing"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Store_AppendAndRecent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "docs", "what is chunking?", "splitting text into pieces"); err != nil {
		t.Fatalf("append: %v", err)
	}

	exchanges, err := s.Recent(ctx, "docs", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(exchanges) != 1 {
		t.Fatalf("want 1 exchange, got %d", len(exchanges))
	}
	if exchanges[0].Question != "what is chunking?" || exchanges[0].Answer != "splitting text into pieces" {
		t.Errorf("exchange = %+v", exchanges[0])
	}
}

func Test_Store_RecentLimitRespected(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for range 6 {
		if err := s.Append(ctx, "docs", "q", "a"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	exchanges, err := s.Recent(ctx, "docs", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(exchanges) != 2 {
		t.Errorf("want 2 exchanges, got %d", len(exchanges))
	}
}

func Test_Store_CollectionIsolation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "alpha", "from alpha", "a"); err != nil {
		t.Fatalf("append alpha: %v", err)
	}
	if err := s.Append(ctx, "beta", "from beta", "b"); err != nil {
		t.Fatalf("append beta: %v", err)
	}

	alpha, err := s.Recent(ctx, "alpha", 10)
	if err != nil {
		t.Fatalf("recent alpha: %v", err)
	}
	beta, err := s.Recent(ctx, "beta", 10)
	if err != nil {
		t.Fatalf("recent beta: %v", err)
	}

	if len(alpha) != 1 || alpha[0].Question != "from alpha" {
		t.Errorf("collection alpha isolation failed: got %v", alpha)
	}
	if len(beta) != 1 || beta[0].Question != "from beta" {
		t.Errorf("collection beta isolation failed: got %v", beta)
	}
}

func Test_Store_EmptyCollectionReturnsNil(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	exchanges, err := s.Recent(context.Background(), "empty", 10)
	if err != nil {
		t.Fatalf("recent empty: %v", err)
	}
	if len(exchanges) != 0 {
		t.Errorf("want 0 exchanges, got %d", len(exchanges))
	}
}

func Test_Store_OldestFirstOrdering(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	questions := []string{"first", "second", "third"}
	for _, q := range questions {
		if err := s.Append(ctx, "order", q, "a"); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	exchanges, err := s.Recent(ctx, "order", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	for i, want := range questions {
		if exchanges[i].Question != want {
			t.Errorf("exchange[%d]: want %q, got %q", i, want, exchanges[i].Question)
		}
	}
}

func Test_Store_Clear(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Append(ctx, "wipe", "q", "a"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Append(ctx, "keep", "q", "a"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.Clear(ctx, "wipe"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	wiped, err := s.Recent(ctx, "wipe", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(wiped) != 0 {
		t.Errorf("cleared collection still has %d exchanges", len(wiped))
	}
	kept, err := s.Recent(ctx, "keep", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(kept) != 1 {
		t.Errorf("other collection lost its exchanges")
	}
}
