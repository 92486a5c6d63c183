package embedder

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// scriptedEmbedder fails for texts present in failOn and otherwise returns
// a vector derived from the call order, so ordering is observable.
type scriptedEmbedder struct {
	failOn map[string]bool
	calls  int
}

func (f *scriptedEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if len(texts) != 1 {
		return nil, fmt.Errorf("expected single-item batch, got %d", len(texts))
	}
	if f.failOn[texts[0]] {
		return nil, errors.New("backend unavailable")
	}
	return [][]float32{{float32(f.calls), 1}}, nil
}

func Test_Sequential_OrderPreservingOneCallPerText(t *testing.T) {
	t.Parallel()

	inner := &scriptedEmbedder{}
	seq := NewSequential(inner, 2, nil, nil, nil)

	vecs, err := seq.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3 (one per text)", inner.calls)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vecs))
	}
	for i, v := range vecs {
		if v[0] != float32(i+1) {
			t.Errorf("vector %d out of order: first component = %v", i, v[0])
		}
	}
}

func Test_Sequential_FailureDegradesToZeroVector(t *testing.T) {
	t.Parallel()

	inner := &scriptedEmbedder{failOn: map[string]bool{"bad": true}}
	seq := NewSequential(inner, 4, nil, nil, nil)

	vecs, err := seq.Embed(context.Background(), []string{"good", "bad", "also good"})
	if err != nil {
		t.Fatalf("per-item failure must not abort the batch: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vecs))
	}

	bad := vecs[1]
	if len(bad) != 4 {
		t.Fatalf("degraded vector has dimension %d, want 4", len(bad))
	}
	for i, c := range bad {
		if c != 0 {
			t.Errorf("degraded vector component %d = %v, want 0", i, c)
		}
	}
	if vecs[0][0] == 0 || vecs[2][0] == 0 {
		t.Error("healthy items must not be degraded")
	}
}

func Test_Sequential_EmptyInput(t *testing.T) {
	t.Parallel()

	seq := NewSequential(&scriptedEmbedder{}, 8, nil, nil, nil)
	vecs, err := seq.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 0 {
		t.Errorf("got %d vectors for empty input", len(vecs))
	}
}
