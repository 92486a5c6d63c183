package budget

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
)

// Exact counts depend on whether the BPE encoding loaded, so assertions
// here check properties that hold for both counters.

func Test_Estimate(t *testing.T) {
	t.Parallel()

	if got := Estimate(""); got != 0 {
		t.Errorf("Estimate(\"\") = %d, want 0", got)
	}
	if got := Estimate("a"); got < 1 {
		t.Errorf("Estimate(\"a\") = %d, want >= 1", got)
	}

	short := Estimate(strings.Repeat("word ", 20))
	long := Estimate(strings.Repeat("word ", 200))
	if long <= short {
		t.Errorf("longer text must cost more tokens: short=%d long=%d", short, long)
	}
}

func Test_EstimateMessages_IncludesOverhead(t *testing.T) {
	t.Parallel()

	one := EstimateMessages([]*schema.Message{schema.UserMessage("hello world")})
	two := EstimateMessages([]*schema.Message{
		schema.UserMessage("hello world"),
		schema.UserMessage("hello world"),
	})
	if one < 5 {
		t.Errorf("single message estimate %d too small to include overhead", one)
	}
	if two != 2*one {
		t.Errorf("two identical messages = %d, want %d", two, 2*one)
	}
}

func Test_TrimHistory_NoTrimNeeded(t *testing.T) {
	t.Parallel()

	fixed := []*schema.Message{schema.SystemMessage("sys")}
	history := []*schema.Message{
		schema.UserMessage("hi"),
		schema.UserMessage("there"),
	}
	got := TrimHistory(fixed, history, DefaultMaxContextTokens)
	if len(got) != 2 {
		t.Errorf("want 2 history messages, got %d", len(got))
	}
}

func Test_TrimHistory_DropsOldest(t *testing.T) {
	t.Parallel()

	// The oldest message is far over any 100-token budget on either counter;
	// the newest is well under it.
	history := []*schema.Message{
		schema.UserMessage(strings.Repeat("old content ", 400)),
		schema.UserMessage("newest"),
	}
	got := TrimHistory(nil, history, 100)
	if len(got) != 1 {
		t.Fatalf("want 1 history message after trim, got %d", len(got))
	}
	if got[0].Content != "newest" {
		t.Errorf("want newest message retained, got %q", got[0].Content)
	}
}

func Test_TrimHistory_EmptyHistory(t *testing.T) {
	t.Parallel()

	fixed := []*schema.Message{schema.SystemMessage("sys")}
	if got := TrimHistory(fixed, nil, DefaultMaxContextTokens); len(got) != 0 {
		t.Errorf("want empty, got %d", len(got))
	}
}

func Test_TrimHistory_AllDroppedWhenFixedExceedsBudget(t *testing.T) {
	t.Parallel()

	fixed := []*schema.Message{
		schema.SystemMessage(strings.Repeat("context ", 8000)),
	}
	history := []*schema.Message{
		schema.UserMessage("a"),
		schema.UserMessage("b"),
	}
	if got := TrimHistory(fixed, history, DefaultMaxContextTokens); len(got) != 0 {
		t.Errorf("want 0 history messages, got %d", len(got))
	}
}
