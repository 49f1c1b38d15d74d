package chat_test

import (
	"testing"

	"sage/sdk/chat"
)

func TestAccumulatorLifecycle(t *testing.T) {
	var acc chat.Accumulator

	acc.Start()
	if !acc.Active() {
		t.Fatal("accumulator should be active after Start")
	}

	acc.AppendFragment("Hel")
	acc.AppendFragment("lo")
	if got := acc.Content(); got != "Hello" {
		t.Errorf("content: got %q, want %q", got, "Hello")
	}

	meta := &chat.StreamMetadata{ModelUsed: "x"}
	acc.Complete(meta)
	if acc.Active() {
		t.Error("accumulator should be inactive after Complete")
	}
	if acc.Metadata() == nil || acc.Metadata().ModelUsed != "x" {
		t.Errorf("metadata not recorded: %+v", acc.Metadata())
	}
}

func TestAccumulatorFrozenAfterComplete(t *testing.T) {
	var acc chat.Accumulator

	acc.Start()
	acc.AppendFragment("final")
	acc.Complete(nil)

	acc.AppendFragment("more")
	if got := acc.Content(); got != "final" {
		t.Errorf("content changed after Complete: got %q", got)
	}
	if acc.Metadata() != nil {
		t.Errorf("Complete(nil) should leave metadata nil, got %+v", acc.Metadata())
	}
}

func TestAccumulatorResetIdempotent(t *testing.T) {
	var acc chat.Accumulator

	acc.Start()
	acc.AppendFragment("text")
	acc.Complete(&chat.StreamMetadata{TokenCount: 3})

	acc.Reset()
	first := struct {
		content string
		active  bool
		meta    *chat.StreamMetadata
	}{acc.Content(), acc.Active(), acc.Metadata()}

	acc.Reset()
	if acc.Content() != first.content || acc.Active() != first.active || acc.Metadata() != first.meta {
		t.Error("double Reset differs from single Reset")
	}
	if acc.Content() != "" || acc.Active() || acc.Metadata() != nil {
		t.Error("Reset did not clear the accumulator")
	}
}

func TestAccumulatorResetWhileActive(t *testing.T) {
	var acc chat.Accumulator

	acc.Start()
	acc.AppendFragment("abandoned")
	// Session switch mid-stream.
	acc.Reset()

	if acc.Active() || acc.Content() != "" {
		t.Error("Reset while active should fully clear")
	}
}

func TestAccumulatorStartClearsPreviousRun(t *testing.T) {
	var acc chat.Accumulator

	acc.Start()
	acc.AppendFragment("old")
	acc.Complete(&chat.StreamMetadata{ModelUsed: "m"})

	acc.Start()
	if acc.Content() != "" || acc.Metadata() != nil || !acc.Active() {
		t.Error("Start should reset content and metadata")
	}
}
