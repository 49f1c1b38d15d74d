package chat_test

import (
	"reflect"
	"testing"

	"sage/sdk/chat"
)

// framerRecorder captures callback invocations for assertions.
type framerRecorder struct {
	fragments []string
	completed int
	meta      *chat.StreamMetadata
}

func newRecordedFramer() (*chat.Framer, *framerRecorder) {
	rec := &framerRecorder{}
	f := chat.NewFramer(
		func(fragment string) { rec.fragments = append(rec.fragments, fragment) },
		func(meta *chat.StreamMetadata) {
			rec.completed++
			rec.meta = meta
		},
		nil,
	)
	return f, rec
}

func TestFramerBasicStream(t *testing.T) {
	f, rec := newRecordedFramer()

	f.Feed("data: Hel\ndata: lo, \ndata: world\ndata: [DONE]\ndata: {\"model_used\":\"x\"}\n")

	want := []string{"Hel", "lo, ", "world"}
	if !reflect.DeepEqual(rec.fragments, want) {
		t.Errorf("fragments: got %v, want %v", rec.fragments, want)
	}
	if rec.completed != 1 {
		t.Fatalf("completed %d times, want 1", rec.completed)
	}
	if rec.meta == nil || rec.meta.ModelUsed != "x" {
		t.Errorf("metadata: got %+v, want model_used=x", rec.meta)
	}
	if !f.Done() {
		t.Error("framer should report done")
	}
}

func TestFramerByteAtATimeEquivalence(t *testing.T) {
	stream := "data: Hel\ndata: lo, \ndata: world\ndata: [DONE]\ndata: {\"model_used\":\"x\",\"token_count\":7}\n"

	whole, wholeRec := newRecordedFramer()
	whole.Feed(stream)
	whole.Close()

	split, splitRec := newRecordedFramer()
	for _, r := range stream {
		split.Feed(string(r))
	}
	split.Close()

	if !reflect.DeepEqual(splitRec.fragments, wholeRec.fragments) {
		t.Errorf("fragments differ: %v vs %v", splitRec.fragments, wholeRec.fragments)
	}
	if splitRec.completed != 1 || wholeRec.completed != 1 {
		t.Fatalf("completed: split=%d whole=%d, want 1 each", splitRec.completed, wholeRec.completed)
	}
	if !reflect.DeepEqual(splitRec.meta, wholeRec.meta) {
		t.Errorf("metadata differs: %+v vs %+v", splitRec.meta, wholeRec.meta)
	}
}

func TestFramerSentinelThenUnrelatedLine(t *testing.T) {
	f, rec := newRecordedFramer()

	// The lookahead must not read an unprefixed line as metadata.
	f.Feed("data: hi\ndata: [DONE]\n: keep-alive\n")

	if rec.completed != 1 {
		t.Fatalf("completed %d times, want 1", rec.completed)
	}
	if rec.meta != nil {
		t.Errorf("metadata should be nil, got %+v", rec.meta)
	}
	if !reflect.DeepEqual(rec.fragments, []string{"hi"}) {
		t.Errorf("fragments: got %v", rec.fragments)
	}
}

func TestFramerMetadataParseFailureSwallowed(t *testing.T) {
	f, rec := newRecordedFramer()

	f.Feed("data: hi\ndata: [DONE]\ndata: {not json at all\n")

	if rec.completed != 1 {
		t.Fatalf("completed %d times, want 1", rec.completed)
	}
	if rec.meta != nil {
		t.Errorf("unparseable metadata should yield nil, got %+v", rec.meta)
	}
}

func TestFramerMetadataArrivesInLaterFeed(t *testing.T) {
	f, rec := newRecordedFramer()

	f.Feed("data: part\ndata: [DONE]\n")
	if rec.completed != 0 {
		t.Fatal("must wait one record after the sentinel before completing")
	}
	f.Feed("data: {\"token_count\":42}\n")

	if rec.completed != 1 {
		t.Fatalf("completed %d times, want 1", rec.completed)
	}
	if rec.meta == nil || rec.meta.TokenCount != 42 {
		t.Errorf("metadata: got %+v", rec.meta)
	}
}

func TestFramerEOFWithoutSentinel(t *testing.T) {
	f, rec := newRecordedFramer()

	// Stream dies before ever sending the sentinel; the pending record
	// still counts as content.
	f.Feed("data: partial")
	f.Close()

	if !reflect.DeepEqual(rec.fragments, []string{"partial"}) {
		t.Errorf("fragments: got %v, want [partial]", rec.fragments)
	}
	if rec.completed != 1 {
		t.Fatalf("completed %d times, want 1", rec.completed)
	}
	if rec.meta != nil {
		t.Errorf("metadata should be nil, got %+v", rec.meta)
	}
}

func TestFramerEOFAfterSentinel(t *testing.T) {
	f, rec := newRecordedFramer()

	f.Feed("data: hi\ndata: [DONE]\n")
	f.Close()

	if rec.completed != 1 || rec.meta != nil {
		t.Errorf("completed=%d meta=%+v, want 1 and nil", rec.completed, rec.meta)
	}
}

func TestFramerSentinelWithoutTrailingNewline(t *testing.T) {
	f, rec := newRecordedFramer()

	f.Feed("data: hi\ndata: [DONE]")
	f.Close()

	// The dangling sentinel must not be surfaced as content.
	if !reflect.DeepEqual(rec.fragments, []string{"hi"}) {
		t.Errorf("fragments: got %v, want [hi]", rec.fragments)
	}
	if rec.completed != 1 || rec.meta != nil {
		t.Errorf("completed=%d meta=%+v, want 1 and nil", rec.completed, rec.meta)
	}
}

func TestFramerMetadataWithoutTrailingNewline(t *testing.T) {
	f, rec := newRecordedFramer()

	f.Feed("data: hi\ndata: [DONE]\ndata: {\"model_used\":\"m\"}")
	f.Close()

	if rec.completed != 1 {
		t.Fatalf("completed %d times, want 1", rec.completed)
	}
	if rec.meta == nil || rec.meta.ModelUsed != "m" {
		t.Errorf("metadata: got %+v, want model_used=m", rec.meta)
	}
}

func TestFramerIgnoresUnprefixedRecords(t *testing.T) {
	f, rec := newRecordedFramer()

	f.Feed("event: message\ndata: real\n\nretry: 3000\ndata: [DONE]\n")
	f.Close()

	if !reflect.DeepEqual(rec.fragments, []string{"real"}) {
		t.Errorf("fragments: got %v, want [real]", rec.fragments)
	}
	if rec.completed != 1 {
		t.Fatalf("completed %d times, want 1", rec.completed)
	}
}

func TestFramerSilentAfterCompletion(t *testing.T) {
	f, rec := newRecordedFramer()

	f.Feed("data: [DONE]\ndata: {\"model_used\":\"x\"}\ndata: late\n")
	f.Feed("data: later still\n")
	f.Close()

	if len(rec.fragments) != 0 {
		t.Errorf("no fragments expected, got %v", rec.fragments)
	}
	if rec.completed != 1 {
		t.Errorf("completed %d times, want exactly 1", rec.completed)
	}
}

func TestFramerParsesSources(t *testing.T) {
	f, rec := newRecordedFramer()

	f.Feed("data: [DONE]\n" +
		`data: {"token_count":11,"model_used":"sage-1","sources":[` +
		`{"title":"A","url":"https://a.example","source_name":"Alpha","category":"docs","excerpt":"first"},` +
		`{"title":"B","url":"https://b.example","source_name":"Beta","category":"news","excerpt":"second"}]}` + "\n")

	if rec.completed != 1 || rec.meta == nil {
		t.Fatalf("completed=%d meta=%+v", rec.completed, rec.meta)
	}
	want := []chat.Source{
		{Title: "A", URL: "https://a.example", SourceName: "Alpha", Category: "docs", Excerpt: "first"},
		{Title: "B", URL: "https://b.example", SourceName: "Beta", Category: "news", Excerpt: "second"},
	}
	if !reflect.DeepEqual(rec.meta.Sources, want) {
		t.Errorf("sources: got %+v, want %+v", rec.meta.Sources, want)
	}
	if rec.meta.TokenCount != 11 || rec.meta.ModelUsed != "sage-1" {
		t.Errorf("metadata scalars: got %+v", rec.meta)
	}
}

func TestFramerFragmentWithColonPayload(t *testing.T) {
	f, rec := newRecordedFramer()

	// Payloads are forwarded verbatim, including ones that look like
	// framing.
	f.Feed("data: a: b\ndata: [DONE]\n")
	f.Close()

	if !reflect.DeepEqual(rec.fragments, []string{"a: b"}) {
		t.Errorf("fragments: got %v", rec.fragments)
	}
}
