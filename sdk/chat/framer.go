package chat

import (
	"strings"

	"github.com/tidwall/gjson"
)

const (
	// dataPrefix marks a significant record; anything else on the wire
	// (comments, keep-alives, blank lines) is ignored.
	dataPrefix = "data: "
	// doneSentinel is the payload signaling that no more content
	// fragments follow. At most one metadata record may come after it.
	doneSentinel = "[DONE]"
)

// Framer splits decoded text into newline-delimited records, buffering an
// incomplete trailing record across feeds, and drives the fragment /
// completion callbacks.
//
// After the sentinel it performs a one-record lookahead: the next complete
// prefixed record is parsed as stream metadata. A parse failure or an
// unrelated line means "no metadata"; it is never an error.
type Framer struct {
	onFragment func(string)
	onComplete func(*StreamMetadata)
	logger     *Logger

	pending      string
	sentinelSeen bool
	done         bool
}

// NewFramer creates a framer. onComplete is invoked exactly once, either
// by a record following the sentinel or by Close.
func NewFramer(onFragment func(string), onComplete func(*StreamMetadata), logger *Logger) *Framer {
	return &Framer{
		onFragment: onFragment,
		onComplete: onComplete,
		logger:     logger,
	}
}

// Done reports whether the completion callback has fired. Feeding a done
// framer is a no-op.
func (f *Framer) Done() bool {
	return f.done
}

// Feed appends decoded text and processes every complete record in the
// buffer. The piece after the last newline stays pending; it may still be
// growing.
func (f *Framer) Feed(text string) {
	if f.done || text == "" {
		return
	}
	f.pending += text

	pieces := strings.Split(f.pending, "\n")
	f.pending = pieces[len(pieces)-1]

	for _, record := range pieces[:len(pieces)-1] {
		f.processRecord(record)
		if f.done {
			return
		}
	}
}

// Close signals end of stream. Without a sentinel, a pending prefixed
// record is still a content fragment ("show what we got"); after a
// sentinel, a pending prefixed record is the metadata candidate, since
// the final record may lack its trailing newline.
func (f *Framer) Close() {
	if f.done {
		return
	}
	rest := f.pending
	f.pending = ""

	if f.sentinelSeen {
		var meta *StreamMetadata
		if strings.HasPrefix(rest, dataPrefix) {
			meta = f.parseMetadata(strings.TrimPrefix(rest, dataPrefix))
		}
		f.finish(meta)
		return
	}

	if strings.HasPrefix(rest, dataPrefix) {
		if payload := strings.TrimPrefix(rest, dataPrefix); payload != doneSentinel {
			f.onFragment(payload)
		}
	}
	f.finish(nil)
}

func (f *Framer) processRecord(record string) {
	if f.sentinelSeen {
		// One-record lookahead for the trailing metadata object.
		var meta *StreamMetadata
		if strings.HasPrefix(record, dataPrefix) {
			meta = f.parseMetadata(strings.TrimPrefix(record, dataPrefix))
		}
		f.finish(meta)
		return
	}

	if !strings.HasPrefix(record, dataPrefix) {
		return
	}
	payload := strings.TrimPrefix(record, dataPrefix)
	if payload == doneSentinel {
		f.sentinelSeen = true
		return
	}
	f.onFragment(payload)
}

func (f *Framer) finish(meta *StreamMetadata) {
	f.done = true
	f.onComplete(meta)
}

// parseMetadata reads the terminal metadata object best-effort. Malformed
// payloads are logged and dropped; completion proceeds without metadata.
func (f *Framer) parseMetadata(payload string) *StreamMetadata {
	root := gjson.Parse(payload)
	if !root.IsObject() || !gjson.Valid(payload) {
		f.logger.Debug("discarding unparseable metadata record", "payload", payload)
		return nil
	}

	meta := &StreamMetadata{}
	if v := root.Get("token_count"); v.Exists() {
		meta.TokenCount = int(v.Int())
	}
	if v := root.Get("model_used"); v.Exists() {
		meta.ModelUsed = v.String()
	}
	root.Get("sources").ForEach(func(_, src gjson.Result) bool {
		meta.Sources = append(meta.Sources, Source{
			Title:      src.Get("title").String(),
			URL:        src.Get("url").String(),
			SourceName: src.Get("source_name").String(),
			Category:   src.Get("category").String(),
			Excerpt:    src.Get("excerpt").String(),
		})
		return true
	})
	return meta
}
