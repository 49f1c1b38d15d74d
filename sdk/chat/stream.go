package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StreamAnswer posts a question and streams the generated answer.
// onFragment is invoked zero or more times, in arrival order, once per
// content fragment; onComplete is then invoked exactly once, with the
// terminal metadata or nil. On error no further callbacks are made and
// onComplete never fires, but fragments already delivered are not rolled
// back. The returned error wraps ErrRequestRejected, ErrStreamUnavailable
// or ErrStreamInterrupted, or is the context's error if the caller
// aborted.
//
// Exactly one outbound request is issued. No retries; retry policy
// belongs to the caller.
func (c *Client) StreamAnswer(ctx context.Context, req *AskRequest, onFragment func(string), onComplete func(*StreamMetadata)) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request body: %w", err)
	}

	path := "/sessions/" + req.SessionID + "/ask"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	rl := c.logger.StartRequest(http.MethodPost, path)
	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		rl.Error(err)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrStreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("%w: HTTP %d: %s", ErrRequestRejected, resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		rl.Error(err)
		return err
	}

	dec := &Decoder{}
	framer := NewFramer(onFragment, onComplete, c.logger)

	buf := make([]byte, 4096)
	readAny := false
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			readAny = true
			framer.Feed(dec.Decode(buf[:n]))
			if framer.Done() {
				// Completion already fired; drop the connection.
				rl.Success(resp.StatusCode)
				return nil
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				framer.Feed(dec.Flush())
				framer.Close()
				rl.Success(resp.StatusCode)
				return nil
			}
			if ctx.Err() != nil {
				// Aborted by the caller: release the connection
				// without invoking onComplete.
				return ctx.Err()
			}
			rl.Error(readErr)
			if !readAny {
				return fmt.Errorf("%w: %v", ErrStreamUnavailable, readErr)
			}
			return fmt.Errorf("%w: %v", ErrStreamInterrupted, readErr)
		}
	}
}
