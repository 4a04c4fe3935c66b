package worker

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// maxLineSize bounds one worker message. Longer lines are drained and skipped.
const maxLineSize = 1 << 20

// Stream reads newline-delimited messages from r and calls handle for each.
// Malformed and oversized lines are logged and skipped. Returns nil at EOF.
func Stream(ctx context.Context, r io.Reader, logger *slog.Logger, handle func(Message)) error {
	if logger == nil {
		logger = slog.Default()
	}
	br := bufio.NewReaderSize(r, 64*1024)

	var buf []byte
	oversized := false
	line := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		chunk, more, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read worker stream: %w", err)
		}
		if !oversized {
			if len(buf)+len(chunk) > maxLineSize {
				oversized = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if more {
			continue
		}

		line++
		if oversized {
			logger.Warn("skipping oversized worker line", "line", line, "limit", maxLineSize)
			oversized = false
			continue
		}
		data := bytes.TrimSpace(buf)
		buf = buf[:0]
		if len(data) == 0 {
			continue
		}
		msg, err := ParseMessage(data)
		if err != nil {
			logger.Warn("skipping worker line", "line", line, "error", err)
			continue
		}
		handle(msg)
	}
}
