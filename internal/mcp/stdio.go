package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxMessageSize bounds one newline-delimited message on stdin. Longer lines
// are discarded and answered with a parse error.
const maxMessageSize = 4 << 20

// ServeStdio reads newline-delimited JSON-RPC messages from in and writes
// each response as one line to out. Requests are handled in arrival order.
// It returns nil when in reaches EOF or ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	r := bufio.NewReaderSize(in, 64*1024)
	w := bufio.NewWriter(out)
	enc := json.NewEncoder(w)

	s.logger.Info("stdio_transport_started")

	for {
		if ctx.Err() != nil {
			return nil
		}

		msg, tooLong, readErr := readMessage(r, maxMessageSize)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return fmt.Errorf("failed to read request: %w", readErr)
		}

		reqCtx, _ := EnsureCorrelationID(ctx)

		var resp *JSONRPCResponse
		switch line := bytes.TrimSpace(msg); {
		case tooLong:
			LogMCPError(reqCtx, s.logger, "", "", "protocol", "message too large")
			resp = NewJSONRPCError(nil, ParseError, "Message too large", map[string]int{"max_bytes": maxMessageSize})
		case len(line) > 0:
			resp = s.HandleMessage(reqCtx, line)
		}

		if resp != nil {
			// Encode appends the newline delimiter.
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("failed to flush response: %w", err)
			}
		}

		if readErr != nil {
			s.logger.Info("stdio_transport_closed")
			return nil
		}
	}
}

// readMessage reads one line. A line longer than max is consumed up to its
// newline and reported as tooLong with no data.
func readMessage(r *bufio.Reader, max int) (msg []byte, tooLong bool, err error) {
	for {
		chunk, readErr := r.ReadSlice('\n')
		if !tooLong {
			if len(msg)+len(chunk) > max {
				tooLong = true
				msg = nil
			} else {
				msg = append(msg, chunk...)
			}
		}
		if errors.Is(readErr, bufio.ErrBufferFull) {
			continue
		}
		return msg, tooLong, readErr
	}
}
