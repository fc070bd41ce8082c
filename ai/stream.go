package ai

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/tidwall/gjson"

	"tennisweb/internal/metrics"
	"tennisweb/ports"
)

// errSinkClosed signals the consumer stopped accepting tokens. Not a stream
// failure; forwarding just ends.
var errSinkClosed = fmt.Errorf("token sink closed")

// forwardTokens reads a server-sent-events completion stream and forwards
// each content token to sink in arrival order.
//
// The reader carries incomplete lines across read boundaries, so tokens
// survive arbitrary chunk splits. Malformed event lines are skipped, the
// [DONE] sentinel ends the stream, and a read error mid-stream is delivered
// as a single inline error token rather than tearing down a response whose
// headers are already written. A trailing fragment without a final newline
// is discarded: it cannot be distinguished from a truncated event.
func forwardTokens(r io.Reader, sink ports.TokenSink) error {
	var carry []byte
	buf := make([]byte, 4096)

	for {
		n, err := r.Read(buf)
		if n > 0 {
			carry = append(carry, buf[:n]...)
			for {
				idx := bytes.IndexByte(carry, '\n')
				if idx < 0 {
					break
				}
				line := string(carry[:idx])
				carry = carry[idx+1:]

				done, lineErr := handleLine(line, sink)
				if lineErr == errSinkClosed {
					return nil
				}
				if lineErr != nil {
					return lineErr
				}
				if done {
					return nil
				}
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			// Headers are long gone; surface the failure inline and end.
			_ = sink("Error: " + err.Error())
			return nil
		}
	}
}

// handleLine processes one SSE line. Returns done=true on the [DONE]
// sentinel.
func handleLine(line string, sink ports.TokenSink) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, "data:") {
		return false, nil
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "[DONE]" {
		return true, nil
	}
	if !gjson.Valid(data) {
		return false, nil
	}

	token := gjson.Get(data, "choices.0.delta.content")
	if !token.Exists() {
		token = gjson.Get(data, "choices.0.message.content")
	}
	if token.String() == "" {
		return false, nil
	}

	if err := sink(token.String()); err != nil {
		return false, errSinkClosed
	}
	metrics.StreamTokens.Inc()
	return false, nil
}
