package stream

import (
	"bufio"
	"io"
	"strings"
)

// Frame is one dispatched server-sent event.
type Frame struct {
	Event string
	Data  []byte
}

// Reader splits a text/event-stream body into frames.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps an event-stream body.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next frame that carries data. It returns io.EOF when the
// body ends; a trailing frame without its blank-line terminator is dropped.
func (r *Reader) Next() (Frame, error) {
	for {
		eventType := ""
		var dataLines []string

		for {
			line, err := r.r.ReadString('\n')
			if err != nil {
				return Frame{}, err
			}
			line = strings.TrimRight(line, "\r\n")

			// Blank line dispatches event
			if line == "" {
				break
			}
			// Comment/heartbeat
			if strings.HasPrefix(line, ":") {
				continue
			}
			if strings.HasPrefix(line, "event:") {
				eventType = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
				continue
			}
			if strings.HasPrefix(line, "data:") {
				dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
				continue
			}
		}

		if len(dataLines) == 0 {
			continue
		}
		return Frame{Event: eventType, Data: []byte(strings.Join(dataLines, "\n"))}, nil
	}
}
