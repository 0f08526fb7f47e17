package anthropic

import (
	"bufio"
	"io"
	"strings"
)

// maxSSELine bounds a single SSE line; long documentation deltas can exceed
// bufio's 64 KiB default.
const maxSSELine = 1 << 20

// sseEvent represents a single Server-Sent Event.
type sseEvent struct {
	Event string
	Data  string
}

// sseScanner yields SSE events one at a time, following the bufio.Scanner
// pattern of Next, Event and Err.
type sseScanner struct {
	lines *bufio.Scanner
	event sseEvent
	err   error
	done  bool
}

func newSSEScanner(r io.Reader) *sseScanner {
	lines := bufio.NewScanner(r)
	lines.Buffer(make([]byte, 0, 64*1024), maxSSELine)
	return &sseScanner{lines: lines}
}

// Next advances to the next event. It returns false at end of input or on
// error; check Err afterwards.
func (s *sseScanner) Next() bool {
	if s.done {
		return false
	}

	var (
		current sseEvent
		data    []string
	)
	pending := func() bool { return len(data) > 0 || current.Event != "" }
	emit := func() bool {
		current.Data = strings.Join(data, "\n")
		s.event = current
		return true
	}

	for s.lines.Scan() {
		line := s.lines.Text()
		switch {
		case line == "":
			if pending() {
				return emit()
			}
		case strings.HasPrefix(line, ":"):
			// comment
		default:
			if v, ok := strings.CutPrefix(line, "event:"); ok {
				current.Event = strings.TrimSpace(v)
			} else if v, ok := strings.CutPrefix(line, "data:"); ok {
				data = append(data, strings.TrimSpace(v))
			}
		}
	}

	s.err = s.lines.Err()
	s.done = true

	// Stream ended without a trailing blank line.
	if pending() {
		return emit()
	}
	return false
}

// Event returns the most recent event read by Next.
func (s *sseScanner) Event() sseEvent {
	return s.event
}

// Err returns the first non-EOF error encountered.
func (s *sseScanner) Err() error {
	return s.err
}
