package mixer

import (
	"fmt"

	"github.com/drgolem/go-audioprobe/format"
)

// EventType is a line lifecycle transition.
type EventType int

const (
	EventOpen EventType = iota + 1
	EventStart
	EventStop
	EventClose
)

func (t EventType) String() string {
	switch t {
	case EventOpen:
		return "Open"
	case EventStart:
		return "Start"
	case EventStop:
		return "Stop"
	case EventClose:
		return "Close"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// LineEvent is delivered to listeners on the goroutine that caused the
// transition.
type LineEvent struct {
	Type      EventType
	Direction Direction
	Format    format.Format
	// Position is the number of frames transferred so far.
	Position int64
}

func (e LineEvent) String() string {
	return fmt.Sprintf("%s event from %s line (%v) at frame %d", e.Type, e.Direction, e.Format, e.Position)
}

// Listener receives line events.
type Listener func(LineEvent)

// LineState tracks the lifecycle of a line and fans events out to its
// listeners. Backends embed it to implement the bookkeeping half of Line.
type LineState struct {
	dir       Direction
	format    format.Format
	listeners []Listener
	open      bool
	running   bool
	position  int64
}

// NewLineState returns the state of a closed line.
func NewLineState(dir Direction, f format.Format) LineState {
	return LineState{dir: dir, format: f}
}

func (s *LineState) Direction() Direction  { return s.dir }
func (s *LineState) Format() format.Format { return s.format }
func (s *LineState) IsOpen() bool          { return s.open }
func (s *LineState) IsRunning() bool       { return s.running }
func (s *LineState) Position() int64       { return s.position }

func (s *LineState) AddListener(l Listener) {
	if l != nil {
		s.listeners = append(s.listeners, l)
	}
}

// MarkOpened records a successful open.
func (s *LineState) MarkOpened() {
	s.open = true
	s.emit(EventOpen)
}

// MarkStarted records a successful start.
func (s *LineState) MarkStarted() {
	s.running = true
	s.emit(EventStart)
}

// MarkStopped records a stop; it is silent when the line was not running.
func (s *LineState) MarkStopped() {
	if !s.running {
		return
	}
	s.running = false
	s.emit(EventStop)
}

// MarkClosed records a close, stopping first when needed. It is silent when
// the line was not open.
func (s *LineState) MarkClosed() {
	if !s.open {
		return
	}
	s.MarkStopped()
	s.open = false
	s.emit(EventClose)
}

// Advance adds transferred frames to the line position.
func (s *LineState) Advance(frames int) {
	s.position += int64(frames)
}

func (s *LineState) emit(t EventType) {
	ev := LineEvent{Type: t, Direction: s.dir, Format: s.format, Position: s.position}
	for _, l := range s.listeners {
		l(ev)
	}
}
