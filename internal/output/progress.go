package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// spinnerFrames is the animation cycle.
var spinnerFrames = []string{"|", "/", "-", "\\"}

// spinnerTick is the delay between frames.
const spinnerTick = 100 * time.Millisecond

// writerIsTTY reports whether w exposes an Fd (e.g. *os.File) that is a
// terminal. Plain writers such as *bytes.Buffer are never terminals.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Spinner animates a one-line status message while a blocking call runs,
// such as connecting to a remote database. It draws only on a terminal;
// on any other writer Start and Stop do nothing, so logs piped to a file
// carry no spinner residue.
type Spinner struct {
	mu      sync.Mutex
	message string
	writer  io.Writer
	running bool
	stop    chan struct{}
	stopped chan struct{}
}

// NewSpinner creates a spinner writing to stderr, the stream the log
// output it precedes goes to.
func NewSpinner(message string) *Spinner {
	return &Spinner{message: message, writer: os.Stderr}
}

// SetWriter sets the output writer.
func (s *Spinner) SetWriter(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Start begins the animation. It is a no-op when already running or when
// the writer is not a terminal.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || !writerIsTTY(s.writer) {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.stopped = make(chan struct{})

	go s.animate(s.writer, s.stop, s.stopped)
}

func (s *Spinner) animate(w io.Writer, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(spinnerTick)
	defer ticker.Stop()

	for frame := 0; ; frame = (frame + 1) % len(spinnerFrames) {
		fmt.Fprintf(w, "\r%s  %s", spinnerFrames[frame], s.message)
		select {
		case <-ticker.C:
		case <-stop:
			return
		}
	}
}

// Stop ends the animation and clears its line. Calling Stop on a spinner
// that is not running does nothing.
func (s *Spinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
	<-s.stopped

	fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.message)+3))
}
