package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Spinner animates a message while an operation of unknown length runs
type Spinner struct {
	mu       sync.Mutex
	writer   io.Writer
	message  string
	interval time.Duration
	noColor  bool
	done     chan struct{}
	stopped  chan struct{}
}

// SpinnerOptions configures spinner behavior
type SpinnerOptions struct {
	Message  string
	NoColor  bool
	Interval time.Duration // Default: 100ms
}

// NewSpinner creates a spinner
func NewSpinner(w io.Writer, opts SpinnerOptions) *Spinner {
	if opts.Interval <= 0 {
		opts.Interval = 100 * time.Millisecond
	}
	return &Spinner{writer: w, message: opts.Message, interval: opts.Interval, noColor: opts.NoColor}
}

// Start begins the animation; starting a running spinner does nothing
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	s.done = make(chan struct{})
	s.stopped = make(chan struct{})
	go s.animate(s.done, s.stopped)
}

// Stop ends the animation and clears the line. Safe to call more than once.
func (s *Spinner) Stop() {
	s.mu.Lock()
	done, stopped := s.done, s.stopped
	s.done, s.stopped = nil, nil
	s.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	<-stopped
	fmt.Fprint(s.writer, "\r\033[K")
}

// Success stops the spinner and prints a success line
func (s *Spinner) Success(message string) {
	s.Stop()
	WriteSuccess(s.writer, message, s.noColor)
}

// Error stops the spinner and prints a failure line
func (s *Spinner) Error(message string) {
	s.Stop()
	newColor(s.noColor, color.FgRed, color.Bold).Fprintf(s.writer, "✗ %s\n", message)
}

// UpdateMessage changes the message shown next to the spinner
func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.message = message
}

func (s *Spinner) animate(done <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	cyan := newColor(s.noColor, color.FgCyan)

	for frame := 0; ; frame = (frame + 1) % len(spinnerFrames) {
		select {
		case <-done:
			return
		case <-ticker.C:
			s.mu.Lock()
			msg := s.message
			s.mu.Unlock()
			cyan.Fprintf(s.writer, "\r%s %s", spinnerFrames[frame], msg)
		}
	}
}

// ProgressBar shows how many of a known number of items are done
type ProgressBar struct {
	writer  io.Writer
	total   int
	current int
	width   int
	message string
	noColor bool
}

// ProgressBarOptions configures progress bar behavior
type ProgressBarOptions struct {
	Total   int
	Width   int // Default: 40
	Message string
	NoColor bool
}

// NewProgressBar creates a progress bar
func NewProgressBar(w io.Writer, opts ProgressBarOptions) *ProgressBar {
	if opts.Width <= 0 {
		opts.Width = 40
	}
	return &ProgressBar{writer: w, total: opts.Total, width: opts.Width, message: opts.Message, noColor: opts.NoColor}
}

// Add advances the bar by n items
func (p *ProgressBar) Add(n int) {
	p.Set(p.current + n)
}

// Set moves the bar to n items, clamped to the total
func (p *ProgressBar) Set(n int) {
	if n > p.total {
		n = p.total
	}
	if n < 0 {
		n = 0
	}
	p.current = n
	p.render()
}

// Current returns the number of completed items
func (p *ProgressBar) Current() int {
	return p.current
}

// Finish fills the bar and ends the line with message
func (p *ProgressBar) Finish(message string) {
	p.current = p.total
	p.render()
	fmt.Fprintln(p.writer)
	if message != "" {
		WriteSuccess(p.writer, message, p.noColor)
	}
}

func (p *ProgressBar) render() {
	filled := p.width
	percent := 100
	if p.total > 0 {
		filled = p.width * p.current / p.total
		percent = 100 * p.current / p.total
	}

	green := newColor(p.noColor, color.FgGreen)
	gray := newColor(p.noColor, color.FgHiBlack)
	bar := green.Sprint(strings.Repeat("█", filled)) + gray.Sprint(strings.Repeat("░", p.width-filled))

	fmt.Fprintf(p.writer, "\r[%s] %3d%% (%d/%d) %s", bar, percent, p.current, p.total, p.message)
}

// WithSpinner runs fn while a spinner shows message
func WithSpinner(w io.Writer, message string, noColor bool, fn func() error) error {
	spinner := NewSpinner(w, SpinnerOptions{Message: message, NoColor: noColor})
	spinner.Start()

	if err := fn(); err != nil {
		spinner.Error(message + " failed")
		return err
	}
	spinner.Success(message)
	return nil
}
