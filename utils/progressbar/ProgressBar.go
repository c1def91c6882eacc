// Package progressbar implements functionality of printing a progress
// bar to a terminal
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressBar is a progress bar which must be manually managed. That
// is, Display must be called whenever an updated progress bar should be
// written.
//
// ProgressBar does not use concurrency.
type ProgressBar struct {
	w               io.Writer
	width           int
	maxProgress     int
	currentProgress int
	startTime       time.Time
	now             func() time.Time
}

// New returns a new progress bar that is width characters wide, writes
// to w, and reaches 100% after max increments
func New(w io.Writer, width, max int) *ProgressBar {
	return newProgressBar(w, width, max, time.Now)
}

func newProgressBar(w io.Writer, width, max int,
	now func() time.Time) *ProgressBar {
	if max < 1 {
		max = 1
	}
	return &ProgressBar{
		w:           w,
		width:       width,
		maxProgress: max,
		startTime:   now(),
		now:         now,
	}
}

// Increment increments the internal progress counter
func (p *ProgressBar) Increment() {
	p.Set(p.currentProgress + 1)
}

// Set sets the progress counter to n, clipped to [0, max]
func (p *ProgressBar) Set(n int) {
	if n < 0 {
		n = 0
	} else if n > p.maxProgress {
		n = p.maxProgress
	}
	p.currentProgress = n
}

// String returns the progress bar as it is displayed
func (p *ProgressBar) String() string {
	var bar strings.Builder
	bar.WriteString("|")

	filled := p.currentProgress * p.width / p.maxProgress
	bar.WriteString(strings.Repeat("█", filled))
	bar.WriteString(strings.Repeat(" ", p.width-filled))

	elapsed := p.now().Sub(p.startTime).Round(time.Second)
	fmt.Fprintf(&bar, "| [%.2f%% | %d/%d | elapsed: %v]",
		float64(p.currentProgress)/float64(p.maxProgress)*100,
		p.currentProgress, p.maxProgress, elapsed)
	return bar.String()
}

// Display overwrites the current terminal line with the progress bar
func (p *ProgressBar) Display() error {
	_, err := fmt.Fprintf(p.w, "\r\033[K%v", p)
	return err
}

// Close moves the terminal to the line after the progress bar
func (p *ProgressBar) Close() error {
	_, err := fmt.Fprintln(p.w)
	return err
}
