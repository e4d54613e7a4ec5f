package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// ProgressBar draws a single-line bar that is redrawn in place
type ProgressBar struct {
	current int
	total   int
	message string
	width   int
	unicode bool
	writer  io.Writer
	colors  ColorSystem
	theme   ColorTheme
	mu      sync.Mutex
}

// NewProgressBar creates a bar for total units of work
func NewProgressBar(total int, writer io.Writer, colors ColorSystem, theme ColorTheme, unicode bool) *ProgressBar {
	return &ProgressBar{
		total:   total,
		width:   30,
		unicode: unicode,
		writer:  writer,
		colors:  colors,
		theme:   theme,
	}
}

// Update sets the position and message and redraws. A changed total is
// taken as given.
func (pb *ProgressBar) Update(current, total int, message string) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current = current
	if total > 0 {
		pb.total = total
	}
	if message != "" {
		pb.message = message
	}
	pb.render()
}

// Finish draws the bar full and ends the line
func (pb *ProgressBar) Finish(message string) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current = pb.total
	if message != "" {
		pb.message = message
	}
	pb.render()
	fmt.Fprintln(pb.writer)
}

func (pb *ProgressBar) render() {
	if pb.total <= 0 {
		fmt.Fprintf(pb.writer, "\r%s", pb.message)
		return
	}

	current := pb.current
	if current > pb.total {
		current = pb.total
	}
	filled := pb.width * current / pb.total
	fill, empty := "#", "-"
	if pb.unicode {
		fill, empty = "█", "░"
	}

	bar := pb.colors.Colorize(strings.Repeat(fill, filled), pb.theme.Success) +
		pb.colors.Colorize(strings.Repeat(empty, pb.width-filled), pb.theme.Muted)
	percent := float64(current) / float64(pb.total) * 100

	fmt.Fprintf(pb.writer, "\r[%s] %5.1f%% (%d/%d) %s", bar, percent, current, pb.total, pb.message)
}
