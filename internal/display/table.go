package display

import (
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"
)

// Alignment controls column text alignment
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Table renders rows of text under a header line
type Table struct {
	headers    []string
	rows       [][]string
	alignments []Alignment
	maxWidth   int
	colors     ColorSystem
}

// NewTable creates a table limited to maxWidth columns of text. A maxWidth
// of 0 uses the terminal width.
func NewTable(colors ColorSystem, maxWidth int, headers ...string) *Table {
	return &Table{
		headers:    headers,
		alignments: make([]Alignment, len(headers)),
		maxWidth:   maxWidth,
		colors:     colors,
	}
}

// SetAlignment sets the alignment of column col
func (t *Table) SetAlignment(col int, a Alignment) *Table {
	if col >= 0 && col < len(t.alignments) {
		t.alignments[col] = a
	}
	return t
}

// AddRow appends a row; missing cells render empty and extra cells are dropped
func (t *Table) AddRow(cells ...string) *Table {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
	return t
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table to w
func (t *Table) Render(w io.Writer) {
	widths := t.columnWidths()

	tw := tablewriter.NewWriter(w)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(true)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetBorder(false)
	tw.SetHeaderLine(true)
	tw.SetColumnSeparator("")
	tw.SetCenterSeparator("")
	tw.SetRowSeparator("-")
	tw.SetTablePadding("  ")
	tw.SetNoWhiteSpace(true)

	aligns := make([]int, len(t.alignments))
	for i, a := range t.alignments {
		aligns[i] = tablewriter.ALIGN_LEFT
		if a == AlignRight {
			aligns[i] = tablewriter.ALIGN_RIGHT
		}
	}
	tw.SetColumnAlignment(aligns)

	tw.SetHeader(t.headers)
	if t.colors.IsColorSupported() {
		colors := make([]tablewriter.Colors, len(t.headers))
		for i := range colors {
			colors[i] = tablewriter.Colors{tablewriter.Bold, tablewriter.FgHiBlueColor}
		}
		tw.SetHeaderColor(colors...)
	}

	for _, row := range t.rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = truncate(cell, widths[i])
		}
		tw.Append(cells)
	}
	tw.Render()
}

// columnWidths sizes every column to its content, then shrinks the widest
// columns until the table fits
func (t *Table) columnWidths() []int {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	limit := t.maxWidth
	if limit <= 0 {
		limit = terminalWidth()
	}
	for total(widths)+2*(len(widths)-1) > limit {
		widest := 0
		for i := range widths {
			if widths[i] > widths[widest] {
				widest = i
			}
		}
		if widths[widest] <= 8 {
			break
		}
		widths[widest]--
	}
	return widths
}

func total(widths []int) int {
	n := 0
	for _, w := range widths {
		n += w
	}
	return n
}

func pad(s string, width int, a Alignment) string {
	gap := width - utf8.RuneCountInString(s)
	if gap <= 0 {
		return s
	}
	if a == AlignRight {
		return strings.Repeat(" ", gap) + s
	}
	return s + strings.Repeat(" ", gap)
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	if width <= 3 {
		return string([]rune(s)[:width])
	}
	return string([]rune(s)[:width-3]) + "..."
}

// terminalWidth returns the width of stdout, 80 when it is not a terminal
func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
