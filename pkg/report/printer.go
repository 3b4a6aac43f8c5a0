package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"
)

// Printer writes the crawl progress and summary lines
// Colours are an explicit setting of each Printer; no package state is touched
type Printer struct {
	out    io.Writer
	red    *color.Color
	green  *color.Color
	yellow *color.Color
	cyan   *color.Color
}

// NewPrinter creates a Printer writing to out, with ANSI colours when colored is set
func NewPrinter(out io.Writer, colored bool) *Printer {
	p := &Printer{
		out:    out,
		red:    color.New(color.FgRed),
		green:  color.New(color.FgGreen),
		yellow: color.New(color.FgYellow),
		cyan:   color.New(color.FgCyan),
	}
	for _, c := range []*color.Color{p.red, p.green, p.yellow, p.cyan} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Plain prints an uncoloured line
func (p *Printer) Plain(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Success prints a green line
func (p *Printer) Success(format string, args ...any) {
	p.green.Fprintf(p.out, format+"\n", args...)
}

// Warning prints a yellow line
func (p *Printer) Warning(format string, args ...any) {
	p.yellow.Fprintf(p.out, format+"\n", args...)
}

// Error prints a red line
func (p *Printer) Error(format string, args ...any) {
	p.red.Fprintf(p.out, format+"\n", args...)
}

// Notice prints a cyan line
func (p *Printer) Notice(format string, args ...any) {
	p.cyan.Fprintf(p.out, format+"\n", args...)
}

// Status prints the status a URL answered with: green below 300, yellow otherwise
func (p *Printer) Status(u string, code int, reason string) {
	if code < 300 {
		p.Success("%s %d %s", u, code, reason)
		return
	}
	p.Warning("%s %d %s", u, code, reason)
}
