package output

import (
	"fmt"
	"io"
	"strings"
)

const (
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiReset  = "\033[0m"
)

// Printer writes status lines and streamed items in one output format.
type Printer struct {
	out    io.Writer
	format Format
	color  bool
}

// NewPrinter returns a printer for out. color enables ANSI status lines.
func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{out: out, format: format, color: color}
}

// Stream writes one item of an open-ended listing such as the notification
// feed. Tables print the item's rows without headers, JSON prints one compact
// document per line and YAML separates documents with "---".
func (p *Printer) Stream(data any) error {
	switch p.format {
	case FormatJSON:
		return printJSONLine(p.out, data)
	case FormatYAML:
		_, _ = fmt.Fprintln(p.out, "---")
		return PrintYAML(p.out, data)
	case FormatTable:
		renderer, ok := data.(TableRenderer)
		if !ok {
			return printJSONLine(p.out, data)
		}
		for _, row := range renderer.Rows() {
			if _, err := fmt.Fprintln(p.out, strings.Join(row, columnGap)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format: %s", p.format)
	}
}

// Printf writes a formatted message.
func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Success writes msg in green when color is enabled.
func (p *Printer) Success(msg string) {
	p.status(ansiGreen, msg)
}

// Warning writes msg in yellow when color is enabled.
func (p *Printer) Warning(msg string) {
	p.status(ansiYellow, msg)
}

func (p *Printer) status(color, msg string) {
	if p.color {
		_, _ = fmt.Fprintf(p.out, "%s%s%s\n", color, msg, ansiReset)
		return
	}
	_, _ = fmt.Fprintln(p.out, msg)
}
