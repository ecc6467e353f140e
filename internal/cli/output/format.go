// Package output renders rsctl command results as tables, JSON or YAML.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format is the -o/--output value.
type Format string

const (
	// FormatTable prints aligned columns for humans.
	FormatTable Format = "table"
	// FormatJSON prints indented JSON, or one document per line when streaming.
	FormatJSON Format = "json"
	// FormatYAML prints YAML documents.
	FormatYAML Format = "yaml"
)

// ParseFormat accepts table, json, yaml and yml in any case. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
}

func (f Format) String() string {
	return string(f)
}

// ColorSupported reports whether w is a terminal that can render ANSI colors.
// NO_COLOR disables colors everywhere.
func ColorSupported(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
