package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const statusLabelWidth = 22

var statusStyles = map[statusKind]struct {
	mark   string
	colors text.Colors
}{
	statusInfo:  {"·", text.Colors{text.FgBlue}},
	statusOK:    {"ok", text.Colors{text.FgGreen}},
	statusWarn:  {"warn", text.Colors{text.FgYellow}},
	statusError: {"fail", text.Colors{text.FgRed, text.Bold}},
}

// renderStatusLine formats "  label  [mark] message", colored on terminals.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style := statusStyles[kind]
	mark := fmt.Sprintf("[%s]", style.mark)
	if colorize {
		mark = style.colors.Sprint(mark)
	}
	line := fmt.Sprintf("  %-*s %s", statusLabelWidth, label, mark)
	if message != "" {
		line += " " + message
	}
	return line
}

func printSection(out io.Writer, title string, colorize bool) {
	title = strings.TrimSpace(title)
	if colorize {
		title = text.Colors{text.FgCyan, text.Bold}.Sprint(title)
	}
	fmt.Fprintln(out, title)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
