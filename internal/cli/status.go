package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// printStatus writes a status line, styled only when writer is a terminal.
func printStatus(writer io.Writer, message string) {
	fmt.Fprintln(writer, styleFor(writer, statusStyle, message))
}

// printWarning writes a warning line, styled only when writer is a terminal.
func printWarning(writer io.Writer, message string) {
	fmt.Fprintln(writer, styleFor(writer, warningStyle, message))
}

func styleFor(writer io.Writer, style lipgloss.Style, message string) string {
	file, isFile := writer.(*os.File)
	if !isFile || !term.IsTerminal(int(file.Fd())) {
		return message
	}
	return style.Render(message)
}
