package debug

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/danpilch/calltrace/pkg/callstack"
)

// DumpStack writes the open calls of a goroutine's call stack, outermost
// first, with the call site each one will return to.
func DumpStack(w io.Writer, s *callstack.Stack) {
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	frames := s.Frames()
	fmt.Fprintln(w)
	fmt.Fprintln(w, title.Render(fmt.Sprintf("Goroutine %d call stack (%d open)", s.Goroutine(), len(frames))))
	fmt.Fprintln(w, dim.Render(strings.Repeat("═", 85)))
	fmt.Fprintf(w, "  %s %s %s %s\n",
		header.Render("DEPTH"),
		header.Render("RECEIVER      "),
		header.Render("METHOD                    "),
		header.Render("CALL SITE                 "))
	fmt.Fprintln(w, "  "+dim.Render(strings.Repeat("─", 85)))

	for depth, f := range frames {
		method := f.Class.String() + "." + f.Selector.String()
		fmt.Fprintf(w, "  %-7d %-16d %-28s %s\n",
			depth, f.Receiver, method, dim.Render(callSite(f.ReturnPC)))
	}
}

func callSite(pc uintptr) string {
	if pc == 0 {
		return "?"
	}
	frame, _ := runtime.CallersFrames([]uintptr{pc}).Next()
	if frame.Function == "" {
		return fmt.Sprintf("%#x", pc)
	}
	return fmt.Sprintf("%s (%s:%d)", frame.Function, frame.File, frame.Line)
}
