package msg

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Output receives all diagnostics. stdout is reserved for the build file.
var Output io.Writer = color.Error

// Verbose enables Debug messages
var Verbose bool

func logf(level string, format string, a ...any) {
	fmt.Fprint(Output, level)
	fmt.Fprint(Output, ": ")
	fmt.Fprintf(Output, format, a...)
	fmt.Fprint(Output, "\n")
}

func Debug(format string, a ...any) {
	if !Verbose {
		return
	}
	logf(color.HiBlackString("debug"), format, a...)
}

func Error(format string, a ...any) {
	logf(color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	logf(color.YellowString("warn"), format, a...)
}

func Fatal(format string, a ...any) {
	logf(color.RedString("fatal"), format, a...)
	os.Exit(1)
}

func Info(format string, a ...any) {
	logf(color.HiGreenString("info"), format, a...)
}

type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
	buf       bytes.Buffer
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	w.buf.Reset()
	for _, c := range p {
		if !w.didIndent {
			w.buf.WriteString(w.Indent)
			w.didIndent = true
		}
		w.buf.WriteByte(c)
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	if _, err := w.W.Write(w.buf.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}
