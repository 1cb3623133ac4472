package builder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/qobs-build/ninjascan/internal/msg"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var ErrStale = errors.New("build file is out of date")

// WriteIfChanged writes data to path unless the file already holds exactly
// that content, so ninja doesn't see a newer mtime. Reports whether it wrote.
func WriteIfChanged(path string, data []byte) (bool, error) {
	old, err := os.ReadFile(path)
	if err == nil && bytes.Equal(old, data) {
		return false, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// Check compares the file at path against data. On mismatch it writes a line
// diff (old to new) to w and returns ErrStale.
func Check(path string, data []byte, w io.Writer) error {
	old, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if bytes.Equal(old, data) {
		return nil
	}
	if os.IsNotExist(err) {
		msg.Warn("%s does not exist", path)
	}
	writeLineDiff(w, string(old), string(data))
	return fmt.Errorf("%s: %w", path, ErrStale)
}

func writeLineDiff(w io.Writer, before, after string) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	iw := &msg.IndentWriter{Indent: "  ", W: w}
	for _, d := range diffs {
		var prefix string
		var paint func(format string, a ...any) string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix, paint = "+", color.GreenString
		case diffmatchpatch.DiffDelete:
			prefix, paint = "-", color.RedString
		default:
			continue
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			fmt.Fprintln(iw, paint("%s", prefix+strings.TrimSuffix(line, "\n")))
		}
	}
}
