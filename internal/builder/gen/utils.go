package gen

import "io"

// stmtWriter keeps the first write error so a statement can be written in
// pieces and checked once
type stmtWriter struct {
	w   io.Writer
	err error
}

func (s *stmtWriter) write(parts ...string) {
	for _, p := range parts {
		if s.err != nil {
			return
		}
		_, s.err = io.WriteString(s.w, p)
	}
}

func (s *stmtWriter) writeln(parts ...string) {
	s.write(parts...)
	s.write("\n")
}
