package gen

import (
	"io"
	"strings"

	"github.com/qobs-build/ninjascan/internal/msg"
)

// BinDir is where every link output is placed
const BinDir = "bin/"

// NinjaGen writes ninja build statements to W as they arrive.
// Paths are written verbatim, without $-escaping.
type NinjaGen struct {
	W io.Writer
}

func NewNinjaGen(w io.Writer) *NinjaGen {
	return &NinjaGen{W: w}
}

func (g *NinjaGen) BuildFile() string { return "build.ninja" }

// Compile writes `build <obj>: <rule> <src>`
func (g *NinjaGen) Compile(obj, rule, src string) error {
	sw := &stmtWriter{w: g.W}
	sw.writeln("build ", obj, ": ", rule, " ", src)
	return sw.err
}

// Link writes the final link statement followed by one indented line per
// definition. The space after the rule is always written, even for an empty
// object list.
func (g *NinjaGen) Link(out, rule string, objs, defs []string) error {
	sw := &stmtWriter{w: g.W}
	sw.write("build ", BinDir, out, ": ", rule, " ")
	sw.writeln(strings.Join(objs, " "))
	if sw.err != nil {
		return sw.err
	}

	dw := &stmtWriter{w: &msg.IndentWriter{Indent: "  ", W: g.W}}
	for _, def := range defs {
		dw.writeln(def)
	}
	return dw.err
}
