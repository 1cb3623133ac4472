package gen

// Generator receives build statements as the source tree is scanned
type Generator interface {
	Compile(obj, rule, src string) error
	Link(out, rule string, objs, defs []string) error
}
