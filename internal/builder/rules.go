package builder

import "strings"

// CompileRule maps a source suffix to the ninja rule that compiles it.
// A Passthrough rule marks files that are already objects.
type CompileRule struct {
	Suffix      string
	Strip       int
	Rule        string
	Passthrough bool
}

// Match reports whether path ends in the rule's suffix
func (r CompileRule) Match(path string) bool {
	return strings.HasSuffix(path, r.Suffix)
}

// Object returns the object path for a matching source path
func (r CompileRule) Object(path string) string {
	if r.Passthrough {
		return path
	}
	return path[:len(path)-r.Strip] + ".o"
}

// DefaultCompileRules is checked in order. Every rule is checked
// independently, so overlapping suffixes would match more than once.
var DefaultCompileRules = []CompileRule{
	{Suffix: ".cpp", Strip: 4, Rule: "cxx"},
	{Suffix: ".cc", Strip: 3, Rule: "cxx"},
	{Suffix: ".c", Strip: 2, Rule: "cc"},
	{Suffix: ".o", Passthrough: true},
}

// LinkRule maps an output suffix to a link rule
type LinkRule struct {
	Suffix string
	Rule   string
}

const DefaultLinkRule = "link"

// DefaultLinkRules is checked in order, first match wins
var DefaultLinkRules = []LinkRule{
	{Suffix: ".so", Rule: "linksharedlib"},
	{Suffix: ".a", Rule: "linkstaticlib"},
}

// Rules is the full dispatch table used by a Builder
type Rules struct {
	Compile []CompileRule
	Link    []LinkRule
}

func DefaultRules() Rules {
	return Rules{
		Compile: append([]CompileRule(nil), DefaultCompileRules...),
		Link:    append([]LinkRule(nil), DefaultLinkRules...),
	}
}

// LinkRuleFor picks the link rule for the output target name
func (r Rules) LinkRuleFor(output string) string {
	for _, l := range r.Link {
		if strings.HasSuffix(output, l.Suffix) {
			return l.Rule
		}
	}
	return DefaultLinkRule
}
