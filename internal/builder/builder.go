package builder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/qobs-build/ninjascan/internal/builder/gen"
	"github.com/qobs-build/ninjascan/internal/msg"
)

var (
	errNoOutput = errors.New("no output target given")
)

// Builder turns source paths into build statements. It owns the ordered
// object list that the final link statement is made from.
type Builder struct {
	rules   Rules
	walk    WalkOptions
	g       gen.Generator
	objects []string
}

func NewBuilder(rules Rules, walk WalkOptions, g gen.Generator) *Builder {
	return &Builder{rules: rules, walk: walk, g: g}
}

// NewBuilderFromConfig resolves the config's rules and walk settings
func NewBuilderFromConfig(cfg *Config, env ConfigEnv, g gen.Generator) (*Builder, error) {
	rules, err := cfg.Rules(env)
	if err != nil {
		return nil, err
	}
	walk := WalkOptions{
		Unsorted:       cfg.Order == OrderFS,
		FollowSymlinks: cfg.FollowSymlinks,
		Exclude:        cfg.Exclude,
	}
	return NewBuilder(rules, walk, g), nil
}

// Classify splits the arguments following the output name into directories
// to scan and verbatim key=value definitions
func Classify(args []string) (roots, defs []string) {
	for _, arg := range args {
		if strings.Contains(arg, "=") {
			defs = append(defs, arg)
		} else {
			roots = append(roots, arg)
		}
	}
	return roots, defs
}

// Objects returns the accumulated objects in discovery order
func (b *Builder) Objects() []string {
	return b.objects
}

// AddFile is the single entry point for scanned and listed paths. Paths with
// an unknown suffix are ignored.
func (b *Builder) AddFile(path string) error {
	for _, r := range b.rules.Compile {
		if !r.Match(path) {
			continue
		}
		obj := r.Object(path)
		if !r.Passthrough {
			if err := b.g.Compile(obj, r.Rule, path); err != nil {
				return err
			}
		}
		b.objects = append(b.objects, obj)
	}
	return nil
}

// ScanDir adds every file below root
func (b *Builder) ScanDir(root string) error {
	msg.Debug("scanning %s", root)
	if err := walkTree(root, b.walk, b.AddFile); err != nil {
		return fmt.Errorf("failed to scan %s: %w", root, err)
	}
	return nil
}

// ReadFileList adds one path per line of r, trimmed of surrounding
// whitespace. Lines have no length limit.
func (b *Builder) ReadFileList(r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read file list: %w", err)
		}
		if line != "" {
			if err := b.AddFile(strings.TrimSpace(line)); err != nil {
				return err
			}
		}
		if err == io.EOF {
			return nil
		}
	}
}

// Link writes the final statement linking every object into bin/<output>
func (b *Builder) Link(output string, defs []string) error {
	rule := b.rules.LinkRuleFor(output)
	msg.Debug("linking %d objects into %s with %s", len(b.objects), output, rule)
	return b.g.Link(output, rule, b.objects, defs)
}

// Generate runs the whole pipeline: scan every root, read the file list from
// list (if non-nil), then link. args excludes the output name.
func (b *Builder) Generate(output string, args []string, list io.Reader) error {
	if output == "" {
		return errNoOutput
	}
	roots, defs := Classify(args)
	for _, root := range roots {
		if err := b.ScanDir(root); err != nil {
			return err
		}
	}
	if list != nil {
		if err := b.ReadFileList(list); err != nil {
			return err
		}
	}
	return b.Link(output, defs)
}
