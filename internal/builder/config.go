package builder

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/expr-lang/expr"
	"github.com/hashicorp/go-multierror"
	"github.com/pelletier/go-toml/v2"
)

const (
	OrderSorted = "sorted"
	OrderFS     = "fs"
)

type Config struct {
	Order          string        `toml:"order"`
	FollowSymlinks bool          `toml:"follow_symlinks"`
	Exclude        []string      `toml:"exclude"`
	Rule           []RuleSection `toml:"rule"`
	Link           []LinkSection `toml:"link"`
}

// RuleSection defines a [[rule]] entry
type RuleSection struct {
	Suffix      string `toml:"suffix"`
	Rule        string `toml:"rule"`
	Passthrough bool   `toml:"passthrough"`
	When        string `toml:"when"`
}

// LinkSection defines a [[link]] entry
type LinkSection struct {
	Suffix string `toml:"suffix"`
	Rule   string `toml:"rule"`
	When   string `toml:"when"`
}

func DefaultConfig() *Config {
	return &Config{Order: OrderSorted}
}

// ConfigEnv is the environment `when` expressions are evaluated in
type ConfigEnv struct {
	TargetOS   string `expr:"target_os"`
	TargetArch string `expr:"target_arch"`
}

func NewConfigEnv() ConfigEnv {
	return ConfigEnv{
		TargetOS:   runtime.GOOS,
		TargetArch: runtime.GOARCH,
	}
}

func ParseConfig(rdr io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := toml.NewDecoder(rdr)
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, errors.New(derr.String())
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return nil, errors.New(serr.String())
		}
		return nil, err
	}
	if cfg.Order == "" {
		cfg.Order = OrderSorted
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseConfigFromFile parses and validates a config file from a filepath
func ParseConfigFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := ParseConfig(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem in the config at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Order != OrderSorted && c.Order != OrderFS {
		result = multierror.Append(result, fmt.Errorf("order must be %q or %q, got %q", OrderSorted, OrderFS, c.Order))
	}

	for _, pat := range c.Exclude {
		if !doublestar.ValidatePattern(pat) {
			result = multierror.Append(result, fmt.Errorf("invalid exclude pattern %q", pat))
		}
	}

	seen := make(map[string]bool)
	for _, r := range DefaultCompileRules {
		seen[r.Suffix] = true
	}
	for i, r := range c.Rule {
		switch {
		case r.Suffix == "":
			result = multierror.Append(result, fmt.Errorf("rule #%d: empty suffix", i+1))
		case seen[r.Suffix]:
			result = multierror.Append(result, fmt.Errorf("rule #%d: duplicate suffix %q", i+1, r.Suffix))
		}
		seen[r.Suffix] = true

		if r.Passthrough && r.Rule != "" {
			result = multierror.Append(result, fmt.Errorf("rule #%d: passthrough rule %q can't have a compile rule", i+1, r.Suffix))
		}
		if !r.Passthrough && r.Rule == "" {
			result = multierror.Append(result, fmt.Errorf("rule #%d: missing compile rule for %q", i+1, r.Suffix))
		}
	}

	for i, l := range c.Link {
		if l.Suffix == "" {
			result = multierror.Append(result, fmt.Errorf("link #%d: empty suffix", i+1))
		}
		if l.Rule == "" {
			result = multierror.Append(result, fmt.Errorf("link #%d: missing link rule for %q", i+1, l.Suffix))
		}
	}

	return result.ErrorOrNil()
}

// evalCondition runs a `when` expression, an empty one is always true
func evalCondition(when string, env ConfigEnv) (bool, error) {
	if when == "" {
		return true, nil
	}
	program, err := expr.Compile(when, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("failed to compile expression %q: %w", when, err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("failed to run expression %q: %w", when, err)
	}
	matched, _ := result.(bool)
	return matched, nil
}

// Rules builds the dispatch table: built-in compile rules first, then the
// configured ones; configured link rules before the built-in ones.
func (c *Config) Rules(env ConfigEnv) (Rules, error) {
	var result *multierror.Error
	rules := DefaultRules()

	for _, r := range c.Rule {
		ok, err := evalCondition(r.When, env)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("rule %q: %w", r.Suffix, err))
			continue
		}
		if !ok {
			continue
		}
		rules.Compile = append(rules.Compile, CompileRule{
			Suffix:      r.Suffix,
			Strip:       len(r.Suffix),
			Rule:        r.Rule,
			Passthrough: r.Passthrough,
		})
	}

	var link []LinkRule
	for _, l := range c.Link {
		ok, err := evalCondition(l.When, env)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("link %q: %w", l.Suffix, err))
			continue
		}
		if ok {
			link = append(link, LinkRule{Suffix: l.Suffix, Rule: l.Rule})
		}
	}
	rules.Link = append(link, rules.Link...)

	if err := result.ErrorOrNil(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}
