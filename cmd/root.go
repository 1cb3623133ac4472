// ninjascan <output> [dir | key=value]...
package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/qobs-build/ninjascan/internal/builder"
	"github.com/qobs-build/ninjascan/internal/builder/gen"
	"github.com/qobs-build/ninjascan/internal/msg"
	"github.com/spf13/cobra"
)

var (
	flagOut            string
	flagCheck          bool
	flagConfig         string
	flagExclude        []string
	flagFollowSymlinks bool
	flagNoStdin        bool
	flagVerbose        bool
	flagOrder          EnumValue = newOrderFlag()
)

func newOrderFlag() EnumValue {
	return NewEnumValue(builder.OrderSorted, map[string]string{
		builder.OrderSorted: "Visit directory entries sorted by name (default)",
		builder.OrderFS:     "Visit directory entries in filesystem order",
	})
}

// loadConfig reads --config if given and lets explicitly set flags override it
func loadConfig(cmd *cobra.Command) (*builder.Config, error) {
	cfg := builder.DefaultConfig()
	if flagConfig != "" {
		var err error
		cfg, err = builder.ParseConfigFromFile(flagConfig)
		if err != nil {
			return nil, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("order") {
		cfg.Order = flagOrder.Value()
	}
	if flags.Changed("follow-symlinks") {
		cfg.FollowSymlinks = flagFollowSymlinks
	}
	cfg.Exclude = append(cfg.Exclude, flagExclude...)
	return cfg, cfg.Validate()
}

func generate(cmd *cobra.Command, args []string) error {
	msg.Verbose = flagVerbose

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	g := gen.NewNinjaGen(&buf)
	b, err := builder.NewBuilderFromConfig(cfg, builder.NewConfigEnv(), g)
	if err != nil {
		return err
	}

	var list io.Reader
	if !flagNoStdin {
		list = cmd.InOrStdin()
	}
	if err := b.Generate(args[0], args[1:], list); err != nil {
		return err
	}

	switch {
	case flagCheck:
		out := flagOut
		if out == "" {
			out = g.BuildFile()
		}
		if err := builder.Check(out, buf.Bytes(), cmd.ErrOrStderr()); err != nil {
			return err
		}
		msg.Info("%s is up to date", out)
	case flagOut != "":
		wrote, err := builder.WriteIfChanged(flagOut, buf.Bytes())
		if err != nil {
			return err
		}
		if wrote {
			msg.Debug("wrote %s", flagOut)
		} else {
			msg.Debug("%s unchanged", flagOut)
		}
	default:
		if _, err := cmd.OutOrStdout().Write(buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

var rootCmd = &cobra.Command{
	Use:   "ninjascan <output> [dir | key=value]...",
	Short: "Generate ninja build statements from a source tree",
	Long: `Scans each directory for .cpp, .cc and .c sources and prints a ninja
build statement per source, then one statement linking every object into
bin/<output>. Extra paths (sources or .o files) are read from stdin, one per
line. Arguments containing '=' are passed through as indented variable
definitions on the link statement.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		err := generate(cmd, args)
		if errors.Is(err, builder.ErrStale) {
			msg.Error("%v", err)
			os.Exit(1)
		}
		if err != nil {
			msg.Fatal("%v", err)
		}
	},
}

func init() {
	addGenerateFlags(rootCmd)
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&flagOut, "out", "o", "", "Write the build file here instead of stdout (only rewritten when changed)")
	cmd.Flags().BoolVar(&flagCheck, "check", false, "Compare against --out (default build.ninja) instead of writing it, exit 1 if stale")
	cmd.Flags().StringVarP(&flagConfig, "config", "c", "", "Read extra rules and settings from this TOML file")
	cmd.Flags().StringArrayVarP(&flagExclude, "exclude", "x", nil, "Skip paths matching this glob, relative to each directory (repeatable)")
	cmd.Flags().BoolVar(&flagFollowSymlinks, "follow-symlinks", false, "Descend into symlinked directories")
	cmd.Flags().BoolVar(&flagNoStdin, "no-stdin", false, "Don't read extra paths from stdin")
	cmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print debug messages to stderr")
	cmd.Flags().Var(&flagOrder, "order", "Directory entry order, one of "+flagOrder.HelpString())
	cmd.RegisterFlagCompletionFunc("order", flagOrder.CompletionFunc())
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
