package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

func main() {
	a := newApp(os.Stdout, os.Stderr)
	if err := a.rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", color.RedString("error: %v", err))
		os.Exit(1)
	}
}

// app carries the configuration and output streams shared by all commands.
type app struct {
	v      *viper.Viper
	stdout io.Writer
	stderr io.Writer
	log    zerolog.Logger
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{v: viper.New(), stdout: stdout, stderr: stderr, log: zerolog.Nop()}
}

func (a *app) rootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:           "dcdis",
		Short:         "Disassembler and control-flow analyzer for DC script containers",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cfgFile)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: ./dcdis.yaml or ~/.dcdis/dcdis.yaml)")
	pf.String("sid", "", "path to the StringId64 resolver table")
	pf.Int("workers", runtime.NumCPU(), "lambdas analyzed in parallel")
	pf.Bool("strict", false, "fail on the first decode fault")
	pf.Int("max-steps", 0, "instruction cap per lambda (0 = default)")
	pf.Bool("exact-loops", false, "use natural-loop bodies instead of the forward flood fill")
	pf.Bool("continue-past-return", false, "keep building the CFG after the first Return")
	pf.Bool("no-color", false, "disable colored output")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	for _, name := range []string{"sid", "workers", "strict", "max-steps", "exact-loops", "continue-past-return", "no-color", "log-level"} {
		_ = a.v.BindPFlag(name, pf.Lookup(name))
	}

	root.AddCommand(
		a.scanCmd(),
		a.disasmCmd(),
		a.listCmd(),
		a.sidCmd(),
		a.exportCmd(),
	)
	return root
}

// setup reads the config file and environment, then configures logging and
// color output.
func (a *app) setup(cfgFile string) error {
	v := a.v
	v.SetEnvPrefix("DCDIS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("dcdis")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".dcdis"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return fmt.Errorf("config: %w", err)
		}
	}

	if v.GetBool("no-color") || !isTerminal(a.stdout) {
		color.NoColor = true
	}

	lvl, err := zerolog.ParseLevel(v.GetString("log-level"))
	if err != nil {
		return fmt.Errorf("config: log-level: %w", err)
	}
	a.log = zerolog.New(zerolog.ConsoleWriter{
		Out:        a.stderr,
		NoColor:    color.NoColor,
		TimeFormat: time.TimeOnly,
	}).Level(lvl).With().Timestamp().Logger()
	if cfg := v.ConfigFileUsed(); cfg != "" {
		a.log.Debug().Str("path", cfg).Msg("config loaded")
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
