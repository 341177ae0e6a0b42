// SPDX-License-Identifier: Apache-2.0
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/glsp/server"
	"github.com/urfave/cli/v2"
	"kiln/grammar"
	"kiln/internal/codegen"
	"kiln/internal/compiler"
	"kiln/internal/config"
	"kiln/internal/errors"
	"kiln/internal/lsp"
	"kiln/internal/sema"
	"kiln/internal/ssair"
)

const lsName = "kiln"

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	targetFlag = &cli.StringFlag{
		Name:  "target",
		Usage: "backend to compile for: evm, polkadot, solana or soroban",
	}
	optLevelFlag = &cli.StringFlag{
		Name:    "opt-level",
		Aliases: []string{"O"},
		Usage:   "optimization level: none, less, default or aggressive",
	}
	noOptimizeFlag = &cli.BoolFlag{
		Name:  "no-optimize",
		Usage: "disable every optimization pass",
	}
	workersFlag = &cli.IntFlag{
		Name:  "workers",
		Usage: "graphs compiled at once, 0 for one per processor",
	}
	werrorFlag = &cli.BoolFlag{
		Name:  "warnings-as-errors",
		Usage: "fail when any warning is reported",
	}
	verbosityFlag = &cli.IntFlag{
		Name:  "verbosity",
		Usage: "log level from 0 (quiet) to 5 (debug)",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log",
		Usage: "write logs to this file instead of stderr",
	}

	globalFlags = []cli.Flag{
		configFlag,
		targetFlag,
		optLevelFlag,
		noOptimizeFlag,
		workersFlag,
		werrorFlag,
		verbosityFlag,
		logFileFlag,
	}
)

func main() {
	app := &cli.App{
		Name:  "kiln",
		Usage: "optimize control flow graphs and lower them to SSA-IR",
		Flags: globalFlags,
		Commands: []*cli.Command{
			{
				Name:      "opt",
				Usage:     "Run the optimization pipeline and print the graphs",
				ArgsUsage: "<file.cfg>",
				Action:    optimizeCommand,
			},
			{
				Name:      "lower",
				Usage:     "Optimize the graphs and print their SSA-IR",
				ArgsUsage: "<file.cfg>",
				Action:    lowerCommand,
			},
			{
				Name:   "lsp",
				Usage:  "Serve diagnostics and highlighting for graph files over stdio",
				Action: serveLSP,
			},
			{
				Name:   "dumpconfig",
				Usage:  "Show the configuration values in effect",
				Action: dumpConfig,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSettings reads the configuration file, if any, then applies the
// command line flags over it
func loadSettings(ctx *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := ctx.String(configFlag.Name); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if ctx.IsSet(targetFlag.Name) {
		cfg.Target = ctx.String(targetFlag.Name)
	}
	if ctx.Bool(noOptimizeFlag.Name) {
		cfg.Codegen = codegen.NoOptimizations()
	}
	if ctx.IsSet(optLevelFlag.Name) {
		if err := cfg.Codegen.OptLevel.UnmarshalText([]byte(ctx.String(optLevelFlag.Name))); err != nil {
			return cfg, err
		}
	}
	if ctx.IsSet(workersFlag.Name) {
		cfg.Workers = ctx.Int(workersFlag.Name)
	}
	if ctx.IsSet(werrorFlag.Name) {
		cfg.WarningsAsErrors = ctx.Bool(werrorFlag.Name)
	}
	if ctx.IsSet(verbosityFlag.Name) {
		cfg.Verbosity = ctx.Int(verbosityFlag.Name)
	}
	return cfg, cfg.Validate()
}

func setup(ctx *cli.Context) (config.Config, error) {
	cfg, err := loadSettings(ctx)
	if err != nil {
		return cfg, err
	}
	var logPath *string
	if path := ctx.String(logFileFlag.Name); path != "" {
		logPath = &path
	}
	commonlog.Configure(cfg.Verbosity, logPath)
	return cfg, nil
}

func optimizeCommand(ctx *cli.Context) error {
	return run(ctx, func(w io.Writer, ns *sema.Namespace, cfgs []*codegen.ControlFlowGraph, opts compiler.Options) error {
		err := compiler.Optimize(ctx.Context, ns, cfgs, opts)
		for _, cfg := range cfgs {
			fmt.Fprintln(w, codegen.PrintCFG(cfg))
		}
		return err
	})
}

func lowerCommand(ctx *cli.Context) error {
	return run(ctx, func(w io.Writer, ns *sema.Namespace, cfgs []*codegen.ControlFlowGraph, opts compiler.Options) error {
		ir, err := compiler.CompileCFGs(ctx.Context, ns, cfgs, opts)
		for _, cfg := range ir {
			if cfg != nil {
				fmt.Fprintln(w, ssair.PrintCfg(cfg))
			}
		}
		if err != nil {
			return err
		}
		if ns.Diagnostics.HasErrors(opts.WarningsAsErrors) {
			return errors.ErrDiagnostics
		}
		return nil
	})
}

type stage func(w io.Writer, ns *sema.Namespace, cfgs []*codegen.ControlFlowGraph, opts compiler.Options) error

// run loads the graphs named on the command line and hands them to fn,
// then reports diagnostics and the outcome
func run(ctx *cli.Context, fn stage) error {
	if ctx.NArg() != 1 {
		return cli.Exit("expected exactly one <file.cfg> argument", 1)
	}
	settings, err := setup(ctx)
	if err != nil {
		return err
	}

	startTime := time.Now()
	path := ctx.Args().First()

	cfgs, source, err := grammar.LoadFile(path)
	if err != nil {
		fmt.Fprint(os.Stderr, grammar.FormatParseError(source, err))
		return cli.Exit("", 1)
	}

	ns := sema.NewNamespace(settings.TargetSpec())
	err = fn(os.Stdout, ns, cfgs, settings.CompilerOptions())

	reporter := errors.NewErrorReporter(path, source)
	for _, diag := range ns.Diagnostics.All() {
		fmt.Fprint(os.Stderr, reporter.FormatError(diag))
	}

	formattedDuration := formatDuration(time.Since(startTime))
	if err != nil {
		if !errors.Is(err, errors.ErrDiagnostics) {
			fmt.Fprintln(os.Stderr, err)
		}
		color.Red("Compilation failed after %s", formattedDuration)
		return cli.Exit("", 1)
	}
	color.Green("Successfully processed %s in %s", path, formattedDuration)
	return nil
}

func serveLSP(ctx *cli.Context) error {
	settings, err := setup(ctx)
	if err != nil {
		return err
	}
	handler := lsp.NewHandler(settings)
	s := server.NewServer(handler.Protocol(), lsName, false)
	return s.RunStdio()
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := loadSettings(ctx)
	if err != nil {
		return err
	}
	out, err := config.Dump(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Minute:
		return fmt.Sprintf("%.2fmin", d.Minutes())
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d.Nanoseconds())/1000000.0)
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fμs", float64(d.Nanoseconds())/1000.0)
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}
