package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/digitaldomain/QtPyConvert/internal/config"
	"github.com/digitaldomain/QtPyConvert/internal/convert"
	"github.com/digitaldomain/QtPyConvert/internal/discover"
	"github.com/digitaldomain/QtPyConvert/internal/report"
	"github.com/digitaldomain/QtPyConvert/internal/runner"
	"github.com/digitaldomain/QtPyConvert/internal/store"
	"github.com/digitaldomain/QtPyConvert/internal/tools"
)

// cliFlags are shared by every subcommand.
type cliFlags struct {
	recursive       bool
	write           bool
	output          string
	backup          bool
	stdout          bool
	diff            bool
	toMethods       bool
	explicitSignals bool
	stringType      string
	jobs            int
	ignore          []string
	journal         string
	noJournal       bool
	incremental     bool
	watch           bool
	verbose         bool
	quiet           bool
	color           bool
	noColor         bool
	config          string
}

func newRootCmd() *cobra.Command {
	f := &cliFlags{}
	root := &cobra.Command{
		Use:   "qtpyconvert [flags] <file or folder>...",
		Short: "Convert PyQt4, PyQt5, PySide and PySide2 code to Qt.py",
		Long: `qtpyconvert rewrites Python code written against a Qt binding so that it
imports Qt.py instead. Formatting and comments are kept. Constructs that cannot
be converted automatically are reported with their line numbers.

Without --write, --output or --stdout a unified diff is printed and nothing is
written.`,
		Args:         cobra.MinimumNArgs(1),
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(f.verbose, f.quiet)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, f, args)
		},
	}
	root.SetVersionTemplate("qtpyconvert {{.Version}}\n")

	fl := root.Flags()
	fl.BoolVarP(&f.recursive, "recursive", "r", false, "descend into subfolders")
	fl.BoolVarP(&f.write, "write", "w", false, "overwrite the source files")
	fl.StringVarP(&f.output, "output", "o", "", "write converted files below this folder")
	fl.BoolVar(&f.backup, "backup", false, "keep the original text as .<name>.bak beside written files")
	fl.BoolVar(&f.stdout, "stdout", false, "print the converted text")
	fl.BoolVar(&f.diff, "diff", false, "print a unified diff (default when nothing is written)")
	fl.BoolVar(&f.toMethods, "to-methods", false, "strip PyQt4 API v1 conversion calls such as .toString()")
	fl.BoolVar(&f.explicitSignals, "explicit-signals", false, "write signal argument types, as in clicked[bool]")
	fl.StringVar(&f.stringType, "string-type", "", "replacement for QString and friends (default \"str\")")
	fl.IntVarP(&f.jobs, "jobs", "j", 0, "files converted in parallel (default: CPU count)")
	fl.StringSliceVar(&f.ignore, "ignore", nil, "glob patterns of files to skip")
	fl.BoolVar(&f.incremental, "incremental", false, "skip files unchanged since their last conversion")
	fl.BoolVar(&f.watch, "watch", false, "keep running and convert files as they change")

	pf := root.PersistentFlags()
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "print every replacement and debug logs")
	pf.BoolVarP(&f.quiet, "quiet", "q", false, "print errors only")
	pf.BoolVar(&f.color, "color", false, "force colored output")
	pf.BoolVar(&f.noColor, "no-color", false, "disable colored output")
	pf.StringVar(&f.config, "config", "", "config file (default ./"+config.FileName+")")
	pf.StringVar(&f.journal, "journal", "", "journal database (default ~/.cache/qtpyconvert/journal.db)")
	pf.BoolVar(&f.noJournal, "no-journal", false, "do not record runs")

	root.AddCommand(newServeCmd(f), newHistoryCmd(f), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "qtpyconvert", version)
		},
	}
}

func newServeCmd(f *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the converter as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			opts, err := convertOptions(cmd, f, cfg)
			if err != nil {
				return err
			}
			journal := openJournal(f, cfg)
			if journal != nil {
				defer journal.Close()
			}
			srv := tools.NewServer(journal, opts)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.MCPServer().Run(ctx, &mcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("server: %w", err)
			}
			return nil
		},
	}
}

func newHistoryCmd(f *cliFlags) *cobra.Command {
	var limit, prune int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded conversion runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(f)
			if err != nil {
				return err
			}
			path, err := journalPath(f, cfg)
			if err != nil {
				return err
			}
			journal, err := store.OpenPath(path)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer journal.Close()

			if cmd.Flags().Changed("prune") {
				n, err := journal.PruneRuns(prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d run(s)\n", n)
				return nil
			}
			runs, err := journal.ListRuns(limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				fmt.Fprintf(out, "%d\t%s\t%s\t%s\t%d files, %d converted, %d skipped, %d failed\n",
					r.ID, r.StartedAt, r.Mode, r.Root, r.Files, r.Converted, r.Skipped, r.Failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list, 0 for all")
	cmd.Flags().IntVar(&prune, "prune", 0, "delete all but the newest N runs")
	return cmd
}

func loadConfig(f *cliFlags) (*config.Config, error) {
	if f.config != "" {
		return config.LoadFile(f.config)
	}
	dir, err := os.Getwd()
	if err != nil {
		return config.DefaultConfig(), nil
	}
	return config.LoadConfig(dir), nil
}

// convertOptions builds conversion options from the config, then applies
// the flags given on the command line.
func convertOptions(cmd *cobra.Command, f *cliFlags, cfg *config.Config) (convert.Options, error) {
	opts, err := cfg.ConvertOptions()
	if err != nil {
		return opts, fmt.Errorf("binding overrides: %w", err)
	}
	if cmd.Flags().Changed("to-methods") {
		opts.ToMethods = f.toMethods
	}
	if cmd.Flags().Changed("explicit-signals") {
		opts.ExplicitSignals = f.explicitSignals
	}
	if f.stringType != "" {
		opts.StringType = f.stringType
	}
	return opts, nil
}

func journalPath(f *cliFlags, cfg *config.Config) (string, error) {
	switch {
	case f.journal != "":
		return f.journal, nil
	case cfg.Journal != "":
		return cfg.Journal, nil
	}
	return store.DefaultPath()
}

// openJournal returns nil when the journal is disabled or cannot be opened.
func openJournal(f *cliFlags, cfg *config.Config) *store.Store {
	if f.noJournal {
		return nil
	}
	path, err := journalPath(f, cfg)
	if err != nil {
		slog.Warn("journal.path", "err", err)
		return nil
	}
	s, err := store.OpenPath(path)
	if err != nil {
		slog.Warn("journal.open", "path", path, "err", err)
		return nil
	}
	return s
}

// selectMode maps the output flags to a runner mode. At most one may be set.
func selectMode(f *cliFlags) (runner.Mode, error) {
	var modes []runner.Mode
	if f.stdout {
		modes = append(modes, runner.ModeStdout)
	}
	if f.write {
		modes = append(modes, runner.ModeWrite)
	}
	if f.output != "" {
		modes = append(modes, runner.ModeMirror)
	}
	if f.diff {
		modes = append(modes, runner.ModeDiff)
	}
	switch len(modes) {
	case 0:
		return runner.ModeDiff, nil
	case 1:
		return modes[0], nil
	}
	return 0, errors.New("--stdout, --write, --output and --diff are mutually exclusive")
}

func colorEnabled(f *cliFlags, out *os.File) bool {
	switch {
	case f.noColor:
		return false
	case f.color:
		return true
	}
	return report.ColorEnabled(out)
}

func runConvert(cmd *cobra.Command, f *cliFlags, args []string) error {
	mode, err := selectMode(f)
	if err != nil {
		return err
	}
	if f.backup && mode != runner.ModeWrite && mode != runner.ModeMirror {
		return errors.New("--backup needs --write or --output")
	}
	if f.watch && mode == runner.ModeStdout {
		return errors.New("--watch cannot be combined with --stdout")
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}
	opts, err := convertOptions(cmd, f, cfg)
	if err != nil {
		return err
	}

	journal := openJournal(f, cfg)
	if journal != nil {
		defer journal.Close()
	} else if f.incremental {
		slog.Warn("runner.incremental", "reason", "journal disabled")
	}

	// Converted text owns stdout in stdout mode; reports go to stderr.
	out := os.Stdout
	if mode == runner.ModeStdout {
		out = os.Stderr
	}
	var printer *report.Printer
	if !f.quiet || mode == runner.ModeDiff {
		printer = report.NewPrinter(out, colorEnabled(f, out))
	}

	ignore := append(append([]string(nil), cfg.Ignore...), f.ignore...)
	jobs := cfg.EffectiveJobs()
	if cmd.Flags().Changed("jobs") {
		jobs = f.jobs
	}
	r, err := runner.New(runner.Options{
		Convert:     opts,
		Mode:        mode,
		OutputDir:   f.output,
		Backup:      f.backup,
		Recursive:   f.recursive,
		Ignore:      ignore,
		Jobs:        jobs,
		Journal:     journal,
		Incremental: f.incremental,
		Printer:     printer,
		Verbose:     f.verbose,
		Stdout:      os.Stdout,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := r.Run(ctx, args...)
	if err != nil {
		return err
	}
	if printer == nil {
		// Manual fixes are errors too; --quiet only drops the chatter.
		for _, o := range rep.Outcomes {
			if merr := o.ManualError(); merr != nil {
				fmt.Fprintln(os.Stderr, merr)
			}
		}
	}
	if f.watch {
		return watch(ctx, r, args, &discover.Options{Recursive: f.recursive, Ignore: ignore})
	}
	if rep.Summary.Failed > 0 {
		if f.quiet {
			fmt.Fprint(os.Stderr, rep.Failed())
		}
		return fmt.Errorf("%d file(s) failed", rep.Summary.Failed)
	}
	return nil
}
