package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/bytedance/sonic"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"doctoc/config"
	"doctoc/misc"
	"doctoc/state"
	"doctoc/toc"
)

// initializeAppContext prepares application context before command execution but
// after command line has been parsed
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		// nothing to do, just return
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		// save complete processed configuration if external configuration was provided
		if len(configFile) > 0 {
			// we do not want any of your secrets!
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}
	if env.Log, err = env.Cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.TagLog()
	env.RedirectStdLog()

	env.Placeholders = parsePlaceholders(cmd.StringSlice("set"))

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", misc.GetVersion()), zap.String("runtime", runtime.Version()), zap.String("hash", misc.GetGitHash()))

	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 && env.Log != nil {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

// parsePlaceholders turns repeated --set key=value flags into the token
// substitution map for cached front matter text.
func parsePlaceholders(pairs []string) map[string]string {
	if len(pairs) == 0 {
		return nil
	}
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		if k, v, ok := strings.Cut(p, "="); ok && len(k) > 0 {
			m[k] = v
		}
	}
	return m
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}

	// close logging
	env.RestoreStdLog()

	// log is synced now and result can be used in report if necessary, errors
	// must be reported directly to stderr from now on
	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	// reporting is closed now - remove empty panic file if any
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := filepath.Join(filepath.Dir(env.Cfg.Logging.FileLogger.Destination), misc.GetAppName()+"-panic.log")
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Ignore urfave/cli default error handling - cli.Exit() is non-transparent,
// subcommands return regular errors instead.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {

	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// do nothing special, error is reported either by exitErrHandler or on
	// exit directly to stderr.
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

func main() {

	// allow graceful shutdown on interrupt
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "table of contents generator for word-processing documents",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
			&cli.StringSliceFlag{Name: "set", Usage: "substitute `KEY=VALUE` token in cached front matter text (repeatable)"},
		},
		Commands: []*cli.Command{
			{
				Name:         "rebuild",
				Usage:        "Removes stale front matter and writes fresh TOC/LOF/LOT sections",
				OnUsageError: usageErrorHandler,
				Action:       rebuildCommand,
				ArgsUsage:    "DOCUMENT",
				CustomHelpTemplate: fmt.Sprintf(`%s
DOCUMENT:
    path to the document package to process, rewritten in place on success
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "clean",
				Usage:        "Removes existing TOC/LOF/LOT content without writing anything new",
				OnUsageError: usageErrorHandler,
				Action:       cleanCommand,
				ArgsUsage:    "DOCUMENT",
			},
			{
				Name:         "pages",
				Usage:        "Estimates heading page placement without modifying the document (JSON)",
				OnUsageError: usageErrorHandler,
				Action:       pagesCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "toc-pages", Usage: "assumed table of contents size in `PAGES`"},
					&cli.IntFlag{Name: "lof-pages", Usage: "assumed list of figures size in `PAGES`"},
					&cli.IntFlag{Name: "lot-pages", Usage: "assumed list of tables size in `PAGES`"},
				},
				ArgsUsage: "DOCUMENT [DESTINATION]",
				CustomHelpTemplate: fmt.Sprintf(`%s
DOCUMENT:
    path to the document package to analyze, never modified

DESTINATION:
    file name to write the JSON page map to, if absent - STDOUT
`, cli.CommandHelpTemplate),
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values wich is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deffered functions after that
	defer func() {
		stop()
		if err != nil {
			// It may happen that log is either not set yet (argument parsing) or already closed,
			// report errors to stderr directly
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func documentArg(ctx context.Context, cmd *cli.Command) (string, error) {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() == 0 {
		return "", fmt.Errorf("no document specified")
	}
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many documents", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	return cmd.Args().Get(0), nil
}

func rebuildCommand(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	path, err := documentArg(ctx, cmd)
	if err != nil {
		return err
	}

	res, err := toc.RebuildTableOfContents(ctx, path)
	if err != nil {
		return fmt.Errorf("unable to rebuild table of contents: %w", err)
	}
	env.Log.Info("Rebuild finished", zap.Int("entries", res.EntriesWritten))
	return nil
}

func cleanCommand(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	path, err := documentArg(ctx, cmd)
	if err != nil {
		return err
	}

	res, err := toc.RemoveExistingFrontMatter(ctx, path)
	if err != nil {
		return fmt.Errorf("unable to remove front matter: %w", err)
	}
	env.Log.Info("Cleanup finished", zap.Int("removed", res.Removed))
	return nil
}

func pagesCommand(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() == 0 {
		return fmt.Errorf("no document specified")
	}
	path := cmd.Args().Get(0)

	sizes := toc.FrontMatterSizes{
		TOCPages: cmd.Int("toc-pages"),
		LOFPages: cmd.Int("lof-pages"),
		LOTPages: cmd.Int("lot-pages"),
	}
	m, err := toc.CalculatePageNumbers(ctx, path, sizes)
	if err != nil {
		return fmt.Errorf("unable to calculate page numbers: %w", err)
	}

	data, err := sonic.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to serialize page map: %w", err)
	}

	out := os.Stdout
	if fname := cmd.Args().Get(1); len(fname) > 0 {
		if out, err = os.Create(fname); err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()
		env.Log.Info("Writing page map", zap.String("file", fname))
	}

	if _, err = out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("unable to write page map: %w", err)
	}
	return nil
}

func outputConfiguration(ctx context.Context, cmd *cli.Command) error {

	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	fname := cmd.Args().Get(0)

	var (
		err   error
		data  []byte
		state string
	)

	out := os.Stdout
	if len(fname) > 0 {
		out, err = os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer out.Close()

	}

	if cmd.Bool("default") {
		state = "default"
		data, err = config.Prepare()
	} else {
		state = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Info("Outputing configuration", zap.String("state", state), zap.String("file", fname))

	_, err = out.Write(data)
	if err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
