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

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	latex "github.com/eolymp/go-latex-editor"
	"github.com/eolymp/go-latex-editor/config"
	"github.com/eolymp/go-latex-editor/state"
)

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok && len(info.Main.Version) > 0 {
		return info.Main.Version
	}
	return "(devel)"
}

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
		env.Cfg.Logging.ConsoleLogger.Level = "debug"
	}
	if env.Log, err = env.Cfg.Logging.Prepare(); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", version()), zap.String("runtime", runtime.Version()))

	if len(configFile) == 0 {
		env.Log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if er := env.Close(); er != nil {
		err = multierr.Append(err, fmt.Errorf("unable to close document store: %w", er))
	}

	env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))

	// close logging
	env.RestoreStdLog()

	// remove empty panic file if any
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := filepath.Join(filepath.Dir(env.Cfg.Logging.FileLogger.Destination), config.AppName()+"-panic.log")
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Subcommands return regular errors, they are logged here and reported
// on exit. cli.Exit() is not used.
var errWasHandled bool

// this is called before appContext is destroyed, so we have a chance to
// properly log any error from subcommand
func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := state.EnvFromContext(ctx)

	if env.Log.Core().Enabled(zap.ErrorLevel) {
		env.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	// reported either by exitErrHandler or on exit directly to stderr.
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

func kindNames() string {
	names := make([]string, 0, len(latex.Kinds()))
	for _, k := range latex.Kinds() {
		names = append(names, k.String())
	}
	return strings.Join(names, ", ")
}

const sourceHelp = `
SOURCE:
    path to LaTeX file, "-" reads STDIN; not used when --id selects a stored document
`

func newApp() *cli.Command {
	return &cli.Command{
		Name:            config.AppName(),
		Usage:           "visual editing of LaTeX documents: images, spacing, line breaks and formulas",
		Version:         version() + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log debug messages to console"},
		},
		Commands: []*cli.Command{
			{
				Name:               "inspect",
				Usage:              "Lists editable nodes of the document",
				OnUsageError:       usageErrorHandler,
				Action:             inspectDocument,
				Flags:              []cli.Flag{idFlag(), &cli.BoolFlag{Name: "yaml", Usage: "output nodes with their attributes as YAML"}},
				ArgsUsage:          "SOURCE",
				CustomHelpTemplate: cli.CommandHelpTemplate + sourceHelp,
			},
			{
				Name:         "edit",
				Usage:        "Edits a single node of the document",
				OnUsageError: usageErrorHandler,
				Action:       editNode,
				Flags: []cli.Flag{
					idFlag(), outputFlag(), setFlag(),
					&cli.IntFlag{Name: "node", Aliases: []string{"n"}, Required: true, Usage: "node `POSITION` as listed by inspect"},
					&cli.BoolFlag{Name: "delete", Usage: "remove node from the document"},
					&cli.BoolFlag{Name: "fields", Usage: "list node fields and their values, document is not changed"},
				},
				ArgsUsage:          "SOURCE",
				CustomHelpTemplate: cli.CommandHelpTemplate + sourceHelp,
			},
			{
				Name:         "insert",
				Usage:        "Inserts a new node with default content",
				OnUsageError: usageErrorHandler,
				Action:       insertNode,
				Flags: []cli.Flag{
					idFlag(), outputFlag(), setFlag(),
					&cli.StringFlag{Name: "kind", Aliases: []string{"k"}, Required: true, Usage: "node `KIND` (" + kindNames() + ")"},
					&cli.IntFlag{Name: "after", Aliases: []string{"a"}, Usage: "insert after node at `POSITION`, end of the document if absent"},
				},
				ArgsUsage:          "SOURCE",
				CustomHelpTemplate: cli.CommandHelpTemplate + sourceHelp,
			},
			{
				Name:         "preview",
				Usage:        "Renders the document as HTML page with visual widgets",
				OnUsageError: usageErrorHandler,
				Action:       previewDocument,
				Flags:        []cli.Flag{idFlag()},
				ArgsUsage:    "SOURCE [DESTINATION]",
				CustomHelpTemplate: cli.CommandHelpTemplate + sourceHelp + `
DESTINATION:
    file name to write HTML to, "-" for STDOUT, if absent - next to SOURCE
`,
			},
			{
				Name:         "compile",
				Usage:        "Compiles the document into PDF",
				OnUsageError: usageErrorHandler,
				Action:       compileDocument,
				Flags:        []cli.Flag{idFlag()},
				ArgsUsage:    "SOURCE [DESTINATION]",
				CustomHelpTemplate: cli.CommandHelpTemplate + sourceHelp + `
DESTINATION:
    file name to write PDF to, "-" for STDOUT, if absent - next to SOURCE

Compiled documents are cached, unchanged document is not compiled again.
`,
			},
			{
				Name:         "share",
				Usage:        "Creates (or revokes) public link to a stored document",
				OnUsageError: usageErrorHandler,
				Action:       shareDocument,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "remote", Usage: "use sharing service instead of local store"},
					&cli.StringFlag{Name: "token", Usage: "bearer `TOKEN` for sharing service", Sources: cli.EnvVars("TEXW_TOKEN")},
					&cli.BoolFlag{Name: "revoke", Usage: "revoke existing link"},
				},
				ArgsUsage: "ID",
			},
			{
				Name:         "import",
				Usage:        "Puts LaTeX file into document store",
				OnUsageError: usageErrorHandler,
				Action:       importDocument,
				Flags:        []cli.Flag{&cli.StringFlag{Name: "title", Usage: "document `TITLE`, file name if absent"}},
				ArgsUsage:    "SOURCE",
			},
			{
				Name:         "export",
				Usage:        "Writes stored document markup",
				OnUsageError: usageErrorHandler,
				Action:       exportDocument,
				ArgsUsage:    "ID [DESTINATION]",
			},
			{
				Name:         "list",
				Usage:        "Lists stored documents",
				OnUsageError: usageErrorHandler,
				Action:       listDocuments,
			},
			{
				Name:         "delete",
				Usage:        "Removes document from the store",
				OnUsageError: usageErrorHandler,
				Action:       deleteDocument,
				ArgsUsage:    "ID",
			},
			{
				Name:         "prune",
				Usage:        "Drops cached compiled documents",
				OnUsageError: usageErrorHandler,
				Action:       pruneArtifacts,
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "older-than", Usage: "keep documents compiled within `DURATION`"},
				},
			},
			{
				Name:         "dumpconfig",
				Usage:        "Dumps either default or actual configuration (YAML)",
				Flags:        []cli.Flag{&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"}},
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: cli.CommandHelpTemplate + `
DESTINATION:
    file name to write configuration to, if absent - STDOUT

Produces file with actual "active" configuration values which is composition of
default values and values specified in configuration file. To see default
configuration embedded into the program use --default flag.
`,
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	var err error
	// NOTE: os.Exit is called at the end of main to set exit code, make sure
	// there are no other deferred functions after that
	defer func() {
		stop()
		if err != nil {
			// log is either not set yet (argument parsing) or already closed,
			// report errors to stderr directly
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = newApp().Run(ctx, os.Args)
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
		which string
	)

	out := cmd.Root().Writer
	if len(fname) > 0 {
		f, err := os.Create(fname)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", fname, err)
		}
		defer f.Close()
		out = f
	}

	if cmd.Bool("default") {
		which = "default"
		data, err = config.Prepare()
	} else {
		which = "actual"
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	if len(fname) == 0 {
		fname = "STDOUT"
	}
	env.Log.Debug("Outputting configuration", zap.String("state", which), zap.String("file", fname))

	if _, err = out.Write(data); err != nil {
		return fmt.Errorf("unable to write configuration: %w", err)
	}
	return nil
}
