package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/leofalp/polprofile/internal/config"
	"github.com/leofalp/polprofile/internal/logging"
	"github.com/leofalp/polprofile/internal/metrics"
	"github.com/leofalp/polprofile/providers/ai"
)

// Exit codes.
const (
	exitOK           = 0
	exitFailure      = 1
	exitShortCircuit = 2
)

var errNoName = errors.New("no name given")

// exitError carries a process exit code. A nil err prints nothing.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// app holds the process dependencies so tests can swap the terminal,
// the environment and the model provider.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// interactive enables the prompt, the spinner and markdown rendering.
	interactive bool

	loadConfig  func() (config.Config, error)
	newProvider func(ctx context.Context, cfg config.Config) (ai.Provider, error)
}

func newApp() *app {
	return &app{
		stdin:       os.Stdin,
		stdout:      os.Stdout,
		stderr:      os.Stderr,
		interactive: isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stderr.Fd()),
		loadConfig:  func() (config.Config, error) { return config.Load() },
		newProvider: newProvider,
	}
}

// execute runs the root command and maps its error to an exit code.
func execute(ctx context.Context, a *app, args []string) int {
	cmd := newRootCommand(a)
	cmd.SetArgs(args)
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	var exit *exitError
	if errors.As(err, &exit) {
		if exit.err != nil {
			fmt.Fprintf(a.stderr, "polprofile: %v\n", exit.err)
		}
		return exit.code
	}
	fmt.Fprintf(a.stderr, "polprofile: %v\n", err)
	return exitFailure
}

func newRootCommand(a *app) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "polprofile",
		Short: "Build a short profile of an Indian politician",
		Long: `polprofile checks that a name refers to an Indian politician, researches
government, encyclopedic and recent sources in parallel, and prints a
validated profile with the current title, current status and a biography.

Without --name it prompts for the name.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), name)
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "politician name (prompted when omitted)")
	return cmd
}

func (a *app) run(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		prompted, err := a.promptName()
		if err != nil {
			return &exitError{code: exitFailure, err: err}
		}
		name = prompted
	}
	if name == "" {
		return &exitError{code: exitFailure, err: errNoName}
	}

	cfg, err := a.loadConfig()
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Colors: a.interactive,
		Stderr: a.stderr,
	})
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}
	defer closeLog()

	recorder := metrics.NewRecorder()
	runner, err := a.buildRunner(ctx, cfg, logger, recorder)
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	run, err := runner.Start(runCtx, name)
	if err != nil {
		return &exitError{code: exitFailure, err: err}
	}
	a.showProgress(ctx, run, cancelRun, logger)
	result, runErr := run.Wait()

	if cfg.MetricsFile != "" {
		if err := recorder.WriteToTextfile(cfg.MetricsFile); err != nil {
			logger.WarnContext(ctx, "metrics not written", slog.String("error", err.Error()))
		}
	}

	if runErr != nil {
		return &exitError{code: exitFailure, err: runErr}
	}
	if result.ShortCircuited() {
		message := result.Message
		if message == "" {
			message = fmt.Sprintf("%q does not appear to be an Indian politician.", name)
		}
		fmt.Fprintln(a.stdout, message)
		return &exitError{code: exitShortCircuit}
	}

	for _, note := range profileNotes(result) {
		fmt.Fprintf(a.stderr, "warning: %s\n", note)
	}
	fmt.Fprint(a.stdout, newProfileView(a.stdout, a.interactive).Render(result.Profile))
	return nil
}
