package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/juno-cash/juno-keys/build"
	"github.com/juno-cash/juno-keys/errorcodes"
	"github.com/juno-cash/juno-keys/jcfg"
	"golang.org/x/term"
)

// subCommand is a command that can add itself to the parser.
type subCommand interface {
	Register(parser *flags.Parser) error
}

// app carries the state shared by all commands of one invocation.
type app struct {
	cfg *jcfg.Config

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	rotator *build.RotatingLogWriter
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run executes one invocation and returns the process exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}
	defer a.close()

	cfg, err := jcfg.LoadConfig(args)
	if err != nil {
		a.cfg = &jcfg.Config{JSON: hasJSONFlag(args)}
		return a.fail(fmt.Errorf("%w: %v", errorcodes.ErrInvalidRequest,
			err))
	}
	a.cfg = cfg

	parser := flags.NewParser(a.cfg, flags.HelpFlag|flags.PassDoubleDash)
	parser.Name = "juno-keys"

	commands := []subCommand{
		newSeedCommand(a),
		newUFVKCommand(a),
	}
	for _, command := range commands {
		if err := command.Register(parser); err != nil {
			return a.fail(err)
		}
	}

	_, err = parser.ParseArgs(args)

	var flagErr *flags.Error
	switch {
	case err == nil:
		return 0

	case errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp:
		_, _ = fmt.Fprintln(a.stdout, flagErr.Message)
		return 0

	case errors.As(err, &flagErr):
		return a.fail(fmt.Errorf("%w: %v", errorcodes.ErrInvalidRequest,
			flagErr.Message))

	default:
		return a.fail(err)
	}
}

// setup validates the merged configuration and wires up logging. Every
// command calls it before doing any work.
func (a *app) setup() error {
	if err := a.cfg.Validate(); err != nil {
		return err
	}

	logWriter := &build.LogWriter{Console: a.stderr}
	if logFile := a.cfg.LogFile(); logFile != "" {
		a.rotator = build.NewRotatingLogWriter()
		err := a.rotator.InitLogRotator(
			logFile, a.cfg.MaxLogFileSize, a.cfg.MaxLogFiles,
		)
		if err != nil {
			return err
		}
		logWriter.RotatorPipe = a.rotator
	}

	mgr := build.NewSubLoggerManager(logWriter)
	setupLoggers(mgr)

	err := build.ParseAndSetDebugLevels(a.cfg.DebugLevel, mgr)
	if err != nil {
		return fmt.Errorf("%w: %v", errorcodes.ErrInvalidRequest, err)
	}

	return nil
}

// emit prints a successful result: the JSON envelope around data, or the
// plain text form on its own line. Empty text prints nothing.
func (a *app) emit(data interface{}, text string) error {
	if a.cfg.JSON {
		return writeOK(a.stdout, data)
	}
	if text == "" {
		return nil
	}

	_, err := fmt.Fprintln(a.stdout, text)
	return err
}

// fail reports err and returns the exit status of its code. Error messages
// never contain key material, every command makes sure of that.
func (a *app) fail(err error) int {
	code := errorcodes.FromError(err)

	jkeyLog.Debugf("Command failed with %v: %v", code, err)

	if a.cfg != nil && a.cfg.JSON {
		_ = writeErr(a.stdout, code, err.Error())
	} else {
		_, _ = fmt.Fprintf(a.stderr, "juno-keys: [%s] %v\n", code, err)
	}

	return code.ExitStatus()
}

func (a *app) close() {
	if a.rotator != nil {
		_ = a.rotator.Close()
	}
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w interface{}) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// hasJSONFlag looks for --json when the arguments could not be parsed.
func hasJSONFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == "--json" || arg == "--json=true" {
			return true
		}
	}

	return false
}
