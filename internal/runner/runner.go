// Package runner executes external commands on behalf of the grading stages.
package runner

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// Spec describes a single external command.
type Spec struct {
	// Command is the command text. Without Shell it is tokenized on
	// whitespace into an argument vector; with Shell it is passed to
	// `sh -c` as-is.
	Command string
	// Args is an explicit argument vector. When set it takes precedence
	// over Command, bypassing tokenization (needed for arguments that
	// contain spaces, like date format tokens).
	Args []string
	// Dir is the working directory for the command.
	Dir string
	// Shell runs Command through the shell interpreter.
	Shell bool
	// Capture buffers stdout/stderr as text. Otherwise both streams go to
	// the null device so concurrent repositories do not interleave output.
	Capture bool
}

func (s Spec) text() string {
	if s.Command != "" {
		return s.Command
	}
	return strings.Join(s.Args, " ")
}

// Result carries the outcome of a finished command. A nonzero exit status is
// data, not an error: callers decide whether it is fatal.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner starts processes and logs each launched command.
type Runner struct {
	log   *logrus.Logger
	quiet bool
}

func New(log *logrus.Logger) *Runner {
	return &Runner{log: log}
}

// SetQuiet suppresses the per-command log line. Logging is a side effect
// only and never affects control flow.
func (r *Runner) SetQuiet(quiet bool) {
	r.quiet = quiet
}

// Run executes the command and waits for it to finish. err is non-nil only
// when the command could not be started at all.
func (r *Runner) Run(spec Spec, label string) (Result, error) {
	h, err := r.start(spec, label, false)
	if err != nil {
		return Result{ExitCode: -1}, err
	}
	return h.Wait(), nil
}

// Start launches the command in the background and returns an explicit
// handle. The caller must join it with Wait before relying on output or exit
// status. Cancellation is not supported; a started command runs to
// completion.
func (r *Runner) Start(spec Spec, label string) (*Handle, error) {
	return r.start(spec, label, true)
}

func (r *Runner) start(spec Spec, label string, background bool) (*Handle, error) {
	cmd, err := buildCmd(spec)
	if err != nil {
		return nil, err
	}
	h := &Handle{cmd: cmd}
	if spec.Capture {
		cmd.Stdout = &h.stdout
		cmd.Stderr = &h.stderr
	}
	if !r.quiet && r.log != nil {
		text := spec.text()
		if background {
			text += " &"
		}
		r.log.WithField("repo", label).Info(text)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %q: %w", spec.text(), err)
	}
	return h, nil
}

func buildCmd(spec Spec) (*exec.Cmd, error) {
	var cmd *exec.Cmd
	switch {
	case len(spec.Args) > 0:
		cmd = exec.Command(spec.Args[0], spec.Args[1:]...)
	case spec.Shell:
		cmd = exec.Command("sh", "-c", spec.Command)
	default:
		argv := strings.Fields(spec.Command)
		if len(argv) == 0 {
			return nil, fmt.Errorf("empty command")
		}
		cmd = exec.Command(argv[0], argv[1:]...)
	}
	cmd.Dir = spec.Dir
	return cmd, nil
}

// Handle is an explicit future for a started command.
type Handle struct {
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// Wait joins the process and returns its result. It must be called exactly
// once per handle.
func (h *Handle) Wait() Result {
	var res Result
	if err := h.cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
	}
	res.Stdout = h.stdout.String()
	res.Stderr = h.stderr.String()
	return res
}
