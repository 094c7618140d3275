package command

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/evergreen-ci/pkgsetup/util"
	"github.com/google/shlex"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/jasper"
	"github.com/pkg/errors"
)

// toolExec runs an external tool in the job's source directory. It is shared
// by the configure, build and install steps.
type toolExec struct {
	Binary string   `mapstructure:"binary"`
	Args   []string `mapstructure:"args"`
	// Command is a shell-style alternative to Binary and Args. It is split
	// into words but not run through a shell.
	Command string            `mapstructure:"command"`
	Env     map[string]string `mapstructure:"env"`
	// AddToPath is prepended to the tool's PATH.
	AddToPath []string `mapstructure:"add_to_path"`
	// WorkingDir is relative to the source directory.
	WorkingDir string `mapstructure:"working_dir"`
	Sudo       bool   `mapstructure:"sudo"`
}

// parse validates the tool parameters. If neither a binary nor a command is
// given, defaultCommand is used.
func (e *toolExec) parse(name, defaultCommand string) error {
	if e.Command != "" {
		if e.Binary != "" || len(e.Args) > 0 {
			return errors.New("must specify command as either arguments or a command string but not both")
		}
	} else if e.Binary == "" {
		if defaultCommand == "" {
			return errors.Errorf("%s must specify a binary or a command", name)
		}
		e.Command = defaultCommand
	}

	if e.Command != "" {
		args, err := shlex.Split(e.Command)
		if err != nil {
			return errors.Wrapf(err, "parsing %s command", name)
		}
		if len(args) == 0 {
			return errors.Errorf("no arguments for command %s", name)
		}

		e.Binary = args[0]
		e.Args = args[1:]
		e.Command = ""
	}

	if filepath.IsAbs(e.WorkingDir) {
		return errors.Errorf("working_dir '%s' must be relative to the source directory", e.WorkingDir)
	}

	return nil
}

// resolvedTool is a toolExec with expansions applied for a particular job.
type resolvedTool struct {
	binary string
	args   []string
	env    map[string]string
	dir    string
	sudo   bool
}

func (t resolvedTool) argv() []string {
	return append([]string{t.binary}, t.args...)
}

func (t resolvedTool) String() string {
	cmd := strings.Join(t.argv(), " ")
	if t.sudo {
		cmd = "sudo " + cmd
	}
	return cmd
}

// resolve applies the job's expansions. extraArgs are appended to the
// arguments as they are.
func (e *toolExec) resolve(job *setup.Job, extraArgs []string) (resolvedTool, error) {
	var err error
	catcher := grip.NewBasicCatcher()
	exp := job.Expansions

	t := resolvedTool{
		args: make([]string, 0, len(e.Args)+len(extraArgs)),
		env:  make(map[string]string, len(e.Env)),
		sudo: e.Sudo,
	}

	t.binary, err = exp.ExpandString(e.Binary)
	catcher.Add(err)

	for _, arg := range e.Args {
		expanded, err := exp.ExpandString(arg)
		catcher.Add(err)
		if expanded != "" {
			t.args = append(t.args, expanded)
		}
	}
	t.args = append(t.args, extraArgs...)

	for k, v := range e.Env {
		t.env[k], err = exp.ExpandString(v)
		catcher.Add(err)
	}

	if len(e.AddToPath) > 0 {
		path := make([]string, len(e.AddToPath), len(e.AddToPath)+1)
		for idx := range e.AddToPath {
			path[idx], err = exp.ExpandString(e.AddToPath[idx])
			catcher.Add(err)
		}
		path = append(path, os.Getenv("PATH"))
		t.env["PATH"] = strings.Join(path, string(filepath.ListSeparator))
	}

	workingDir, err := exp.ExpandString(e.WorkingDir)
	catcher.Add(err)
	t.dir = filepath.Join(job.ToolDirectory(), workingDir)

	if catcher.HasErrors() {
		return resolvedTool{}, errors.Wrap(catcher.Resolve(), "expanding command values")
	}
	if strings.TrimSpace(t.binary) == "" {
		return resolvedTool{}, errors.New("binary expands to an empty string")
	}

	return t, nil
}

// environment returns the process environment overlaid with the tool's own
// variables.
func (t resolvedTool) environment() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok && k != "" {
			env[k] = v
		}
	}
	for k, v := range t.env {
		env[k] = v
	}
	return env
}

type multiWriteCloser struct {
	io.Writer
	closer io.Closer
}

func (m *multiWriteCloser) Close() error { return m.closer.Close() }

func toolOutput(w io.Writer, job *setup.Job, logger grip.Journaler, step, stream string, priority level.Priority) io.WriteCloser {
	if w == nil {
		w = io.Discard
	}
	if !job.CaptureOutput {
		return util.NopWriteCloser(w)
	}
	lw := util.NewLineLogWriter(logger, priority, message.Fields{
		"job":    job.ID,
		"step":   step,
		"stream": stream,
	})
	return &multiWriteCloser{Writer: io.MultiWriter(w, lw), closer: lw}
}

// run executes the tool and waits for it. A tool that exits unsuccessfully
// produces a *setup.ToolExitError carrying its exit code.
func (e *toolExec) run(ctx context.Context, logger grip.Journaler, job *setup.Job, step string, extraArgs []string) error {
	t, err := e.resolve(job, extraArgs)
	if err != nil {
		return err
	}

	logger.Info(message.Fields{
		"message": "running tool",
		"job":     job.ID,
		"step":    step,
		"command": t.String(),
		"dir":     t.dir,
	})

	cmd := jasper.NewCommand().
		ID(job.ID+"-"+step).
		Add(t.argv()).
		Directory(t.dir).
		Environment(t.environment()).
		Sudo(t.sudo).
		SetOutputWriter(toolOutput(job.Stdout, job, logger, step, "stdout", level.Info)).
		SetErrorWriter(toolOutput(job.Stderr, job, logger, step, "stderr", level.Error))

	if err = cmd.Run(ctx); err == nil {
		return nil
	}

	if ctx.Err() != nil {
		return errors.Wrapf(ctx.Err(), "%s aborted", step)
	}

	exitCode, _ := cmd.Wait(ctx)
	if exitCode > 0 {
		return errors.Wrapf(&setup.ToolExitError{Binary: t.binary, Code: exitCode}, "running %s", step)
	}
	return errors.Wrapf(err, "running '%s'", t.String())
}
