package operations

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/cheynewallace/tabby"
	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/pkgsetup/command"
	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

const shutdownTimeout = 10 * time.Second

// confirmFunc asks the operator a yes/no question.
type confirmFunc func(msg string) (bool, error)

func surveyConfirm(msg string) (bool, error) {
	var ok bool
	err := survey.AskOne(&survey.Confirm{Message: msg}, &ok)
	return ok, err
}

// confirmInstall asks before the install step runs. It is only used with
// --confirm, so unattended runs never wait for input.
func confirmInstall(confirm confirmFunc) setup.BeforeStepFunc {
	return func(ctx context.Context, step string, job *setup.Job) error {
		if step != pkgsetup.StepInstall {
			return nil
		}
		ok, err := confirm(fmt.Sprintf("Install %s from %s?", job.Package, job.ToolDirectory()))
		if err != nil {
			return errors.Wrapf(err, "asking for confirmation (omit --%s to install without asking)", confirmFlagName)
		}
		if !ok {
			return errors.New("installation declined")
		}
		return nil
	}
}

func Run() cli.Command {
	return cli.Command{
		Name:   "run",
		Usage:  "download, build and install a package, then remove its working directory",
		Flags:  addJobFlag(addOverrideFlags(addConfirmFlag()...)...),
		Before: mergeBeforeFuncs(requireNoArgs, requireOverridesWellFormed),
		Action: func(c *cli.Context) error {
			ctx, cancel := signalContext()
			defer cancel()

			env, err := newCommandEnv(c)
			if err != nil {
				return err
			}
			defer env.close()

			var confirm confirmFunc
			if c.Bool(confirmFlagName) {
				confirm = surveyConfirm
			}

			err = runJob(ctx, env, confirm, os.Stdout)
			if err != nil {
				return cli.NewExitError(err.Error(), setup.ExitCode(err))
			}
			return nil
		},
	}
}

// runJob runs the job described by env. When confirm is non-nil it is asked
// before installing. A summary of the steps is written to out.
func runJob(ctx context.Context, env *commandEnv, confirm confirmFunc, out io.Writer) error {
	p, err := command.NewPipeline(env.def)
	if err != nil {
		return errors.Wrap(err, "building pipeline")
	}
	job, err := setup.NewJob(env.def)
	if err != nil {
		return errors.Wrap(err, "creating job")
	}
	job.CaptureOutput = env.settings.Logging.CaptureOutput

	tp, closeTracer, err := initTracer(ctx, env.settings.Tracer)
	if err != nil {
		return errors.Wrap(err, "initializing tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grip.Warning(message.WrapError(closeTracer(shutdownCtx), "shutting down tracing"))
	}()

	metrics := setup.NewMetrics()
	opts := []setup.Option{
		setup.WithLogger(env.logger),
		setup.WithMetrics(metrics),
		setup.WithTracerProvider(tp),
	}
	if confirm != nil {
		opts = append(opts, setup.WithBeforeStep(confirmInstall(confirm)))
	}

	orch, err := setup.NewOrchestrator(p, opts...)
	if err != nil {
		return errors.Wrap(err, "creating orchestrator")
	}

	runErr := orch.Run(ctx, job)

	if path := env.settings.Metrics.TextfilePath; path != "" {
		env.logger.Warning(message.WrapError(metrics.WriteTextfile(path), message.Fields{
			"message": "could not write metrics",
			"path":    path,
			"job":     job.ID,
		}))
	}

	printResults(out, job)

	return runErr
}

func printResults(out io.Writer, job *setup.Job) {
	t := tabby.NewCustom(newTabWriter(out))
	t.AddHeader("Step", "Status", "Exit Code", "Duration")
	for _, r := range job.Results {
		exitCode := "-"
		if r.ExitCode != 0 {
			exitCode = fmt.Sprint(r.ExitCode)
		}
		t.AddLine(r.Step, r.Status, exitCode, r.Duration().Round(time.Millisecond).String())
	}
	t.Print()
}
