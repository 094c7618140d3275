package operations

import (
	"io"
	"os"
	"text/tabwriter"

	"github.com/cheynewallace/tabby"
	"github.com/evergreen-ci/pkgsetup/command"
	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func newTabWriter(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func Plan() cli.Command {
	return cli.Command{
		Name:   "plan",
		Usage:  "show the steps a job would run without running them",
		Flags:  addJobFlag(addOverrideFlags()...),
		Before: mergeBeforeFuncs(requireNoArgs, requireOverridesWellFormed),
		Action: func(c *cli.Context) error {
			env, err := newCommandEnv(c)
			if err != nil {
				return err
			}
			defer env.close()

			return printPlan(os.Stdout, env)
		},
	}
}

func printPlan(out io.Writer, env *commandEnv) error {
	p, err := command.NewPipeline(env.def)
	if err != nil {
		return errors.Wrap(err, "building pipeline")
	}
	job, err := setup.NewJob(env.def)
	if err != nil {
		return errors.Wrap(err, "creating job")
	}

	steps, err := p.Plan(job)
	if err != nil {
		return errors.Wrap(err, "planning job")
	}

	t := tabby.NewCustom(newTabWriter(out))
	t.AddHeader("Step", "Action")
	for _, step := range steps {
		t.AddLine(step.Step, step.Description)
	}
	t.Print()
	return nil
}
