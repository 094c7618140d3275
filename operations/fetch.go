package operations

import (
	"context"
	"os"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/pkgsetup/command"
	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/evergreen-ci/pkgsetup/util"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func Fetch() cli.Command {
	return cli.Command{
		Name:  "fetch",
		Usage: "download a job's archive without building it",
		Flags: addJobFlag(addOverrideFlags(addOutputFlag()...)...),
		Before: mergeBeforeFuncs(
			requireNoArgs,
			requireOverridesWellFormed,
			requireStringFlag(outputFlagName),
		),
		Action: func(c *cli.Context) error {
			ctx, cancel := signalContext()
			defer cancel()

			env, err := newCommandEnv(c)
			if err != nil {
				return err
			}
			defer env.close()

			if err = fetchArchive(ctx, env, c.String(outputFlagName)); err != nil {
				return cli.NewExitError(err.Error(), setup.ExitCode(err))
			}
			return nil
		},
	}
}

// fetchArchive runs only the job's fetch step and moves the downloaded archive
// to output.
func fetchArchive(ctx context.Context, env *commandEnv, output string) error {
	dst, err := util.ResolvePath(output)
	if err != nil {
		return errors.Wrap(err, "resolving output path")
	}

	fetch, err := command.Render(pkgsetup.StepFetch, env.def.Params(pkgsetup.StepFetch))
	if err != nil {
		return err
	}
	job, err := setup.NewJob(env.def)
	if err != nil {
		return errors.Wrap(err, "creating job")
	}

	if err = fetch.Execute(ctx, env.logger, job); err != nil {
		return setup.NewStepError(fetch.Name(), err)
	}

	if err = util.MoveFile(job.ArchivePath, dst); err != nil {
		env.logger.Warning(message.WrapError(os.Remove(job.ArchivePath), message.Fields{
			"message": "could not remove downloaded archive",
			"path":    job.ArchivePath,
		}))
		return errors.Wrap(err, "saving archive")
	}

	env.logger.Info(message.Fields{
		"message": "saved archive",
		"job":     job.ID,
		"url":     job.URL,
		"path":    dst,
	})
	return nil
}
