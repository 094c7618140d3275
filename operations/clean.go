package operations

import (
	"context"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/pkgsetup/command"
	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func Clean() cli.Command {
	return cli.Command{
		Name:   "clean",
		Usage:  "remove the working directory an interrupted or failed run left behind",
		Flags:  addJobFlag(addOverrideFlags()...),
		Before: mergeBeforeFuncs(requireNoArgs, requireOverridesWellFormed),
		Action: func(c *cli.Context) error {
			env, err := newCommandEnv(c)
			if err != nil {
				return err
			}
			defer env.close()

			return cleanWorkingDirectory(context.Background(), env)
		},
	}
}

// cleanWorkingDirectory removes the job's working directory with the job's
// cleanup step. It does nothing if the directory does not exist.
func cleanWorkingDirectory(ctx context.Context, env *commandEnv) error {
	cleanup, err := command.Render(pkgsetup.StepCleanup, env.def.Params(pkgsetup.StepCleanup))
	if err != nil {
		return err
	}
	job, err := setup.NewJob(env.def)
	if err != nil {
		return errors.Wrap(err, "creating job")
	}

	if !utility.FileExists(job.WorkingDirectory) {
		env.logger.Info(message.Fields{
			"message":     "nothing to clean",
			"working_dir": job.WorkingDirectory,
		})
		return nil
	}

	job.MarkWorkingDirectoryCreated()
	return errors.Wrap(cleanup.Execute(ctx, env.logger, job), "cleaning up")
}
