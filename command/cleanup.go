package command

import (
	"context"
	"fmt"
	"os"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/evergreen-ci/pkgsetup/util"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// cleanupWorkingDirectory removes the working directory and the downloaded
// archive.
type cleanupWorkingDirectory struct {
	KeepArchive bool `mapstructure:"keep_archive"`
}

func cleanupFactory() Command                   { return &cleanupWorkingDirectory{} }
func (c *cleanupWorkingDirectory) Name() string { return pkgsetup.StepCleanup }

func (c *cleanupWorkingDirectory) ParseParams(params map[string]interface{}) error {
	return decodeParams(c.Name(), params, c)
}

func (c *cleanupWorkingDirectory) Describe(job *setup.Job) (string, error) {
	if c.KeepArchive {
		return fmt.Sprintf("remove %s", job.WorkingDirectory), nil
	}
	return fmt.Sprintf("remove %s and the downloaded archive", job.WorkingDirectory), nil
}

func (c *cleanupWorkingDirectory) Execute(ctx context.Context, logger grip.Journaler, job *setup.Job) error {
	catcher := grip.NewBasicCatcher()

	if job.WorkingDirectoryCreated() {
		if err := util.CheckRemovable(job.WorkingDirectory); err != nil {
			catcher.Add(err)
		} else {
			catcher.Wrapf(util.RemoveAll(job.WorkingDirectory), "removing working directory '%s'", job.WorkingDirectory)
		}
	}

	if job.ArchivePath != "" && !c.KeepArchive {
		if err := os.Remove(job.ArchivePath); err != nil && !os.IsNotExist(err) {
			catcher.Wrapf(err, "removing archive '%s'", job.ArchivePath)
		} else {
			job.ArchivePath = ""
		}
	}

	if catcher.HasErrors() {
		return errors.WithStack(catcher.Resolve())
	}

	logger.Info(message.Fields{
		"message":     "removed working directory",
		"job":         job.ID,
		"working_dir": job.WorkingDirectory,
	})
	return nil
}
