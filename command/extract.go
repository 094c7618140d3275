package command

import (
	"context"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/evergreen-ci/pkgsetup/util"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// extractArchive unpacks the fetched archive into a freshly created working
// directory.
type extractArchive struct {
	// MinFreeSpace is the free space, such as "512MB", the work root's
	// volume must have before extracting.
	MinFreeSpace string `mapstructure:"min_free_space"`

	minFreeBytes uint64
}

func extractFactory() Command          { return &extractArchive{} }
func (c *extractArchive) Name() string { return pkgsetup.StepExtract }

func (c *extractArchive) ParseParams(params map[string]interface{}) error {
	if err := decodeParams(c.Name(), params, c); err != nil {
		return err
	}

	if c.MinFreeSpace != "" {
		size, err := humanize.ParseBytes(c.MinFreeSpace)
		if err != nil {
			return errors.Wrapf(err, "parsing min_free_space '%s'", c.MinFreeSpace)
		}
		c.minFreeBytes = size
	}

	return nil
}

func (c *extractArchive) Describe(job *setup.Job) (string, error) {
	desc := fmt.Sprintf("unpack archive into %s", job.WorkingDirectory)
	if c.minFreeBytes > 0 {
		desc += fmt.Sprintf(" (requires %s free)", humanize.Bytes(c.minFreeBytes))
	}
	return desc, nil
}

func (c *extractArchive) Execute(ctx context.Context, logger grip.Journaler, job *setup.Job) (err error) {
	if job.ArchivePath == "" {
		return errors.New("no archive has been fetched")
	}

	// Cleanup only runs once the working directory exists, so the archive
	// must be removed here if extraction fails before that.
	defer func() {
		if err != nil && !job.WorkingDirectoryCreated() {
			grip.Warning(message.WrapError(os.Remove(job.ArchivePath), message.Fields{
				"message": "could not remove downloaded archive",
				"path":    job.ArchivePath,
				"job":     job.ID,
			}))
		}
	}()

	if err = os.MkdirAll(job.WorkRoot, 0755); err != nil {
		return errors.Wrapf(err, "creating work root '%s'", job.WorkRoot)
	}

	if err = util.CheckFreeSpace(ctx, job.WorkRoot, c.minFreeBytes); err != nil {
		return errors.WithStack(err)
	}

	if utility.FileExists(job.WorkingDirectory) {
		logger.Notice(message.Fields{
			"message":     "removing working directory left by a previous run",
			"job":         job.ID,
			"working_dir": job.WorkingDirectory,
		})
		if err = util.CheckRemovable(job.WorkingDirectory); err != nil {
			return errors.Wrap(err, "removing stale working directory")
		}
		if err = util.RemoveAll(job.WorkingDirectory); err != nil {
			return errors.Wrap(err, "removing stale working directory")
		}
	}

	if err = os.Mkdir(job.WorkingDirectory, 0755); err != nil {
		return errors.Wrapf(err, "creating working directory '%s'", job.WorkingDirectory)
	}
	job.MarkWorkingDirectoryCreated()

	if err = util.ExtractArchive(ctx, job.ArchivePath, job.WorkingDirectory); err != nil {
		return errors.WithStack(err)
	}

	src, ok, err := util.SingleTopLevelDirectory(job.WorkingDirectory)
	if err != nil {
		return errors.WithStack(err)
	}
	if !ok {
		src = job.WorkingDirectory
	}
	job.SetSourceDirectory(src)

	logger.Info(message.Fields{
		"message":     "extracted archive",
		"job":         job.ID,
		"archive":     job.ArchivePath,
		"working_dir": job.WorkingDirectory,
		"source_dir":  job.SourceDirectory,
	})

	return nil
}
