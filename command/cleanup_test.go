package command

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/evergreen-ci/pkgsetup/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupWorkingDirectory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newJob := func(t *testing.T) *setup.Job {
		job, _, _ := newTestJob(t, "https://example.com/pkg-1.0.tar.gz")
		require.NoError(t, os.MkdirAll(filepath.Join(job.WorkingDirectory, "pkg-1.0", "build"), 0755))
		require.NoError(t, os.WriteFile(filepath.Join(job.WorkingDirectory, "pkg-1.0", "build", "out.o"), []byte("o"), 0444))
		job.MarkWorkingDirectoryCreated()

		job.ArchivePath = filepath.Join(t.TempDir(), "pkg.tar.gz")
		require.NoError(t, os.WriteFile(job.ArchivePath, []byte("archive"), 0644))
		return job
	}

	t.Run("RemovesDirectoryAndArchive", func(t *testing.T) {
		job := newJob(t)
		archive := job.ArchivePath
		logger, _ := testutil.NewTestLogger(t)

		cmd := &cleanupWorkingDirectory{}
		require.NoError(t, cmd.ParseParams(nil))
		require.NoError(t, cmd.Execute(ctx, logger, job))

		assert.NoDirExists(t, job.WorkingDirectory)
		assert.DirExists(t, job.WorkRoot)
		assert.NoFileExists(t, archive)
		assert.Empty(t, job.ArchivePath)
	})
	t.Run("KeepArchive", func(t *testing.T) {
		job := newJob(t)
		logger, _ := testutil.NewTestLogger(t)

		cmd := &cleanupWorkingDirectory{}
		require.NoError(t, cmd.ParseParams(map[string]interface{}{"keep_archive": true}))
		require.NoError(t, cmd.Execute(ctx, logger, job))

		assert.NoDirExists(t, job.WorkingDirectory)
		assert.FileExists(t, job.ArchivePath)
	})
	t.Run("LeavesDirectoryItDidNotCreate", func(t *testing.T) {
		job, _, _ := newTestJob(t, "https://example.com/pkg-1.0.tar.gz")
		require.NoError(t, os.MkdirAll(job.WorkingDirectory, 0755))
		logger, _ := testutil.NewTestLogger(t)

		require.NoError(t, (&cleanupWorkingDirectory{}).Execute(ctx, logger, job))
		assert.DirExists(t, job.WorkingDirectory)
	})
	t.Run("ArchiveAlreadyRemoved", func(t *testing.T) {
		job := newJob(t)
		require.NoError(t, os.Remove(job.ArchivePath))
		logger, _ := testutil.NewTestLogger(t)

		require.NoError(t, (&cleanupWorkingDirectory{}).Execute(ctx, logger, job))
		assert.Empty(t, job.ArchivePath)
	})
	t.Run("RefusesRepository", func(t *testing.T) {
		job := newJob(t)
		require.NoError(t, os.Mkdir(filepath.Join(job.WorkingDirectory, ".git"), 0755))
		logger, _ := testutil.NewTestLogger(t)

		assert.Error(t, (&cleanupWorkingDirectory{}).Execute(ctx, logger, job))
		assert.DirExists(t, job.WorkingDirectory)
	})
	t.Run("Describe", func(t *testing.T) {
		job, _, _ := newTestJob(t, "https://example.com/pkg-1.0.tar.gz")
		desc, err := (&cleanupWorkingDirectory{}).Describe(job)
		require.NoError(t, err)
		assert.Contains(t, desc, job.WorkingDirectory)
		assert.Contains(t, desc, "archive")
	})
	t.Run("UnknownParam", func(t *testing.T) {
		assert.Error(t, (&cleanupWorkingDirectory{}).ParseParams(map[string]interface{}{"force": true}))
	})
}
