package command

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/evergreen-ci/pkgsetup/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractParseParams(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		cmd := &extractArchive{}
		require.NoError(t, cmd.ParseParams(nil))
		assert.Zero(t, cmd.minFreeBytes)
	})
	t.Run("MinFreeSpace", func(t *testing.T) {
		cmd := &extractArchive{}
		require.NoError(t, cmd.ParseParams(map[string]interface{}{"min_free_space": "512MB"}))
		assert.EqualValues(t, 512*1000*1000, cmd.minFreeBytes)
	})
	t.Run("InvalidSize", func(t *testing.T) {
		assert.Error(t, (&extractArchive{}).ParseParams(map[string]interface{}{"min_free_space": "lots"}))
	})
}

func TestExtractArchive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newJob := func(t *testing.T, files []testutil.ArchiveFile) *setup.Job {
		job, _, _ := newTestJob(t, "https://example.com/pkg-1.0.tar.gz")
		job.ArchivePath = filepath.Join(t.TempDir(), "download.tar.gz")
		testutil.WriteTarGz(t, job.ArchivePath, files)
		return job
	}

	t.Run("SingleTopLevelDirectory", func(t *testing.T) {
		job := newJob(t, testutil.FakeSourceTree("pkg-1.0"))
		logger, _ := testutil.NewTestLogger(t)

		cmd := &extractArchive{}
		require.NoError(t, cmd.ParseParams(nil))
		require.NoError(t, cmd.Execute(ctx, logger, job))

		assert.True(t, job.WorkingDirectoryCreated())
		assert.Equal(t, filepath.Join(job.WorkingDirectory, "pkg-1.0"), job.SourceDirectory)
		assert.Equal(t, job.SourceDirectory, job.Expansions.Get("source_dir"))
		assert.FileExists(t, filepath.Join(job.SourceDirectory, "configure"))
		assert.FileExists(t, job.ArchivePath)
	})
	t.Run("FlatArchive", func(t *testing.T) {
		job := newJob(t, []testutil.ArchiveFile{
			{Name: "configure", Body: "#!/bin/sh\n", Mode: 0755},
			{Name: "README", Body: "readme"},
		})
		logger, _ := testutil.NewTestLogger(t)

		require.NoError(t, (&extractArchive{}).Execute(ctx, logger, job))
		assert.Equal(t, job.WorkingDirectory, job.SourceDirectory)
		assert.FileExists(t, filepath.Join(job.WorkingDirectory, "README"))
	})
	t.Run("RemovesStaleWorkingDirectory", func(t *testing.T) {
		job := newJob(t, testutil.FakeSourceTree("pkg-1.0"))
		logger, sender := testutil.NewTestLogger(t)

		stale := filepath.Join(job.WorkingDirectory, "leftover.o")
		require.NoError(t, os.MkdirAll(job.WorkingDirectory, 0755))
		require.NoError(t, os.WriteFile(stale, []byte("stale"), 0444))

		require.NoError(t, (&extractArchive{}).Execute(ctx, logger, job))
		assert.NoFileExists(t, stale)
		assert.FileExists(t, filepath.Join(job.SourceDirectory, "build.sh"))

		found := false
		for _, msg := range testutil.DrainMessages(sender) {
			found = found || strings.Contains(msg, "previous run")
		}
		assert.True(t, found, "stale directory removal should be logged")
	})
	t.Run("RefusesToRemoveRepository", func(t *testing.T) {
		job := newJob(t, testutil.FakeSourceTree("pkg-1.0"))
		logger, _ := testutil.NewTestLogger(t)
		require.NoError(t, os.MkdirAll(filepath.Join(job.WorkingDirectory, ".git"), 0755))

		assert.Error(t, (&extractArchive{}).Execute(ctx, logger, job))
		assert.False(t, job.WorkingDirectoryCreated())
		assert.DirExists(t, filepath.Join(job.WorkingDirectory, ".git"))
		assert.NoFileExists(t, job.ArchivePath)
	})
	t.Run("CorruptArchiveLeavesDirectoryForCleanup", func(t *testing.T) {
		job, _, _ := newTestJob(t, "https://example.com/pkg-1.0.tar.gz")
		job.ArchivePath = filepath.Join(t.TempDir(), "download.tar.gz")
		require.NoError(t, os.WriteFile(job.ArchivePath, []byte("not a tarball"), 0644))
		logger, _ := testutil.NewTestLogger(t)

		assert.Error(t, (&extractArchive{}).Execute(ctx, logger, job))
		assert.True(t, job.WorkingDirectoryCreated())
		assert.DirExists(t, job.WorkingDirectory)
		assert.FileExists(t, job.ArchivePath)
	})
	t.Run("InsufficientSpaceRemovesArchive", func(t *testing.T) {
		job := newJob(t, testutil.FakeSourceTree("pkg-1.0"))
		logger, _ := testutil.NewTestLogger(t)

		cmd := &extractArchive{}
		require.NoError(t, cmd.ParseParams(map[string]interface{}{"min_free_space": "100PB"}))
		assert.Error(t, cmd.Execute(ctx, logger, job))
		assert.False(t, job.WorkingDirectoryCreated())
		assert.NoDirExists(t, job.WorkingDirectory)
		assert.NoFileExists(t, job.ArchivePath)
	})
	t.Run("NoArchive", func(t *testing.T) {
		job, _, _ := newTestJob(t, "https://example.com/pkg-1.0.tar.gz")
		logger, _ := testutil.NewTestLogger(t)

		assert.Error(t, (&extractArchive{}).Execute(ctx, logger, job))
		assert.NoDirExists(t, job.WorkingDirectory)
	})
	t.Run("Describe", func(t *testing.T) {
		job, _, _ := newTestJob(t, "https://example.com/pkg-1.0.tar.gz")
		cmd := &extractArchive{}
		require.NoError(t, cmd.ParseParams(map[string]interface{}{"min_free_space": "1GB"}))

		desc, err := cmd.Describe(job)
		require.NoError(t, err)
		assert.Contains(t, desc, job.WorkingDirectory)
		assert.Contains(t, desc, "1.0 GB")
	})
}
