package command

import (
	"bytes"
	"testing"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/stretchr/testify/require"
)

// newTestJob returns a job for pkg-1.0 rooted in a temporary directory whose
// tool output is captured in buffers.
func newTestJob(t *testing.T, url string) (*setup.Job, *bytes.Buffer, *bytes.Buffer) {
	def := pkgsetup.DefaultJobDefinition()
	def.Package = "pkg-${version}"
	def.Version = "1.0"
	def.URL = url
	def.WorkRoot = t.TempDir()

	job, err := setup.NewJob(def)
	require.NoError(t, err)

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	job.Stdout = stdout
	job.Stderr = stderr
	return job, stdout, stderr
}
