package setup

import (
	"context"
	"testing"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestKindForStep(t *testing.T) {
	for step, kind := range map[string]ErrorKind{
		pkgsetup.StepFetch:     NetworkError,
		pkgsetup.StepExtract:   ArchiveError,
		pkgsetup.StepConfigure: ConfigurationError,
		pkgsetup.StepBuild:     BuildError,
		pkgsetup.StepInstall:   InstallError,
		pkgsetup.StepCleanup:   CleanupError,
		"deploy":               UnknownError,
	} {
		assert.Equal(t, kind, KindForStep(step), step)
	}
}

func TestStepError(t *testing.T) {
	t.Run("NilErrorIsNotWrapped", func(t *testing.T) {
		assert.Nil(t, NewStepError(pkgsetup.StepBuild, nil))
	})
	t.Run("ToolExitCodeIsCaptured", func(t *testing.T) {
		cause := errors.Wrap(&ToolExitError{Binary: "make", Code: 2}, "running make")
		err := NewStepError(pkgsetup.StepBuild, cause)

		assert.Equal(t, BuildError, err.Kind)
		assert.Equal(t, 2, err.ExitCode)
		assert.Contains(t, err.Error(), "BuildError")
		assert.Contains(t, err.Error(), "exit code 2")
		assert.Equal(t, cause, errors.Cause(err))
	})
	t.Run("FailuresWithoutToolHaveNoExitCode", func(t *testing.T) {
		err := NewStepError(pkgsetup.StepFetch, errors.New("404 Not Found"))
		assert.Equal(t, NetworkError, err.Kind)
		assert.Zero(t, err.ExitCode)
		assert.NotContains(t, err.Error(), "exit code")
	})
	t.Run("InterruptionIsNotBlamedOnTheStep", func(t *testing.T) {
		assert.Nil(t, NewInterruptedError(pkgsetup.StepExtract, nil))

		err := NewInterruptedError(pkgsetup.StepExtract, errors.Wrap(context.Canceled, "job canceled"))
		assert.Equal(t, InterruptedError, err.Kind)
		assert.Equal(t, pkgsetup.StepExtract, err.Step)
		assert.Zero(t, err.ExitCode)
		assert.Contains(t, err.Error(), "interrupted before step 'extract'")
		assert.NotContains(t, err.Error(), string(ArchiveError))
		assert.True(t, errors.Is(err, context.Canceled))
		assert.Equal(t, 1, ExitCode(err))
	})
}

func TestKindOfAndExitCode(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(nil))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, InstallError, KindOf(errors.Wrap(NewStepError(pkgsetup.StepInstall, errors.New("denied")), "job")))

	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("plain")))
	assert.Equal(t, 1, ExitCode(NewStepError(pkgsetup.StepFetch, errors.New("timeout"))))
	assert.Equal(t, 3, ExitCode(NewStepError(pkgsetup.StepConfigure, &ToolExitError{Binary: "python3", Code: 3})))
	assert.Equal(t, 4, ExitCode(&ToolExitError{Binary: "make", Code: 4}))
	assert.Equal(t, 1, ExitCode(&ToolExitError{Binary: "make", Code: -1}))
}
