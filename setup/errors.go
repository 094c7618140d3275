package setup

import (
	"fmt"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/pkg/errors"
)

// ErrorKind classifies why a job failed.
type ErrorKind string

const (
	NetworkError       ErrorKind = "NetworkError"
	ArchiveError       ErrorKind = "ArchiveError"
	ConfigurationError ErrorKind = "ConfigurationError"
	BuildError         ErrorKind = "BuildError"
	InstallError       ErrorKind = "InstallError"
	CleanupError       ErrorKind = "CleanupError"
	// InterruptedError is used when the job is canceled between steps, so no
	// step is to blame.
	InterruptedError ErrorKind = "InterruptedError"
	// UnknownError is used for steps outside the fixed pipeline.
	UnknownError ErrorKind = "UnknownError"
)

// KindForStep returns the kind of error a failure of the named step produces.
func KindForStep(step string) ErrorKind {
	switch step {
	case pkgsetup.StepFetch:
		return NetworkError
	case pkgsetup.StepExtract:
		return ArchiveError
	case pkgsetup.StepConfigure:
		return ConfigurationError
	case pkgsetup.StepBuild:
		return BuildError
	case pkgsetup.StepInstall:
		return InstallError
	case pkgsetup.StepCleanup:
		return CleanupError
	default:
		return UnknownError
	}
}

// ExitCoder is implemented by errors that carry the exit code of an external
// tool.
type ExitCoder interface {
	ExitCode() int
}

// ToolExitError reports that an external tool exited unsuccessfully.
type ToolExitError struct {
	Binary string
	Code   int
}

func (e *ToolExitError) Error() string {
	return fmt.Sprintf("'%s' exited with code %d", e.Binary, e.Code)
}

func (e *ToolExitError) ExitCode() int { return e.Code }

// StepError is the error returned for a failed step.
type StepError struct {
	Kind ErrorKind
	Step string
	// ExitCode is the external tool's exit code, or zero if the failure did
	// not come from a tool.
	ExitCode int
	cause    error
}

// NewStepError classifies err as a failure of the named step.
func NewStepError(step string, err error) *StepError {
	if err == nil {
		return nil
	}
	se := &StepError{
		Kind:  KindForStep(step),
		Step:  step,
		cause: err,
	}
	var coder ExitCoder
	if errors.As(err, &coder) {
		se.ExitCode = coder.ExitCode()
	}
	return se
}

// NewInterruptedError reports that the job was canceled before the named
// step started.
func NewInterruptedError(step string, err error) *StepError {
	if err == nil {
		return nil
	}
	return &StepError{
		Kind:  InterruptedError,
		Step:  step,
		cause: err,
	}
}

func (e *StepError) Error() string {
	if e.Kind == InterruptedError {
		return fmt.Sprintf("%s: job interrupted before step '%s': %s", e.Kind, e.Step, e.cause.Error())
	}
	if e.ExitCode != 0 {
		return fmt.Sprintf("%s: step '%s' failed with exit code %d: %s", e.Kind, e.Step, e.ExitCode, e.cause.Error())
	}
	return fmt.Sprintf("%s: step '%s' failed: %s", e.Kind, e.Step, e.cause.Error())
}

// Cause returns the underlying error.
func (e *StepError) Cause() error { return e.cause }

// Unwrap returns the underlying error.
func (e *StepError) Unwrap() error { return e.cause }

// KindOf returns the kind of the first StepError in err's chain, or the empty
// string if there is none.
func KindOf(err error) ErrorKind {
	var se *StepError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// ExitCode returns the process exit status for err: zero for nil, the
// external tool's exit code when a tool failed, and one otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var se *StepError
	if errors.As(err, &se) && se.ExitCode > 0 {
		return se.ExitCode
	}
	var coder ExitCoder
	if errors.As(err, &coder) && coder.ExitCode() > 0 {
		return coder.ExitCode()
	}
	return 1
}
