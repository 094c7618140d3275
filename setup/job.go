package setup

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/pkgsetup/util"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Step statuses recorded in a StepResult.
const (
	StatusSucceeded = "success"
	StatusFailed    = "failed"
)

// StepResult records the outcome of one step of a job.
type StepResult struct {
	Step     string    `json:"step"`
	Status   string    `json:"status"`
	ExitCode int       `json:"exit_code,omitempty"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Error    string    `json:"error,omitempty"`
}

// Duration is the time the step took.
func (r StepResult) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Job is a single attempt at setting up a package. The working directory is
// passed explicitly to every step; nothing changes the process's current
// directory.
type Job struct {
	ID       string
	Package  string
	URL      string
	WorkRoot string
	// WorkingDirectory is WorkRoot/Package. It is created by the extract
	// step and removed by the cleanup step.
	WorkingDirectory string
	// SourceDirectory is where the external tools run: the single top-level
	// directory of the extracted archive if there is one, otherwise the
	// working directory.
	SourceDirectory string
	// ArchivePath is the temporary file the fetch step downloaded to.
	ArchivePath    string
	ConfigureFlags []string
	Expansions     *util.Expansions
	Results        []StepResult

	// Stdout and Stderr receive the output of the external tools.
	Stdout io.Writer
	Stderr io.Writer
	// CaptureOutput additionally sends the external tools' output to the
	// step logger, one message per line.
	CaptureOutput bool

	workingDirectoryCreated bool
}

// NewJob creates a job from a job definition. The definition's identifying
// fields are expanded and the working directory is derived from the package
// name.
func NewJob(def *pkgsetup.JobDefinition) (*Job, error) {
	if def == nil {
		return nil, errors.New("job definition cannot be nil")
	}
	exp, err := def.Resolve()
	if err != nil {
		return nil, errors.Wrap(err, "resolving job definition")
	}

	j := &Job{
		ID:         uuid.New().String(),
		Package:    exp.Get(pkgsetup.ExpansionPackage),
		URL:        exp.Get(pkgsetup.ExpansionURL),
		WorkRoot:   exp.Get(pkgsetup.ExpansionWorkRoot),
		Expansions: exp,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
	}
	j.WorkingDirectory = filepath.Join(j.WorkRoot, j.Package)
	j.Expansions.Put(pkgsetup.ExpansionWorkingDir, j.WorkingDirectory)

	return j, nil
}

// MarkWorkingDirectoryCreated records that the working directory now exists
// and must be cleaned up.
func (j *Job) MarkWorkingDirectoryCreated() {
	j.workingDirectoryCreated = true
}

// WorkingDirectoryCreated reports whether a step has created the working
// directory.
func (j *Job) WorkingDirectoryCreated() bool {
	return j.workingDirectoryCreated
}

// SetSourceDirectory sets the directory the external tools run in and makes
// it available as an expansion.
func (j *Job) SetSourceDirectory(dir string) {
	j.SourceDirectory = dir
	j.Expansions.Put(pkgsetup.ExpansionSourceDir, dir)
}

// ToolDirectory returns the directory external tools should run in.
func (j *Job) ToolDirectory() string {
	if j.SourceDirectory != "" {
		return j.SourceDirectory
	}
	return j.WorkingDirectory
}

// Result returns the recorded result for the step, if the step was reached.
func (j *Job) Result(step string) (StepResult, bool) {
	for _, r := range j.Results {
		if r.Step == step {
			return r, true
		}
	}
	return StepResult{}, false
}

func (j *Job) addResult(r StepResult) {
	j.Results = append(j.Results, r)
}
