package setup

import (
	"context"

	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// Step is one stage of a job.
type Step interface {
	Name() string
	// Execute runs the step against the job. It blocks until the step is
	// complete or ctx is done.
	Execute(ctx context.Context, logger grip.Journaler, job *Job) error
}

// Describer is implemented by steps that can report what they would do for
// a job without doing it.
type Describer interface {
	Describe(job *Job) (string, error)
}

// Pipeline is the fixed sequence of steps of a job plus the cleanup step that
// runs after them.
type Pipeline struct {
	Steps   []Step
	Cleanup Step
}

// Validate checks that the pipeline has steps, that their names are unique
// and that there is a cleanup step.
func (p *Pipeline) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(len(p.Steps) == 0, "pipeline must have at least one step")
	catcher.NewWhen(p.Cleanup == nil, "pipeline must have a cleanup step")

	seen := map[string]bool{}
	for idx, step := range p.Steps {
		if step == nil {
			catcher.Errorf("step %d is nil", idx)
			continue
		}
		name := step.Name()
		catcher.ErrorfWhen(name == "", "step %d has no name", idx)
		catcher.ErrorfWhen(seen[name], "step '%s' is duplicated", name)
		seen[name] = true
	}
	if p.Cleanup != nil {
		catcher.ErrorfWhen(seen[p.Cleanup.Name()], "cleanup step '%s' is also a regular step", p.Cleanup.Name())
	}

	return catcher.Resolve()
}

// PlannedStep is a step as it would run for a particular job.
type PlannedStep struct {
	Step        string
	Description string
}

// Plan returns the steps, including cleanup, in the order they would run
// for the job. Nothing is executed.
func (p *Pipeline) Plan(job *Job) ([]PlannedStep, error) {
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid pipeline")
	}

	steps := append(append([]Step{}, p.Steps...), p.Cleanup)
	out := make([]PlannedStep, 0, len(steps))
	catcher := grip.NewBasicCatcher()
	for _, step := range steps {
		planned := PlannedStep{Step: step.Name()}
		if d, ok := step.(Describer); ok {
			desc, err := d.Describe(job)
			if err != nil {
				catcher.Wrapf(err, "describing step '%s'", step.Name())
				continue
			}
			planned.Description = desc
		}
		out = append(out, planned)
	}

	if catcher.HasErrors() {
		return nil, catcher.Resolve()
	}
	return out, nil
}
