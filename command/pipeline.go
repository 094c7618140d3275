package command

import (
	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

// NewPipeline renders every step of the job definition in the fixed order:
// fetch, extract, configure, build and install, followed by cleanup.
func NewPipeline(def *pkgsetup.JobDefinition) (*setup.Pipeline, error) {
	if def == nil {
		return nil, errors.New("job definition cannot be nil")
	}

	catcher := grip.NewBasicCatcher()
	p := &setup.Pipeline{}
	for _, name := range pkgsetup.StepNames() {
		cmd, err := Render(name, def.Params(name))
		if err != nil {
			catcher.Add(err)
			continue
		}
		if name == pkgsetup.StepCleanup {
			p.Cleanup = cmd
			continue
		}
		p.Steps = append(p.Steps, cmd)
	}
	if catcher.HasErrors() {
		return nil, catcher.Resolve()
	}

	return p, errors.Wrap(p.Validate(), "invalid pipeline")
}
