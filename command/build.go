package command

import (
	"context"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/mongodb/grip"
)

const defaultBuildCommand = "make"

// buildPackage runs the native build tool.
type buildPackage struct {
	toolExec `mapstructure:",squash"`
}

func buildFactory() Command          { return &buildPackage{} }
func (c *buildPackage) Name() string { return pkgsetup.StepBuild }

func (c *buildPackage) ParseParams(params map[string]interface{}) error {
	if err := decodeParams(c.Name(), params, c); err != nil {
		return err
	}
	return c.toolExec.parse(c.Name(), defaultBuildCommand)
}

func (c *buildPackage) Describe(job *setup.Job) (string, error) {
	t, err := c.resolve(job, nil)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

func (c *buildPackage) Execute(ctx context.Context, logger grip.Journaler, job *setup.Job) error {
	return c.run(ctx, logger, job, c.Name(), nil)
}
