package command

import (
	"context"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/mongodb/grip"
)

const defaultInstallCommand = "make install"

// installPackage runs the native install step, optionally with sudo since it
// usually writes into the system prefix.
type installPackage struct {
	toolExec `mapstructure:",squash"`
}

func installFactory() Command          { return &installPackage{} }
func (c *installPackage) Name() string { return pkgsetup.StepInstall }

func (c *installPackage) ParseParams(params map[string]interface{}) error {
	if err := decodeParams(c.Name(), params, c); err != nil {
		return err
	}
	return c.toolExec.parse(c.Name(), defaultInstallCommand)
}

func (c *installPackage) Describe(job *setup.Job) (string, error) {
	t, err := c.resolve(job, nil)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

func (c *installPackage) Execute(ctx context.Context, logger grip.Journaler, job *setup.Job) error {
	return c.run(ctx, logger, job, c.Name(), nil)
}
