package command

import (
	"context"
	"strings"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

const (
	defaultLicenseFlag    = "--confirm-license"
	defaultDisableFlag    = "--disable"
	defaultIncludeDirFlag = "--sip-incdir"
)

// configurePackage runs the package's configuration entry point with the
// license confirmation, feature-disable and include directory flags, in that
// order, followed by any extra arguments.
type configurePackage struct {
	toolExec `mapstructure:",squash"`

	ConfirmLicense bool     `mapstructure:"confirm_license"`
	Disable        string   `mapstructure:"disable"`
	IncludeDir     string   `mapstructure:"include_dir"`
	ExtraArgs      []string `mapstructure:"extra_args"`

	// The flag names can be changed for configuration tools that spell
	// them differently.
	LicenseFlag    string `mapstructure:"license_flag"`
	DisableFlag    string `mapstructure:"disable_flag"`
	IncludeDirFlag string `mapstructure:"include_dir_flag"`
}

func configureFactory() Command          { return &configurePackage{} }
func (c *configurePackage) Name() string { return pkgsetup.StepConfigure }

func (c *configurePackage) ParseParams(params map[string]interface{}) error {
	if err := decodeParams(c.Name(), params, c); err != nil {
		return err
	}
	if err := c.toolExec.parse(c.Name(), ""); err != nil {
		return err
	}

	if c.LicenseFlag == "" {
		c.LicenseFlag = defaultLicenseFlag
	}
	if c.DisableFlag == "" {
		c.DisableFlag = defaultDisableFlag
	}
	if c.IncludeDirFlag == "" {
		c.IncludeDirFlag = defaultIncludeDirFlag
	}

	catcher := grip.NewBasicCatcher()
	for name, flag := range map[string]string{
		"license_flag":     c.LicenseFlag,
		"disable_flag":     c.DisableFlag,
		"include_dir_flag": c.IncludeDirFlag,
	} {
		catcher.ErrorfWhen(!strings.HasPrefix(flag, "-"), "%s '%s' must start with '-'", name, flag)
	}
	return catcher.Resolve()
}

// flags returns the configuration flags with expansions applied.
func (c *configurePackage) flags(job *setup.Job) ([]string, error) {
	flags := []string{}
	if c.ConfirmLicense {
		flags = append(flags, c.LicenseFlag)
	}

	disable, err := job.Expansions.ExpandString(c.Disable)
	if err != nil {
		return nil, errors.Wrap(err, "expanding disable")
	}
	if disable != "" {
		flags = append(flags, c.DisableFlag+"="+disable)
	}

	includeDir, err := job.Expansions.ExpandString(c.IncludeDir)
	if err != nil {
		return nil, errors.Wrap(err, "expanding include_dir")
	}
	if includeDir != "" {
		flags = append(flags, c.IncludeDirFlag+"="+includeDir)
	}

	for _, arg := range c.ExtraArgs {
		expanded, err := job.Expansions.ExpandString(arg)
		if err != nil {
			return nil, errors.Wrap(err, "expanding extra_args")
		}
		if expanded != "" {
			flags = append(flags, expanded)
		}
	}

	return flags, nil
}

func (c *configurePackage) Describe(job *setup.Job) (string, error) {
	flags, err := c.flags(job)
	if err != nil {
		return "", err
	}
	t, err := c.resolve(job, flags)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

func (c *configurePackage) Execute(ctx context.Context, logger grip.Journaler, job *setup.Job) error {
	flags, err := c.flags(job)
	if err != nil {
		return err
	}
	job.ConfigureFlags = flags

	return c.run(ctx, logger, job, c.Name(), flags)
}
