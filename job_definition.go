package pkgsetup

import (
	"os"
	"strings"

	"github.com/evergreen-ci/pkgsetup/util"
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// JobDefinition is the YAML description of a setup job: which package to
// fetch from where, where to build it, and the parameters of each step.
type JobDefinition struct {
	Package    string            `yaml:"package"`
	Version    string            `yaml:"version"`
	URL        string            `yaml:"url"`
	WorkRoot   string            `yaml:"work_root"`
	Expansions map[string]string `yaml:"expansions"`

	Fetch     map[string]interface{} `yaml:"fetch"`
	Extract   map[string]interface{} `yaml:"extract"`
	Configure map[string]interface{} `yaml:"configure"`
	Build     map[string]interface{} `yaml:"build"`
	Install   map[string]interface{} `yaml:"install"`
	Cleanup   map[string]interface{} `yaml:"cleanup"`
}

// DefaultJobDefinition returns the built-in job, which installs the PyQt GPL
// source distribution.
func DefaultJobDefinition() *JobDefinition {
	return &JobDefinition{
		Package:  "PyQt-gpl-${version}",
		Version:  "5.5.1",
		URL:      "https://sourceforge.net/projects/pyqt/files/PyQt5/PyQt-${version}/${package}.tar.gz",
		WorkRoot: ".",
		Expansions: map[string]string{
			"python": "python3",
		},
		Fetch: map[string]interface{}{
			"timeout":     DefaultFetchTimeout.String(),
			"max_retries": 0,
		},
		Extract: map[string]interface{}{
			"min_free_space": "512MB",
		},
		Configure: map[string]interface{}{
			"binary":          "${python}",
			"args":            []interface{}{"configure.py"},
			"confirm_license": true,
			"disable":         "QtPositioning",
			"include_dir":     "/usr/include/python3",
		},
		Build: map[string]interface{}{
			"command": "make",
		},
		Install: map[string]interface{}{
			"command": "make install",
			"sudo":    false,
		},
		Cleanup: map[string]interface{}{},
	}
}

// LoadJobDefinition reads the job file at path. When path is empty or the
// file does not exist, the built-in job is returned.
func LoadJobDefinition(path string) (*JobDefinition, error) {
	if path == "" || !utility.FileExists(path) {
		grip.InfoWhen(path != "", message.Fields{
			"message": "job file not found, using the built-in job",
			"path":    path,
		})
		def := DefaultJobDefinition()
		return def, errors.Wrap(def.ValidateAndDefault(), "validating built-in job")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening job file '%s'", path)
	}
	defer f.Close()

	def := &JobDefinition{}
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err = decoder.Decode(def); err != nil {
		return nil, errors.Wrapf(err, "parsing job file '%s'", path)
	}

	return def, errors.Wrapf(def.ValidateAndDefault(), "validating job file '%s'", path)
}

// ValidateAndDefault checks the required fields and fills in defaults.
func (d *JobDefinition) ValidateAndDefault() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(strings.TrimSpace(d.Package) == "", "package must be specified")
	catcher.NewWhen(strings.TrimSpace(d.URL) == "", "url must be specified")

	if d.WorkRoot == "" {
		d.WorkRoot = "."
	}
	if d.Expansions == nil {
		d.Expansions = map[string]string{}
	}

	for name := range d.Expansions {
		switch name {
		case ExpansionPackage, ExpansionVersion, ExpansionURL, ExpansionWorkRoot, ExpansionWorkingDir, ExpansionSourceDir:
			catcher.Errorf("expansion '%s' is reserved", name)
		}
	}

	return catcher.Resolve()
}

// Params returns the parameters for the named step. The result is never nil
// and can be modified without affecting the definition.
func (d *JobDefinition) Params(step string) map[string]interface{} {
	var params map[string]interface{}
	switch step {
	case StepFetch:
		params = d.Fetch
	case StepExtract:
		params = d.Extract
	case StepConfigure:
		params = d.Configure
	case StepBuild:
		params = d.Build
	case StepInstall:
		params = d.Install
	case StepCleanup:
		params = d.Cleanup
	}

	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

func (d *JobDefinition) stepParams(step string) (*map[string]interface{}, bool) {
	switch step {
	case StepFetch:
		return &d.Fetch, true
	case StepExtract:
		return &d.Extract, true
	case StepConfigure:
		return &d.Configure, true
	case StepBuild:
		return &d.Build, true
	case StepInstall:
		return &d.Install, true
	case StepCleanup:
		return &d.Cleanup, true
	}
	return nil, false
}

// ApplyOverrides applies "key=value" overrides, such as those given on the
// command line. The keys package, version, url and work_root set the
// corresponding fields, "<step>.<param>" sets a step parameter, and any
// other key sets an expansion.
func (d *JobDefinition) ApplyOverrides(overrides []string) error {
	catcher := grip.NewBasicCatcher()
	for _, override := range overrides {
		key, value, ok := strings.Cut(override, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			catcher.Errorf("override '%s' must have the form key=value", override)
			continue
		}

		switch key {
		case ExpansionPackage:
			d.Package = value
		case ExpansionVersion:
			d.Version = value
		case ExpansionURL:
			d.URL = value
		case ExpansionWorkRoot:
			d.WorkRoot = value
		default:
			if step, param, isStep := strings.Cut(key, "."); isStep {
				params, known := d.stepParams(step)
				if !known || param == "" {
					catcher.Errorf("override '%s' does not name a step parameter", override)
					continue
				}
				if *params == nil {
					*params = map[string]interface{}{}
				}
				(*params)[param] = value
				continue
			}
			if d.Expansions == nil {
				d.Expansions = map[string]string{}
			}
			d.Expansions[key] = value
		}
	}
	return catcher.Resolve()
}

// Resolve expands the definition's identifying fields and returns the
// expansions a job starts with. The version is expanded first so that the
// package name can refer to it, then the package name so that the URL can
// refer to both.
func (d *JobDefinition) Resolve() (*util.Expansions, error) {
	exp := util.NewExpansions(d.Expansions)

	version, err := exp.ExpandString(d.Version)
	if err != nil {
		return nil, errors.Wrap(err, "expanding version")
	}
	exp.Put(ExpansionVersion, version)

	pkg, err := exp.ExpandString(d.Package)
	if err != nil {
		return nil, errors.Wrap(err, "expanding package")
	}
	if strings.TrimSpace(pkg) == "" {
		return nil, errors.New("package expands to an empty name")
	}
	if strings.ContainsAny(pkg, `/\`) || pkg == "." || pkg == ".." {
		return nil, errors.Errorf("package '%s' cannot be used as a directory name", pkg)
	}
	exp.Put(ExpansionPackage, pkg)

	url, err := exp.ExpandString(d.URL)
	if err != nil {
		return nil, errors.Wrap(err, "expanding url")
	}
	exp.Put(ExpansionURL, url)

	workRoot, err := exp.ExpandString(d.WorkRoot)
	if err != nil {
		return nil, errors.Wrap(err, "expanding work_root")
	}
	workRoot, err = util.ResolvePath(workRoot)
	if err != nil {
		return nil, errors.Wrap(err, "resolving work_root")
	}
	exp.Put(ExpansionWorkRoot, workRoot)

	return exp, nil
}
