package pkgsetup

import "time"

const (
	// ClientVersion is the release identifier reported by the version
	// command.
	ClientVersion = "2026-10-17"

	PackageName = "pkgsetup"

	// DefaultJobFile is the job definition read from the current directory
	// when no --job flag is given.
	DefaultJobFile = "pkgsetup.yml"

	// DefaultSettingsFile is the settings file read from the user's home
	// directory when no --settings flag is given.
	DefaultSettingsFile = ".pkgsetup.yml"

	// SettingsFileEnv overrides the default settings file location.
	SettingsFileEnv = "PKGSETUP_SETTINGS"
)

// Step names, in the order a job runs them.
const (
	StepFetch     = "fetch"
	StepExtract   = "extract"
	StepConfigure = "configure"
	StepBuild     = "build"
	StepInstall   = "install"
	StepCleanup   = "cleanup"
)

// Names of the built-in expansions every job definition provides.
const (
	ExpansionPackage    = "package"
	ExpansionVersion    = "version"
	ExpansionURL        = "url"
	ExpansionWorkRoot   = "work_root"
	ExpansionWorkingDir = "working_dir"
	ExpansionSourceDir  = "source_dir"
)

const (
	DefaultFetchTimeout = 10 * time.Minute
	DefaultLogLevel     = "info"
)

// BuildRevision is the commit the binary was built from. It is set with
// -ldflags at build time.
var BuildRevision = ""

// StepNames returns every step name in execution order. Cleanup is last.
func StepNames() []string {
	return []string{
		StepFetch,
		StepExtract,
		StepConfigure,
		StepBuild,
		StepInstall,
		StepCleanup,
	}
}
