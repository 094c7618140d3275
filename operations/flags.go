package operations

import (
	"github.com/evergreen-ci/pkgsetup"
	"github.com/urfave/cli"
)

const (
	levelFlagName    = "level"
	settingsFlagName = "settings"
	jobFlagName      = "job"
	workRootFlagName = "work-root"
	setFlagName      = "set"
	confirmFlagName  = "confirm"
	outputFlagName   = "output"
)

// GlobalFlags returns the flags that apply to every command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:  levelFlagName,
			Value: pkgsetup.DefaultLogLevel,
			Usage: "Specify lowest visible log level as string: 'emergency|alert|critical|error|warning|notice|info|debug|trace'",
		},
		cli.StringFlag{
			Name:   "settings, s",
			Usage:  "path to the settings file",
			Value:  pkgsetup.DefaultSettingsPath(),
			EnvVar: pkgsetup.SettingsFileEnv,
		},
	}
}

func addJobFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:  "job, j",
		Usage: "path to the job definition; the built-in job is used if the file does not exist",
		Value: pkgsetup.DefaultJobFile,
	})
}

func addOverrideFlags(flags ...cli.Flag) []cli.Flag {
	return append(flags,
		cli.StringFlag{
			Name:  workRootFlagName,
			Usage: "directory the working directory is created in",
		},
		cli.StringSliceFlag{
			Name:  setFlagName,
			Usage: "override a job value as key=value: package, version, url, work_root, <step>.<param> or an expansion; may be specified more than once",
		},
	)
}

func addConfirmFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.BoolFlag{
		Name:  confirmFlagName,
		Usage: "ask for confirmation on the terminal before installing",
	})
}

func addOutputFlag(flags ...cli.Flag) []cli.Flag {
	return append(flags, cli.StringFlag{
		Name:  "output, o",
		Usage: "path to write the downloaded archive to",
	})
}
