package main

import (
	"os"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/pkgsetup/operations"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/send"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func main() {
	// The command line interface is managed by the cli package. This, plus
	// the basic configuration in buildApp(), is all that's necessary for
	// bootstrapping the environment. Commands that fail with an exit code
	// return a cli.ExitCoder, which the cli package exits with.
	app := buildApp()
	grip.EmergencyFatal(app.Run(os.Args))
}

func buildApp() *cli.App {
	app := cli.NewApp()
	app.Name = pkgsetup.PackageName
	app.Usage = "download, build and install a source package"
	app.Version = pkgsetup.ClientVersion

	app.Commands = []cli.Command{
		operations.Version(),

		operations.Run(),
		operations.Plan(),
		operations.Fetch(),
		operations.Clean(),
	}

	// These are global options. Use this to configure logging or
	// other options independent from specific sub commands.
	app.Flags = operations.GlobalFlags()

	app.Before = func(c *cli.Context) error {
		return loggingSetup(app.Name, c.String("level"))
	}

	return app
}

func loggingSetup(name, l string) error {
	threshold := level.FromString(l)
	if threshold == level.Invalid {
		return errors.Errorf("invalid log level '%s'", l)
	}
	if err := grip.SetSender(send.MakeErrorLogger()); err != nil {
		return err
	}
	grip.SetName(name)

	sender := grip.GetSender()
	info := sender.Level()
	info.Threshold = threshold

	return sender.SetLevel(info)
}
