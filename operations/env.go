package operations

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/logging"
	"github.com/mongodb/grip/message"
	"github.com/mongodb/grip/send"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// commandEnv holds what every job command needs: the operator settings, the
// logger built from them and the job definition with command line overrides
// applied.
type commandEnv struct {
	settings *pkgsetup.Settings
	logger   grip.Journaler
	sender   send.Sender
	def      *pkgsetup.JobDefinition
}

func newCommandEnv(c *cli.Context) (*commandEnv, error) {
	settings, err := loadSettings(c)
	if err != nil {
		return nil, err
	}

	sender, err := settings.Logging.MakeSender(pkgsetup.PackageName)
	if err != nil {
		return nil, errors.Wrap(err, "setting up logging")
	}

	def, err := loadJobDefinition(c)
	if err != nil {
		grip.Warning(message.WrapError(sender.Close(), "closing log sender"))
		return nil, err
	}

	return &commandEnv{
		settings: settings,
		logger:   logging.MakeGrip(sender),
		sender:   sender,
		def:      def,
	}, nil
}

func (e *commandEnv) close() {
	grip.Warning(message.WrapError(e.sender.Close(), "closing log sender"))
}

// loadSettings reads the settings file named by the global flag. A log level
// given explicitly on the command line takes precedence over the file.
func loadSettings(c *cli.Context) (*pkgsetup.Settings, error) {
	settings, err := pkgsetup.NewSettings(c.GlobalString(settingsFlagName))
	if err != nil {
		return nil, errors.Wrap(err, "loading settings")
	}

	if c.GlobalIsSet(levelFlagName) {
		settings.Logging.Level = c.GlobalString(levelFlagName)
		if err = settings.Logging.ValidateAndDefault(); err != nil {
			return nil, errors.Wrap(err, "invalid log level")
		}
	}

	return settings, nil
}

// loadJobDefinition reads the job file and applies the --work-root and --set
// overrides, in that order.
func loadJobDefinition(c *cli.Context) (*pkgsetup.JobDefinition, error) {
	def, err := pkgsetup.LoadJobDefinition(c.String(jobFlagName))
	if err != nil {
		return nil, errors.Wrap(err, "loading job definition")
	}

	if c.IsSet(workRootFlagName) {
		def.WorkRoot = c.String(workRootFlagName)
	}
	if err = def.ApplyOverrides(c.StringSlice(setFlagName)); err != nil {
		return nil, errors.Wrap(err, "applying overrides")
	}

	return def, errors.Wrap(def.ValidateAndDefault(), "validating job definition")
}

// signalContext returns a context that is canceled when the process receives
// an interrupt or termination signal.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
