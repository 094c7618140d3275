package pkgsetup

import (
	"os"
	"path/filepath"

	"github.com/evergreen-ci/pkgsetup/util"
	"github.com/evergreen-ci/utility"
	"github.com/mitchellh/go-homedir"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/level"
	"github.com/mongodb/grip/send"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Settings holds the operator-level configuration that is independent of any
// particular job.
type Settings struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracer  TracerConfig  `yaml:"tracer"`
}

// NewSettings reads the settings file at path. A missing file is not an
// error: the defaults are used instead.
func NewSettings(path string) (*Settings, error) {
	settings := &Settings{}
	if path == "" || !utility.FileExists(path) {
		return settings, errors.Wrap(settings.Validate(), "validating default settings")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening settings file '%s'", path)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err = decoder.Decode(settings); err != nil {
		return nil, errors.Wrapf(err, "parsing settings file '%s'", path)
	}

	return settings, errors.Wrapf(settings.Validate(), "validating settings file '%s'", path)
}

// DefaultSettingsPath returns the settings file location, honoring the
// override environment variable.
func DefaultSettingsPath() string {
	if path := os.Getenv(SettingsFileEnv); path != "" {
		return path
	}
	home, err := homedir.Dir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultSettingsFile)
}

// Validate validates and sets defaults for every section.
func (s *Settings) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.Wrap(s.Logging.ValidateAndDefault(), "logging")
	catcher.Wrap(s.Metrics.ValidateAndDefault(), "metrics")
	catcher.Wrap(s.Tracer.ValidateAndDefault(), "tracer")
	return catcher.Resolve()
}

const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// LoggingConfig configures where log messages go and which are visible.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File additionally writes log messages to this path.
	File string `yaml:"file"`
	// CaptureOutput additionally sends the output of the external tools to
	// the logger, one message per line.
	CaptureOutput bool `yaml:"capture_output"`
}

func (c *LoggingConfig) ValidateAndDefault() error {
	catcher := grip.NewBasicCatcher()

	if c.Level == "" {
		c.Level = DefaultLogLevel
	}
	catcher.ErrorfWhen(level.FromString(c.Level) == level.Invalid, "invalid log level '%s'", c.Level)

	if c.Format == "" {
		c.Format = LogFormatText
	}
	catcher.ErrorfWhen(c.Format != LogFormatText && c.Format != LogFormatJSON, "invalid log format '%s'", c.Format)

	if c.File != "" {
		path, err := util.ResolvePath(c.File)
		catcher.Wrap(err, "resolving log file path")
		c.File = path
	}

	return catcher.Resolve()
}

// MakeSender builds the sender described by the configuration. The threshold
// is taken from the config's level.
func (c *LoggingConfig) MakeSender(name string) (send.Sender, error) {
	info := send.LevelInfo{Default: level.Info, Threshold: level.FromString(c.Level)}

	var console send.Sender
	if c.Format == LogFormatJSON {
		console = send.MakeJSONConsoleLogger()
	} else {
		console = send.MakeErrorLogger()
	}
	console.SetName(name)
	if err := console.SetLevel(info); err != nil {
		return nil, errors.Wrap(err, "setting console log level")
	}

	if c.File == "" {
		return console, nil
	}

	file, err := send.MakeFileLogger(c.File)
	if err != nil {
		return nil, errors.Wrapf(err, "creating log file '%s'", c.File)
	}
	file.SetName(name)
	if err = file.SetLevel(info); err != nil {
		return nil, errors.Wrap(err, "setting file log level")
	}

	return send.NewConfiguredMultiSender(console, file), nil
}

// MetricsConfig configures the job metrics. When TextfilePath is set, the
// metrics of each run are written there in the Prometheus text format for a
// node exporter's textfile collector.
type MetricsConfig struct {
	TextfilePath string `yaml:"textfile_path"`
}

func (c *MetricsConfig) ValidateAndDefault() error {
	if c.TextfilePath == "" {
		return nil
	}
	path, err := util.ResolvePath(c.TextfilePath)
	if err != nil {
		return errors.Wrap(err, "resolving metrics textfile path")
	}
	c.TextfilePath = path
	return nil
}

// TracerConfig configures the OpenTelemetry tracer provider. If not enabled
// traces will not be sent.
type TracerConfig struct {
	Enabled           bool   `yaml:"enabled"`
	CollectorEndpoint string `yaml:"collector_endpoint"`
	// Insecure disables TLS for the collector connection.
	Insecure bool `yaml:"insecure"`
}

// ValidateAndDefault validates the tracer configuration.
func (c *TracerConfig) ValidateAndDefault() error {
	if c.Enabled && c.CollectorEndpoint == "" {
		return errors.New("tracer can't be enabled without a collector endpoint")
	}
	return nil
}
