package command

import (
	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Command is a setup step that is configured from the parameters of a job
// definition.
type Command interface {
	setup.Step
	// ParseParams decodes and validates the step's parameters. Unknown
	// parameters are an error.
	ParseParams(map[string]interface{}) error
}

// CommandFactory returns a new, unconfigured command.
type CommandFactory func() Command

// decodeParams decodes params into out. Values are converted between types
// where it is unambiguous, so that parameters given on the command line as
// strings can fill bool, integer and duration fields.
func decodeParams(name string, params map[string]interface{}, out interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "constructing mapstructure decoder")
	}
	return errors.Wrapf(decoder.Decode(params), "decoding %s params", name)
}
