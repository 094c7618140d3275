package operations

import (
	"strings"

	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func mergeBeforeFuncs(ops ...func(c *cli.Context) error) cli.BeforeFunc {
	return func(c *cli.Context) error {
		catcher := grip.NewBasicCatcher()

		for _, op := range ops {
			catcher.Add(op(c))
		}

		return catcher.Resolve()
	}
}

func requireStringFlag(name string) cli.BeforeFunc {
	return func(c *cli.Context) error {
		if strings.TrimSpace(c.String(name)) == "" {
			return errors.Errorf("must specify --%s", name)
		}
		return nil
	}
}

func requireNoArgs(c *cli.Context) error {
	if c.NArg() > 0 {
		return errors.Errorf("unexpected arguments: %s", strings.Join(c.Args(), " "))
	}
	return nil
}

func requireOverridesWellFormed(c *cli.Context) error {
	catcher := grip.NewBasicCatcher()
	for _, override := range c.StringSlice(setFlagName) {
		catcher.ErrorfWhen(!strings.Contains(override, "="), "--%s value '%s' must have the form key=value", setFlagName, override)
	}
	return catcher.Resolve()
}
