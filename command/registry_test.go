package command

import (
	"context"
	"testing"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/evergreen-ci/pkgsetup/setup"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCommand struct {
	Value string `mapstructure:"value"`
}

func (m *mockCommand) Name() string { return "command.mock" }
func (m *mockCommand) ParseParams(params map[string]interface{}) error {
	if err := decodeParams(m.Name(), params, m); err != nil {
		return err
	}
	if m.Value == "invalid" {
		return errors.New("invalid value")
	}
	return nil
}
func (m *mockCommand) Execute(context.Context, grip.Journaler, *setup.Job) error { return nil }

func TestCommandRegistry(t *testing.T) {
	assert := assert.New(t)

	r := newCommandRegistry()
	assert.NotNil(r.cmds)
	assert.NotNil(r.mu)
	assert.NotNil(setupRegistry)

	assert.Len(r.cmds, 0)

	factory := CommandFactory(func() Command { return &mockCommand{} })
	assert.NotNil(factory)
	assert.Error(r.registerCommand("", factory))
	assert.Len(r.cmds, 0)
	assert.Error(r.registerCommand("foo", nil))
	assert.Len(r.cmds, 0)

	assert.NoError(r.registerCommand("command.mock", factory))
	assert.Len(r.cmds, 1)
	assert.Error(r.registerCommand("command.mock", factory))
	assert.Len(r.cmds, 1)

	retFactory, ok := r.getCommandFactory("command.mock")
	assert.True(ok)
	assert.NotNil(retFactory)

	_, ok = r.getCommandFactory("command.missing")
	assert.False(ok)
}

func TestGlobalCommandRegistryNamesMatchExpectedValues(t *testing.T) {
	assert := assert.New(t)

	setupRegistry.mu.Lock()
	defer setupRegistry.mu.Unlock()
	for name, factory := range setupRegistry.cmds {
		cmd := factory()
		assert.Equal(name, cmd.Name())
	}
}

func TestRegisteredCommandNames(t *testing.T) {
	assert.ElementsMatch(t, pkgsetup.StepNames(), RegisteredCommandNames())
}

func TestRenderCommands(t *testing.T) {
	registry := newCommandRegistry()
	require.NoError(t, registry.registerCommand("command.mock", func() Command { return &mockCommand{} }))

	t.Run("ParsesParams", func(t *testing.T) {
		cmd, err := registry.renderCommand("command.mock", map[string]interface{}{"value": "potato"})
		require.NoError(t, err)
		assert.Equal(t, "potato", cmd.(*mockCommand).Value)
	})
	t.Run("NewInstanceEachTime", func(t *testing.T) {
		first, err := registry.renderCommand("command.mock", nil)
		require.NoError(t, err)
		second, err := registry.renderCommand("command.mock", nil)
		require.NoError(t, err)
		assert.NotSame(t, first, second)
	})
	t.Run("UnknownCommand", func(t *testing.T) {
		_, err := registry.renderCommand("command.missing", nil)
		assert.Error(t, err)
	})
	t.Run("InvalidParams", func(t *testing.T) {
		_, err := registry.renderCommand("command.mock", map[string]interface{}{"value": "invalid"})
		assert.Error(t, err)
	})
	t.Run("UnknownParams", func(t *testing.T) {
		_, err := registry.renderCommand("command.mock", map[string]interface{}{"other": "value"})
		assert.Error(t, err)
	})
}

func TestNewPipeline(t *testing.T) {
	t.Run("BuiltInJob", func(t *testing.T) {
		p, err := NewPipeline(pkgsetup.DefaultJobDefinition())
		require.NoError(t, err)

		names := []string{}
		for _, step := range p.Steps {
			names = append(names, step.Name())
		}
		assert.Equal(t, pkgsetup.StepNames()[:5], names)
		require.NotNil(t, p.Cleanup)
		assert.Equal(t, pkgsetup.StepCleanup, p.Cleanup.Name())
	})
	t.Run("NilDefinition", func(t *testing.T) {
		_, err := NewPipeline(nil)
		assert.Error(t, err)
	})
	t.Run("InvalidStepParams", func(t *testing.T) {
		def := pkgsetup.DefaultJobDefinition()
		def.Build["bogus"] = true
		def.Fetch["max_retries"] = -1
		_, err := NewPipeline(def)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bogus")
		assert.Contains(t, err.Error(), "max_retries")
	})
	t.Run("CommandLineOverridesDecode", func(t *testing.T) {
		def := pkgsetup.DefaultJobDefinition()
		require.NoError(t, def.ApplyOverrides([]string{"install.sudo=true", "fetch.max_retries=3", "fetch.timeout=30s"}))
		p, err := NewPipeline(def)
		require.NoError(t, err)

		assert.True(t, p.Steps[4].(*installPackage).Sudo)
		assert.Equal(t, 3, p.Steps[0].(*fetchArchive).MaxRetries)
		assert.Equal(t, "30s", p.Steps[0].(*fetchArchive).Timeout.String())
	})
}
