package command

import (
	"sort"
	"sync"

	"github.com/evergreen-ci/pkgsetup"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

var setupRegistry *commandRegistry

func init() {
	setupRegistry = newCommandRegistry()

	cmds := map[string]CommandFactory{
		pkgsetup.StepFetch:     fetchFactory,
		pkgsetup.StepExtract:   extractFactory,
		pkgsetup.StepConfigure: configureFactory,
		pkgsetup.StepBuild:     buildFactory,
		pkgsetup.StepInstall:   installFactory,
		pkgsetup.StepCleanup:   cleanupFactory,
	}

	for name, factory := range cmds {
		grip.EmergencyPanic(RegisterCommand(name, factory))
	}
}

// RegisterCommand adds a command factory under name.
func RegisterCommand(name string, factory CommandFactory) error {
	return setupRegistry.registerCommand(name, factory)
}

// GetCommandFactory returns the factory registered under name.
func GetCommandFactory(name string) (CommandFactory, bool) {
	return setupRegistry.getCommandFactory(name)
}

// RegisteredCommandNames returns the names of every registered command,
// sorted.
func RegisteredCommandNames() []string {
	return setupRegistry.registeredCommandNames()
}

// Render returns the named command configured with params.
func Render(name string, params map[string]interface{}) (Command, error) {
	return setupRegistry.renderCommand(name, params)
}

type commandRegistry struct {
	mu   *sync.RWMutex
	cmds map[string]CommandFactory
}

func newCommandRegistry() *commandRegistry {
	return &commandRegistry{
		cmds: map[string]CommandFactory{},
		mu:   &sync.RWMutex{},
	}
}

func (r *commandRegistry) registerCommand(name string, factory CommandFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return errors.New("cannot register a command without a name")
	}

	if _, ok := r.cmds[name]; ok {
		return errors.Errorf("command '%s' is already registered", name)
	}

	if factory == nil {
		return errors.Errorf("cannot register a nil factory for command '%s'", name)
	}

	r.cmds[name] = factory
	return nil
}

func (r *commandRegistry) getCommandFactory(name string) (CommandFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	factory, ok := r.cmds[name]
	return factory, ok
}

func (r *commandRegistry) registeredCommandNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.cmds))
	for name := range r.cmds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *commandRegistry) renderCommand(name string, params map[string]interface{}) (Command, error) {
	factory, ok := r.getCommandFactory(name)
	if !ok {
		return nil, errors.Errorf("command '%s' is not registered", name)
	}

	cmd := factory()
	if err := cmd.ParseParams(params); err != nil {
		return nil, errors.Wrapf(err, "parsing parameters for command '%s'", name)
	}
	return cmd, nil
}
