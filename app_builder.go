package nge

import (
	"reflect"
)

// Module installs resources, systems and shutdown hooks into an App.
type Module interface {
	Install(app *App, cmd *Commands)
}

type AppBuilder struct {
	app     *App
	modules []Module
}

func NewAppBuilder() *AppBuilder {
	return &AppBuilder{app: NewApp()}
}

// NewApp returns an empty App with the default stages and an event queue.
func NewApp() *App {
	app := &App{
		stages:    defaultStages(),
		resources: make(map[reflect.Type]any),
		ecs:       MakeEcs(),
	}
	app.addResources(&EventQueue{})
	return app
}

func (b *AppBuilder) UseModule(modules ...Module) *AppBuilder {
	b.modules = append(b.modules, modules...)

	return b
}

// Build installs the modules in registration order and resolves the
// schedule; a broken schedule panics here rather than on the first tick.
func (b *AppBuilder) Build() *App {
	app := b.app
	app.UseModules(b.modules...)
	app.resolveSchedule()

	return app
}

func (app *App) UseModules(modules ...Module) *App {
	commands := app.Commands()
	for _, module := range modules {
		module.Install(app, commands)
		app.Logger().Debugf("Installed module %T", module)
	}
	return app
}
