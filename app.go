package nge

import (
	"context"
	"fmt"
	"reflect"
)

type App struct {
	stages        []Stage
	registered    []*scheduledSystem
	schedule      map[string][]*scheduledSystem
	scheduleDirty bool

	resources map[reflect.Type]any
	ecs       *Ecs
	logger    Logger

	states        []State
	running       bool
	quitRequested bool
	shutdownHooks []shutdownHook
	shutdownDone  bool

	// Command Buffering
	pendingAdditions    []pendingAdd
	pendingRemovals     []EntityId
	pendingCompAdds     []pendingCompAdd
	pendingCompRemovals []pendingCompRemoval
}

type pendingAdd struct {
	eid        EntityId
	components []any
}

type pendingCompAdd struct {
	eid        EntityId
	components []any
}

type pendingCompRemoval struct {
	eid        EntityId
	components []any
}

type shutdownHook struct {
	name string
	fn   func()
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

// Run drives the state stack until a state asks to quit or the stack empties.
func (app *App) Run(initial State) error {
	return app.RunContext(context.Background(), initial)
}

// RunContext is Run with cooperative cancellation: once ctx is done the App
// quits at the next tick boundary, stopping every state on the way out.
func (app *App) RunContext(ctx context.Context, initial State) error {
	defer app.Shutdown()

	if err := app.Start(initial); err != nil {
		return err
	}

	for app.running {
		select {
		case <-ctx.Done():
			app.Logger().Infof("Context done (%v), quitting", ctx.Err())
			app.Quit()
		default:
		}

		if err := app.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Start pushes the initial state. A failing OnStart is fatal for the App.
func (app *App) Start(initial State) error {
	if app.scheduleDirty || app.schedule == nil {
		app.resolveSchedule()
	}
	app.running = true
	if err := app.pushState(initial); err != nil {
		app.running = false
		return err
	}
	return nil
}

// Step runs one tick: every stage in order, then events and Update for the
// active state, then any transition they requested.
func (app *App) Step() error {
	if !app.running {
		return nil
	}
	if app.quitRequested {
		app.stopAllStates()
		return nil
	}

	app.callSystems()

	cmd := app.Commands()
	if queue, ok := app.resources[reflect.TypeOf(EventQueue{})]; ok {
		for _, event := range queue.(*EventQueue).Drain() {
			if !app.running {
				break
			}
			if err := app.applyTrans(app.topState().HandleEvent(cmd, event)); err != nil {
				return err
			}
		}
	}

	if app.running {
		if err := app.applyTrans(app.topState().Update(cmd)); err != nil {
			return err
		}
	}
	app.FlushCommands()
	return nil
}

// Quit requests a cooperative shutdown at the next tick.
func (app *App) Quit() {
	app.quitRequested = true
}

func (app *App) Running() bool {
	return app.running
}

// Shutdown stops any remaining states and then runs module shutdown hooks in
// reverse installation order. Calling it twice is harmless.
func (app *App) Shutdown() {
	if app.shutdownDone {
		return
	}
	app.shutdownDone = true
	app.stopAllStates()

	for i := len(app.shutdownHooks) - 1; i >= 0; i-- {
		hook := app.shutdownHooks[i]
		app.Logger().Debugf("Shutting down %s", hook.name)
		hook.fn()
	}
	app.shutdownHooks = nil
}

// OnShutdown registers teardown for something a module created.
func (app *App) OnShutdown(name string, fn func()) {
	app.shutdownHooks = append(app.shutdownHooks, shutdownHook{name: name, fn: fn})
}

func (app *App) topState() State {
	return app.states[len(app.states)-1]
}

func (app *App) applyTrans(trans Trans) error {
	cmd := app.Commands()

	switch trans.kind {
	case transNone:
		return nil
	case transQuit:
		app.Logger().Infof("Quit requested")
		app.stopAllStates()
	case transPop:
		top := app.topState()
		app.states = app.states[:len(app.states)-1]
		top.OnStop(cmd)
		app.FlushCommands()
		if len(app.states) == 0 {
			app.running = false
			return nil
		}
		app.topState().OnResume(cmd)
		app.FlushCommands()
	case transPush:
		app.topState().OnPause(cmd)
		app.FlushCommands()
		return app.pushState(trans.state)
	case transSwitch:
		top := app.topState()
		app.states = app.states[:len(app.states)-1]
		top.OnStop(cmd)
		app.FlushCommands()
		return app.pushState(trans.state)
	}
	return nil
}

func (app *App) pushState(state State) error {
	if state == nil {
		panic("pushing a nil State")
	}
	app.states = append(app.states, state)
	err := state.OnStart(app.Commands())
	app.FlushCommands()
	if err != nil {
		app.states = app.states[:len(app.states)-1]
		app.Logger().Errorf("State %T failed to start: %v", state, err)
		return fmt.Errorf("starting state %T: %w", state, err)
	}
	return nil
}

func (app *App) stopAllStates() {
	cmd := app.Commands()
	for len(app.states) > 0 {
		top := app.topState()
		app.states = app.states[:len(app.states)-1]
		top.OnStop(cmd)
		app.FlushCommands()
	}
	app.running = false
}

func (app *App) callSystems() {
	if app.scheduleDirty || app.schedule == nil {
		app.resolveSchedule()
	}
	for _, stage := range app.stages {
		for _, system := range app.schedule[stage.Name] {
			app.callSystem(system)
		}
		app.FlushCommands()
	}
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource %s must be a pointer", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

func (app *App) removeResource(resourceType reflect.Type) bool {
	if resourceType.Kind() == reflect.Pointer {
		resourceType = resourceType.Elem()
	}
	if _, ok := app.resources[resourceType]; !ok {
		return false
	}
	delete(app.resources, resourceType)
	return true
}

func (app *App) hasResource(resourceType reflect.Type) bool {
	_, ok := app.resources[resourceType]
	return ok
}

func (app *App) callSystem(system *scheduledSystem) {
	app.callSystemInternal(system)
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystemInternal(system *scheduledSystem) {
	systemType := reflect.TypeOf(system.system)
	systemValue := reflect.ValueOf(system.system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("System %s: parameter %d (%s) must be a pointer", system.name, i, argType))
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			args[i] = reflect.ValueOf(resource)
		} else {
			msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
				system.name,
				fmt.Sprint(systemType),
				fmt.Sprint(argType),
			)
			app.Logger().Errorf("%s", msg)
			panic(msg)
		}
	}
	systemValue.Call(args)
}

func (app *App) FlushCommands() {
	if len(app.pendingAdditions) == 0 && len(app.pendingRemovals) == 0 &&
		len(app.pendingCompAdds) == 0 && len(app.pendingCompRemovals) == 0 {
		return
	}

	// 1. Process Removals first (so we don't add to dead entities)
	removed := make(set[EntityId], len(app.pendingRemovals))
	for _, eid := range app.pendingRemovals {
		app.Logger().Debugf("FLUSH: Removing entity %v", eid)
		app.ecs.removeEntity(eid)
		removed[eid] = struct{}{}
	}
	app.pendingRemovals = app.pendingRemovals[:0]

	// 2. Process Additions, skipping entities removed before they were ever flushed
	for _, add := range app.pendingAdditions {
		if _, gone := removed[add.eid]; gone {
			continue
		}
		app.ecs.insertEntity(add.eid, add.components...)
	}
	app.pendingAdditions = app.pendingAdditions[:0]

	// 3. Process Component Additions
	for _, add := range app.pendingCompAdds {
		app.ecs.addComponents(add.eid, add.components...)
	}
	app.pendingCompAdds = app.pendingCompAdds[:0]

	// 4. Process Component Removals
	for _, rem := range app.pendingCompRemovals {
		app.ecs.removeComponents(rem.eid, rem.components...)
	}
	app.pendingCompRemovals = app.pendingCompRemovals[:0]
}
