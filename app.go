package helio

import (
	"fmt"
	"reflect"
)

// Module is a unit of engine functionality. Install wires resources and
// systems into the App; modules may also register shutdown hooks for
// teardown-ordered cleanup.
type Module interface {
	Install(app *App, cmd *Commands)
}

type systemFn any

// Stage names the phase of a frame a system runs in. Stages execute in the
// order they appear in the stages slice, once per RunFrame.
type Stage struct {
	Name string
}

var (
	Prelude    = Stage{Name: "Prelude"}
	PreUpdate  = Stage{Name: "PreUpdate"}
	Update     = Stage{Name: "Update"}
	PostUpdate = Stage{Name: "PostUpdate"}
	PreRender  = Stage{Name: "PreRender"}
	Render     = Stage{Name: "Render"}
	PostRender = Stage{Name: "PostRender"}
	Finale     = Stage{Name: "Finale"}
)

type scheduledSystem struct {
	stage  Stage
	system systemFn
}

type systemScheduleBuilder struct {
	inStage Stage
	system  systemFn
}

func System(system systemFn) systemScheduleBuilder {
	return systemScheduleBuilder{system: system, inStage: Update}
}

func (b systemScheduleBuilder) InStage(s Stage) systemScheduleBuilder {
	return systemScheduleBuilder{system: b.system, inStage: s}
}

// App owns the module list, the typed resource map and the per-stage system
// schedule. A single App drives a single window/render loop.
type App struct {
	modules   []Module
	stages    []Stage
	systems   map[string][]systemFn
	resources map[reflect.Type]any
	closers   []func()
	quitting  bool
	built     bool
}

func NewApp() *App {
	return &App{
		stages: []Stage{
			Prelude, PreUpdate, Update, PostUpdate,
			PreRender, Render, PostRender, Finale,
		},
		systems:   make(map[string][]systemFn),
		resources: make(map[reflect.Type]any),
	}
}

func (app *App) UseModules(modules ...Module) *App {
	app.modules = append(app.modules, modules...)
	return app
}

func (app *App) UseSystem(b systemScheduleBuilder) *App {
	app.systems[b.inStage.Name] = append(app.systems[b.inStage.Name], b.system)
	return app
}

// OnShutdown registers a hook invoked by Shutdown in reverse registration
// order, so modules tear down after everything they installed.
func (app *App) OnShutdown(fn func()) {
	app.closers = append(app.closers, fn)
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resources must be pointers, got %s", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}
		app.resources[resourceType.Elem()] = resource
	}
	return app
}

func (app *App) build() {
	if app.built {
		return
	}
	cmd := app.Commands()
	for _, module := range app.modules {
		module.Install(app, cmd)
	}
	app.built = true
}

// RunFrame executes every stage once, in order. This is the unit the render
// loop repeats; tests drive it directly.
func (app *App) RunFrame() {
	app.build()
	for _, stage := range app.stages {
		for _, system := range app.systems[stage.Name] {
			app.callSystem(system)
		}
	}
}

// Run drives RunFrame until Quit is called, then shuts down.
func (app *App) Run() {
	app.build()
	for !app.quitting {
		app.RunFrame()
	}
	app.Shutdown()
}

func (app *App) Quit() {
	app.quitting = true
}

// Shutdown fires registered hooks in reverse order. Safe to call once after
// the loop exits.
func (app *App) Shutdown() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		app.closers[i]()
	}
	app.closers = nil
}

var typeOfCommands = reflect.TypeOf(Commands{})

// callSystem invokes a system function, resolving each pointer parameter
// from the resource map. *Commands is always available.
func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())
	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("system parameters must be pointers, got %s", argType))
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(app.Commands())
			continue
		}
		resource, ok := app.resources[underlyingType]
		if !ok {
			panic(fmt.Sprintf("no resource of type %s for system %s", underlyingType, systemType))
		}
		args[i] = reflect.ValueOf(resource)
	}

	systemValue.Call(args)
}

// Commands is the facade handed to modules and systems for mutating the App.
type Commands struct {
	app *App
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

// Resource fetches a resource by example pointer type, or nil if absent.
func Resource[T any](cmd *Commands) *T {
	var zero T
	r, ok := cmd.app.resources[reflect.TypeOf(zero)]
	if !ok {
		return nil
	}
	return r.(*T)
}

func (cmd *Commands) Quit() {
	cmd.app.Quit()
}
