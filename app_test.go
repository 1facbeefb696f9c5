package helio

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_addResources(t *testing.T) {
	app := NewApp()

	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)

	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	// Expect panic when trying to add the same type of resource again
	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)

	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")

	// Non-pointer resources are a programming error
	require.Panics(t, func() {
		app.addResources(MockResource1{name: "by value"})
	})
}

func TestApp_resourceLookup(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()
	resource := NewMockResource1("Resource1")
	cmd.AddResources(resource)

	assert.Same(t, resource, Resource[MockResource1](cmd))
	assert.Nil(t, Resource[MockResource2](cmd), "missing resources resolve to nil")
}

func TestApp_systemsRunInStageOrder(t *testing.T) {
	app := NewApp()
	var order []string

	app.UseSystem(System(func(cmd *Commands) {
		order = append(order, "render")
	}).InStage(Render))
	app.UseSystem(System(func(cmd *Commands) {
		order = append(order, "prelude")
	}).InStage(Prelude))
	app.UseSystem(System(func(cmd *Commands) {
		order = append(order, "update")
	}))

	app.RunFrame()

	assert.Equal(t, []string{"prelude", "update", "render"}, order)
}

func TestApp_systemParameterInjection(t *testing.T) {
	app := NewApp()
	cmd := app.Commands()
	resource := NewMockResource1("injected")
	cmd.AddResources(resource)

	var seen *MockResource1
	app.UseSystem(System(func(r *MockResource1) {
		seen = r
	}))
	app.RunFrame()

	assert.Same(t, resource, seen)
}

func TestApp_systemMissingResourcePanics(t *testing.T) {
	app := NewApp()
	app.UseSystem(System(func(r *MockResource1) {}))

	require.Panics(t, func() {
		app.RunFrame()
	})
}

type installCounter struct {
	installs int
}

type countingModule struct{}

func (countingModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&installCounter{installs: 1})
}

func TestApp_modulesInstallOnFirstFrame(t *testing.T) {
	app := NewApp()
	app.UseModules(countingModule{})
	assert.Empty(t, app.resources)

	app.RunFrame()
	app.RunFrame()

	counter := Resource[installCounter](app.Commands())
	require.NotNil(t, counter)
	assert.Equal(t, 1, counter.installs, "modules install exactly once")
}

func TestApp_shutdownHooksReverseOrder(t *testing.T) {
	app := NewApp()
	var order []string
	app.OnShutdown(func() { order = append(order, "first") })
	app.OnShutdown(func() { order = append(order, "second") })

	app.Shutdown()

	assert.Equal(t, []string{"second", "first"}, order)
}

func TestApp_quitStopsRun(t *testing.T) {
	app := NewApp()
	frames := 0
	app.UseSystem(System(func(cmd *Commands) {
		frames++
		if frames == 3 {
			cmd.Quit()
		}
	}))

	app.Run()

	assert.Equal(t, 3, frames)
}
