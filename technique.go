package helio

import (
	"fmt"
	"reflect"
)

// TechniqueTag marks which geometry render technique owns the opaque pass.
// Only one technique may be installed at a time.
type TechniqueTag struct {
	Name string
}

// ensureSingleTechnique enforces the single-technique invariant. Installing
// a second, different technique panics with a clear message.
func ensureSingleTechnique(app *App, name string) {
	if app == nil {
		panic("ensureSingleTechnique: app is nil")
	}
	t := reflect.TypeOf((*TechniqueTag)(nil)).Elem()
	if res, ok := app.resources[t]; ok {
		tag, ok := res.(*TechniqueTag)
		if !ok {
			panic("TechniqueTag resource present with unexpected type")
		}
		if tag.Name != name {
			app.Logger().Errorf("Multiple render techniques installed: %s and %s", tag.Name, name)
			panic(fmt.Sprintf("Multiple render techniques installed: %s and %s", tag.Name, name))
		}
		return
	}
	app.addResources(&TechniqueTag{Name: name})
}
