package helio

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// WindowModule opens the application window. Must be installed before the
// backend module, which wraps the window into a GPU surface.
type WindowModule struct {
	Width  int
	Height int
	Title  string
}

// WindowState is the window resource. Systems read the size; the backend
// module consumes the glfw handle for surface creation.
type WindowState struct {
	Window *glfw.Window
	Width  int
	Height int
}

func (mod WindowModule) Install(app *App, cmd *Commands) {
	// glfw requires the main thread for window and event handling.
	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		panic(err)
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // no OpenGL context, wgpu owns the surface
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(mod.Width, mod.Height, mod.Title, nil, nil)
	if err != nil {
		panic(err)
	}

	cmd.AddResources(&WindowState{
		Window: win,
		Width:  mod.Width,
		Height: mod.Height,
	})
	app.UseSystem(System(windowEventsSystem).InStage(Prelude))
	app.OnShutdown(func() {
		win.Destroy()
		glfw.Terminate()
	})
}

func windowEventsSystem(w *WindowState, cmd *Commands) {
	glfw.PollEvents()
	if w.Window.ShouldClose() {
		cmd.Quit()
	}
}
