package helio

import (
	"time"
)

// Time tracks wall-clock frame timing for systems that advance per-frame
// state.
type Time struct {
	Now time.Time
	Dt  time.Duration
}

type TimeModule struct{}

func (m TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{Now: time.Now()})
	app.UseSystem(System(timeSystem).InStage(Prelude))
}

func timeSystem(t *Time) {
	now := time.Now()
	t.Dt = now.Sub(t.Now)
	t.Now = now
}
