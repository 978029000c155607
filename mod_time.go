package nge

import (
	"time"
)

type Time struct {
	Time    time.Time
	Dt      time.Duration
	Elapsed time.Duration
	Frame   uint64

	fixedDt time.Duration
}

// DeltaSeconds is the length of the current tick in seconds.
func (t *Time) DeltaSeconds() float32 {
	return float32(t.Dt.Seconds())
}

// TimeModule advances Time once per tick. A non-zero FixedDt makes every
// tick exactly that long, which keeps simulations reproducible.
type TimeModule struct {
	FixedDt time.Duration
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&Time{
		Time:    time.Now(),
		Dt:      0,
		fixedDt: mod.FixedDt,
	})
	app.UseSystem(
		System(timeSystem).
			Named("time_system").
			InStage(Prelude),
	)
}

func timeSystem(timeResource *Time) {
	now := time.Now()

	if timeResource.fixedDt > 0 {
		timeResource.Dt = timeResource.fixedDt
	} else {
		timeResource.Dt = now.Sub(timeResource.Time)
	}
	timeResource.Time = now
	timeResource.Elapsed += timeResource.Dt
	timeResource.Frame++
}
