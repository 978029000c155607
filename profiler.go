package nge

import "time"

// Profiler accumulates per-stage render timings between reports.
type Profiler struct {
	ExtractTime time.Duration
	RenderTime  time.Duration
	Frames      uint64
}

func (p *Profiler) Reset() {
	p.ExtractTime = 0
	p.RenderTime = 0
	p.Frames = 0
}

const profilerReportFrames = 600

// report logs averages at debug level every profilerReportFrames frames.
func (p *Profiler) report(logger Logger) {
	if p.Frames < profilerReportFrames {
		return
	}
	if logger.DebugEnabled() {
		n := time.Duration(p.Frames)
		logger.Debugf("Frame timings over %d frames: extract %v, render %v", p.Frames, p.ExtractTime/n, p.RenderTime/n)
	}
	p.Reset()
}
