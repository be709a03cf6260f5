package util

import "fmt"

// PipelineStage names one coarse stage of a pipeline run.
type PipelineStage string

const (
	StageCollect  PipelineStage = "collect"
	StageIngest   PipelineStage = "ingest"
	StageGraph    PipelineStage = "graph"
	StageRank     PipelineStage = "rank"
	StagePlan     PipelineStage = "plan"
	StagePersist  PipelineStage = "persist"
	StageComplete PipelineStage = "complete"
)

// stageWindows maps every stage to the [start, end) share of the overall run.
// Collection dominates wall clock time because it is provider bound.
var stageWindows = map[PipelineStage][2]float64{
	StageCollect:  {0.0, 0.5},
	StageIngest:   {0.5, 0.6},
	StageGraph:    {0.6, 0.75},
	StageRank:     {0.75, 0.85},
	StagePlan:     {0.85, 0.95},
	StagePersist:  {0.95, 1.0},
	StageComplete: {1.0, 1.0},
}

// ScaleProgress maps a stage-local progress value in [0,1] onto the overall
// run. Out of range inputs are clamped; unknown stages report 0.
func ScaleProgress(stage PipelineStage, local float64) float64 {
	w, ok := stageWindows[stage]
	if !ok {
		return 0
	}
	local = Clamp(local, 0, 1)
	return w[0] + (w[1]-w[0])*local
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// FormatPercent renders a progress value as "42%".
func FormatPercent(progress float64) string {
	return fmt.Sprintf("%d%%", int(Clamp(progress, 0, 1)*100))
}

// FormatHMS renders milliseconds as hh:mm:ss, used for worker log lines.
func FormatHMS(ms int64) string {
	secs := ms / 1000
	return fmt.Sprintf("%02d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
