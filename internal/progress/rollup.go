package progress

import (
	"math"

	"vibe-tracker/tracker-backend/internal/curriculum"
)

// PhaseGroup is one bucket of the grouped step view.
type PhaseGroup struct {
	Phase curriculum.Phase
	Steps []curriculum.StepTemplate
}

// PhaseSummary is a phase bucket with its rolled up percent.
type PhaseSummary struct {
	Phase   curriculum.Phase          `json:"phase"`
	Percent int                       `json:"percent"`
	Steps   []curriculum.StepTemplate `json:"steps"`
}

// GroupByPhase buckets steps by phase in canonical phase order. Input order
// is kept inside a bucket; phases with no steps are omitted and steps whose
// phase is not canonical are dropped.
func GroupByPhase(steps []curriculum.StepTemplate) []PhaseGroup {
	buckets := make(map[curriculum.Phase][]curriculum.StepTemplate)
	for _, s := range steps {
		if _, ok := curriculum.PhaseIndex(s.Phase); !ok {
			continue
		}
		buckets[s.Phase] = append(buckets[s.Phase], s)
	}

	groups := make([]PhaseGroup, 0, len(buckets))
	for _, phase := range curriculum.Phases() {
		if bucket, ok := buckets[phase]; ok {
			groups = append(groups, PhaseGroup{Phase: phase, Steps: bucket})
		}
	}
	return groups
}

// PhasePercent is the rounded mean percent over steps. Steps without a
// record count as zero.
func PhasePercent(steps []curriculum.StepTemplate, idx map[int]StepProgress) int {
	if len(steps) == 0 {
		return 0
	}
	percents := make([]int, len(steps))
	for i, s := range steps {
		if r, ok := idx[s.Number]; ok {
			percents[i] = r.ProgressPercent
		}
	}
	return MeanPercent(percents)
}

// MeanPercent rounds the arithmetic mean half up. An empty input is zero.
func MeanPercent(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sum := 0
	for _, v := range values {
		sum += v
	}
	return int(math.Floor(float64(sum)/float64(len(values)) + 0.5))
}

// Rollup groups steps and computes each phase percent.
func Rollup(steps []curriculum.StepTemplate, records []StepProgress) []PhaseSummary {
	idx := IndexByStep(records)
	groups := GroupByPhase(steps)
	out := make([]PhaseSummary, len(groups))
	for i, g := range groups {
		out[i] = PhaseSummary{
			Phase:   g.Phase,
			Percent: PhasePercent(g.Steps, idx),
			Steps:   g.Steps,
		}
	}
	return out
}

// ClampBar bounds a value for display as a progress bar width.
func ClampBar(percent int) int {
	return clamp(percent)
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
