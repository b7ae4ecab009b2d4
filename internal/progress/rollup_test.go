package progress

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"vibe-tracker/tracker-backend/internal/curriculum"
)

func step(n int, phase curriculum.Phase) curriculum.StepTemplate {
	return curriculum.StepTemplate{Number: n, Title: fmt.Sprintf("Step %d", n), Phase: phase}
}

func TestGroupByPhaseCanonicalOrder(t *testing.T) {
	steps := []curriculum.StepTemplate{
		step(10, curriculum.PhaseScale),
		step(3, curriculum.PhaseMVP),
		step(7, curriculum.Phase("Phase 9: Mystery")),
		step(1, curriculum.PhaseMVP),
		step(5, curriculum.PhaseFeedback),
	}

	groups := GroupByPhase(steps)
	require.Len(t, groups, 3)

	assert.Equal(t, curriculum.PhaseMVP, groups[0].Phase)
	assert.Equal(t, []int{3, 1}, numbers(groups[0].Steps))
	assert.Equal(t, curriculum.PhaseFeedback, groups[1].Phase)
	assert.Equal(t, curriculum.PhaseScale, groups[2].Phase)
}

func TestGroupByPhaseEmpty(t *testing.T) {
	assert.Empty(t, GroupByPhase(nil))
	assert.Empty(t, Rollup(nil, nil))
}

func TestPhasePercent(t *testing.T) {
	steps := []curriculum.StepTemplate{
		step(1, curriculum.PhaseMVP),
		step(2, curriculum.PhaseMVP),
		step(3, curriculum.PhaseMVP),
	}

	tests := []struct {
		name     string
		records  []StepProgress
		expected int
	}{
		{"mixed", []StepProgress{{StepNumber: 1, ProgressPercent: 0}, {StepNumber: 2, ProgressPercent: 100}, {StepNumber: 3, ProgressPercent: 50}}, 50},
		{"missing counts as zero", []StepProgress{{StepNumber: 2, ProgressPercent: 100}}, 33},
		{"rounds down below half", []StepProgress{{StepNumber: 1, ProgressPercent: 1}, {StepNumber: 2, ProgressPercent: 0}, {StepNumber: 3, ProgressPercent: 0}}, 0},
		{"two thirds", []StepProgress{{StepNumber: 1, ProgressPercent: 100}, {StepNumber: 2, ProgressPercent: 100}}, 67},
		{"out of range tolerated", []StepProgress{{StepNumber: 1, ProgressPercent: 150}, {StepNumber: 2, ProgressPercent: 150}, {StepNumber: 3, ProgressPercent: 150}}, 150},
		{"completed below full", []StepProgress{{StepNumber: 1, Status: StatusCompleted, ProgressPercent: 40}}, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, PhasePercent(steps, IndexByStep(tt.records)))
		})
	}

	assert.Equal(t, 0, PhasePercent(nil, nil))
}

func TestMeanPercentHalfUp(t *testing.T) {
	assert.Equal(t, 1, MeanPercent([]int{1, 2, 0, 1}))
	assert.Equal(t, 3, MeanPercent([]int{2, 3}))
	assert.Equal(t, 0, MeanPercent(nil))
}

func TestRollupUsesDefaultForMissing(t *testing.T) {
	steps := []curriculum.StepTemplate{step(1, curriculum.PhaseMVP), step(2, curriculum.PhaseDemo)}
	sums := Rollup(steps, []StepProgress{{StepNumber: 2, ProgressPercent: 80}})

	require.Len(t, sums, 2)
	assert.Equal(t, 0, sums[0].Percent)
	assert.Equal(t, 80, sums[1].Percent)
}

func TestClampBar(t *testing.T) {
	assert.Equal(t, 0, ClampBar(-5))
	assert.Equal(t, 42, ClampBar(42))
	assert.Equal(t, 100, ClampBar(130))
}

func TestGroupByPhaseProperties(t *testing.T) {
	labels := append(curriculum.Phases(), "Phase 0: Unknown", "")

	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 40).Draw(rt, "n")
		steps := make([]curriculum.StepTemplate, n)
		for i := range steps {
			steps[i] = step(i+1, rapid.SampledFrom(labels).Draw(rt, "phase"))
		}

		groups := GroupByPhase(steps)

		lastIdx := -1
		total := 0
		for _, g := range groups {
			idx, ok := curriculum.PhaseIndex(g.Phase)
			if !ok {
				rt.Fatalf("unknown phase %q emitted", g.Phase)
			}
			if idx <= lastIdx {
				rt.Fatalf("phase %q out of canonical order", g.Phase)
			}
			lastIdx = idx
			if len(g.Steps) == 0 {
				rt.Fatalf("empty bucket for %q", g.Phase)
			}
			for i := 1; i < len(g.Steps); i++ {
				if g.Steps[i-1].Number >= g.Steps[i].Number {
					rt.Fatalf("input order not preserved in %q", g.Phase)
				}
			}
			total += len(g.Steps)
		}

		known := 0
		for _, s := range steps {
			if _, ok := curriculum.PhaseIndex(s.Phase); ok {
				known++
			}
		}
		if total != known {
			rt.Fatalf("grouped %d steps, want %d", total, known)
		}
	})
}

func TestPhasePercentWithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 33).Draw(rt, "n")
		steps := make([]curriculum.StepTemplate, n)
		records := make([]StepProgress, 0, n)
		for i := range steps {
			steps[i] = step(i+1, curriculum.PhaseMVP)
			if rapid.Bool().Draw(rt, "has_record") {
				records = append(records, StepProgress{StepNumber: i + 1, ProgressPercent: rapid.IntRange(0, 100).Draw(rt, "pct")})
			}
		}
		got := PhasePercent(steps, IndexByStep(records))
		if got < 0 || got > 100 {
			rt.Fatalf("percent %d out of range", got)
		}
	})
}

func numbers(steps []curriculum.StepTemplate) []int {
	out := make([]int, len(steps))
	for i, s := range steps {
		out[i] = s.Number
	}
	return out
}
