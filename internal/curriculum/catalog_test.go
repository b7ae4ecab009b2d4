package curriculum

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StepCount, c.Len())

	steps := c.Steps()
	for i, s := range steps {
		assert.Equal(t, i+1, s.Number)
		_, ok := PhaseIndex(s.Phase)
		assert.True(t, ok, "step %d has unknown phase %q", s.Number, s.Phase)
		assert.NotEmpty(t, s.Resources)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	require.Equal(t, StepCount, c.Len())

	first, ok := c.Step(1)
	require.True(t, ok)
	assert.Equal(t, PhaseMVP, first.Phase)
	assert.Equal(t, "Step 1", first.Title)

	s15, _ := c.Step(15)
	assert.Equal(t, PhaseDemo, s15.Phase)
	s24, _ := c.Step(24)
	assert.Equal(t, PhaseMonetization, s24.Phase)
	s33, _ := c.Step(33)
	assert.Equal(t, PhaseScale, s33.Phase)
}

func TestLoadArrayFileAddsAutoResource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.json")
	body := `[{"number":2,"title":"Ship it","description":"d","phase":"Phase 1: MVP Launch"},
	          {"number":1,"title":"Plan","description":"d","phase":"Phase 1: MVP Launch",
	           "resources":[{"id":"r","type":"doc","title":"t","url":"https://x"}]}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	steps := c.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].Number)
	assert.Equal(t, "r", steps[0].Resources[0].ID)

	auto := steps[1].Resources
	require.Len(t, auto, 1)
	assert.Equal(t, "s2_auto_yt", auto[0].ID)
	assert.Equal(t, ResourceVideo, auto[0].Type)
	assert.Equal(t, "YouTube: Ship it", auto[0].Title)
	assert.Equal(t, "https://www.youtube.com/results?search_query=Ship+it+app", auto[0].URL)
	assert.NotNil(t, steps[1].ExternalLinks)
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steps.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestStepsReturnsCopy(t *testing.T) {
	c := MustDefault()
	steps := c.Steps()
	steps[0].Title = "mutated"

	again, _ := c.Step(1)
	assert.NotEqual(t, "mutated", again.Title)
}

func TestPhaseIndex(t *testing.T) {
	i, ok := PhaseIndex(PhaseFeedback)
	assert.True(t, ok)
	assert.Equal(t, 2, i)

	_, ok = PhaseIndex(Phase("Phase 6: Exit"))
	assert.False(t, ok)
	assert.Len(t, Phases(), 5)
}
