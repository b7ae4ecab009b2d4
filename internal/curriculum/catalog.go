package curriculum

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"sort"
)

// StepCount is the size of the fixed curriculum.
const StepCount = 33

//go:embed steps.json
var embeddedSteps []byte

// Catalog holds the loaded step templates. It is read-only after Load.
type Catalog struct {
	steps    []StepTemplate
	byNumber map[int]int
}

// Load reads step templates from path. An empty path uses the embedded
// catalog; a missing file falls back to generated placeholder steps.
func Load(path string) (*Catalog, error) {
	var raw []byte
	if path == "" {
		raw = embeddedSteps
	} else {
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return newCatalog(fallbackSteps()), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read steps file: %w", err)
		}
		raw = data
	}

	steps, err := decodeSteps(raw)
	if err != nil {
		return nil, err
	}
	return newCatalog(steps), nil
}

// MustDefault returns the embedded catalog and panics if it is malformed.
func MustDefault() *Catalog {
	c, err := Load("")
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalog builds a catalog from an explicit step list.
func NewCatalog(steps []StepTemplate) *Catalog {
	cp := make([]StepTemplate, len(steps))
	copy(cp, steps)
	return newCatalog(cp)
}

func decodeSteps(raw []byte) ([]StepTemplate, error) {
	var list []StepTemplate
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Steps []StepTemplate `json:"steps"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to parse steps: %w", err)
	}
	if wrapped.Steps == nil {
		return fallbackSteps(), nil
	}
	return wrapped.Steps, nil
}

func newCatalog(steps []StepTemplate) *Catalog {
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Number < steps[j].Number })

	c := &Catalog{steps: steps, byNumber: make(map[int]int, len(steps))}
	for i := range c.steps {
		s := &c.steps[i]
		if s.Resources == nil {
			s.Resources = []Resource{}
		}
		if s.ExternalLinks == nil {
			s.ExternalLinks = []Resource{}
		}
		if len(s.Resources) == 0 && len(s.ExternalLinks) == 0 {
			s.Resources = []Resource{autoResource(*s)}
		}
		c.byNumber[s.Number] = i
	}
	return c
}

func autoResource(s StepTemplate) Resource {
	desc := "Quick starting point, replace with your preferred resource."
	q := url.QueryEscape(s.Title + " app")
	return Resource{
		ID:          fmt.Sprintf("s%d_auto_yt", s.Number),
		Type:        ResourceVideo,
		Title:       "YouTube: " + s.Title,
		URL:         "https://www.youtube.com/results?search_query=" + q,
		Description: &desc,
	}
}

func fallbackSteps() []StepTemplate {
	ranges := []struct {
		phase    Phase
		from, to int
	}{
		{PhaseMVP, 1, 6},
		{PhaseDemo, 7, 15},
		{PhaseFeedback, 16, 23},
		{PhaseMonetization, 24, 27},
		{PhaseScale, 28, 33},
	}

	steps := make([]StepTemplate, 0, StepCount)
	for _, r := range ranges {
		for n := r.from; n <= r.to; n++ {
			steps = append(steps, StepTemplate{
				Number:      n,
				Title:       fmt.Sprintf("Step %d", n),
				Description: "Template not loaded yet. Provide a steps.json file.",
				Phase:       r.phase,
			})
		}
	}
	return steps
}

// Steps returns a copy of the templates ordered by number.
func (c *Catalog) Steps() []StepTemplate {
	out := make([]StepTemplate, len(c.steps))
	copy(out, c.steps)
	return out
}

// Step looks up a template by its number.
func (c *Catalog) Step(number int) (StepTemplate, bool) {
	i, ok := c.byNumber[number]
	if !ok {
		return StepTemplate{}, false
	}
	return c.steps[i], true
}

func (c *Catalog) Len() int {
	return len(c.steps)
}
