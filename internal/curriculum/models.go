package curriculum

// Phase is one of the five fixed curriculum stages.
type Phase string

const (
	PhaseMVP          Phase = "Phase 1: MVP Launch"
	PhaseDemo         Phase = "Phase 2: Demo & Hooks"
	PhaseFeedback     Phase = "Phase 3: Feedback Loop"
	PhaseMonetization Phase = "Phase 4: Monetization"
	PhaseScale        Phase = "Phase 5: Scale & PMF"
)

var canonicalPhases = []Phase{
	PhaseMVP,
	PhaseDemo,
	PhaseFeedback,
	PhaseMonetization,
	PhaseScale,
}

// Phases returns the canonical phase order.
func Phases() []Phase {
	out := make([]Phase, len(canonicalPhases))
	copy(out, canonicalPhases)
	return out
}

// PhaseIndex reports the position of label in the canonical order.
func PhaseIndex(label Phase) (int, bool) {
	for i, p := range canonicalPhases {
		if p == label {
			return i, true
		}
	}
	return -1, false
}

type ResourceType string

const (
	ResourceDoc      ResourceType = "doc"
	ResourceVideo    ResourceType = "video"
	ResourceArticle  ResourceType = "article"
	ResourceTool     ResourceType = "tool"
	ResourceProvider ResourceType = "provider"
	ResourceOther    ResourceType = "other"
)

// Resource is a reference link attached to a step.
type Resource struct {
	ID          string       `json:"id"`
	Type        ResourceType `json:"type"`
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	Description *string      `json:"description,omitempty"`
}

// StepTemplate is an immutable curriculum entry.
type StepTemplate struct {
	Number        int        `json:"number"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Phase         Phase      `json:"phase"`
	Resources     []Resource `json:"resources"`
	ExternalLinks []Resource `json:"external_links"`
}
