package progress

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimeField is a tri-state timestamp: absent, set, or explicitly cleared.
type TimeField struct {
	Present bool
	Value   *time.Time
}

// SetTime returns a present field holding t.
func SetTime(t time.Time) TimeField {
	return TimeField{Present: true, Value: &t}
}

// ClearedTime returns a present field with no value.
func ClearedTime() TimeField {
	return TimeField{Present: true}
}

func (f TimeField) Cleared() bool {
	return f.Present && f.Value == nil
}

// Patch holds only the fields a user edit changed.
type Patch struct {
	Status          *Status
	ProgressPercent *int
	Notes           *string
	CompletedAt     TimeField
}

func (p Patch) Empty() bool {
	return p.Status == nil && p.ProgressPercent == nil && p.Notes == nil && !p.CompletedAt.Present
}

type patchWire struct {
	Status          *Status          `json:"status,omitempty"`
	ProgressPercent *int             `json:"progress_percent,omitempty"`
	Notes           *string          `json:"notes,omitempty"`
	CompletedAt     *json.RawMessage `json:"completed_at,omitempty"`
}

var jsonNull = json.RawMessage("null")

func (p Patch) MarshalJSON() ([]byte, error) {
	w := patchWire{
		Status:          p.Status,
		ProgressPercent: p.ProgressPercent,
		Notes:           p.Notes,
	}
	if p.CompletedAt.Present {
		raw := jsonNull
		if p.CompletedAt.Value != nil {
			b, err := json.Marshal(p.CompletedAt.Value.UTC())
			if err != nil {
				return nil, err
			}
			raw = b
		}
		w.CompletedAt = &raw
	}
	return json.Marshal(w)
}

func (p *Patch) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var out Patch
	if raw, ok := fields["status"]; ok && string(raw) != "null" {
		var s Status
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		out.Status = &s
	}
	if raw, ok := fields["progress_percent"]; ok && string(raw) != "null" {
		var n int
		if err := json.Unmarshal(raw, &n); err != nil {
			return fmt.Errorf("progress_percent: %w", err)
		}
		out.ProgressPercent = &n
	}
	if raw, ok := fields["notes"]; ok && string(raw) != "null" {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("notes: %w", err)
		}
		out.Notes = &s
	}
	if raw, ok := fields["completed_at"]; ok {
		out.CompletedAt.Present = true
		if string(raw) != "null" {
			var t time.Time
			if err := json.Unmarshal(raw, &t); err != nil {
				return fmt.Errorf("completed_at: %w", err)
			}
			out.CompletedAt.Value = &t
		}
	}

	*p = out
	return nil
}

// DragPercent is the patch produced by moving the percent slider.
func DragPercent(percent int) Patch {
	status := StatusInProgress
	if percent >= 100 {
		status = StatusCompleted
	}
	return Patch{Status: &status, ProgressPercent: &percent}
}

// SelectStatus changes only the status.
func SelectStatus(s Status) Patch {
	return Patch{Status: &s}
}

// MarkComplete finishes the step at now.
func MarkComplete(now time.Time) Patch {
	status := StatusCompleted
	percent := 100
	return Patch{Status: &status, ProgressPercent: &percent, CompletedAt: SetTime(now.UTC())}
}

// Reset returns the step to its initial state and clears completed_at.
func Reset() Patch {
	status := StatusNotStarted
	percent := 0
	return Patch{Status: &status, ProgressPercent: &percent, CompletedAt: ClearedTime()}
}

// EditNotes replaces the step notes.
func EditNotes(text string) Patch {
	return Patch{Notes: &text}
}

// Apply merges patch over existing, field by field.
func Apply(existing StepProgress, patch Patch) StepProgress {
	out := existing.clone()
	if patch.Status != nil {
		out.Status = *patch.Status
	}
	if patch.ProgressPercent != nil {
		out.ProgressPercent = *patch.ProgressPercent
	}
	if patch.Notes != nil {
		out.Notes = *patch.Notes
	}
	if patch.CompletedAt.Present {
		if patch.CompletedAt.Value == nil {
			out.CompletedAt = nil
		} else {
			t := *patch.CompletedAt.Value
			out.CompletedAt = &t
		}
	}
	return out
}

// Normalize enforces the server-side rules on an incoming patch: the percent
// is clamped, a full percent implies completion when no status was sent, and
// completion without a timestamp is stamped with now.
func Normalize(patch Patch, now time.Time) Patch {
	out := patch
	if patch.ProgressPercent != nil {
		p := clamp(*patch.ProgressPercent)
		out.ProgressPercent = &p
		if p == 100 && patch.Status == nil {
			s := StatusCompleted
			out.Status = &s
		}
	}
	if out.Status != nil && *out.Status == StatusCompleted && out.CompletedAt.Value == nil {
		out.CompletedAt = SetTime(now.UTC())
	}
	return out
}
