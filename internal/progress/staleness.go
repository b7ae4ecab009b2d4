package progress

import (
	"sort"
	"time"
)

// StaleAfterDays is the idle threshold after which an unfinished project
// counts as stale.
const StaleAfterDays = 7

const day = 24 * time.Hour

// DaysIdle is the whole number of days between updatedAt and now.
func DaysIdle(updatedAt, now time.Time) int {
	d := now.Sub(updatedAt)
	if d < 0 {
		d = -d
	}
	return int(d / day)
}

// IsStale reports whether p has had no progress for a week and is unfinished.
func IsStale(p Project, now time.Time) bool {
	return DaysIdle(p.UpdatedAt, now) >= StaleAfterDays && p.OverallProgress < 100
}

// CountStale counts the stale projects in list.
func CountStale(list []Project, now time.Time) int {
	n := 0
	for _, p := range list {
		if IsStale(p, now) {
			n++
		}
	}
	return n
}

// SortByRecent returns a copy of list ordered by updated_at, newest first.
func SortByRecent(list []Project) []Project {
	out := append([]Project(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}
