package progress

import "sync"

// ProjectStore is the flat list of projects shown on the dashboard. It is
// owned by whoever composes the views; it only supports read and replace.
type ProjectStore struct {
	mu       sync.RWMutex
	projects []Project
}

func NewProjectStore() *ProjectStore {
	return &ProjectStore{projects: []Project{}}
}

// Projects returns a copy of the stored list.
func (s *ProjectStore) Projects() []Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Project(nil), s.projects...)
}

// Replace swaps in a new list.
func (s *ProjectStore) Replace(list []Project) {
	cp := append([]Project(nil), list...)
	s.mu.Lock()
	s.projects = cp
	s.mu.Unlock()
}
