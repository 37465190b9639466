package cluster

import "sync"

// State maps group id to membership for the groups currently on screen. It is
// rebuilt from scratch on every recompute so it never holds entries for data
// that has been replaced.
type State struct {
	mu       sync.RWMutex
	entries  map[string]Group
	byMember map[Kind]map[string]string
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		entries:  make(map[string]Group),
		byMember: make(map[Kind]map[string]string),
	}
}

// Rebuild replaces the state with the given groups.
func (s *State) Rebuild(groups ...[]Group) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.entries)
	clear(s.byMember)
	for _, set := range groups {
		for _, g := range set {
			s.entries[g.ID] = g
			idx := s.byMember[g.Kind]
			if idx == nil {
				idx = make(map[string]string)
				s.byMember[g.Kind] = idx
			}
			for _, m := range g.Members {
				idx[m] = g.ID
			}
		}
	}
}

// Clear empties the state.
func (s *State) Clear() { s.Rebuild() }

// Size returns the number of groups, singletons included.
func (s *State) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get returns the group with the given id.
func (s *State) Get(id string) (Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.entries[id]
	return g, ok
}

// GroupOf returns the group containing the member of the given kind.
func (s *State) GroupOf(kind Kind, member string) (Group, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byMember[kind][member]
	if !ok {
		return Group{}, false
	}
	g, ok := s.entries[id]
	return g, ok
}
