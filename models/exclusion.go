package models

// ExclusionSet is the session-scoped, ordered set of user ids already shown,
// declined, or saved. It grows monotonically within a browsing session and is
// reset only by explicit caller action. Not safe for concurrent use; one
// browsing session owns one set.
type ExclusionSet struct {
	order []int64
	seen  map[int64]struct{}
}

// NewExclusionSet builds a set from the given ids, preserving first-seen order
func NewExclusionSet(ids ...int64) *ExclusionSet {
	s := &ExclusionSet{seen: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add records an id; returns false if it was already present
func (s *ExclusionSet) Add(id int64) bool {
	if s.seen == nil {
		s.seen = make(map[int64]struct{})
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	s.order = append(s.order, id)
	return true
}

func (s *ExclusionSet) Contains(id int64) bool {
	_, ok := s.seen[id]
	return ok
}

// IDs returns the ids in insertion order. The slice is a copy; callers cannot
// mutate the set through it.
func (s *ExclusionSet) IDs() []int64 {
	out := make([]int64, len(s.order))
	copy(out, s.order)
	return out
}

func (s *ExclusionSet) Len() int {
	return len(s.order)
}

// Reset clears the set (explicit new-session action)
func (s *ExclusionSet) Reset() {
	s.order = nil
	s.seen = make(map[int64]struct{})
}
