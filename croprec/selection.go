package croprec

// Selection is the set of crops the user ticked. Membership is what matters;
// insertion order is kept only so the wire payload is deterministic.
type Selection struct {
	order []string
	set   map[string]struct{}
}

// NewSelection returns an empty selection.
func NewSelection() *Selection {
	return &Selection{set: make(map[string]struct{})}
}

// Toggle adds crop when absent and removes it when present. It reports
// whether crop is selected afterwards.
func (s *Selection) Toggle(crop string) bool {
	if s.set == nil {
		s.set = make(map[string]struct{})
	}
	if _, ok := s.set[crop]; ok {
		delete(s.set, crop)
		for i, c := range s.order {
			if c == crop {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		return false
	}
	s.set[crop] = struct{}{}
	s.order = append(s.order, crop)
	return true
}

// Contains reports membership.
func (s *Selection) Contains(crop string) bool {
	_, ok := s.set[crop]
	return ok
}

// Len returns the number of selected crops.
func (s *Selection) Len() int {
	return len(s.order)
}

// Items returns a copy of the selected crops. The slice is never nil so it
// encodes as an empty JSON array.
func (s *Selection) Items() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
