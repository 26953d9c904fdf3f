package devices

// ColumnSet is the ordered set of attribute names seen during a run.
// names are only ever appended.
type ColumnSet struct {
	names []string
	index map[string]struct{}
}

// NewColumnSet returns a set seeded with MandatoryKeys followed by extra.
func NewColumnSet(extra ...string) *ColumnSet {
	s := &ColumnSet{index: map[string]struct{}{}}
	s.Add(MandatoryKeys...)
	s.Add(extra...)
	return s
}

// Add appends the names that aren't in the set yet and reports how many
// were new.
func (s *ColumnSet) Add(names ...string) int {
	if s.index == nil {
		s.index = map[string]struct{}{}
	}
	added := 0
	for _, n := range names {
		if _, ok := s.index[n]; ok {
			continue
		}
		s.index[n] = struct{}{}
		s.names = append(s.names, n)
		added++
	}
	return added
}

func (s *ColumnSet) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (s *ColumnSet) Len() int {
	return len(s.names)
}

// Names returns a copy of the set in insertion order.
func (s *ColumnSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Union returns base unchanged (repeated or blank names included) followed
// by every name of the set that base doesn't have, base is not modified.
func (s *ColumnSet) Union(base []string) []string {
	out := make([]string, len(base), len(base)+len(s.names))
	copy(out, base)
	seen := make(map[string]struct{}, len(base)+len(s.names))
	for _, n := range base {
		seen[n] = struct{}{}
	}
	for _, n := range s.names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
