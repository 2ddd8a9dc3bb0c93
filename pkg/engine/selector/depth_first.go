package selector

// DepthFirstSelector extends the most recent branch until it runs out of children, then
// resumes at its parent.
type DepthFirstSelector struct {
	expander Expander
	root     Branch
	started  bool
	stack    []Branch
}

func NewDepthFirst(expander Expander, root Branch) *DepthFirstSelector {
	return &DepthFirstSelector{expander: expander, root: root, stack: make([]Branch, 0, 64)}
}

func (s *DepthFirstSelector) Next() (Branch, bool, error) {
	if !s.started {
		s.started = true
		s.stack = append(s.stack, s.root)
		return s.root, true, nil
	}
	for len(s.stack) > 0 {
		top := s.stack[len(s.stack)-1]
		child, ok, err := s.expander.Expand(top)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			s.stack = s.stack[:len(s.stack)-1]
			s.expander.Release(top)
			continue
		}
		s.stack = append(s.stack, child)
		return child, true, nil
	}
	return nil, false, nil
}
