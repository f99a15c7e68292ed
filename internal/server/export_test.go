package server

// SetPicker overrides the random choice of QA outcome.
func (s *Server) SetPicker(pick func(n int) int) {
	s.pick = pick
}

// QAOutcomeIndex returns the position of the named QA outcome, or -1.
func QAOutcomeIndex(name string) int {
	for i, o := range qaOutcomes {
		if o.name == name {
			return i
		}
	}
	return -1
}
