package wikitext

// SliceSource is a LineSource backed by an in-memory slice of lines,
// used by tests throughout the pipeline in place of the real
// compressed-file iterator.
type SliceSource struct {
	lines [][]byte
	pos   int
}

// NewSliceSource wraps lines (each a raw JSON line) as a LineSource.
func NewSliceSource(lines ...string) *SliceSource {
	s := &SliceSource{lines: make([][]byte, len(lines))}
	for i, l := range lines {
		s.lines[i] = []byte(l)
	}
	return s
}

func (s *SliceSource) Next() ([]byte, bool, error) {
	if s.pos >= len(s.lines) {
		return nil, false, nil
	}
	line := s.lines[s.pos]
	s.pos++
	return line, true, nil
}

// Reset rewinds the source so it can be iterated again, matching the
// pipeline driver's need to re-stream the dump in pass 2 (§4.9).
func (s *SliceSource) Reset() {
	s.pos = 0
}
