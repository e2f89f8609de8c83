package tracker

import "strings"

// SeenSet records accessions already completed during the current shift.
type SeenSet struct {
	accessions map[string]struct{}
}

// NewSeenSet creates an empty set.
func NewSeenSet() *SeenSet {
	return &SeenSet{accessions: make(map[string]struct{})}
}

// Add records accession. Blank accessions are ignored.
func (s *SeenSet) Add(accession string) {
	accession = strings.TrimSpace(accession)
	if accession == "" {
		return
	}
	s.accessions[accession] = struct{}{}
}

// Contains reports whether accession was recorded.
func (s *SeenSet) Contains(accession string) bool {
	_, ok := s.accessions[strings.TrimSpace(accession)]
	return ok
}

// Len returns the number of recorded accessions.
func (s *SeenSet) Len() int {
	return len(s.accessions)
}

// Reset forgets every accession.
func (s *SeenSet) Reset() {
	clear(s.accessions)
}
