package ccd

// Stats aggregates narrow-phase counters for one owner. The original
// code kept these as process-wide globals; here every Surface owns one
// and threads it through the pipeline. A nil *Stats is valid and counts
// nothing.
type Stats struct {
	// Exact4DTests counts continuous-collision root checks performed.
	Exact4DTests int
	// Filtered4DTests counts continuous-collision queries answered,
	// including those culled before any root check.
	Filtered4DTests int
	// ParallelCases counts continuous queries whose coplanarity
	// function degenerated (near-parallel motion).
	ParallelCases int
}

func (s *Stats) countExact() {
	if s != nil {
		s.Exact4DTests++
	}
}

func (s *Stats) countFiltered() {
	if s != nil {
		s.Filtered4DTests++
	}
}

func (s *Stats) countParallel() {
	if s != nil {
		s.ParallelCases++
	}
}

// Reset zeroes all counters
func (s *Stats) Reset() {
	if s != nil {
		*s = Stats{}
	}
}
