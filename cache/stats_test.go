package cache

import "testing"

func TestStatsAccessAndMPKI(t *testing.T) {
	var s Stats
	s.Access(true)
	s.Access(true)
	s.Access(false)

	if s.Hits() != 2 || s.Misses() != 1 || s.Accesses() != 3 {
		t.Fatalf("hits=%d misses=%d accesses=%d", s.Hits(), s.Misses(), s.Accesses())
	}
	if got := s.MPKI(1000); got != 1.0 {
		t.Errorf("MPKI = %v, want 1.0", got)
	}
	if got := s.MPKI(0); got != 0 {
		t.Errorf("MPKI with 0 instructions = %v, want 0", got)
	}
}

func TestStatsEvictAndChildAccess(t *testing.T) {
	var s Stats
	s.Evict(true)
	s.Evict(false)
	s.ChildAccess(true)
	s.ChildAccess(false)

	if s.CleanEvicts() != 1 || s.Writebacks() != 1 {
		t.Fatalf("cleanEvicts=%d writebacks=%d", s.CleanEvicts(), s.Writebacks())
	}
	if s.ChildHits() != 1 || s.ChildMisses() != 1 {
		t.Fatalf("childHits=%d childMisses=%d", s.ChildHits(), s.ChildMisses())
	}
}

func TestStatsResetPreservesNothing(t *testing.T) {
	var s Stats
	s.Access(true)
	s.Evict(false)
	s.Reset()

	if s.Hits() != 0 || s.Misses() != 0 || s.Writebacks() != 0 {
		t.Error("Reset must zero all counters")
	}
}
