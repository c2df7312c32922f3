package cache

import (
	"math/rand"
	"testing"
)

func TestAllPolicyAlwaysAllocates(t *testing.T) {
	p := AllPolicy{}
	if !p.ShouldAllocate(0, 0, 0, false) {
		t.Error("AllPolicy must always allocate")
	}
}

func TestNonePolicyNeverAllocates(t *testing.T) {
	p := NonePolicy{}
	if p.ShouldAllocate(0, 99, 99, true) {
		t.Error("NonePolicy must never allocate")
	}
}

func TestInstOnlyPolicy(t *testing.T) {
	p := InstOnlyPolicy{}
	if !p.ShouldAllocate(0, 0, 0, true) {
		t.Error("InstOnlyPolicy must allocate instruction lines")
	}
	if p.ShouldAllocate(0, 5, 5, false) {
		t.Error("InstOnlyPolicy must not allocate data lines")
	}
}

func TestReadThresholdPolicy(t *testing.T) {
	p := ReadThresholdPolicy{T: 3}
	if p.ShouldAllocate(0, 2, 0, false) {
		t.Error("should not allocate below threshold")
	}
	if !p.ShouldAllocate(0, 3, 0, false) {
		t.Error("should allocate at threshold")
	}
}

func TestWriteThresholdPolicy(t *testing.T) {
	p := WriteThresholdPolicy{T: 2}
	if !p.ShouldAllocate(0, 0, 2, false) {
		t.Error("should allocate at or below threshold")
	}
	if p.ShouldAllocate(0, 0, 3, false) {
		t.Error("should not allocate above threshold")
	}
}

func TestRandomPolicyBounds(t *testing.T) {
	always := &RandomPolicy{P: 100}
	always.setRng(newTestRand(1))
	for i := 0; i < 20; i++ {
		if !always.ShouldAllocate(0, 0, 0, false) {
			t.Fatal("P=100 must always allocate")
		}
	}

	never := &RandomPolicy{P: 0}
	never.setRng(newTestRand(1))
	for i := 0; i < 20; i++ {
		if never.ShouldAllocate(0, 0, 0, false) {
			t.Fatal("P=0 must never allocate")
		}
	}
}

func TestBloomPredictsDeadAfterAllBitsSet(t *testing.T) {
	const lineBits = 6
	b := NewBloomPolicy(2048, 4, 100, false, false, lineBits, newTestRand(1))

	addr := uint64(0)
	if !b.ShouldAllocate(addr, 0, 0, false) {
		t.Fatal("unseen line should be predicted live (allocate)")
	}
	b.OnEvict(addr, 0, 1) // dirty eviction, sets H bits for this line
	if b.ShouldAllocate(addr, 0, 0, false) {
		t.Error("line with all predictor bits set should be predicted dead (skip allocate)")
	}
}

func TestBloomDirtyOnlyGate(t *testing.T) {
	const lineBits = 6
	b := NewBloomPolicy(2048, 4, 100, false, true, lineBits, newTestRand(1))

	addr := uint64(128)
	b.OnEvict(addr, 5, 0) // clean eviction; DirtyOnly means this must not set bits
	if !b.ShouldAllocate(addr, 0, 0, false) {
		t.Error("DirtyOnly predictor must not mark a clean eviction as dead")
	}
}

func TestBloomCleanOnlyVeto(t *testing.T) {
	const lineBits = 6
	b := NewBloomPolicy(2048, 4, 100, true, false, lineBits, newTestRand(1))
	if b.ShouldAllocate(0, 0, 3, false) {
		t.Error("CleanOnly predictor must veto allocation for a dirty incoming line")
	}
}

func newTestRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
