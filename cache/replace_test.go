package cache

import "testing"

func TestLRUPreferInvalid(t *testing.T) {
	p := NewLRUPolicy()
	b0, b1 := newBlock(), newBlock()
	sv := &setView{blocks: []*Block{&b0, &b1}}
	b0.Tag = 5
	p.OnAccess(sv, 0)
	if got := p.PickVictim(sv); got != 1 {
		t.Errorf("PickVictim = %d, want 1 (invalid way)", got)
	}
}

func TestLRUEvictsLeastRecent(t *testing.T) {
	p := NewLRUPolicy()
	b0, b1 := newBlock(), newBlock()
	b0.Tag, b1.Tag = 1, 2
	sv := &setView{blocks: []*Block{&b0, &b1}}
	p.OnAccess(sv, 0)
	p.OnAccess(sv, 1)
	p.OnAccess(sv, 0) // way 0 is now most recent
	if got := p.PickVictim(sv); got != 1 {
		t.Errorf("PickVictim = %d, want 1 (least recently used)", got)
	}
}

func TestLFUEvictsMinCounterAndResets(t *testing.T) {
	p := NewLFUPolicy()
	b0, b1 := newBlock(), newBlock()
	b0.Tag, b1.Tag = 1, 2
	sv := &setView{blocks: []*Block{&b0, &b1}}
	p.OnAccess(sv, 0)
	p.OnAccess(sv, 0)
	p.OnAccess(sv, 1)

	victim := p.PickVictim(sv)
	if victim != 1 {
		t.Fatalf("PickVictim = %d, want 1 (lower counter)", victim)
	}
	if sv.blocks[1].Counter != 0 {
		t.Errorf("victim counter = %d, want reset to 0", sv.blocks[1].Counter)
	}
}

func TestLFUTieBreakLowestWay(t *testing.T) {
	p := NewLFUPolicy()
	b0, b1 := newBlock(), newBlock()
	b0.Tag, b1.Tag = 1, 2
	sv := &setView{blocks: []*Block{&b0, &b1}}
	p.OnAccess(sv, 0)
	p.OnAccess(sv, 1)
	if got := p.PickVictim(sv); got != 0 {
		t.Errorf("PickVictim = %d, want 0 (tie, lowest way)", got)
	}
}

func TestFIFOIgnoresAccessOrder(t *testing.T) {
	p := NewFIFOPolicy()
	b0, b1 := newBlock(), newBlock()
	b0.Tag, b1.Tag = 1, 2
	b0.Stamp = p.nextStamp() // way 0 allocated first
	b1.Stamp = p.nextStamp() // way 1 allocated second
	sv := &setView{blocks: []*Block{&b0, &b1}}

	// Repeated access to way 0 must not change eviction order: FIFO only
	// tracks allocation order.
	p.OnAccess(sv, 0)
	p.OnAccess(sv, 0)

	if got := p.PickVictim(sv); got != 0 {
		t.Errorf("PickVictim = %d, want 0 (oldest allocation, access-order-independent)", got)
	}
}
