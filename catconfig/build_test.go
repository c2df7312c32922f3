package catconfig

import "testing"

func TestBuildHierarchyFromDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.L1Trace = "trace.txt"
	cfg.Cores = 2

	h, err := BuildHierarchy(cfg)
	if err != nil {
		t.Fatalf("BuildHierarchy: %v", err)
	}
	if h.Leaf(0) == nil || h.Leaf(1) == nil {
		t.Fatal("expected two leaf caches")
	}
	if h.Mid() == nil || h.Root() == nil {
		t.Fatal("expected a mid and root cache")
	}
}

func TestBuildHierarchyPropagatesInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.L1Trace = "trace.txt"
	cfg.L2.Assoc = 3 // not a power of two
	if _, err := BuildHierarchy(cfg); err == nil {
		t.Fatal("expected an error for a non-power-of-two L2 assoc")
	}
}

func TestBuildHierarchyRejectsUnknownInsertPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.L1Trace = "trace.txt"
	cfg.L3.InsertPolicy = "bogus"
	if _, err := BuildHierarchy(cfg); err == nil {
		t.Fatal("expected an error for an unrecognized insert_policy")
	}
}
