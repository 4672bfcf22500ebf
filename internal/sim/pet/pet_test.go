package pet

import (
	"testing"

	"petquest.ai/internal/sim/randomness"
	"petquest.ai/internal/sim/stats"
)

func TestMint_Ranges(t *testing.T) {
	for seed := uint64(0); seed < 200; seed++ {
		p, err := Mint(FormatID(seed), randomness.New(seed), 20)
		if err != nil {
			t.Fatalf("mint: %v", err)
		}
		for _, st := range stats.All {
			cur, mx := p.Current.Get(st), p.Max.Get(st)
			if cur < 5 || cur > 8 {
				t.Fatalf("seed %d %s current %d", seed, st, cur)
			}
			if mx < 12 || mx > 20 {
				t.Fatalf("seed %d %s max %d", seed, st, mx)
			}
			if p.UpgradeCosts.Get(st) != cur*5 {
				t.Fatalf("seed %d %s cost %d", seed, st, p.UpgradeCosts.Get(st))
			}
		}
		if p.OnQuest != nil {
			t.Fatalf("new pet should not be questing")
		}
	}
}

func TestMint_Deterministic(t *testing.T) {
	a, _ := Mint("PET_0", randomness.New(77), 16)
	b, _ := Mint("PET_0", randomness.New(77), 16)
	if a.Current != b.Current || a.Max != b.Max {
		t.Fatalf("same seed gave different pets: %+v %+v", a, b)
	}
}

func TestMint_RejectsSmallMax(t *testing.T) {
	if _, err := Mint("PET_0", randomness.New(1), 11); err == nil {
		t.Fatalf("expected error for max_stats below 12")
	}
	if _, err := Mint("PET_0", randomness.New(1), 12); err != nil {
		t.Fatalf("max_stats 12 should be accepted: %v", err)
	}
}

func TestUpgrade(t *testing.T) {
	p := Pet{Current: stats.Set{Luck: 11}, Max: stats.Set{Luck: 12}}
	if UpgradeCost(p.Current, stats.Luck) != 55 {
		t.Fatalf("cost %d", UpgradeCost(p.Current, stats.Luck))
	}
	if !p.CanUpgrade(stats.Luck) {
		t.Fatalf("11/12 should be upgradable")
	}
	p.Upgrade(stats.Luck)
	if p.Current.Luck != 12 {
		t.Fatalf("upgrade must add exactly one, got %d", p.Current.Luck)
	}
	if p.CanUpgrade(stats.Luck) {
		t.Fatalf("12/12 is maxed")
	}
}

func TestIDs(t *testing.T) {
	if FormatID(0) != "PET_0" || FormatID(42) != "PET_42" {
		t.Fatalf("format")
	}
	if n, ok := ParseID("PET_42"); !ok || n != 42 {
		t.Fatalf("parse: %d %v", n, ok)
	}
	for _, bad := range []string{"", "PET_", "pet_1", "PET_x"} {
		if _, ok := ParseID(bad); ok {
			t.Fatalf("expected %q rejected", bad)
		}
	}
}
