package pet

import (
	"fmt"
	"strconv"
	"strings"

	"petquest.ai/internal/sim/quest"
	"petquest.ai/internal/sim/randomness"
	"petquest.ai/internal/sim/stats"
)

const (
	MinStartStat = 5
	MaxStartStat = 8
	MinMaxStat   = 12

	CostPerPoint = 5
)

// Pet is the stored record of one pet. OnQuest is a copy taken when the quest started
// and is not refreshed by later changes to the live quest.
type Pet struct {
	ID           string       `json:"pet_id" msgpack:"pet_id"`
	OnQuest      *quest.Quest `json:"on_quest" msgpack:"on_quest"`
	Current      stats.Set    `json:"current" msgpack:"current"`
	Max          stats.Set    `json:"max" msgpack:"max"`
	UpgradeCosts stats.Set    `json:"upgrade_costs" msgpack:"upgrade_costs"`
}

func FormatID(n uint64) string { return "PET_" + strconv.FormatUint(n, 10) }

// ParseID returns the counter value encoded in a pet id.
func ParseID(id string) (uint64, bool) {
	rest, ok := strings.CutPrefix(id, "PET_")
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(rest, 10, 64)
	return n, err == nil
}

// Mint samples a new pet. All current values are drawn before the maxes.
func Mint(id string, r *randomness.Rand, maxStats int) (Pet, error) {
	if maxStats < MinMaxStat {
		return Pet{}, fmt.Errorf("max_stats %d below %d", maxStats, MinMaxStat)
	}
	p := Pet{ID: id}
	for _, st := range stats.All {
		p.Current.Set(st, r.IntRange(MinStartStat, MaxStartStat))
	}
	for _, st := range stats.All {
		p.Max.Set(st, r.IntRange(MinMaxStat, maxStats))
	}
	for _, st := range stats.All {
		p.UpgradeCosts.Set(st, UpgradeCost(p.Current, st))
	}
	return p, nil
}

// UpgradeCost is the token price of raising st by one from its current value.
func UpgradeCost(current stats.Set, st stats.Stat) int {
	return current.Get(st) * CostPerPoint
}

// CanUpgrade reports whether st is still below its cap.
func (p Pet) CanUpgrade(st stats.Stat) bool {
	return p.Current.Get(st) < p.Max.Get(st)
}

// Upgrade raises st by exactly one. Callers check CanUpgrade first.
func (p *Pet) Upgrade(st stats.Stat) {
	p.Current.Set(st, p.Current.Get(st)+1)
}
