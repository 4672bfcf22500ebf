package quest

import (
	"time"

	"petquest.ai/internal/sim/randomness"
	"petquest.ai/internal/sim/stats"
)

// Evaluate grades a pet's current stats against q.
func Evaluate(q Quest, current stats.Set) Outcome {
	stat := int64(current.Get(q.Type.Governs()))
	luckBonus := int64(current.Luck+1) / 2

	total := int64(q.Difficulty + 2*q.DifficultyIncrement)
	half := (total + 1) / 2
	margin := stat + luckBonus - total

	switch {
	case margin < 0:
		return Fail
	case margin < half:
		return Pass
	default:
		return ExceptionalPass
	}
}

// Loot is the reward table of a quest.
type Loot struct {
	Fail            uint64 `json:"fail"`
	Pass            uint64 `json:"pass"`
	ExceptionalPass uint64 `json:"exceptional_pass"`
}

func LootTable(q Quest) Loot {
	base := q.BaseLoot + q.Difficulty + q.DifficultyIncrement
	return Loot{
		Fail:            (base + 2) / 3,
		Pass:            base,
		ExceptionalPass: 2 * base,
	}
}

func (l Loot) For(o Outcome) uint64 {
	switch o {
	case Pass:
		return l.Pass
	case ExceptionalPass:
		return l.ExceptionalPass
	default:
		return l.Fail
	}
}

// Generate draws a fresh quest set in generation order.
func Generate(r *randomness.Rand) []Quest {
	out := make([]Quest, 0, len(Types))
	for _, t := range Types {
		out = append(out, Quest{
			Type:       t,
			BaseLoot:   r.Uint64Range(1, 5),
			Difficulty: r.Uint64Range(1, 3),
		})
	}
	return out
}

// Start sends petID exploring from now.
func Start(q *Quest, petID string, now time.Time) {
	id := petID
	explored := now.Add(ExploreTime)
	cooled := now.Add(CooldownTime)
	q.PetID = &id
	q.FinishedExploring = &explored
	q.FinishedCooldown = &cooled
	q.AwaitingClaiming = true
}

// HistoryEntry records a claim of q by petID with the collected loot.
func HistoryEntry(q Quest, petID string, loot uint64, o Outcome) History {
	h := History{
		PetID:         petID,
		QuestType:     q.Type,
		LootCollected: loot,
		Outcome:       o,
	}
	if q.FinishedExploring != nil {
		h.TimeEnded = *q.FinishedExploring
		h.TimeStarted = q.FinishedExploring.Add(-ExploreTime)
	}
	return h
}

// Reroll resets q after a claim. The cooldown deadline is kept.
func Reroll(q *Quest, r *randomness.Rand, o Outcome) {
	q.BaseLoot = r.Uint64Range(1, 5)
	q.Difficulty = r.Uint64Range(1, 3)
	q.PetID = nil
	q.FinishedExploring = nil
	q.AwaitingClaiming = false
	switch o {
	case Pass:
		q.DifficultyIncrement += r.Uint64Range(0, 1)
	case ExceptionalPass:
		q.DifficultyIncrement += r.Uint64Range(1, 2)
	}
}

// Find returns the index of the quest of type t, or -1.
func Find(qs []Quest, t Type) int {
	for i := range qs {
		if qs[i].Type == t {
			return i
		}
	}
	return -1
}
