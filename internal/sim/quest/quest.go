// Package quest implements the per-address quest state machine: status derivation,
// outcome and loot rules, generation and the reroll applied after a claim.
package quest

import (
	"strings"
	"time"

	"petquest.ai/internal/sim/stats"
)

const (
	ExploreTime  = 30 * time.Second
	CooldownTime = 60 * time.Second
)

// Type is one of the four fixed trials.
type Type string

const (
	TrialOfResilience Type = "Trial Of Resilience"
	TrialOfTitans     Type = "Trial Of Titans"
	TrialOfEndurance  Type = "Trial Of Endurance"
	TrialOfWisdom     Type = "Trial Of Wisdom"
)

// Types lists the trials in generation order.
var Types = []Type{TrialOfResilience, TrialOfEndurance, TrialOfTitans, TrialOfWisdom}

// ParseType maps text to a Type. Unrecognized text yields Trial Of Titans and ok=false.
func ParseType(s string) (Type, bool) {
	switch Type(strings.TrimSpace(s)) {
	case TrialOfResilience:
		return TrialOfResilience, true
	case TrialOfTitans:
		return TrialOfTitans, true
	case TrialOfEndurance:
		return TrialOfEndurance, true
	case TrialOfWisdom:
		return TrialOfWisdom, true
	default:
		return TrialOfTitans, false
	}
}

// Governs returns the stat a trial tests.
func (t Type) Governs() stats.Stat {
	switch t {
	case TrialOfResilience:
		return stats.Health
	case TrialOfEndurance:
		return stats.Stamina
	case TrialOfWisdom:
		return stats.Intelligence
	default:
		return stats.Strength
	}
}

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusClaimable  Status = "claimable"
	StatusOnCooldown Status = "on_cooldown"
	StatusAvailable  Status = "available"
)

type Outcome string

const (
	Fail            Outcome = "Fail"
	Pass            Outcome = "Pass"
	ExceptionalPass Outcome = "Exceptional Pass"
)

// Quest is the mutable per-address record for one trial.
type Quest struct {
	PetID               *string    `json:"pet_id" msgpack:"pet_id"`
	Type                Type       `json:"quest_type" msgpack:"quest_type"`
	AwaitingClaiming    bool       `json:"awaiting_claiming" msgpack:"awaiting_claiming"`
	FinishedExploring   *time.Time `json:"finished_exploring" msgpack:"finished_exploring"`
	FinishedCooldown    *time.Time `json:"finished_cooldown" msgpack:"finished_cooldown"`
	BaseLoot            uint64     `json:"base_loot" msgpack:"base_loot"`
	Difficulty          uint64     `json:"difficulty" msgpack:"difficulty"`
	DifficultyIncrement uint64     `json:"difficulty_increment" msgpack:"difficulty_increment"`
}

// Clone returns a deep copy, used for the snapshot stored on a pet.
func (q Quest) Clone() Quest {
	c := q
	if q.PetID != nil {
		id := *q.PetID
		c.PetID = &id
	}
	if q.FinishedExploring != nil {
		t := *q.FinishedExploring
		c.FinishedExploring = &t
	}
	if q.FinishedCooldown != nil {
		t := *q.FinishedCooldown
		c.FinishedCooldown = &t
	}
	return c
}

// Status derives the state of q at now. Earlier rules take precedence.
func (q Quest) Status(now time.Time) Status {
	if q.FinishedExploring != nil && q.FinishedExploring.After(now) {
		return StatusInProgress
	}
	if q.FinishedExploring != nil && q.AwaitingClaiming {
		return StatusClaimable
	}
	if q.FinishedCooldown != nil && q.FinishedCooldown.After(now) {
		return StatusOnCooldown
	}
	return StatusAvailable
}

// History is one append-only record of a claimed quest.
type History struct {
	PetID         string    `json:"pet_id" msgpack:"pet_id"`
	QuestType     Type      `json:"quest_type" msgpack:"quest_type"`
	TimeStarted   time.Time `json:"time_started" msgpack:"time_started"`
	TimeEnded     time.Time `json:"time_ended" msgpack:"time_ended"`
	LootCollected uint64    `json:"loot_collected" msgpack:"loot_collected"`
	Outcome       Outcome   `json:"outcome" msgpack:"outcome"`
}
