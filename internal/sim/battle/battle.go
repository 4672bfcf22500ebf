package battle

import (
	"petquest.ai/internal/sim/stats"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
)

// Info is one wagered battle. Outcome is true when PetID won.
type Info struct {
	ID         uint64 `json:"battle_id" msgpack:"battle_id"`
	Initiator  string `json:"initiator" msgpack:"initiator"`
	PetID      string `json:"pet_id" msgpack:"pet_id"`
	OtherPetID string `json:"other_pet_id" msgpack:"other_pet_id"`
	Wager      uint64 `json:"wager" msgpack:"wager"`
	Status     Status `json:"status" msgpack:"status"`
	Outcome    *bool  `json:"outcome" msgpack:"outcome"`
}

// Resolve scores one point per stat where a is strictly greater than b, and the
// reverse for b. a wins only with strictly more points, so a full tie goes to b.
func Resolve(a, b stats.Set) bool {
	var pa, pb int
	for _, st := range stats.All {
		switch va, vb := a.Get(st), b.Get(st); {
		case va > vb:
			pa++
		case vb > va:
			pb++
		}
	}
	return pa > pb
}

// Participant reports whether petID is one side of b.
func (b Info) Participant(petID string) bool {
	return petID == b.PetID || petID == b.OtherPetID
}

// WinnerID returns the winning pet id once the battle is resolved.
func (b Info) WinnerID() (string, bool) {
	if b.Outcome == nil {
		return "", false
	}
	if *b.Outcome {
		return b.PetID, true
	}
	return b.OtherPetID, true
}
