package battle

import "math"

type ClaimDecision string

const (
	ClaimUnresolved     ClaimDecision = "UNRESOLVED"
	ClaimNotParticipant ClaimDecision = "NOT_PARTICIPANT"
	ClaimAlreadyClaimed ClaimDecision = "ALREADY_CLAIMED"
	ClaimWin            ClaimDecision = "WIN"
	ClaimLoss           ClaimDecision = "LOSS"
)

type ClaimInput struct {
	Battle  Info
	PetID   string
	Indexed bool // battle id still listed under PetID
}

// DecideClaim decides what a claim by PetID against Battle yields.
func DecideClaim(in ClaimInput) ClaimDecision {
	if in.Battle.Outcome == nil {
		return ClaimUnresolved
	}
	if !in.Battle.Participant(in.PetID) {
		return ClaimNotParticipant
	}
	if !in.Indexed {
		return ClaimAlreadyClaimed
	}
	if w, _ := in.Battle.WinnerID(); w == in.PetID {
		return ClaimWin
	}
	return ClaimLoss
}

// MaxWager keeps the winner's 2×wager payout within uint64.
const MaxWager = math.MaxUint64 / 2

// Payout is the amount minted to the claimant for d. Wagers above MaxWager are
// rejected at proposal.
func Payout(d ClaimDecision, wager uint64) uint64 {
	if d == ClaimWin {
		return 2 * wager
	}
	return 0
}
