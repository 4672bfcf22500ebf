package protocol

import "encoding/json"

const Version = "1.0"

// Execute request types.
const (
	TypeMintPet       = "MINT_PET"
	TypeReleasePet    = "RELEASE_PET"
	TypeUpgradeStat   = "UPGRADE_STAT"
	TypeStartQuest    = "START_QUEST"
	TypeClaimQuest    = "CLAIM_QUEST"
	TypeProposeBattle = "PROPOSE_BATTLE"
	TypeAcceptBattle  = "ACCEPT_BATTLE"
	TypeDeclineBattle = "DECLINE_BATTLE"
	TypeCancelBattle  = "CANCEL_BATTLE"
	TypeClaimBattle   = "CLAIM_BATTLE"
)

// Query request types.
const (
	TypeAllPets        = "ALL_PETS"
	TypeAllBalances    = "ALL_BALANCES"
	TypeMyPets         = "MY_PETS"
	TypeMyBalance      = "MY_BALANCE"
	TypeMyQuests       = "MY_QUESTS"
	TypeMyQuestHistory = "MY_QUEST_HISTORY"
	TypeMyBattles      = "MY_BATTLES"
)

var queryTypes = map[string]struct{}{
	TypeAllPets:        {},
	TypeAllBalances:    {},
	TypeMyPets:         {},
	TypeMyBalance:      {},
	TypeMyQuests:       {},
	TypeMyQuestHistory: {},
	TypeMyBattles:      {},
}

// IsQuery reports whether t is a read-only request type.
func IsQuery(t string) bool {
	_, ok := queryTypes[t]
	return ok
}

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
