package protocol

// Request is one host -> engine call. Caller is the address the authentication layer
// already verified; the permits are forwarded untouched to the registry and ledger.
type Request struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ID              string `json:"id,omitempty"`

	Caller     string `json:"caller"`
	Now        int64  `json:"now"` // unix seconds of the enclosing block
	PetPermit  string `json:"pet_permit,omitempty"`
	LootPermit string `json:"loot_permit,omitempty"`

	PetID      string  `json:"pet_id,omitempty"`
	OtherPetID string  `json:"other_pet_id,omitempty"`
	Recipient  string  `json:"recipient,omitempty"`
	Stat       string  `json:"stat,omitempty"`
	QuestType  string  `json:"quest_type,omitempty"`
	Wager      uint64  `json:"wager,omitempty"`
	BattleID   *uint64 `json:"battle_id,omitempty"`

	StartAfter string `json:"start_after,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// Response is the engine's answer. Instructions are executed by the host after the
// state transition has committed.
type Response struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	ID              string            `json:"id"`
	OK              bool              `json:"ok"`
	Code            string            `json:"code,omitempty"`
	Message         string            `json:"message,omitempty"`
	Attributes      map[string]string `json:"attributes,omitempty"`
	Instructions    []Instruction     `json:"instructions,omitempty"`
	Data            any               `json:"data,omitempty"`
}

// Instruction contracts.
const (
	ContractLedger   = "ledger"
	ContractRegistry = "registry"
)

// Instruction kinds.
const (
	InstrMint     = "mint"
	InstrBurnFrom = "burn_from"
	InstrMintNft  = "mint_nft"
)

// Instruction is a mutating call against an external contract.
type Instruction struct {
	Contract string `json:"contract"`
	Kind     string `json:"kind"`
	Account  string `json:"account"` // recipient for mints, owner for burns
	Amount   uint64 `json:"amount,omitempty"`
	TokenID  string `json:"token_id,omitempty"`
}
