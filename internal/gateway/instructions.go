package gateway

import "petquest.ai/internal/protocol"

func Burn(owner string, amount uint64) protocol.Instruction {
	return protocol.Instruction{Contract: protocol.ContractLedger, Kind: protocol.InstrBurnFrom, Account: owner, Amount: amount}
}

func Mint(recipient string, amount uint64) protocol.Instruction {
	return protocol.Instruction{Contract: protocol.ContractLedger, Kind: protocol.InstrMint, Account: recipient, Amount: amount}
}

func MintNft(tokenID, owner string) protocol.Instruction {
	return protocol.Instruction{Contract: protocol.ContractRegistry, Kind: protocol.InstrMintNft, Account: owner, TokenID: tokenID}
}
