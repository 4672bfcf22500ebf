package engine

import (
	"context"
	"strconv"

	"petquest.ai/internal/gateway"
	"petquest.ai/internal/protocol"
	"petquest.ai/internal/sim/battle"
	"petquest.ai/internal/sim/state"
)

func (e *Engine) proposeBattle(ctx context.Context, c *call) error {
	if err := requirePetID(c.req.PetID, "pet_id"); err != nil {
		return err
	}
	if err := requirePetID(c.req.OtherPetID, "other_pet_id"); err != nil {
		return err
	}
	if c.req.Wager > battle.MaxWager {
		return protocol.BadRequest("wager must be at most %d", uint64(battle.MaxWager))
	}
	if c.req.PetID == c.req.OtherPetID {
		return protocol.InvalidState("a pet cannot battle itself")
	}
	owner, err := e.gw.VerifyOwner(ctx, c.req.PetID, c.petCred())
	if err != nil {
		return err
	}
	if _, err := c.pet(c.req.PetID); err != nil {
		return err
	}
	if _, err := c.pet(c.req.OtherPetID); err != nil {
		return err
	}
	wager := c.req.Wager
	if _, err := e.gw.RequireBalance(ctx, c.lootCred(), wager); err != nil {
		return err
	}

	id, err := c.st.NextBattleID()
	if err != nil {
		return storeErr(err, "battle counter")
	}
	b := battle.Info{
		ID:         id,
		Initiator:  owner,
		PetID:      c.req.PetID,
		OtherPetID: c.req.OtherPetID,
		Wager:      wager,
		Status:     battle.StatusPending,
	}
	if err := c.st.PutBattle(b); err != nil {
		return storeErr(err, "battle")
	}
	if err := c.st.IndexBattle(b.PetID, id); err != nil {
		return storeErr(err, "battle index")
	}
	if err := c.st.IndexBattle(b.OtherPetID, id); err != nil {
		return storeErr(err, "battle index")
	}
	c.emit(gateway.Burn(owner, wager))

	c.attrs["action"] = "battle_pet"
	c.attrs["battle_id"] = state.FormatBattleID(id)
	return nil
}

func (e *Engine) acceptBattle(ctx context.Context, c *call) error {
	b, err := c.battle()
	if err != nil {
		return err
	}
	owner, err := e.gw.VerifyOwner(ctx, b.OtherPetID, c.petCred())
	if err != nil {
		return err
	}
	if b.Status != battle.StatusPending {
		return protocol.InvalidState("battle %d is %s", b.ID, b.Status)
	}
	if _, err := e.gw.RequireBalance(ctx, c.lootCred(), b.Wager); err != nil {
		return err
	}
	first, err := c.pet(b.PetID)
	if err != nil {
		return err
	}
	second, err := c.pet(b.OtherPetID)
	if err != nil {
		return err
	}

	outcome := battle.Resolve(first.Current, second.Current)
	b.Status = battle.StatusAccepted
	b.Outcome = &outcome
	if err := c.st.PutBattle(b); err != nil {
		return storeErr(err, "battle")
	}
	c.emit(gateway.Burn(owner, b.Wager))

	winner, _ := b.WinnerID()
	c.attrs["action"] = "accept_battle_pet"
	c.attrs["battle_id"] = state.FormatBattleID(b.ID)
	c.attrs["winner"] = winner
	return nil
}

func (e *Engine) declineBattle(ctx context.Context, c *call) error {
	return e.withdrawBattle(ctx, c, false)
}

func (e *Engine) cancelBattle(ctx context.Context, c *call) error {
	return e.withdrawBattle(ctx, c, true)
}

// withdrawBattle removes a pending battle and refunds the initiator. Cancel is the
// initiator's side, decline the opponent's.
func (e *Engine) withdrawBattle(ctx context.Context, c *call, cancel bool) error {
	b, err := c.battle()
	if err != nil {
		return err
	}
	side, action := b.OtherPetID, "decline_battle_pet"
	if cancel {
		side, action = b.PetID, "cancel_battle_pet"
	}
	if _, err := e.gw.VerifyOwner(ctx, side, c.petCred()); err != nil {
		return err
	}
	if b.Status != battle.StatusPending {
		return protocol.InvalidState("battle %d is %s", b.ID, b.Status)
	}
	if err := c.st.DeleteBattle(b.ID); err != nil {
		return storeErr(err, "battle")
	}
	if err := c.st.UnindexBattle(b.PetID, b.ID); err != nil {
		return storeErr(err, "battle index")
	}
	if err := c.st.UnindexBattle(b.OtherPetID, b.ID); err != nil {
		return storeErr(err, "battle index")
	}
	c.emit(gateway.Mint(b.Initiator, b.Wager))

	c.attrs["action"] = action
	c.attrs["battle_id"] = state.FormatBattleID(b.ID)
	return nil
}

func (e *Engine) claimBattle(ctx context.Context, c *call) error {
	if err := requirePetID(c.req.PetID, "pet_id"); err != nil {
		return err
	}
	b, err := c.battle()
	if err != nil {
		return err
	}
	if _, err := e.gw.VerifyOwner(ctx, c.req.PetID, c.petCred()); err != nil {
		return err
	}
	indexed, err := c.st.HasPetBattle(c.req.PetID, b.ID)
	if err != nil {
		return protocol.Internal(err, "load battle index")
	}

	d := battle.DecideClaim(battle.ClaimInput{Battle: b, PetID: c.req.PetID, Indexed: indexed})
	switch d {
	case battle.ClaimUnresolved:
		return protocol.InvalidState("battle %d is not resolved", b.ID)
	case battle.ClaimNotParticipant:
		return protocol.InvalidState("pet %s is not in battle %d", c.req.PetID, b.ID)
	case battle.ClaimAlreadyClaimed:
		return protocol.InvalidState("battle %d already claimed by %s", b.ID, c.req.PetID)
	}

	if payout := battle.Payout(d, b.Wager); payout > 0 {
		c.emit(gateway.Mint(c.caller, payout))
	}
	if err := c.st.UnindexBattle(c.req.PetID, b.ID); err != nil {
		return storeErr(err, "battle index")
	}

	c.attrs["action"] = "claim_battle_pet"
	c.attrs["battle_id"] = state.FormatBattleID(b.ID)
	c.attrs["won"] = strconv.FormatBool(d == battle.ClaimWin)
	return nil
}
