package engine

import (
	"context"
	"strconv"

	"petquest.ai/internal/gateway"
	"petquest.ai/internal/protocol"
	"petquest.ai/internal/sim/pet"
	"petquest.ai/internal/sim/quest"
	"petquest.ai/internal/sim/randomness"
)

func (e *Engine) mintPet(_ context.Context, c *call) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	seed, err := c.seed()
	if err != nil {
		return err
	}
	id, err := c.st.NextPetID()
	if err != nil {
		return storeErr(err, "pet counter")
	}
	p, err := pet.Mint(id, randomness.New(seed), cfg.MaxStats)
	if err != nil {
		return protocol.Internal(err, "mint %s", id)
	}
	if err := c.st.PutPet(p); err != nil {
		return storeErr(err, "pet")
	}

	_, ok, err := c.quests()
	if err != nil {
		return err
	}
	if !ok {
		if err := c.st.PutQuests(c.caller, quest.Generate(randomness.New(seed))); err != nil {
			return storeErr(err, "quests")
		}
	}

	recipient := c.caller
	if c.req.Recipient != "" {
		recipient = gateway.Canonical(c.req.Recipient)
	}
	c.emit(gateway.MintNft(id, recipient))

	c.attrs["action"] = "mint_pet"
	c.attrs["pet_id"] = id
	c.attrs["quests_generated"] = strconv.FormatBool(!ok)
	return nil
}

func (e *Engine) releasePet(ctx context.Context, c *call) error {
	if err := requirePetID(c.req.PetID, "pet_id"); err != nil {
		return err
	}
	if _, err := e.gw.VerifyOwner(ctx, c.req.PetID, c.petCred()); err != nil {
		return err
	}
	p, err := c.pet(c.req.PetID)
	if err != nil {
		return err
	}
	if q := p.OnQuest; q != nil && q.FinishedExploring != nil && q.FinishedExploring.After(c.now) {
		return protocol.InvalidState("pet %s is on a quest", p.ID)
	}
	if err := c.st.DeletePet(p.ID); err != nil {
		return storeErr(err, "pet")
	}
	c.attrs["action"] = "release_pet"
	c.attrs["pet_id"] = p.ID
	return nil
}

func (e *Engine) upgradeStat(ctx context.Context, c *call) error {
	if err := requirePetID(c.req.PetID, "pet_id"); err != nil {
		return err
	}
	st, err := e.parseStat(c.req.Stat)
	if err != nil {
		return err
	}
	owner, err := e.gw.VerifyOwner(ctx, c.req.PetID, c.petCred())
	if err != nil {
		return err
	}
	p, err := c.pet(c.req.PetID)
	if err != nil {
		return err
	}
	if !p.CanUpgrade(st) {
		return protocol.InvalidState("%s of %s is maxed", st, p.ID)
	}
	cost := uint64(pet.UpgradeCost(p.Current, st))
	if _, err := e.gw.RequireBalance(ctx, c.lootCred(), cost); err != nil {
		return err
	}
	p.Upgrade(st)
	if err := c.st.PutPet(p); err != nil {
		return storeErr(err, "pet")
	}
	c.emit(gateway.Burn(owner, cost))

	c.attrs["action"] = "upgrade_pet"
	c.attrs["pet_id"] = p.ID
	c.attrs["stat"] = string(st)
	c.attrs["cost"] = strconv.FormatUint(cost, 10)
	return nil
}
