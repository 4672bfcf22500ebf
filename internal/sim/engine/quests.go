package engine

import (
	"context"
	"strconv"

	"petquest.ai/internal/gateway"
	"petquest.ai/internal/protocol"
	"petquest.ai/internal/sim/quest"
	"petquest.ai/internal/sim/randomness"
)

func (e *Engine) startQuest(ctx context.Context, c *call) error {
	if err := requirePetID(c.req.PetID, "pet_id"); err != nil {
		return err
	}
	qt, err := e.parseQuestType(c.req.QuestType)
	if err != nil {
		return err
	}
	if _, err := e.gw.VerifyOwner(ctx, c.req.PetID, c.petCred()); err != nil {
		return err
	}
	p, err := c.pet(c.req.PetID)
	if err != nil {
		return err
	}
	if p.OnQuest != nil {
		return protocol.InvalidState("pet %s is already on a quest", p.ID)
	}

	qs, ok, err := c.quests()
	if err != nil {
		return err
	}
	if !ok {
		seed, err := c.seed()
		if err != nil {
			return err
		}
		qs = quest.Generate(randomness.New(seed))
		c.attrs["quests_generated"] = "true"
	}
	i := quest.Find(qs, qt)
	if i < 0 {
		return protocol.NotFound("quest %s not found", qt)
	}
	if s := qs[i].Status(c.now); s != quest.StatusAvailable {
		return protocol.InvalidState("quest %s is %s", qt, s)
	}

	quest.Start(&qs[i], p.ID, c.now)
	snap := qs[i].Clone()
	p.OnQuest = &snap
	if err := c.st.PutQuests(c.caller, qs); err != nil {
		return storeErr(err, "quests")
	}
	if err := c.st.PutPet(p); err != nil {
		return storeErr(err, "pet")
	}

	c.attrs["action"] = "start_quest"
	c.attrs["pet_id"] = p.ID
	c.attrs["quest_type"] = string(qt)
	return nil
}

func (e *Engine) claimQuest(_ context.Context, c *call) error {
	qt, err := e.parseQuestType(c.req.QuestType)
	if err != nil {
		return err
	}
	qs, ok, err := c.quests()
	if err != nil {
		return err
	}
	i := -1
	if ok {
		i = quest.Find(qs, qt)
	}
	if i < 0 {
		return protocol.NotFound("quest %s not found", qt)
	}
	q := qs[i]
	if s := q.Status(c.now); s != quest.StatusClaimable {
		return protocol.InvalidState("quest %s is %s", qt, s)
	}
	if q.PetID == nil {
		return protocol.Internal(nil, "claimable quest %s has no pet", qt)
	}
	p, err := c.pet(*q.PetID)
	if err != nil {
		return err
	}

	outcome := quest.Evaluate(q, p.Current)
	loot := quest.LootTable(q).For(outcome)
	if err := c.st.AppendHistory(c.caller, quest.HistoryEntry(q, p.ID, loot, outcome)); err != nil {
		return storeErr(err, "quest history")
	}
	p.OnQuest = nil
	if err := c.st.PutPet(p); err != nil {
		return storeErr(err, "pet")
	}

	seed, err := c.seed()
	if err != nil {
		return err
	}
	quest.Reroll(&qs[i], randomness.New(seed), outcome)
	if err := c.st.PutQuests(c.caller, qs); err != nil {
		return storeErr(err, "quests")
	}
	c.emit(gateway.Mint(c.caller, loot))

	c.attrs["action"] = "claim_rewards"
	c.attrs["pet_id"] = p.ID
	c.attrs["quest_type"] = string(qt)
	c.attrs["outcome"] = string(outcome)
	c.attrs["loot"] = strconv.FormatUint(loot, 10)
	return nil
}
