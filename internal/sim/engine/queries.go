package engine

import (
	"context"
	"time"

	"petquest.ai/internal/gateway"
	"petquest.ai/internal/protocol"
	"petquest.ai/internal/sim/battle"
	"petquest.ai/internal/sim/pet"
	"petquest.ai/internal/sim/quest"
	"petquest.ai/internal/sim/state"
)

type TokensData struct {
	Tokens []string `json:"tokens"`
}

type BalancesData struct {
	Balances []gateway.Balance `json:"balances"`
}

type BalanceData struct {
	Amount uint64 `json:"amount"`
}

type PetsData struct {
	Pets []pet.Pet `json:"pets"`
}

// QuestSummary is one quest as the owner sees it at the request time. Outcome is
// the projected grade for a claimable quest.
type QuestSummary struct {
	Status            quest.Status   `json:"status"`
	QuestType         quest.Type     `json:"quest_type"`
	FinishedExploring *time.Time     `json:"finished_exploring"`
	FinishedCooldown  *time.Time     `json:"finished_cooldown"`
	Outcome           *quest.Outcome `json:"outcome"`
	Loot              quest.Loot     `json:"loot"`
}

type QuestsData struct {
	Quests []QuestSummary `json:"quests"`
}

type HistoryData struct {
	QuestHistory []quest.History `json:"quest_history"`
}

// BattleSummary omits the initiator address.
type BattleSummary struct {
	ID         uint64        `json:"id"`
	PetID      string        `json:"pet_id"`
	OtherPetID string        `json:"other_pet_id"`
	Wager      uint64        `json:"wager"`
	Status     battle.Status `json:"status"`
	Outcome    *bool         `json:"outcome"`
}

type BattlesData struct {
	Battles []BattleSummary `json:"battles"`
}

func (e *Engine) allPets(ctx context.Context, c *call) error {
	ids, err := e.gw.AllTokens(ctx, c.req.StartAfter, c.req.Limit)
	if err != nil {
		return err
	}
	c.data = TokensData{Tokens: ids}
	return nil
}

func (e *Engine) allBalances(ctx context.Context, c *call) error {
	bs, err := e.gw.AllBalances(ctx, c.req.StartAfter, c.req.Limit)
	if err != nil {
		return err
	}
	c.data = BalancesData{Balances: bs}
	return nil
}

func (e *Engine) myPets(ctx context.Context, c *call) error {
	ids, err := e.gw.Tokens(ctx, c.caller, c.petCred())
	if err != nil {
		return err
	}
	out := PetsData{Pets: make([]pet.Pet, 0, len(ids))}
	for _, id := range ids {
		p, err := c.pet(id)
		if err != nil {
			return err
		}
		out.Pets = append(out.Pets, p)
	}
	c.data = out
	return nil
}

func (e *Engine) myBalance(ctx context.Context, c *call) error {
	amount, err := e.gw.VerifyBalance(ctx, c.lootCred())
	if err != nil {
		return err
	}
	c.data = BalanceData{Amount: amount}
	return nil
}

func (e *Engine) myQuests(_ context.Context, c *call) error {
	qs, ok, err := c.quests()
	if err != nil {
		return err
	}
	if !ok {
		return protocol.NotFound("no quests for %s", c.caller)
	}
	out := QuestsData{Quests: make([]QuestSummary, 0, len(qs))}
	for _, q := range qs {
		s := QuestSummary{
			Status:            q.Status(c.now),
			QuestType:         q.Type,
			FinishedExploring: q.FinishedExploring,
			FinishedCooldown:  q.FinishedCooldown,
			Loot:              quest.LootTable(q),
		}
		if s.Status == quest.StatusClaimable && q.PetID != nil {
			// A released pet has no stats to grade; the projection is omitted.
			if p, err := c.st.Pet(*q.PetID); err == nil {
				o := quest.Evaluate(q, p.Current)
				s.Outcome = &o
			} else if !state.IsNotFound(err) {
				return protocol.Internal(err, "load pet %s", *q.PetID)
			}
		}
		out.Quests = append(out.Quests, s)
	}
	c.data = out
	return nil
}

func (e *Engine) myQuestHistory(_ context.Context, c *call) error {
	hs, err := c.st.History(c.caller)
	if err != nil {
		return protocol.Internal(err, "load quest history")
	}
	if hs == nil {
		hs = []quest.History{}
	}
	c.data = HistoryData{QuestHistory: hs}
	return nil
}

func (e *Engine) myBattles(ctx context.Context, c *call) error {
	ids, err := e.gw.Tokens(ctx, c.caller, c.petCred())
	if err != nil {
		return err
	}
	out := BattlesData{Battles: []BattleSummary{}}
	seen := map[uint64]bool{}
	for _, petID := range ids {
		bids, err := c.st.PetBattles(petID)
		if err != nil {
			return protocol.Internal(err, "load battle index")
		}
		for _, id := range bids {
			if seen[id] {
				continue
			}
			b, err := c.st.Battle(id)
			if state.IsNotFound(err) {
				continue
			}
			if err != nil {
				return protocol.Internal(err, "load battle %d", id)
			}
			seen[id] = true
			out.Battles = append(out.Battles, BattleSummary{
				ID:         b.ID,
				PetID:      b.PetID,
				OtherPetID: b.OtherPetID,
				Wager:      b.Wager,
				Status:     b.Status,
				Outcome:    b.Outcome,
			})
		}
	}
	c.data = out
	return nil
}
