package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"petquest.ai/internal/gateway"
	"petquest.ai/internal/gateway/localchain"
	"petquest.ai/internal/logging"
	"petquest.ai/internal/persistence/kv"
	"petquest.ai/internal/protocol"
	"petquest.ai/internal/sim/battle"
	"petquest.ai/internal/sim/pet"
	"petquest.ai/internal/sim/quest"
	"petquest.ai/internal/sim/state"
	"petquest.ai/internal/sim/stats"
	"petquest.ai/internal/sim/tuning"
)

const (
	alice = "secret1alice"
	bob   = "secret1bob"
	carol = "secret1carol"

	t0 = int64(1_700_000_000)
)

type harness struct {
	t     *testing.T
	e     *Engine
	store kv.Store
	chain *localchain.Chain
}

func newHarness(t *testing.T, unknownInput string) *harness {
	t.Helper()
	chain := localchain.New()
	store := kv.NewMemory()
	e, err := New(Options{
		Store:        store,
		Gateway:      gateway.New(chain, chain),
		Logger:       logging.Discard(),
		UnknownInput: unknownInput,
	})
	require.NoError(t, err)
	created, err := e.Instantiate(context.Background(), state.Config{Admin: "secret1admin", MaxStats: 20, Entropy: []byte("test-entropy")})
	require.NoError(t, err)
	require.True(t, created)
	return &harness{t: t, e: e, store: store, chain: chain}
}

// exec runs req and applies the emitted instructions to the chain.
func (h *harness) exec(req protocol.Request) protocol.Response {
	h.t.Helper()
	resp := h.e.Execute(context.Background(), req)
	if resp.OK {
		require.NoError(h.t, h.chain.Apply(resp.Instructions))
	}
	return resp
}

func (h *harness) ok(req protocol.Request) protocol.Response {
	h.t.Helper()
	resp := h.exec(req)
	require.True(h.t, resp.OK, "%s failed: %s %s", req.Type, resp.Code, resp.Message)
	return resp
}

func (h *harness) fail(code string, req protocol.Request) protocol.Response {
	h.t.Helper()
	resp := h.exec(req)
	require.False(h.t, resp.OK, "%s unexpectedly succeeded", req.Type)
	require.Equal(h.t, code, resp.Code, resp.Message)
	require.Empty(h.t, resp.Instructions)
	return resp
}

func (h *harness) putPet(p pet.Pet, owner string) {
	h.t.Helper()
	require.NoError(h.t, h.store.Update(context.Background(), func(tx kv.Tx) error {
		return state.New(tx).PutPet(p)
	}))
	h.chain.SetOwner(p.ID, owner)
}

func (h *harness) pet(id string) (pet.Pet, bool) {
	h.t.Helper()
	var p pet.Pet
	var found bool
	require.NoError(h.t, h.store.View(context.Background(), func(tx kv.Tx) error {
		var err error
		p, err = state.New(tx).Pet(id)
		if state.IsNotFound(err) {
			return nil
		}
		found = err == nil
		return err
	}))
	return p, found
}

func (h *harness) quests(caller string, now int64) []QuestSummary {
	h.t.Helper()
	resp := h.ok(protocol.Request{Type: protocol.TypeMyQuests, Caller: caller, Now: now})
	return resp.Data.(QuestsData).Quests
}

func summary(qs []QuestSummary, t quest.Type) QuestSummary {
	for _, q := range qs {
		if q.QuestType == t {
			return q
		}
	}
	return QuestSummary{}
}

func bid(n uint64) *uint64 { return &n }

func TestMintPet(t *testing.T) {
	h := newHarness(t, tuning.UnknownFallback)

	resp := h.ok(protocol.Request{Type: protocol.TypeMintPet, Caller: alice, Now: t0})
	require.Equal(t, "PET_0", resp.Attributes["pet_id"])
	require.Equal(t, "true", resp.Attributes["quests_generated"])
	require.Equal(t, []protocol.Instruction{gateway.MintNft("PET_0", alice)}, resp.Instructions)

	resp = h.ok(protocol.Request{Type: protocol.TypeMintPet, Caller: alice, Now: t0 + 1})
	require.Equal(t, "PET_1", resp.Attributes["pet_id"])
	require.Equal(t, "false", resp.Attributes["quests_generated"])

	pets := h.ok(protocol.Request{Type: protocol.TypeMyPets, Caller: alice, Now: t0}).Data.(PetsData).Pets
	require.Len(t, pets, 2)
	for _, p := range pets {
		for _, st := range stats.All {
			require.GreaterOrEqual(t, p.Current.Get(st), 5)
			require.LessOrEqual(t, p.Current.Get(st), 8)
			require.GreaterOrEqual(t, p.Max.Get(st), 12)
			require.LessOrEqual(t, p.Max.Get(st), 20)
			require.Equal(t, p.Current.Get(st)*5, p.UpgradeCosts.Get(st))
		}
	}

	qs := h.quests(alice, t0)
	require.Len(t, qs, 4)
	for i, q := range qs {
		require.Equal(t, quest.Types[i], q.QuestType)
		require.Equal(t, quest.StatusAvailable, q.Status)
		require.Nil(t, q.Outcome)
	}
}

func TestMintPet_Recipient(t *testing.T) {
	h := newHarness(t, tuning.UnknownFallback)
	resp := h.ok(protocol.Request{Type: protocol.TypeMintPet, Caller: alice, Now: t0, Recipient: "Secret1Bob"})
	require.Equal(t, []protocol.Instruction{gateway.MintNft("PET_0", bob)}, resp.Instructions)

	ids := h.ok(protocol.Request{Type: protocol.TypeAllPets, Caller: carol, Now: t0}).Data.(TokensData).Tokens
	require.Equal(t, []string{"PET_0"}, ids)

	// bob owns the pet but has no quests yet; starting one generates them.
	resp = h.ok(protocol.Request{Type: protocol.TypeStartQuest, Caller: bob, Now: t0, PetID: "PET_0", QuestType: string(quest.TrialOfWisdom)})
	require.Equal(t, "true", resp.Attributes["quests_generated"])
	require.Equal(t, quest.StatusInProgress, summary(h.quests(bob, t0+1), quest.TrialOfWisdom).Status)
}

func TestMintPet_Deterministic(t *testing.T) {
	a := newHarness(t, tuning.UnknownFallback)
	b := newHarness(t, tuning.UnknownFallback)
	a.ok(protocol.Request{Type: protocol.TypeMintPet, Caller: alice, Now: t0})
	b.ok(protocol.Request{Type: protocol.TypeMintPet, Caller: alice, Now: t0})
	pa, _ := a.pet("PET_0")
	pb, _ := b.pet("PET_0")
	require.Equal(t, pa, pb)
	require.Equal(t, a.quests(alice, t0), b.quests(alice, t0))
}

func TestInstantiate(t *testing.T) {
	h := newHarness(t, tuning.UnknownFallback)
	created, err := h.e.Instantiate(context.Background(), state.Config{MaxStats: 30})
	require.NoError(t, err)
	require.False(t, created)

	h.ok(protocol.Request{Type: protocol.TypeMintPet, Caller: alice, Now: t0})
	p, _ := h.pet("PET_0")
	for _, st := range stats.All {
		require.LessOrEqual(t, p.Max.Get(st), 20, "stored config must not be replaced")
	}

	_, err = h.e.Instantiate(context.Background(), state.Config{MaxStats: 11})
	require.Equal(t, protocol.ErrBadRequest, protocol.CodeOf(err))
}

func TestMintPet_NotInstantiated(t *testing.T) {
	chain := localchain.New()
	e, err := New(Options{Store: kv.NewMemory(), Gateway: gateway.New(chain, chain), Logger: logging.Discard()})
	require.NoError(t, err)
	resp := e.Execute(context.Background(), protocol.Request{Type: protocol.TypeMintPet, Caller: alice, Now: t0})
	require.False(t, resp.OK)
	require.Equal(t, protocol.ErrInvalidState, resp.Code)
}

func TestExecute_BadRequests(t *testing.T) {
	h := newHarness(t, tuning.UnknownFallback)
	h.fail(protocol.ErrBadRequest, protocol.Request{Type: "FEED_PET", Caller: alice, Now: t0})
	h.fail(protocol.ErrBadRequest, protocol.Request{Type: protocol.TypeMintPet, Caller: " ", Now: t0})
	h.fail(protocol.ErrBadRequest, protocol.Request{Type: protocol.TypeMintPet, Caller: alice, Now: -1})
	h.fail(protocol.ErrBadRequest, protocol.Request{Type: protocol.TypeAcceptBattle, Caller: alice, Now: t0})

	resp := h.e.Execute(context.Background(), protocol.Request{Type: protocol.TypeMintPet, Caller: alice, Now: t0, ID: "req-1"})
	require.Equal(t, "req-1", resp.ID)
	require.Equal(t, protocol.Version, resp.ProtocolVersion)
	resp = h.e.Execute(context.Background(), protocol.Request{Type: protocol.TypeMintPet, Caller: alice, Now: t0})
	require.NotEmpty(t, resp.ID)
}

func TestUpgradeStat(t *testing.T) {
	h := newHarness(t, tuning.UnknownFallback)
	h.putPet(pet.Pet{
		ID:      "PET_0",
		Current: stats.Set{Health: 5, Strength: 6, Stamina: 7, Intelligence: 8, Luck: 12},
		Max:     stats.Set{Health: 12, Strength: 12, Stamina: 12, Intelligence: 12, Luck: 12},

		UpgradeCosts: stats.Set{Health: 25, Strength: 30, Stamina: 35, Intelligence: 40, Luck: 60},
	}, alice)
	h.chain.SetBalance(alice, 30)

	upgrade := func(caller string, st stats.Stat) protocol.Request {
		return protocol.Request{Type: protocol.TypeUpgradeStat, Caller: caller, Now: t0, PetID: "PET_0", Stat: string(st)}
	}

	h.fail(protocol.ErrNoPermission, upgrade(bob, stats.Health))
	h.fail(protocol.ErrInvalidState, upgrade(alice, stats.Luck))
	h.fail(protocol.ErrNoResource, upgrade(alice, stats.Intelligence)) // costs 40

	resp := h.ok(upgrade(alice, stats.Strength))
	require.Equal(t, []protocol.Instruction{gateway.Burn(alice, 30)}, resp.Instructions)
	require.Equal(t, uint64(0), h.chain.BalanceOf(alice))

	p, _ := h.pet("PET_0")
	require.Equal(t, 7, p.Current.Strength)
	require.Equal(t, 30, p.UpgradeCosts.Strength, "mint-time costs are informational only")

	h.fail(protocol.ErrNoResource, upgrade(alice, stats.Strength))
	p, _ = h.pet("PET_0")
	require.Equal(t, 7, p.Current.Strength)

	// known to the registry but released here
	h.chain.SetOwner("PET_5", alice)
	h.fail(protocol.ErrNotFound, protocol.Request{Type: protocol.TypeUpgradeStat, Caller: alice, Now: t0, PetID: "PET_5", Stat: "Health"})
}

func TestUpgradeStat_UnknownStatPolicy(t *testing.T) {
	h := newHarness(t, tuning.UnknownFallback)
	h.putPet(pet.Pet{ID: "PET_0", Current: stats.Set{Health: 5}, Max: stats.Set{Health: 12}}, alice)
	h.chain.SetBalance(alice, 100)
	resp := h.ok(protocol.Request{Type: protocol.TypeUpgradeStat, Caller: alice, Now: t0, PetID: "PET_0", Stat: "Charisma"})
	require.Equal(t, "Health", resp.Attributes["stat"])
	p, _ := h.pet("PET_0")
	require.Equal(t, 6, p.Current.Health)

	strict := newHarness(t, tuning.UnknownReject)
	strict.putPet(pet.Pet{ID: "PET_0", Current: stats.Set{Health: 5}, Max: stats.Set{Health: 12}}, alice)
	strict.chain.SetBalance(alice, 100)
	strict.fail(protocol.ErrBadRequest, protocol.Request{Type: protocol.TypeUpgradeStat, Caller: alice, Now: t0, PetID: "PET_0", Stat: "Charisma"})
	strict.fail(protocol.ErrBadRequest, protocol.Request{Type: protocol.TypeStartQuest, Caller: alice, Now: t0, PetID: "PET_0", QuestType: "Trial Of Speed"})
}

func TestUpstreamFailuresRollBack(t *testing.T) {
	h := newHarness(t, tuning.UnknownFallback)
	h.putPet(pet.Pet{ID: "PET_0", Current: stats.Set{Health: 5}, Max: stats.Set{Health: 12}}, alice)
	h.chain.SetBalance(alice, 100)

	h.chain.FailNext(localchain.OpBalance, errors.New("ledger down"))
	h.fail(protocol.ErrUpstream, protocol.Request{Type: protocol.TypeUpgradeStat, Caller: alice, Now: t0, PetID: "PET_0", Stat: "Health"})
	p, _ := h.pet("PET_0")
	require.Equal(t, 5, p.Current.Health)

	h.chain.MalformNext(localchain.OpOwnerOf)
	h.fail(protocol.ErrUpstream, protocol.Request{Type: protocol.TypeReleasePet, Caller: alice, Now: t0, PetID: "PET_0"})
	_, found := h.pet("PET_0")
	require.True(t, found)
}

func TestQuestLifecycle(t *testing.T) {
	h := newHarness(t, tuning.UnknownFallback)
	h.ok(protocol.Request{Type: protocol.TypeMintPet, Caller: alice, Now: t0})
	titans := string(quest.TrialOfTitans)

	start := protocol.Request{Type: protocol.TypeStartQuest, Caller: alice, Now: t0, PetID: "PET_0", QuestType: titans}
	h.fail(protocol.ErrNoPermission, protocol.Request{Type: protocol.TypeStartQuest, Caller: bob, Now: t0, PetID: "PET_0", QuestType: titans})
	resp := h.ok(start)
	require.Empty(t, resp.Instructions)

	p, _ := h.pet("PET_0")
	require.NotNil(t, p.OnQuest)
	require.Equal(t, quest.TrialOfTitans, p.OnQuest.Type)

	require.Equal(t, quest.StatusInProgress, summary(h.quests(alice, t0+29), quest.TrialOfTitans).Status)
	h.fail(protocol.ErrInvalidState, protocol.Request{Type: protocol.TypeReleasePet, Caller: alice, Now: t0 + 29, PetID: "PET_0"})
	h.fail(protocol.ErrInvalidState, protocol.Request{Type: protocol.TypeClaimQuest, Caller: alice, Now: t0 + 29, QuestType: titans})
	h.fail(protocol.ErrInvalidState, protocol.Request{Type: protocol.TypeStartQuest, Caller: alice, Now: t0 + 1, PetID: "PET_0", QuestType: string(quest.TrialOfWisdom)})
	require.Equal(t, quest.StatusAvailable, summary(h.quests(alice, t0+1), quest.TrialOfWisdom).Status)
	p, _ = h.pet("PET_0")
	require.NotNil(t, p.OnQuest)
	require.Equal(t, quest.TrialOfTitans, p.OnQuest.Type)

	s := summary(h.quests(alice, t0+30), quest.TrialOfTitans)
	require.Equal(t, quest.StatusClaimable, s.Status)
	require.NotNil(t, s.Outcome)

	resp = h.ok(protocol.Request{Type: protocol.TypeClaimQuest, Caller: alice, Now: t0 + 30, QuestType: titans})
	require.Len(t, resp.Instructions, 1)
	mint := resp.Instructions[0]
	require.Equal(t, protocol.InstrMint, mint.Kind)
	require.Equal(t, alice, mint.Account)
	require.Equal(t, s.Loot.For(*s.Outcome), mint.Amount)
	require.Equal(t, string(*s.Outcome), resp.Attributes["outcome"])
	require.Equal(t, mint.Amount, h.chain.BalanceOf(alice))

	hist := h.ok(protocol.Request{Type: protocol.TypeMyQuestHistory, Caller: alice, Now: t0 + 30}).Data.(HistoryData).QuestHistory
	require.Len(t, hist, 1)
	require.Equal(t, "PET_0", hist[0].PetID)
	require.Equal(t, t0, hist[0].TimeStarted.Unix())
	require.Equal(t, t0+30, hist[0].TimeEnded.Unix())
	require.Equal(t, mint.Amount, hist[0].LootCollected)

	p, _ = h.pet("PET_0")
	require.Nil(t, p.OnQuest)

	h.fail(protocol.ErrInvalidState, protocol.Request{Type: protocol.TypeClaimQuest, Caller: alice, Now: t0 + 31, QuestType: titans})
	require.Equal(t, quest.StatusOnCooldown, summary(h.quests(alice, t0+59), quest.TrialOfTitans).Status)
	h.fail(protocol.ErrInvalidState, protocol.Request{Type: protocol.TypeStartQuest, Caller: alice, Now: t0 + 59, PetID: "PET_0", QuestType: titans})

	// the pet itself is free while the quest cools down
	h.ok(protocol.Request{Type: protocol.TypeStartQuest, Caller: alice, Now: t0 + 40, PetID: "PET_0", QuestType: string(quest.TrialOfWisdom)})
	h.ok(protocol.Request{Type: protocol.TypeClaimQuest, Caller: alice, Now: t0 + 70, QuestType: string(quest.TrialOfWisdom)})

	require.Equal(t, quest.StatusAvailable, summary(h.quests(alice, t0+60), quest.TrialOfTitans).Status)
	h.ok(protocol.Request{Type: protocol.TypeStartQuest, Caller: alice, Now: t0 + 71, PetID: "PET_0", QuestType: titans})
}

func TestReleasePet(t *testing.T) {
	h := newHarness(t, tuning.UnknownFallback)
	h.ok(protocol.Request{Type: protocol.TypeMintPet, Caller: alice, Now: t0})
	h.ok(protocol.Request{Type: protocol.TypeStartQuest, Caller: alice, Now: t0, PetID: "PET_0", QuestType: string(quest.TrialOfResilience)})

	// exploration over but unclaimed: release is allowed
	h.ok(protocol.Request{Type: protocol.TypeReleasePet, Caller: alice, Now: t0 + 30, PetID: "PET_0"})
	_, found := h.pet("PET_0")
	require.False(t, found)

	h.fail(protocol.ErrNotFound, protocol.Request{Type: protocol.TypeReleasePet, Caller: alice, Now: t0 + 31, PetID: "PET_0"})
	h.fail(protocol.ErrNotFound, protocol.Request{Type: protocol.TypeClaimQuest, Caller: alice, Now: t0 + 31, QuestType: string(quest.TrialOfResilience)})
	require.Nil(t, summary(h.quests(alice, t0+31), quest.TrialOfResilience).Outcome)

	h.fail(protocol.ErrNotFound, protocol.Request{Type: protocol.TypeMyPets, Caller: alice, Now: t0 + 31})
}

func battleHarness(t *testing.T) *harness {
	h := newHarness(t, tuning.UnknownFallback)
	h.putPet(pet.Pet{ID: "PET_0", Current: stats.Set{Strength: 10, Health: 7, Stamina: 7, Intelligence: 5, Luck: 5}}, alice)
	h.putPet(pet.Pet{ID: "PET_1", Current: stats.Set{Strength: 6, Health: 6, Stamina: 6, Intelligence: 6, Luck: 6}}, bob)
	h.chain.SetBalance(alice, 50)
	h.chain.SetBalance(bob, 50)
	return h
}

func propose(wager uint64) protocol.Request {
	return protocol.Request{Type: protocol.TypeProposeBattle, Caller: alice, Now: t0, PetID: "PET_0", OtherPetID: "PET_1", Wager: wager}
}

func TestBattleFlow(t *testing.T) {
	h := battleHarness(t)

	h.fail(protocol.ErrNoResource, propose(51))
	resp := h.ok(propose(20))
	require.Equal(t, "0", resp.Attributes["battle_id"], "a failed proposal must not consume an id")
	require.Equal(t, []protocol.Instruction{gateway.Burn(alice, 20)}, resp.Instructions)

	for _, who := range []string{alice, bob} {
		bs := h.ok(protocol.Request{Type: protocol.TypeMyBattles, Caller: who, Now: t0}).Data.(BattlesData).Battles
		require.Len(t, bs, 1)
		require.Equal(t, "pending", string(bs[0].Status))
	}

	claimA := protocol.Request{Type: protocol.TypeClaimBattle, Caller: alice, Now: t0, PetID: "PET_0", BattleID: bid(0)}
	claimB := protocol.Request{Type: protocol.TypeClaimBattle, Caller: bob, Now: t0, PetID: "PET_1", BattleID: bid(0)}
	accept := protocol.Request{Type: protocol.TypeAcceptBattle, Caller: bob, Now: t0, BattleID: bid(0)}

	h.fail(protocol.ErrInvalidState, claimA)
	h.fail(protocol.ErrNoPermission, protocol.Request{Type: protocol.TypeAcceptBattle, Caller: alice, Now: t0, BattleID: bid(0)})
	h.fail(protocol.ErrNotFound, protocol.Request{Type: protocol.TypeAcceptBattle, Caller: bob, Now: t0, BattleID: bid(9)})

	resp = h.ok(accept)
	require.Equal(t, "PET_0", resp.Attributes["winner"])
	require.Equal(t, uint64(30), h.chain.BalanceOf(bob))
	h.fail(protocol.ErrInvalidState, accept)
	h.fail(protocol.ErrInvalidState, protocol.Request{Type: protocol.TypeCancelBattle, Caller: alice, Now: t0, BattleID: bid(0)})

	resp = h.ok(claimA)
	require.Equal(t, "true", resp.Attributes["won"])
	require.Equal(t, []protocol.Instruction{gateway.Mint(alice, 40)}, resp.Instructions)
	require.Equal(t, uint64(70), h.chain.BalanceOf(alice))
	h.fail(protocol.ErrInvalidState, claimA)

	resp = h.ok(claimB)
	require.Equal(t, "false", resp.Attributes["won"])
	require.Empty(t, resp.Instructions)
	h.fail(protocol.ErrInvalidState, claimB)

	bs := h.ok(protocol.Request{Type: protocol.TypeMyBattles, Caller: alice, Now: t0}).Data.(BattlesData).Battles
	require.Empty(t, bs)
}

func TestBattle_StrangerCannotClaim(t *testing.T) {
	h := battleHarness(t)
	h.putPet(pet.Pet{ID: "PET_2"}, carol)
	h.ok(propose(5))
	h.ok(protocol.Request{Type: protocol.TypeAcceptBattle, Caller: bob, Now: t0, BattleID: bid(0)})
	h.fail(protocol.ErrInvalidState, protocol.Request{Type: protocol.TypeClaimBattle, Caller: carol, Now: t0, PetID: "PET_2", BattleID: bid(0)})
}

func TestBattle_DeclineAndCancelRefund(t *testing.T) {
	h := battleHarness(t)

	h.ok(propose(10))
	require.Equal(t, uint64(40), h.chain.BalanceOf(alice))
	h.fail(protocol.ErrNoPermission, protocol.Request{Type: protocol.TypeDeclineBattle, Caller: alice, Now: t0, BattleID: bid(0)})
	resp := h.ok(protocol.Request{Type: protocol.TypeDeclineBattle, Caller: bob, Now: t0, BattleID: bid(0)})
	require.Equal(t, []protocol.Instruction{gateway.Mint(alice, 10)}, resp.Instructions)
	require.Equal(t, uint64(50), h.chain.BalanceOf(alice))
	h.fail(protocol.ErrNotFound, protocol.Request{Type: protocol.TypeAcceptBattle, Caller: bob, Now: t0, BattleID: bid(0)})

	h.ok(propose(10))
	h.fail(protocol.ErrNoPermission, protocol.Request{Type: protocol.TypeCancelBattle, Caller: bob, Now: t0, BattleID: bid(1)})
	h.ok(protocol.Request{Type: protocol.TypeCancelBattle, Caller: alice, Now: t0, BattleID: bid(1)})
	require.Equal(t, uint64(50), h.chain.BalanceOf(alice))

	for _, who := range []string{alice, bob} {
		bs := h.ok(protocol.Request{Type: protocol.TypeMyBattles, Caller: who, Now: t0}).Data.(BattlesData).Battles
		require.Empty(t, bs)
	}
}

func TestBattle_ProposeValidation(t *testing.T) {
	h := battleHarness(t)
	h.fail(protocol.ErrInvalidState, protocol.Request{Type: protocol.TypeProposeBattle, Caller: alice, Now: t0, PetID: "PET_0", OtherPetID: "PET_0", Wager: 1})
	h.fail(protocol.ErrNotFound, protocol.Request{Type: protocol.TypeProposeBattle, Caller: alice, Now: t0, PetID: "PET_0", OtherPetID: "PET_7", Wager: 1})
	h.fail(protocol.ErrNoPermission, protocol.Request{Type: protocol.TypeProposeBattle, Caller: bob, Now: t0, PetID: "PET_0", OtherPetID: "PET_1", Wager: 1})
	h.fail(protocol.ErrBadRequest, protocol.Request{Type: protocol.TypeProposeBattle, Caller: alice, Now: t0, PetID: "PET_0", OtherPetID: "PET_1", Wager: battle.MaxWager + 1})
}

func TestBattle_TieGoesToOpponent(t *testing.T) {
	h := newHarness(t, tuning.UnknownFallback)
	same := stats.Set{Strength: 6, Health: 6, Stamina: 6, Intelligence: 6, Luck: 6}
	h.putPet(pet.Pet{ID: "PET_0", Current: same}, alice)
	h.putPet(pet.Pet{ID: "PET_1", Current: same}, bob)
	h.chain.SetBalance(alice, 5)
	h.chain.SetBalance(bob, 5)
	h.ok(propose(5))
	resp := h.ok(protocol.Request{Type: protocol.TypeAcceptBattle, Caller: bob, Now: t0, BattleID: bid(0)})
	require.Equal(t, "PET_1", resp.Attributes["winner"])
}

func TestBalanceQueries(t *testing.T) {
	h := newHarness(t, tuning.UnknownFallback)
	h.chain.SetBalance(alice, 7)
	h.chain.SetBalance(bob, 3)
	h.chain.SetPermit(alice, "loot-permit")

	got := h.ok(protocol.Request{Type: protocol.TypeMyBalance, Caller: alice, Now: t0, LootPermit: "loot-permit"}).Data.(BalanceData)
	require.Equal(t, uint64(7), got.Amount)
	h.fail(protocol.ErrUpstream, protocol.Request{Type: protocol.TypeMyBalance, Caller: alice, Now: t0, LootPermit: "stale"})

	all := h.ok(protocol.Request{Type: protocol.TypeAllBalances, Caller: carol, Now: t0, Limit: 1}).Data.(BalancesData).Balances
	require.Equal(t, []gateway.Balance{{Address: alice, Amount: 7}}, all)

	h.fail(protocol.ErrNotFound, protocol.Request{Type: protocol.TypeMyQuests, Caller: carol, Now: t0})
	hist := h.ok(protocol.Request{Type: protocol.TypeMyQuestHistory, Caller: carol, Now: t0}).Data.(HistoryData)
	require.Empty(t, hist.QuestHistory)
}
