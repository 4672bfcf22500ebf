package engine

import (
	"errors"

	"petquest.ai/internal/protocol"
	"petquest.ai/internal/sim/battle"
	"petquest.ai/internal/sim/pet"
	"petquest.ai/internal/sim/quest"
	"petquest.ai/internal/sim/randomness"
	"petquest.ai/internal/sim/state"
	"petquest.ai/internal/sim/stats"
)

func (c *call) config() (state.Config, error) {
	cfg, err := c.st.Config()
	if errors.Is(err, state.ErrNoConfig) {
		return cfg, protocol.InvalidState("engine is not instantiated")
	}
	if err != nil {
		return cfg, protocol.Internal(err, "load config")
	}
	return cfg, nil
}

// seed is the request's reproducible randomness seed.
func (c *call) seed() (uint64, error) {
	cfg, err := c.config()
	if err != nil {
		return 0, err
	}
	return randomness.GenerateSeed(c.caller, uint64(c.req.Now), cfg.Entropy), nil
}

func (c *call) pet(id string) (pet.Pet, error) {
	p, err := c.st.Pet(id)
	if state.IsNotFound(err) {
		return p, protocol.NotFound("pet %s not found", id)
	}
	if err != nil {
		return p, protocol.Internal(err, "load pet %s", id)
	}
	return p, nil
}

func (c *call) battle() (battle.Info, error) {
	if c.req.BattleID == nil {
		return battle.Info{}, protocol.BadRequest("battle_id is required")
	}
	id := *c.req.BattleID
	b, err := c.st.Battle(id)
	if state.IsNotFound(err) {
		return b, protocol.NotFound("battle %d not found", id)
	}
	if err != nil {
		return b, protocol.Internal(err, "load battle %d", id)
	}
	return b, nil
}

// quests loads the caller's quest set; ok is false when none exists yet.
func (c *call) quests() ([]quest.Quest, bool, error) {
	qs, ok, err := c.st.Quests(c.caller)
	if err != nil {
		return nil, false, protocol.Internal(err, "load quests")
	}
	return qs, ok, nil
}

// store wraps a failed write.
func storeErr(err error, what string) error {
	if err == nil {
		return nil
	}
	return protocol.Internal(err, "store %s", what)
}

func (e *Engine) parseStat(s string) (stats.Stat, error) {
	st, ok := stats.Parse(s)
	if !ok && e.strict {
		return st, protocol.BadRequest("unknown stat %q", s)
	}
	return st, nil
}

func (e *Engine) parseQuestType(s string) (quest.Type, error) {
	t, ok := quest.ParseType(s)
	if !ok && e.strict {
		return t, protocol.BadRequest("unknown quest type %q", s)
	}
	return t, nil
}

func requirePetID(id, field string) error {
	if id == "" {
		return protocol.BadRequest("%s is required", field)
	}
	return nil
}
