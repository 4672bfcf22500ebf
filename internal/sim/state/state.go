// Package state is the typed layout of the engine's persisted data over one kv
// transaction.
package state

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"petquest.ai/internal/persistence/kv"
	"petquest.ai/internal/sim/battle"
	"petquest.ai/internal/sim/pet"
	"petquest.ai/internal/sim/quest"
)

const (
	BucketConfig       = "config"
	BucketCounters     = "counters"
	BucketPets         = "pets"
	BucketBattles      = "battles"
	BucketPetBattles   = "pet_battles"
	BucketQuests       = "quests"
	BucketQuestHistory = "quest_history"

	keyConfig        = "config"
	keyPetCounter    = "pet_counter"
	keyBattleCounter = "battle_counter"
)

var Buckets = []string{
	BucketConfig,
	BucketCounters,
	BucketPets,
	BucketBattles,
	BucketPetBattles,
	BucketQuests,
	BucketQuestHistory,
}

// Config is the instantiation singleton.
type Config struct {
	Admin    string `json:"admin" msgpack:"admin"`
	MaxStats int    `json:"max_stats" msgpack:"max_stats"`
	Entropy  []byte `json:"entropy" msgpack:"entropy"`
}

// ErrNoConfig is returned before the engine has been instantiated.
var ErrNoConfig = errors.New("config not initialized")

type State struct {
	tx kv.Tx
}

func New(tx kv.Tx) *State { return &State{tx: tx} }

func IsNotFound(err error) bool { return errors.Is(err, kv.ErrNotFound) }

func (s *State) Config() (Config, error) {
	var c Config
	err := kv.GetValue(s.tx, BucketConfig, keyConfig, &c)
	if IsNotFound(err) {
		return c, ErrNoConfig
	}
	return c, err
}

func (s *State) HasConfig() (bool, error) {
	_, err := s.tx.Get(BucketConfig, keyConfig)
	if IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *State) PutConfig(c Config) error {
	return kv.PutValue(s.tx, BucketConfig, keyConfig, c)
}

// Counters.

func (s *State) counter(key string) (uint64, error) {
	var n uint64
	err := kv.GetValue(s.tx, BucketCounters, key, &n)
	if IsNotFound(err) {
		return 0, nil
	}
	return n, err
}

// next returns the current value of key and stores value+1.
func (s *State) next(key string) (uint64, error) {
	n, err := s.counter(key)
	if err != nil {
		return 0, err
	}
	if err := kv.PutValue(s.tx, BucketCounters, key, n+1); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *State) NextPetID() (string, error) {
	n, err := s.next(keyPetCounter)
	if err != nil {
		return "", err
	}
	return pet.FormatID(n), nil
}

func (s *State) NextBattleID() (uint64, error) { return s.next(keyBattleCounter) }

func (s *State) Counters() (pets, battles uint64, err error) {
	if pets, err = s.counter(keyPetCounter); err != nil {
		return 0, 0, err
	}
	battles, err = s.counter(keyBattleCounter)
	return pets, battles, err
}

func (s *State) SetCounters(pets, battles uint64) error {
	if err := kv.PutValue(s.tx, BucketCounters, keyPetCounter, pets); err != nil {
		return err
	}
	return kv.PutValue(s.tx, BucketCounters, keyBattleCounter, battles)
}

// Pets.

func (s *State) Pet(id string) (pet.Pet, error) {
	var p pet.Pet
	err := kv.GetValue(s.tx, BucketPets, id, &p)
	return p, err
}

func (s *State) PutPet(p pet.Pet) error { return kv.PutValue(s.tx, BucketPets, p.ID, p) }

func (s *State) DeletePet(id string) error { return s.tx.Delete(BucketPets, id) }

// Pets returns every stored pet ordered by counter value.
func (s *State) Pets() ([]pet.Pet, error) {
	var out []pet.Pet
	err := s.tx.ForEach(BucketPets, func(_ string, raw []byte) error {
		var p pet.Pet
		if err := kv.Unmarshal(raw, &p); err != nil {
			return err
		}
		out = append(out, p)
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		a, _ := pet.ParseID(out[i].ID)
		b, _ := pet.ParseID(out[j].ID)
		return a < b
	})
	return out, err
}

// Quests.

// Quests returns the quest set of a canonical address; ok is false when none was
// generated yet.
func (s *State) Quests(addr string) (qs []quest.Quest, ok bool, err error) {
	err = kv.GetValue(s.tx, BucketQuests, addr, &qs)
	if IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return qs, true, nil
}

func (s *State) PutQuests(addr string, qs []quest.Quest) error {
	return kv.PutValue(s.tx, BucketQuests, addr, qs)
}

func (s *State) History(addr string) ([]quest.History, error) {
	var hs []quest.History
	err := kv.GetValue(s.tx, BucketQuestHistory, addr, &hs)
	if IsNotFound(err) {
		return nil, nil
	}
	return hs, err
}

func (s *State) AppendHistory(addr string, h quest.History) error {
	hs, err := s.History(addr)
	if err != nil {
		return err
	}
	return kv.PutValue(s.tx, BucketQuestHistory, addr, append(hs, h))
}

func (s *State) putHistory(addr string, hs []quest.History) error {
	return kv.PutValue(s.tx, BucketQuestHistory, addr, hs)
}

// Battles.

func battleKey(id uint64) string { return fmt.Sprintf("%020d", id) }

func (s *State) Battle(id uint64) (battle.Info, error) {
	var b battle.Info
	err := kv.GetValue(s.tx, BucketBattles, battleKey(id), &b)
	return b, err
}

func (s *State) PutBattle(b battle.Info) error {
	return kv.PutValue(s.tx, BucketBattles, battleKey(b.ID), b)
}

func (s *State) DeleteBattle(id uint64) error { return s.tx.Delete(BucketBattles, battleKey(id)) }

func (s *State) PetBattles(petID string) ([]uint64, error) {
	var ids []uint64
	err := kv.GetValue(s.tx, BucketPetBattles, petID, &ids)
	if IsNotFound(err) {
		return nil, nil
	}
	return ids, err
}

func (s *State) HasPetBattle(petID string, id uint64) (bool, error) {
	ids, err := s.PetBattles(petID)
	if err != nil {
		return false, err
	}
	for _, v := range ids {
		if v == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *State) IndexBattle(petID string, id uint64) error {
	ids, err := s.PetBattles(petID)
	if err != nil {
		return err
	}
	return kv.PutValue(s.tx, BucketPetBattles, petID, append(ids, id))
}

// UnindexBattle removes id from the pet's list. A missing entry is a no-op.
func (s *State) UnindexBattle(petID string, id uint64) error {
	ids, err := s.PetBattles(petID)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, v := range ids {
		if v != id {
			kept = append(kept, v)
		}
	}
	if len(kept) == len(ids) {
		return nil
	}
	if len(kept) == 0 {
		return s.tx.Delete(BucketPetBattles, petID)
	}
	return kv.PutValue(s.tx, BucketPetBattles, petID, kept)
}

// FormatBattleID renders a battle id for logs and audit attributes.
func FormatBattleID(id uint64) string { return strconv.FormatUint(id, 10) }
