package state

import (
	"petquest.ai/internal/persistence/kv"
	"petquest.ai/internal/sim/battle"
	"petquest.ai/internal/sim/pet"
	"petquest.ai/internal/sim/quest"
)

// Dump is the complete persisted state in plain Go values.
type Dump struct {
	Config        *Config
	PetCounter    uint64
	BattleCounter uint64
	Pets          []pet.Pet
	Battles       []battle.Info
	PetBattles    map[string][]uint64
	Quests        map[string][]quest.Quest
	History       map[string][]quest.History
}

func (s *State) Dump() (Dump, error) {
	var d Dump
	if c, err := s.Config(); err == nil {
		d.Config = &c
	} else if err != ErrNoConfig {
		return d, err
	}

	var err error
	if d.PetCounter, d.BattleCounter, err = s.Counters(); err != nil {
		return d, err
	}
	if d.Pets, err = s.Pets(); err != nil {
		return d, err
	}
	err = s.tx.ForEach(BucketBattles, func(_ string, raw []byte) error {
		var b battle.Info
		if err := kv.Unmarshal(raw, &b); err != nil {
			return err
		}
		d.Battles = append(d.Battles, b)
		return nil
	})
	if err != nil {
		return d, err
	}

	d.PetBattles = map[string][]uint64{}
	if err := decodeAll(s.tx, BucketPetBattles, d.PetBattles); err != nil {
		return d, err
	}
	d.Quests = map[string][]quest.Quest{}
	if err := decodeAll(s.tx, BucketQuests, d.Quests); err != nil {
		return d, err
	}
	d.History = map[string][]quest.History{}
	if err := decodeAll(s.tx, BucketQuestHistory, d.History); err != nil {
		return d, err
	}
	return d, nil
}

// Restore replaces everything in the store with d.
func (s *State) Restore(d Dump) error {
	for _, b := range Buckets {
		if err := clearBucket(s.tx, b); err != nil {
			return err
		}
	}
	if d.Config != nil {
		if err := s.PutConfig(*d.Config); err != nil {
			return err
		}
	}
	if err := s.SetCounters(d.PetCounter, d.BattleCounter); err != nil {
		return err
	}
	for _, p := range d.Pets {
		if err := s.PutPet(p); err != nil {
			return err
		}
	}
	for _, b := range d.Battles {
		if err := s.PutBattle(b); err != nil {
			return err
		}
	}
	for id, ids := range d.PetBattles {
		if err := kv.PutValue(s.tx, BucketPetBattles, id, ids); err != nil {
			return err
		}
	}
	for addr, qs := range d.Quests {
		if err := s.PutQuests(addr, qs); err != nil {
			return err
		}
	}
	for addr, hs := range d.History {
		if err := s.putHistory(addr, hs); err != nil {
			return err
		}
	}
	return nil
}

func decodeAll[T any](tx kv.Tx, bucket string, into map[string]T) error {
	return tx.ForEach(bucket, func(k string, raw []byte) error {
		var v T
		if err := kv.Unmarshal(raw, &v); err != nil {
			return err
		}
		into[k] = v
		return nil
	})
}

func clearBucket(tx kv.Tx, bucket string) error {
	var keys []string
	if err := tx.ForEach(bucket, func(k string, _ []byte) error {
		keys = append(keys, k)
		return nil
	}); err != nil {
		return err
	}
	for _, k := range keys {
		if err := tx.Delete(bucket, k); err != nil {
			return err
		}
	}
	return nil
}
