package stats

import "strings"

// Stat names one of the five pet attributes.
type Stat string

const (
	Health       Stat = "Health"
	Strength     Stat = "Strength"
	Stamina      Stat = "Stamina"
	Intelligence Stat = "Intelligence"
	Luck         Stat = "Luck"
)

// All lists the stats in resolution order.
var All = []Stat{Health, Strength, Stamina, Intelligence, Luck}

// Parse maps text to a Stat. Unrecognized text yields Health and ok=false so the
// caller can choose between falling back and rejecting.
func Parse(s string) (Stat, bool) {
	switch strings.TrimSpace(s) {
	case "Health":
		return Health, true
	case "Strength":
		return Strength, true
	case "Stamina":
		return Stamina, true
	case "Intelligence":
		return Intelligence, true
	case "Luck":
		return Luck, true
	default:
		return Health, false
	}
}

// Set holds one value per stat.
type Set struct {
	Health       int `json:"health" msgpack:"health"`
	Strength     int `json:"strength" msgpack:"strength"`
	Stamina      int `json:"stamina" msgpack:"stamina"`
	Intelligence int `json:"intelligence" msgpack:"intelligence"`
	Luck         int `json:"luck" msgpack:"luck"`
}

func (s Set) Get(st Stat) int {
	switch st {
	case Strength:
		return s.Strength
	case Stamina:
		return s.Stamina
	case Intelligence:
		return s.Intelligence
	case Luck:
		return s.Luck
	default:
		return s.Health
	}
}

func (s *Set) Set(st Stat, v int) {
	switch st {
	case Strength:
		s.Strength = v
	case Stamina:
		s.Stamina = v
	case Intelligence:
		s.Intelligence = v
	case Luck:
		s.Luck = v
	default:
		s.Health = v
	}
}
