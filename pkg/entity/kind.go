package entity

import "strings"

// Kind is the closed set of entity variants.
type Kind int

const (
	KindVehicle Kind = iota
	KindShot
	KindMissile
	KindBomb
	KindPlanet
	KindSpinner
	KindAsteroid
	KindReward
	KindEnvironment
)

var kindNames = [...]string{
	KindVehicle:     "vehicle",
	KindShot:        "shot",
	KindMissile:     "missile",
	KindBomb:        "bomb",
	KindPlanet:      "planet",
	KindSpinner:     "spinner",
	KindAsteroid:    "asteroid",
	KindReward:      "reward",
	KindEnvironment: "environment",
}

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// IsWeapon reports whether the kind is one of the three weapon variants.
func (k Kind) IsWeapon() bool {
	return k == KindShot || k == KindMissile || k == KindBomb
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

// ParseKind converts a name to a Kind; the match is case-insensitive.
func ParseKind(s string) (Kind, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return 0, false
}
