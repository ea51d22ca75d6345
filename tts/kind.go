package tts

import "github.com/Mulet-J/desktopeye/errors"

// Kind selects a speech backend.
type Kind int

const (
	Espeak Kind = iota
	Script
)

// DefaultKind is created when no backend is configured.
const DefaultKind = Espeak

func (k Kind) String() string {
	switch k {
	case Espeak:
		return "espeak"
	case Script:
		return "script"
	default:
		return "unknown"
	}
}

// ParseKind maps a config name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "espeak":
		return Espeak, nil
	case "script":
		return Script, nil
	}
	return 0, errors.InvalidInput("tts backend", "unknown speech backend "+s)
}

// Kinds lists every known kind.
func Kinds() []Kind { return []Kind{Espeak, Script} }
