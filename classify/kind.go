package classify

import "github.com/Mulet-J/desktopeye/errors"

// Kind selects a classifier backend.
type Kind int

const (
	Script Kind = iota
	Trigram
)

// DefaultKind is created when no backend is configured.
const DefaultKind = Script

func (k Kind) String() string {
	switch k {
	case Script:
		return "script"
	case Trigram:
		return "trigram"
	default:
		return "unknown"
	}
}

// ParseKind maps a config name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "script":
		return Script, nil
	case "trigram":
		return Trigram, nil
	}
	return 0, errors.InvalidInput("classify backend", "unknown classifier "+s)
}

// Kinds lists every known kind.
func Kinds() []Kind { return []Kind{Script, Trigram} }
